package classify

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Init selects how initial centroids are chosen.
type Init string

const (
	// InitKMeansPlusPlus spreads initial centroids by D² sampling.
	InitKMeansPlusPlus Init = "kmeans++"
	// InitForgy picks K distinct rows uniformly at random.
	InitForgy Init = "forgy"
)

// ParseInit maps a configuration string to an Init. The empty string selects
// k-means++.
func ParseInit(s string) (Init, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kmeans++", "k-means++", "plusplus":
		return InitKMeansPlusPlus, nil
	case "forgy", "random":
		return InitForgy, nil
	default:
		return "", eris.Wrapf(ErrUnknownInit, "classify: %q", s)
	}
}

// Options configures KMeans.
type Options struct {
	K             int    `json:"k" yaml:"k"`
	Seed          int64  `json:"seed" yaml:"seed"`
	MaxIterations int    `json:"max_iterations" yaml:"max_iterations"`
	Init          Init   `json:"init" yaml:"init"`
	BandName      string `json:"band_name,omitempty" yaml:"band_name,omitempty"`
}

// Defaults used when an Options field is zero.
const (
	DefaultK             = 5
	DefaultSeed          = 1
	DefaultMaxIterations = 100
)

// DefaultOptions returns the options used by the pipeline when nothing is
// configured.
func DefaultOptions() Options {
	return Options{K: DefaultK, Seed: DefaultSeed, MaxIterations: DefaultMaxIterations, Init: InitKMeansPlusPlus}
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Init == "" {
		o.Init = InitKMeansPlusPlus
	}
	if o.BandName == "" {
		o.BandName = "class"
	}
	return o
}

// Model is a fitted k-means partition.
type Model struct {
	// Centroids holds one mean vector per cluster.
	Centroids [][]float64 `json:"centroids" yaml:"centroids"`
	// Labels holds the cluster of every feature row, in row order.
	Labels []int `json:"-" yaml:"-"`
	// Sizes holds the number of rows per cluster.
	Sizes      []int   `json:"sizes" yaml:"sizes"`
	Iterations int     `json:"iterations" yaml:"iterations"`
	Converged  bool    `json:"converged" yaml:"converged"`
	Inertia    float64 `json:"inertia" yaml:"inertia"`
}

// K returns the number of clusters.
func (m *Model) K() int { return len(m.Centroids) }

// Predict returns the cluster whose centroid is nearest to vec.
func (m *Model) Predict(vec []float64) int {
	best, _ := nearest(m.Centroids, vec)
	return best
}

// KMeans partitions the rows of data into opts.K clusters.
func KMeans(data mat.Matrix, opts Options) (*Model, error) {
	opts = opts.withDefaults()
	if opts.K < 1 {
		return nil, eris.Wrapf(ErrInvalidK, "classify: k=%d", opts.K)
	}
	n, _ := data.Dims()
	if n < opts.K {
		return nil, eris.Wrapf(ErrTooFewPixels, "classify: %d rows for k=%d", n, opts.K)
	}

	points := make([][]float64, n)
	for i := range points {
		points[i] = mat.Row(nil, i, data)
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0x9e3779b97f4a7c15))
	var centroids [][]float64
	switch opts.Init {
	case InitKMeansPlusPlus:
		centroids = seedPlusPlus(points, opts.K, rng)
	case InitForgy:
		centroids = seedForgy(points, opts.K, rng)
	default:
		return nil, eris.Wrapf(ErrUnknownInit, "classify: %q", opts.Init)
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	sizes := make([]int, opts.K)
	m := &Model{Centroids: centroids, Labels: labels, Sizes: sizes}

	for m.Iterations < opts.MaxIterations {
		m.Iterations++
		changed := assign(points, centroids, labels)
		if !changed {
			m.Converged = true
			break
		}
		update(points, centroids, labels, sizes)
	}

	countSizes(labels, sizes)
	for i, p := range points {
		d := floats.Distance(p, centroids[labels[i]], 2)
		m.Inertia += d * d
	}
	return m, nil
}

// assign moves every point to its nearest centroid and reports whether any
// label changed.
func assign(points, centroids [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, _ := nearest(centroids, p)
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// update recomputes centroids as cluster means. An empty cluster takes over
// the row farthest from its own centroid and all means are recomputed, until
// no cluster is empty.
func update(points, centroids [][]float64, labels, sizes []int) {
	for {
		means(points, centroids, labels, sizes)
		empty := -1
		for k, size := range sizes {
			if size == 0 {
				empty = k
				break
			}
		}
		if empty < 0 {
			return
		}
		donor := farthestPoint(points, centroids, labels, sizes)
		labels[donor] = empty
	}
}

func means(points, centroids [][]float64, labels, sizes []int) {
	countSizes(labels, sizes)
	for k := range centroids {
		if sizes[k] == 0 {
			continue
		}
		for d := range centroids[k] {
			centroids[k][d] = 0
		}
	}
	for i, p := range points {
		floats.Add(centroids[labels[i]], p)
	}
	for k := range centroids {
		if sizes[k] > 0 {
			floats.Scale(1/float64(sizes[k]), centroids[k])
		}
	}
}

// farthestPoint returns the row farthest from its assigned centroid among
// clusters holding more than one row. Ties go to the lowest row index.
func farthestPoint(points, centroids [][]float64, labels, sizes []int) int {
	best, bestDist := -1, -1.0
	for i, p := range points {
		k := labels[i]
		if sizes[k] < 2 {
			continue
		}
		d := floats.Distance(p, centroids[k], 2)
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func countSizes(labels, sizes []int) {
	for k := range sizes {
		sizes[k] = 0
	}
	for _, l := range labels {
		sizes[l]++
	}
}

// nearest returns the index and squared distance of the closest centroid.
// Ties resolve to the lowest index.
func nearest(centroids [][]float64, p []float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for k, c := range centroids {
		var d float64
		for j, v := range p {
			diff := v - c[j]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = k, d
		}
	}
	return best, bestDist
}

func seedForgy(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(points))
	centroids := make([][]float64, k)
	for i := range centroids {
		centroids[i] = append([]float64(nil), points[perm[i]]...)
	}
	return centroids
}

// seedPlusPlus implements k-means++ seeding: each further centroid is drawn
// with probability proportional to its squared distance from the nearest
// centroid chosen so far.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), points[rng.IntN(n)]...))

	dist := make([]float64, n)
	for i, p := range points {
		_, dist[i] = nearest(centroids, p)
	}
	for len(centroids) < k {
		total := floats.Sum(dist)
		next := 0
		if total == 0 {
			next = rng.IntN(n)
		} else {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target < 0 {
					next = i
					break
				}
				next = i
			}
		}
		c := append([]float64(nil), points[next]...)
		centroids = append(centroids, c)
		for i, p := range points {
			_, d := nearest(centroids[len(centroids)-1:], p)
			if d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}
