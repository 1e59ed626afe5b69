// Package geodesy measures ground distances on a reference ellipsoid.
package geodesy

import "math"

// Ellipsoid is a reference ellipsoid given by its semi-major axis in metres
// and its flattening.
type Ellipsoid struct {
	Name string  `json:"name"`
	A    float64 `json:"a"`
	F    float64 `json:"f"`
}

// B returns the semi-minor axis.
func (e Ellipsoid) B() float64 { return e.A * (1 - e.F) }

var (
	WGS84 = Ellipsoid{Name: "WGS84", A: 6378137, F: 1 / 298.257223563}
	GRS80 = Ellipsoid{Name: "GRS80", A: 6378137, F: 1 / 298.257222101}
)

// ByName returns a built-in ellipsoid. Unknown names fall back to WGS84.
func ByName(name string) Ellipsoid {
	if name == GRS80.Name {
		return GRS80
	}
	return WGS84
}

// Point is a geographic position in degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// DistanceResult contains measurement information
type DistanceResult struct {
	Meters         float64 `json:"meters"`
	Kilometers     float64 `json:"kilometers"`
	InitialBearing float64 `json:"initial_bearing_degrees"` // clockwise from north
	FinalBearing   float64 `json:"final_bearing_degrees"`
	Method         string  `json:"method"` // "vincenty" or "haversine"
}

// Measure returns the geodesic between two points on e.
func Measure(e Ellipsoid, p1, p2 Point) *DistanceResult {
	d, az1, az2, ok := vincenty(e, p1, p2)
	method := "vincenty"
	if !ok {
		d = haversine(e, p1, p2)
		az1 = sphericalBearing(p1, p2)
		az2 = math.Mod(sphericalBearing(p2, p1)+180, 360)
		method = "haversine"
	}
	return &DistanceResult{
		Meters:         math.Round(d*1000) / 1000,
		Kilometers:     math.Round(d) / 1000,
		InitialBearing: math.Round(az1*10) / 10,
		FinalBearing:   math.Round(az2*10) / 10,
		Method:         method,
	}
}

// Distance returns the geodesic distance in metres between two lon/lat
// points. Vincenty's inverse formula is used; nearly antipodal points where
// it fails to converge fall back to the haversine great-circle distance on
// a sphere of the ellipsoid's mean radius.
func Distance(e Ellipsoid, lon1, lat1, lon2, lat2 float64) float64 {
	p1, p2 := Point{Lon: lon1, Lat: lat1}, Point{Lon: lon2, Lat: lat2}
	if d, _, _, ok := vincenty(e, p1, p2); ok {
		return d
	}
	return haversine(e, p1, p2)
}

// MetersPerDegreeLon returns the length of one degree of longitude at lat.
func MetersPerDegreeLon(e Ellipsoid, lat float64) float64 {
	phi := lat * math.Pi / 180
	e2 := e.F * (2 - e.F)
	s := math.Sin(phi)
	return math.Pi / 180 * e.A * math.Cos(phi) / math.Sqrt(1-e2*s*s)
}

// NiceLength returns the largest 1, 2 or 5 times a power of ten that does
// not exceed maxMeters. Non-positive input yields 0.
func NiceLength(maxMeters float64) float64 {
	if maxMeters <= 0 || math.IsNaN(maxMeters) || math.IsInf(maxMeters, 0) {
		return 0
	}
	mag := math.Pow(10, math.Floor(math.Log10(maxMeters)))
	if mag*10 <= maxMeters*(1+1e-12) {
		mag *= 10
	}
	for _, m := range []float64{5, 2, 1} {
		if m*mag <= maxMeters*(1+1e-12) {
			return m * mag
		}
	}
	return mag
}

const (
	vincentyEpsilon = 1e-12
	vincentyMaxIter = 200
)

func vincenty(e Ellipsoid, p1, p2 Point) (dist, az1, az2 float64, ok bool) {
	const rad = math.Pi / 180
	a, f := e.A, e.F
	b := e.B()

	L := (p2.Lon - p1.Lon) * rad
	U1 := math.Atan((1 - f) * math.Tan(p1.Lat*rad))
	U2 := math.Atan((1 - f) * math.Tan(p2.Lat*rad))
	sinU1, cosU1 := math.Sincos(U1)
	sinU2, cosU2 := math.Sincos(U2)

	lambda := L
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM, sinLambda, cosLambda float64
	for i := 0; ; i++ {
		if i == vincentyMaxIter {
			return 0, 0, 0, false
		}
		sinLambda, cosLambda = math.Sincos(lambda)
		sinSigma = math.Hypot(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda)
		if sinSigma == 0 {
			return 0, 0, 0, true
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		cos2SigmaM = 0
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}
		C := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		prev := lambda
		lambda = L + (1-C)*f*sinAlpha*(sigma+C*sinSigma*(cos2SigmaM+C*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < vincentyEpsilon {
			break
		}
	}

	uSq := cosSqAlpha * (a*a - b*b) / (b * b)
	A := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	B := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := B * sinSigma * (cos2SigmaM + B/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
	dist = b * A * (sigma - deltaSigma)

	az1 = math.Atan2(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda) / rad
	az2 = math.Atan2(cosU1*sinLambda, -sinU1*cosU2+cosU1*sinU2*cosLambda) / rad
	return dist, normBearing(az1), normBearing(az2), true
}

func haversine(e Ellipsoid, p1, p2 Point) float64 {
	const rad = math.Pi / 180
	r := (2*e.A + e.B()) / 3
	dLat := (p2.Lat - p1.Lat) * rad
	dLon := (p2.Lon - p1.Lon) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(p1.Lat*rad)*math.Cos(p2.Lat*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * r * math.Asin(math.Min(1, math.Sqrt(h)))
}

func sphericalBearing(p1, p2 Point) float64 {
	const rad = math.Pi / 180
	phi1, phi2 := p1.Lat*rad, p2.Lat*rad
	dLon := (p2.Lon - p1.Lon) * rad
	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	return normBearing(math.Atan2(y, x) / rad)
}

func normBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
