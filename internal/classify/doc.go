// Package classify partitions the pixels of a multi-band raster into land
// cover classes with k-means clustering.
//
// # Algorithm
//
// KMeans runs Lloyd's batch refinement: every feature row is assigned to its
// nearest centroid by squared Euclidean distance, then every centroid moves
// to the mean of its rows, until no assignment changes or the iteration cap
// is reached. Hitting the cap is not an error; Model.Converged reports it.
//
// # Reproducibility
//
// Initial centroids come from a PCG generator seeded with Options.Seed, so a
// fixed seed and input always yield the same labels. Distance ties go to the
// lowest cluster index.
//
// # Empty Clusters
//
// A cluster left without rows after an assignment pass is reseeded with the
// row farthest from its own centroid (lowest row index on ties), taken from a
// cluster that still has more than one row. The cluster count never shrinks.
package classify
