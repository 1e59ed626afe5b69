// Package pipeline runs a complete land-cover job: stack the input bands,
// optionally crop them, cluster the pixels, reproject the class map, fetch a
// basemap and write the rendered map alongside the raster, vector and
// manifest outputs.
package pipeline
