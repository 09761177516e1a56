// Package buffer defines the float image and mask planes shared by the
// crop-and-stitch pipeline.
//
// Images are height×width×channel, masks height×width, both row-major float64
// with values normalized to [0,1]. The coordinate system is 0-based with
// (0,0) at the top-left corner, X increasing rightward and Y downward.
//
// Planes are plain value containers: none of the methods here synchronize
// access, and operations in the other packages never mutate their inputs
// unless documented otherwise. Conversions to and from the standard library
// image types live here so the geometric packages never touch image.Image.
package buffer
