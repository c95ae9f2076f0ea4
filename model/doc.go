// Package model provides the geometric primitives and annotation data model
// shared by the search and export packages: 2D affine matrices, bounding
// boxes, glyph runs, normalized rectangles, and margin notes.
package model
