// Package coords converts rectangles between the coordinate conventions in
// play: absolute page points with a bottom-left origin, and the normalized
// top-left-origin fractions used as the interchange form. Every conversion
// carries an explicit origin tag; nothing is silently assumed.
package coords

import (
	"github.com/tsawler/marginalia/model"
)

// Space tags the convention a raw rectangle is expressed in
type Space int

const (
	// SpaceUnknown requests heuristic detection from layout dimensions
	SpaceUnknown Space = iota
	// SpacePagePoints is absolute page units with a bottom-left origin
	SpacePagePoints
	// SpacePixelsTopLeft is layout pixels with a top-left origin
	SpacePixelsTopLeft
)

// DetectTolerance is the absolute difference, in points, under which a
// caller-reported layout size is taken to equal the page's point size
const DetectTolerance = 50.0

// PointRect is a rectangle in absolute page points, bottom-left origin
type PointRect struct {
	X, Y, W, H float64
}

// ToNormalized converts a page-point rectangle into normalized top-left
// form. Division by the page extent flips nothing; the Y flip is part of
// the top-left convention itself.
func ToNormalized(r PointRect, geo model.PageGeometry) model.Rect {
	if geo.IsDegenerate() {
		return model.Rect{}
	}
	return model.Rect{
		X: r.X / geo.Width,
		Y: (geo.Height - r.Y - r.H) / geo.Height,
		W: r.W / geo.Width,
		H: r.H / geo.Height,
	}
}

// ToPagePoints converts a normalized top-left rectangle back into absolute
// page points with a bottom-left origin, flipping Y via
// y' = pageHeight - y - h.
func ToPagePoints(r model.Rect, geo model.PageGeometry) PointRect {
	x := r.X * geo.Width
	y := r.Y * geo.Height
	w := r.W * geo.Width
	h := r.H * geo.Height
	return PointRect{
		X: x,
		Y: geo.Height - y - h,
		W: w,
		H: h,
	}
}

// Detect guesses the space of raw caller rectangles from the layout size
// the caller reported. When both layout dimensions are within
// DetectTolerance of the page's point dimensions the rectangles are taken
// to be page points already; otherwise they are layout pixels with a
// top-left origin.
func Detect(layoutW, layoutH float64, geo model.PageGeometry) Space {
	if abs(layoutW-geo.Width) < DetectTolerance && abs(layoutH-geo.Height) < DetectTolerance {
		return SpacePagePoints
	}
	return SpacePixelsTopLeft
}

// FromRaw converts a raw caller rectangle into normalized form. The space
// tag says how to interpret it; SpaceUnknown falls back to Detect with the
// caller's reported layout size.
func FromRaw(x, y, w, h float64, layoutW, layoutH float64, space Space, geo model.PageGeometry) model.Rect {
	if space == SpaceUnknown {
		space = Detect(layoutW, layoutH, geo)
	}

	switch space {
	case SpacePagePoints:
		return ToNormalized(PointRect{X: x, Y: y, W: w, H: h}, geo)
	default:
		if layoutW <= 0 || layoutH <= 0 {
			return model.Rect{}
		}
		// Already top-left: scale only
		return model.Rect{
			X: x / layoutW,
			Y: y / layoutH,
			W: w / layoutW,
			H: h / layoutH,
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
