package marginalia

import (
	"github.com/tsawler/marginalia/annotate"
	"github.com/tsawler/marginalia/export"
	"github.com/tsawler/marginalia/lines"
)

// Options collects the tunable behavior of an export
type Options struct {
	// CaseSensitive disables the default case-insensitive phrase search
	CaseSensitive bool

	// WholeWord requires word boundaries around each phrase occurrence
	WholeWord bool

	// Mode selects native markup annotations or flattened overlay drawing
	Mode export.Mode

	// Subtype picks the native markup kind; ignored in overlay mode
	Subtype annotate.MarkupSubtype

	// LineEpsilon is the vertical tolerance, in page units, for clustering
	// glyph runs into lines when no break markers are present
	LineEpsilon float64
}

// DefaultOptions returns the options a fresh Exporter starts with:
// case-insensitive, substring matching, native highlight annotations.
func DefaultOptions() Options {
	return Options{
		Mode:        export.ModeNative,
		Subtype:     annotate.SubtypeHighlight,
		LineEpsilon: lines.DefaultEpsilon,
	}
}
