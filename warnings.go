package marginalia

import "strings"

// Warnings collects the non-fatal anomalies an export recovered from. An
// empty list means every page behaved.
type Warnings []string

// HasWarnings reports whether anything was recovered during the export
func (w Warnings) HasWarnings() bool {
	return len(w) > 0
}

// String joins the warnings for display
func (w Warnings) String() string {
	return strings.Join(w, "; ")
}
