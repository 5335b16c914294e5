// Package mathutil provides common mathematical utility functions.
package mathutil

import "math"

// IsFinite reports whether val is neither NaN nor an infinity.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// WithinRelativeTolerance checks whether two values agree to the given relative
// tolerance, measured against the larger magnitude.
func WithinRelativeTolerance(val1, val2, tolerance float64) bool {
	scale := math.Max(math.Abs(val1), math.Abs(val2))
	if scale == 0 {
		return true
	}
	return math.Abs(val1-val2)/scale <= tolerance
}
