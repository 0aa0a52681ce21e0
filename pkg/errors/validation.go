package errors

import (
	"math"
	"unicode"
)

// ValidateElementName validates a node or flow endpoint name.
// Names double as identifiers in overlay entries and undo payloads, so the
// rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - Maximum length of 256 characters
func ValidateElementName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "element name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "element name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "element name contains invalid control characters")
		}
	}

	return nil
}

// ValidateCoordinate rejects NaN and infinite coordinate values.
// Pointer events occasionally deliver garbage when a drag leaves the
// window; the editor drops such samples rather than corrupting overlays.
func ValidateCoordinate(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidInput, "coordinate must be finite, got %v", v)
	}
	return nil
}

// ClampOpacity clamps v into [0, 1]. Returns the clamped value and whether
// clamping was applied, so callers can log a diagnostic.
func ClampOpacity(v float64) (float64, bool) {
	return clamp(v, 0, 1)
}

// ClampMargin clamps v into [0, 500]. Returns the clamped value and whether
// clamping was applied.
func ClampMargin(v float64) (float64, bool) {
	return clamp(v, 0, 500)
}

func clamp(v, lo, hi float64) (float64, bool) {
	if math.IsNaN(v) {
		return lo, true
	}
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}
