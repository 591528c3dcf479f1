package viewport

import "math"

// Size is one of the three responsive size classes.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Default breakpoint thresholds and the width assumed when the host cannot
// report one.
const (
	DefaultSmallMax  = 767
	DefaultMediumMax = 1199
	FallbackWidth    = 1200
)

// Breakpoints holds the two configurable width thresholds.
type Breakpoints struct {
	SmallMax  int `json:"small_max" toml:"small_max" yaml:"small_max"`
	MediumMax int `json:"medium_max" toml:"medium_max" yaml:"medium_max"`
}

// DefaultBreakpoints returns the standard thresholds.
func DefaultBreakpoints() Breakpoints {
	return Breakpoints{SmallMax: DefaultSmallMax, MediumMax: DefaultMediumMax}
}

// Classify maps a viewport width to its size class.
// A non-positive width is treated as FallbackWidth.
func (b Breakpoints) Classify(width float64) Size {
	if width <= 0 {
		width = FallbackWidth
	}
	if width <= float64(b.SmallMax) {
		return SizeSmall
	}
	if width <= float64(b.MediumMax) {
		return SizeMedium
	}
	return SizeLarge
}

// Visibility marks, per size class, whether a popup may be shown.
type Visibility struct {
	Small  bool `json:"small" yaml:"small"`
	Medium bool `json:"medium" yaml:"medium"`
	Large  bool `json:"large" yaml:"large"`
}

// AllVisible returns a map that allows every size class.
func AllVisible() Visibility {
	return Visibility{Small: true, Medium: true, Large: true}
}

// Allows reports whether the given size class is visible.
func (v Visibility) Allows(size Size) bool {
	switch size {
	case SizeSmall:
		return v.Small
	case SizeMedium:
		return v.Medium
	default:
		return v.Large
	}
}

// Geometry is a snapshot of the page scroll state.
type Geometry struct {
	ScrollTop      float64
	ViewportHeight float64
	DocumentHeight float64
	Width          float64
}

// ScrollableHeight is the maximum scroll offset of the document.
func (g Geometry) ScrollableHeight() float64 {
	return math.Max(0, g.DocumentHeight-g.ViewportHeight)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
