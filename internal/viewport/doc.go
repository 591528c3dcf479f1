// Package viewport classifies viewport widths into responsive size classes and
// carries the scroll geometry shared by every popup on a page.
//
// Breakpoints are inclusive upper bounds:
//
//	small:  width <= SmallMax
//	medium: width <= MediumMax
//	large:  everything else
//
// The defaults (767/1199) match common CSS breakpoints of 768 and 1200.
package viewport
