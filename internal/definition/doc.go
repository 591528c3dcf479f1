// Package definition turns popup descriptions into engine registrations.
//
// Popups are described in one of two ways:
//
//   - CUE files declaring `popup: <name>: {...}` values, validated against the
//     embedded closed #Popup schema (see schema.cue).
//   - data-launchpop-* attributes on page elements, parsed by FromElement and
//     registered in bulk by Init.
//
// CUE definitions are strict: out-of-range values and unknown fields are
// rejected. Attributes are lenient: integers are parsed from their leading
// digits, clamped to the trigger ranges, and malformed booleans are false.
package definition
