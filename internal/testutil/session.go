package testutil

// FixedSessionGenerator returns the same session id every time.
//
// This makes session-scoped counter keys stable across runs so stored
// counters can be compared against golden output.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id.
// If id is empty, Generate() returns "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session id.
//
// Implements store.IDGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
