package testutil

// FixedIDGenerator generates the same request ID every time.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same request against the same table produces a byte-identical response
// envelope.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a new fixed request ID generator.
//
// If id is empty, Generate() returns "test-request-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-request-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed request ID.
//
// Implements api.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
