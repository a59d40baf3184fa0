package objectstore

import (
	"regexp"
	"sync"

	"github.com/google/uuid"
)

// uuidPattern is the canonical v4 RFC 4122 form, case-insensitive (§3).
var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// ValidateUUID reports whether s matches the canonical v4 UUID pattern.
func ValidateUUID(s string) bool {
	return uuidPattern.MatchString(s)
}

// UUIDGenerator produces and validates v4 UUIDs (§4.1).
//
// Grounded on google/uuid's NewRandom (crypto/rand-backed, version/variant
// bits forced by the library). A process-local set of previously generated
// UUIDs guards against the astronomically unlikely duplicate.
type UUIDGenerator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewUUIDGenerator returns a ready-to-use generator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{seen: make(map[string]struct{})}
}

// Generate returns a fresh v4 UUID, or NewErrGenerationFailure if the RNG
// refuses or collisions persist beyond a handful of retries.
func (g *UUIDGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	const maxRetries = 8

	for i := 0; i < maxRetries; i++ {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", NewErrGenerationFailure(err)
		}

		s := id.String()
		if _, dup := g.seen[s]; dup {
			continue
		}

		g.seen[s] = struct{}{}

		return s, nil
	}

	return "", NewErrGenerationFailure(errTooManyCollisions)
}

// Validate reports whether s matches the canonical v4 UUID pattern.
func (g *UUIDGenerator) Validate(s string) bool {
	return ValidateUUID(s)
}

var errTooManyCollisions = errCollisions{}

type errCollisions struct{}

func (errCollisions) Error() string { return "too many UUID collisions in a row" }
