package idgen

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// NewVideoID returns a fresh record identifier.
func NewVideoID() string {
	return uuid.NewString()
}

// NewPromptID returns a fresh prompt identifier.
func NewPromptID() string {
	return uuid.NewString()
}

// NewObjectSuffix returns a time-ordered, never-repeating suffix for
// durable storage keys, so copy attempts never overwrite each other.
func NewObjectSuffix() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return strings.ToLower(id.String())
}
