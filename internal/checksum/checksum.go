// Package checksum computes content digests used to drop duplicate change
// notifications.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Seen remembers the last digest observed per key.
type Seen struct {
	mu   sync.Mutex
	sums map[string]string
}

// NewSeen returns an empty Seen.
func NewSeen() *Seen {
	return &Seen{sums: make(map[string]string)}
}

// Observe records data under key and reports whether the digest differs
// from the previous observation.
func (s *Seen) Observe(key string, data []byte) bool {
	sum := Sum(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sums[key] == sum {
		return false
	}
	s.sums[key] = sum
	return true
}

// Has reports whether key has been observed.
func (s *Seen) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sums[key]
	return ok
}

// Set stores a known digest without reporting a change.
func (s *Seen) Set(key, sum string) {
	s.mu.Lock()
	s.sums[key] = sum
	s.mu.Unlock()
}

// Forget drops key.
func (s *Seen) Forget(key string) {
	s.mu.Lock()
	delete(s.sums, key)
	s.mu.Unlock()
}
