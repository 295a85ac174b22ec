package server

import (
	"log"
	"time"
)

// expirerInterval is the fixed sweep interval from spec.md §4.4.
const expirerInterval = 60 * time.Second

// runExpirer is the background TTL sweep, adapted from the teacher's
// cleanupExpiredKeys in server.go. Unlike the teacher (which compares an
// absolute ExpiresAt timestamp), this decrements every TTL entry by one
// each tick and evicts once it goes negative, matching
// original_source/protocol.py's _checkttl exactly — the "approximate,
// at-least-t-seconds" eviction spec.md §4.4 calls for.
func (s *Server) runExpirer(stop <-chan struct{}) {
	ticker := time.NewTicker(expirerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

func (s *Server) sweepExpired() {
	s.mu.Lock()
	var expired []string
	for key, remaining := range s.ttl {
		remaining--
		s.ttl[key] = remaining
		if remaining < 0 {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		delete(s.ttl, key)
		delete(s.data, key)
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		log.Printf("expirer: evicted %d expired key(s)", len(expired))
	}
}
