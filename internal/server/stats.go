package server

import "sync"

// ServerStats tracks the same operational counters the teacher's
// stats.go did, trimmed to what this dispatcher actually emits (no
// byte-level accounting, since the codec streams through bufio rather
// than assembling whole responses in memory).
type ServerStats struct {
	mu          sync.Mutex
	TotalOps    uint64
	GetOps      uint64
	SetOps      uint64
	DelOps      uint64
	Connections uint64
}

type statKind int

const (
	statTotalOps statKind = iota
	statGetOps
	statSetOps
	statDelOps
	statConnections
)

func (s *Server) incrementStat(kind statKind) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	switch kind {
	case statTotalOps:
		s.stats.TotalOps++
	case statGetOps:
		s.stats.GetOps++
	case statSetOps:
		s.stats.SetOps++
	case statDelOps:
		s.stats.DelOps++
	case statConnections:
		s.stats.Connections++
	}
}

// StatsSnapshot is a point-in-time copy of ServerStats safe to pass
// around by value (ServerStats itself embeds a mutex, so copying it
// directly would carry a copied lock).
type StatsSnapshot struct {
	TotalOps    uint64
	GetOps      uint64
	SetOps      uint64
	DelOps      uint64
	Connections uint64
}

// GetStats returns a consistent snapshot of the counters.
func (s *Server) GetStats() StatsSnapshot {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	return StatsSnapshot{
		TotalOps:    s.stats.TotalOps,
		GetOps:      s.stats.GetOps,
		SetOps:      s.stats.SetOps,
		DelOps:      s.stats.DelOps,
		Connections: s.stats.Connections,
	}
}
