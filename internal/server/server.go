package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Server is the shared process-wide state every connection and the
// expirer operate on: the store, the TTL table, and the waiter queues,
// all behind one mutex (spec.md §5: "a single mutex ... MUST protect all
// mutations"; finer-grained locking is allowed but not required, and the
// teacher's per-structure locks in data_structures.go are dropped in
// favor of this simpler scheme — see DESIGN.md). It plays the role of
// the teacher's GoFastServer.
type Server struct {
	mu      sync.Mutex
	data    map[string]Value
	ttl     map[string]int64
	waiters map[string]*waiterQueue

	stats    *ServerStats
	bytePool *BytePool
	codec    *Codec

	listener net.Listener
	sem      *semaphore.Weighted
	port     int
	running  atomic.Bool
	config   *Config

	stopCh       chan struct{}
	expirerDone  chan struct{}
}

func NewServer(port int) *Server {
	bp := NewBytePool()
	return &Server{
		data:     make(map[string]Value),
		ttl:      make(map[string]int64),
		waiters:  make(map[string]*waiterQueue),
		stats:    &ServerStats{},
		bytePool: bp,
		codec:    NewCodec(bp),
		port:     port,
		sem:      semaphore.NewWeighted(defaultMaxClients),
	}
}

// defaultMaxClients is the worker pool cap spec.md §5 names.
const defaultMaxClients = 64

func (s *Server) SetConfig(config *Config) {
	s.config = config
	if config != nil && config.MaxClients > 0 {
		s.sem = semaphore.NewWeighted(int64(config.MaxClients))
	}
}

// Start begins listening and accepting connections, blocking until Stop
// is called or the listener fails.
func (s *Server) Start() error {
	host := "127.0.0.1"
	if s.config != nil && s.config.Host != "" {
		host = s.config.Host
	}
	address := fmt.Sprintf("%s:%d", host, s.port)

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	log.Printf("miniredis server started on %s", address)
	return s.ServeOn(listener)
}

// ServeOn runs the accept loop against an already-open listener, blocking
// until Stop is called or the listener fails. It exists separately from
// Start so tests can bind an ephemeral port themselves instead of racing
// a fixed one.
func (s *Server) ServeOn(listener net.Listener) error {
	s.listener = listener
	s.stopCh = make(chan struct{})
	s.expirerDone = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.expirerDone)
		s.runExpirer(s.stopCh)
	}()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Printf("accept error: %v", err)
			continue
		}

		if err := s.sem.Acquire(context.Background(), 1); err != nil {
			conn.Close()
			continue
		}
		s.incrementStat(statConnections)

		go func() {
			defer s.sem.Release(1)
			s.handleConnection(conn)
		}()
	}

	return nil
}

// Stop closes the listener and stops the expirer. In-flight connections
// are not forcibly cut off — same as the teacher's Stop, which only ever
// closed the listener.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
	if s.listener != nil {
		s.listener.Close()
	}
	<-s.expirerDone
}

// handleConnection drives the per-connection request/reply loop of
// spec.md §4.5: decode one frame, dispatch, encode the reply, repeat
// until the peer disconnects or sends something malformed.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		frame, err := s.codec.Decode(reader)
		if err != nil {
			if err != ErrDisconnect {
				log.Printf("bad request from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		reply := s.Dispatch(frame)

		if err := s.codec.Encode(writer, reply); err != nil {
			log.Printf("write error to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}
