package mc

import (
	"fmt"
	"net"
	"sync"

	"github.com/roasbeef/simkernel/internal/kernel"
)

// ServerConfig configures the raw TCP listener a model checker dials into.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g. "localhost:9191").
	ListenAddr string
}

// DefaultServerConfig mirrors a local, single-checker setup.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{ListenAddr: "localhost:9191"}
}

// Server listens for a model-checker connection and drives its single
// engine through one Session per accepted connection, off the wire
// protocol in session.go. Only one checker
// is ever attached at a time (spec.md §1: the engine is single-threaded and
// owned by exactly one process), so Server accepts connections serially
// rather than spawning a pool of workers.
type Server struct {
	cfg    ServerConfig
	engine *kernel.Engine

	listener net.Listener

	mu      sync.Mutex
	started bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewServer constructs a Server that will drive engine on behalf of
// whichever checker connects.
func NewServer(cfg ServerConfig, engine *kernel.Engine) *Server {
	return &Server{cfg: cfg, engine: engine, quit: make(chan struct{})}
}

// Start begins listening and accepting checker connections in the
// background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("mc server already started")
	}

	lis, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("mc: failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}

	s.listener = lis
	s.started = true

	s.wg.Add(1)
	go s.acceptLoop()

	log.Infof("model-checker server listening on %s", lis.Addr())

	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Errorf("mc: accept error: %v", err)
				return
			}
		}

		sess := NewSession(s.engine)

		func() {
			defer conn.Close()

			if err := sess.Serve(conn); err != nil {
				log.Warnf("mc: session from %s ended: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}

// Stop closes the listener and waits for the accept loop to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	close(s.quit)

	err := s.listener.Close()
	s.wg.Wait()

	s.started = false

	return err
}

// Addr returns the address the server is listening on, or "" if not
// started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}
