package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/cuemby/docql/pkg/eval"
	"github.com/cuemby/docql/pkg/log"
	"github.com/cuemby/docql/pkg/metrics"
	"github.com/cuemby/docql/pkg/protocol"
	"github.com/cuemby/docql/pkg/storage"
)

// Server accepts connections speaking pkg/protocol's envelope and
// drives each Query frame through the Engine.
type Server struct {
	Store  storage.Store
	Engine *eval.Engine

	mu      sync.Mutex
	lis     net.Listener
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewServer returns a Server wired to store and an engine constructed
// over it. Grounded on the teacher's api.NewServer, minus the mTLS
// certificate loading (§1 lists auth as an external collaborator, not
// this server's concern) and minus ensureLeader (no replication here).
func NewServer(store storage.Store) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("server: store must not be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		Store:  store,
		Engine: eval.NewEngine(store),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start listens on network/addr (network is "tcp" or "unix") and
// serves connections until Stop is called. It blocks like the
// teacher's Server.Start.
func (s *Server) Start(network, addr string) error {
	lis, err := net.Listen(network, addr)
	if err != nil {
		return fmt.Errorf("server: listen %s %s: %w", network, addr, err)
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	log.Info(fmt.Sprintf("docql server listening on %s %s", network, addr))

	for {
		conn, err := lis.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// Stop closes the listener and waits for in-flight connections to
// finish their current request, mirroring the teacher's
// Server.Stop/GracefulStop.
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopped = true
	lis := s.lis
	s.mu.Unlock()
	s.cancel()
	if lis != nil {
		lis.Close()
	}
	s.wg.Wait()
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Error(fmt.Sprintf("server: recovered panic handling connection from %s: %v", conn.RemoteAddr(), r))
		}
	}()

	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	for {
		msgType, queryID, payload, err := protocol.ReadEnvelope(conn)
		if err != nil {
			if err != io.EOF {
				log.Error(fmt.Sprintf("server: read envelope from %s: %v", conn.RemoteAddr(), err))
			}
			return
		}

		if msgType != protocol.TypeQuery {
			// spec.md §6: unknown type resets the connection.
			return
		}

		q, err := protocol.UnmarshalQuery(payload)
		if err != nil {
			s.writeError(conn, queryID, "MalformedTerm", err)
			continue
		}

		resp, pErr := s.handleQuery(s.ctx, q)
		if pErr != nil {
			s.writeError(conn, queryID, pErr.Kind, fmt.Errorf("%s", pErr.Message))
			continue
		}

		body, err := protocol.MarshalResponse(resp)
		if err != nil {
			s.writeError(conn, queryID, "Internal", err)
			continue
		}
		if err := protocol.WriteEnvelope(conn, protocol.TypeResponse, queryID, body); err != nil {
			log.Error(fmt.Sprintf("server: write response to %s: %v", conn.RemoteAddr(), err))
			return
		}
	}
}

func (s *Server) writeError(conn net.Conn, queryID, kind string, err error) {
	body, mErr := protocol.MarshalError(protocol.Error{Kind: kind, Message: err.Error()})
	if mErr != nil {
		log.Error(fmt.Sprintf("server: marshal error frame: %v", mErr))
		return
	}
	if wErr := protocol.WriteEnvelope(conn, protocol.TypeError, queryID, body); wErr != nil {
		log.Error(fmt.Sprintf("server: write error frame: %v", wErr))
	}
}
