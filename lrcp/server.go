package lrcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-lrcp/internal/task"
	"github.com/arloliu/go-lrcp/logger"
)

// Server multiplexes LRCP sessions over a single datagram endpoint.
//
// One receive loop reads and dispatches datagrams serially, and every open session owns
// an interval task that retransmits its unacknowledged DATA frames.
type Server struct {
	cfg      *ServerConfig
	logger   logger.Logger
	handler  StreamHandler
	registry *Registry
	taskMgr  *task.Manager

	connMu   sync.RWMutex
	conn     net.PacketConn
	serving  atomic.Bool
	shutdown atomic.Bool
	genID    atomic.Uint64 // distinguishes sessions that reuse an id

	metrics ServerMetrics
}

// NewServer creates a Server that delivers session streams to handler.
// The server does nothing until Serve or ListenAndServe is called.
func NewServer(ctx context.Context, cfg *ServerConfig, handler StreamHandler) (*Server, error) {
	if cfg == nil {
		return nil, ErrServerConfigNil
	}
	if handler == nil {
		return nil, ErrHandlerNil
	}

	l := cfg.Logger()

	return &Server{
		cfg:      cfg,
		logger:   l,
		handler:  handler,
		registry: NewRegistry(),
		taskMgr:  task.NewManager(ctx, l),
	}, nil
}

// GetLogger returns the logger associated with the server.
func (s *Server) GetLogger() logger.Logger {
	return s.logger
}

// GetMetrics returns the metrics associated with the server.
func (s *Server) GetMetrics() *ServerMetrics {
	return &s.metrics
}

// Registry returns the registry of open sessions.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Addr returns the local address of the served endpoint, or nil before Serve.
func (s *Server) Addr() net.Addr {
	conn := s.getConn()
	if conn == nil {
		return nil
	}

	return conn.LocalAddr()
}

// ListenAndServe listens on the UDP address addr and serves it. It returns once the
// receive loop has started.
func (s *Server) ListenAndServe(addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}

	if err := s.Serve(conn); err != nil {
		_ = conn.Close()
		return err
	}

	return nil
}

// Serve starts the receive loop on conn and returns immediately.
// The server takes ownership of conn and closes it in Close.
func (s *Server) Serve(conn net.PacketConn) error {
	if s.shutdown.Load() {
		return ErrServerClosed
	}
	if !s.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.logger.Info("lrcp server started", "addr", conn.LocalAddr())

	buf := make([]byte, s.cfg.MaxDatagramSize()+1)

	return s.taskMgr.Start("receiver", func() bool {
		return s.receive(conn, buf)
	})
}

// Close shuts the server down: it stops the receive loop and all retransmission tasks,
// closes the channel, and removes every remaining session.
func (s *Server) Close() error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	s.taskMgr.Stop()

	var err error
	if conn := s.getConn(); conn != nil {
		err = conn.Close()
	}

	s.taskMgr.Wait()

	s.registry.Range(func(sess *Session) bool {
		s.removeSession(sess)
		return true
	})

	s.logger.Info("lrcp server closed",
		"datagrams_in", s.metrics.DatagramRecvCount.Load(),
		"datagrams_out", s.metrics.DatagramSendCount.Load(),
	)

	return err
}

// receive reads and dispatches one datagram. It returns false when the loop should exit.
func (s *Server) receive(conn net.PacketConn, buf []byte) bool {
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout())); err != nil && !s.shutdown.Load() {
		s.logger.Debug("set read deadline failed", "error", err)
	}

	n, addr, err := conn.ReadFrom(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		if s.shutdown.Load() || errors.Is(err, net.ErrClosed) {
			return false
		}
		s.logger.Error("read datagram failed", "error", err)

		return true
	}

	s.handleDatagram(buf[:n], addr)

	return true
}

// sendDatagram writes b to addr. A failure only affects this datagram; session state is untouched.
func (s *Server) sendDatagram(b []byte, addr net.Addr) {
	conn := s.getConn()
	if conn == nil {
		return
	}

	if _, err := conn.WriteTo(b, addr); err != nil {
		s.metrics.incSendErrCount()
		if !s.shutdown.Load() {
			s.logger.Error("send datagram failed", "peer", addr, "error", err)
		}

		return
	}
	s.metrics.incDatagramSendCount()
}

func (s *Server) getConn() net.PacketConn {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	return s.conn
}
