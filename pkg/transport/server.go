package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/btserial/btserial-go/pkg/log"
)

// Wireless server defaults.
const (
	DefaultAddress      = ":7070"
	DefaultWriteTimeout = 2 * time.Second

	// Accept retry delays after a failed Accept, e.g. out of descriptors.
	DefaultAcceptRetry    = 5 * time.Millisecond
	DefaultMaxAcceptRetry = 1 * time.Second

	// BusyMessage is sent to a client that connects while another client
	// holds the link.
	BusyMessage = "ERROR: wireless link busy\n"
)

// ServerConfig configures the wireless server.
type ServerConfig struct {
	// Address to listen on (e.g., ":7070" or "127.0.0.1:0").
	Address string

	// WriteTimeout bounds each write to the client (default: 2s).
	WriteTimeout time.Duration

	// ReadSize is the read buffer size (default: 256).
	ReadSize int

	// AcceptBackoff controls the delay after a failed Accept
	// (default: 5ms doubling up to 1s).
	AcceptBackoff BackoffConfig

	// Listen opens the listener (default: net.Listen).
	Listen func(network, address string) (net.Listener, error)

	// Logger for operational messages (optional).
	Logger *slog.Logger

	// ProtocolLogger records connect and disconnect events (optional).
	ProtocolLogger log.Logger

	// OnConnect is called when a client attaches.
	OnConnect func(conn *Conn)

	// OnDisconnect is called when the client detaches.
	OnDisconnect func(conn *Conn)

	// OnData receives every chunk from the client. The slice is reused
	// after OnData returns.
	OnData func(data []byte)
}

// Server accepts the wireless serial link. It holds at most one client.
type Server struct {
	config   ServerConfig
	listener net.Listener
	backoff  *Backoff

	mu     sync.RWMutex
	active *Conn

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a wireless server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Address == "" {
		config.Address = DefaultAddress
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.ReadSize <= 0 {
		config.ReadSize = DefaultReadSize
	}
	if config.AcceptBackoff.Initial <= 0 {
		config.AcceptBackoff.Initial = DefaultAcceptRetry
	}
	if config.AcceptBackoff.Max <= 0 {
		config.AcceptBackoff.Max = DefaultMaxAcceptRetry
	}
	if config.Listen == nil {
		config.Listen = net.Listen
	}
	return &Server{
		config:  config,
		backoff: NewBackoffWithConfig(config.AcceptBackoff),
	}, nil
}

// Start starts listening and accepting clients.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrRunning
	}

	listener, err := s.config.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and the client, then waits for all goroutines.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()

	s.mu.RLock()
	listener := s.listener
	active := s.active
	s.mu.RUnlock()

	if listener != nil {
		listener.Close()
	}
	if active != nil {
		active.Close()
	}

	s.wg.Wait()
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// Connected reports whether a client is attached.
func (s *Server) Connected() bool {
	return s.Client() != nil
}

// Client returns the attached client, or nil.
func (s *Server) Client() *Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Write sends p to the attached client.
func (s *Server) Write(p []byte) (int, error) {
	c := s.Client()
	if c == nil {
		return 0, ErrNotConnected
	}
	return c.write(p, s.config.WriteTimeout)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			delay := s.backoff.Next()
			s.warn("accept failed", "error", err, "retry", delay)
			if !sleep(s.ctx, delay) {
				return
			}
			continue
		}
		s.backoff.Reset()

		c := &Conn{
			conn:       conn,
			id:         uuid.New().String(),
			remoteAddr: conn.RemoteAddr(),
		}

		s.mu.Lock()
		if s.active != nil {
			s.mu.Unlock()
			s.reject(c)
			continue
		}
		s.active = c
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(c)
	}
}

func (s *Server) reject(c *Conn) {
	s.warn("rejected client, link busy", "remote", c.remoteAddr.String())
	c.write([]byte(BusyMessage), s.config.WriteTimeout)
	c.Close()
}

func (s *Server) handleConnection(c *Conn) {
	defer s.wg.Done()

	stop := context.AfterFunc(s.ctx, func() { c.Close() })
	defer stop()

	s.info("client connected", "remote", c.remoteAddr.String(), "conn", c.id)
	s.traceState(c, "", "CONNECTED")
	if s.config.OnConnect != nil {
		s.config.OnConnect(c)
	}

	err := c.readLoop(s.config.ReadSize, s.config.OnData)

	s.mu.Lock()
	if s.active == c {
		s.active = nil
	}
	s.mu.Unlock()
	c.Close()

	if err != nil && err != io.EOF && s.running.Load() {
		s.info("client read ended", "conn", c.id, "error", err)
	}
	s.info("client disconnected", "remote", c.remoteAddr.String(), "conn", c.id)
	s.traceState(c, "CONNECTED", "DISCONNECTED")
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(c)
	}
}

func (s *Server) traceState(c *Conn, oldState, newState string) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.id,
		Channel:   "WIRELESS",
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   c.remoteAddr.String(),
		},
	})
}

func (s *Server) info(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, args...)
	}
}

func (s *Server) warn(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, args...)
	}
}

// Conn is an attached wireless client.
type Conn struct {
	conn       net.Conn
	id         string
	remoteAddr net.Addr
	closeOnce  sync.Once

	writeMu sync.Mutex
}

// ID returns the unique connection identifier.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the client's address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// Close closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) write(p []byte, timeout time.Duration) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.Write(p)
}

func (c *Conn) readLoop(size int, onData func([]byte)) error {
	buf := make([]byte, size)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 && onData != nil {
			onData(buf[:n])
		}
		if err != nil {
			return err
		}
	}
}
