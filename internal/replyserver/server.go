// Package replyserver accepts TCP connections one at a time and answers each
// with the next pre-recorded test case, then with a canned default response.
package replyserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChristianLindehammar/http-reply-test-server/internal/config"
	"github.com/ChristianLindehammar/http-reply-test-server/internal/testcase"
	"github.com/ChristianLindehammar/http-reply-test-server/pkg/journal"
	"github.com/ChristianLindehammar/http-reply-test-server/pkg/netutil"
)

// DefaultResponse is sent to every connection once the test cases are used up.
const DefaultResponse = "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 13\r\n\r\nHello, World!"

// dotInterval is how often a progress dot is printed while waiting to accept.
const dotInterval = time.Second

// Server injects test cases into accepted connections.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	console *Console
	journal journal.Emitter
	newID   func() string

	mu        sync.Mutex
	listener  net.Listener
	delivered int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConsole sets the human-readable progress output.
func WithConsole(c *Console) Option {
	return func(s *Server) {
		if c != nil {
			s.console = c
		}
	}
}

// WithJournal records every injection to e.
func WithJournal(e journal.Emitter) Option {
	return func(s *Server) {
		if e != nil {
			s.journal = e
		}
	}
}

// WithIDGenerator replaces the connection ID source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates a Server. The console defaults to discarding output and the
// journal to NopEmitter.
func New(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:     cfg,
		logger:  slog.Default(),
		console: NewConsole(nil),
		journal: journal.NopEmitter{},
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the configured port on all interfaces with SO_REUSEADDR.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	addr := s.cfg.ListenAddr()
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Delivered is the number of test cases written so far.
func (s *Server) Delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}

// Close releases the listening socket. A running Run returns nil.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Run injects every case in set, one per accepted connection in ascending
// order, then serves DefaultResponse until ctx is cancelled. With Once set it
// returns after the last case. Cancellation and Close are not errors.
func (s *Server) Run(ctx context.Context, set *testcase.Set) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	s.console.Listening(ln.Addr(), set.Len())
	s.emit(journal.NewServerListening(ln.Addr().String(), set.Len()))

	var cases []testcase.Case
	if set != nil {
		cases = set.Cases
	}
	for _, c := range cases {
		if err := s.injectOne(ctx, ln, c); err != nil {
			return s.finish(ctx, err)
		}
	}

	if s.cfg.Once {
		return s.finish(ctx, nil)
	}
	return s.finish(ctx, s.serveDefault(ctx, ln))
}

// finish turns shutdown conditions into a nil result and records the end of
// the run.
func (s *Server) finish(ctx context.Context, err error) error {
	reason := "completed"
	switch {
	case err == nil:
	case ctx.Err() != nil:
		reason = "cancelled"
		err = nil
	case errors.Is(err, net.ErrClosed):
		reason = "closed"
		err = nil
	default:
		reason = "failed"
	}
	s.console.ShuttingDown()
	s.logger.Info("server shutting down", "reason", reason, "delivered", s.Delivered())
	s.emit(journal.NewServerShutdown(reason, s.Delivered()))
	return err
}

// injectOne delivers c to exactly one connection. A load failure skips the
// case; a read failure keeps it pending for the next connection.
func (s *Server) injectOne(ctx context.Context, ln net.Listener, c testcase.Case) error {
	payload, err := c.Payload()
	if err != nil {
		s.logger.Error("error processing test case", "name", c.Name, "index", c.Index, "error", err)
		s.emit(journal.NewCaseFailed("", "", c.Index, c.Name, "load", err))
		return nil
	}

	s.console.Waiting(c.Index)
	for {
		conn, err := s.accept(ctx, ln)
		if err != nil {
			return err
		}
		done, err := s.deliver(ctx, conn, c, payload)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		s.console.Waiting(c.Index)
	}
}

// deliver runs one injection exchange. It reports false when the request
// could not be read and the case must be offered to the next connection.
func (s *Server) deliver(ctx context.Context, conn net.Conn, c testcase.Case, payload []byte) (bool, error) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	id := s.newID()
	peer := conn.RemoteAddr()
	log := s.logger.With("conn_id", id, "peer", netutil.PeerIP(peer), "index", c.Index)
	s.console.Connection(peer, 0)

	req, err := s.readRequest(conn)
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		log.Warn("read request failed, test case stays pending", "error", err)
		s.emit(journal.NewCaseFailed(id, netutil.PeerIP(peer), c.Index, c.Name, "read", err))
		return false, nil
	}
	line := netutil.RequestLine(req)
	if netutil.HasRequest(req) {
		s.console.Request(line)
		log.Debug("received request", "request", line)
	}

	s.console.Injecting(c.Index, len(payload))
	s.markDelivered()
	if _, err := conn.Write(payload); err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		log.Error("write test case failed", "error", err)
		s.emit(journal.NewCaseFailed(id, netutil.PeerIP(peer), c.Index, c.Name, "write", err))
	} else {
		log.Info("injected test case", "name", c.Name, "bytes", len(payload))
		s.emit(journal.NewCaseInjected(id, netutil.PeerIP(peer), c.Index, c.Name, len(payload), line))
	}

	if err := s.holdOpen(ctx); err != nil {
		return true, err
	}
	if err := conn.Close(); err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		log.Error("close connection failed", "error", err)
		s.emit(journal.NewCaseFailed(id, netutil.PeerIP(peer), c.Index, c.Name, "close", err))
	}
	return true, nil
}

// serveDefault answers every connection with DefaultResponse until ctx is
// cancelled or the listener is closed.
func (s *Server) serveDefault(ctx context.Context, ln net.Listener) error {
	s.console.ServingDefault()
	for n := 1; ; n++ {
		conn, err := s.accept(ctx, ln)
		if err != nil {
			return err
		}
		if err := s.answerDefault(ctx, conn, n); err != nil {
			return err
		}
	}
}

func (s *Server) answerDefault(ctx context.Context, conn net.Conn, n int) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	id := s.newID()
	peer := conn.RemoteAddr()
	log := s.logger.With("conn_id", id, "peer", netutil.PeerIP(peer), "connection", n)
	s.console.Connection(peer, n)

	req, err := s.readRequest(conn)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("read request failed", "error", err)
		return nil
	}
	if netutil.HasRequest(req) {
		line := netutil.RequestLine(req)
		s.console.Request(line)
		log.Debug("received request", "request", line)
	}

	if _, err := io.WriteString(conn, DefaultResponse); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error("send default response failed", "error", err)
		return nil
	}
	s.console.DefaultSent()
	s.emit(journal.NewDefaultServed(id, netutil.PeerIP(peer), n))
	return nil
}

// deadliner is implemented by *net.TCPListener.
type deadliner interface {
	SetDeadline(time.Time) error
}

// accept waits for the next connection in PollInterval slices so that
// cancellation is observed promptly, printing a dot every second.
func (s *Server) accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	waited := time.Duration(0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d, ok := ln.(deadliner); ok {
			if err := d.SetDeadline(time.Now().Add(s.cfg.PollInterval)); err != nil {
				return nil, fmt.Errorf("set accept deadline: %w", err)
			}
		}

		conn, err := ln.Accept()
		switch {
		case err == nil:
			return conn, nil
		case errors.Is(err, os.ErrDeadlineExceeded):
			waited += s.cfg.PollInterval
			if waited >= dotInterval {
				s.console.Dot()
				waited = 0
			}
		case errors.Is(err, net.ErrClosed):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		default:
			s.logger.Error("accept failed", "error", err)
			if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
				return nil, err
			}
		}
	}
}

// readRequest reads once, up to ReadBudget bytes. A peer that closes without
// sending anything yields an empty request.
func (s *Server) readRequest(conn net.Conn) ([]byte, error) {
	if s.cfg.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return nil, err
		}
	}
	buf := make([]byte, s.cfg.ReadBudget)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// holdOpen waits CloseDelay before the connection is closed.
func (s *Server) holdOpen(ctx context.Context) error {
	if s.cfg.CloseDelay <= 0 {
		return nil
	}
	return s.sleep(ctx, s.cfg.CloseDelay)
}

func (s *Server) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Server) markDelivered() {
	s.mu.Lock()
	s.delivered++
	s.mu.Unlock()
}

func (s *Server) emit(ev journal.Event) {
	if err := s.journal.Emit(ev); err != nil {
		s.logger.Warn("journal emit failed", "event", string(ev.Type), "error", err)
	}
}
