package http

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var ErrServerClosed = errors.New("http: server closed")

const (
	shutdownPollInterval = 10 * time.Millisecond
	maxAcceptDelay       = time.Second

	// Unread request bytes left behind by a refused body are discarded up to
	// this amount before closing, so the close does not reset the connection
	// under the client before it reads the error response.
	maxDrainSize = 256 << 10
	drainTimeout = 500 * time.Millisecond
)

// Server accepts connections and runs one goroutine per connection. Each
// connection serves requests one after another until the client sends
// Connection: close, the stream ends, or a framing error occurs.
type Server struct {
	Name    string
	Handler Handler
	Logger  *slog.Logger

	// MaxBodySize limits the declared Content-Length. Zero means no limit.
	MaxBodySize int
	// MaxConns limits concurrent connections. Zero means no limit.
	MaxConns int
	// ReadTimeout bounds the wait for each request. Zero means wait forever.
	ReadTimeout time.Duration

	MeterProvider metric.MeterProvider

	initOnce      sync.Once
	pool          connPool
	activeConns   metric.Int64UpDownCounter
	rejectedConns metric.Int64Counter

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[*trackedConn]struct{}
	closed    atomic.Bool
}

const (
	stateActive int32 = iota
	stateIdle
	stateClosed
)

// trackedConn is idle while waiting for the first byte of a request and
// active from then until its response is written. Only idle connections are
// closed by Shutdown, and the swap out of idle decides who wins a race.
type trackedConn struct {
	net.Conn
	state atomic.Int32
}

func (tc *trackedConn) setIdle() {
	tc.state.Store(stateIdle)
}

// setActive reports false when Shutdown closed the connection first.
func (tc *trackedConn) setActive() bool {
	return tc.state.CompareAndSwap(stateIdle, stateActive)
}

func (tc *trackedConn) closeIfIdle() bool {
	if !tc.state.CompareAndSwap(stateIdle, stateClosed) {
		return false
	}
	tc.Close()
	return true
}

func NewServer(name string, handler Handler) *Server {
	return &Server{
		Name:          name,
		Handler:       handler,
		Logger:        slog.Default(),
		MaxBodySize:   MaxRequestSize,
		MeterProvider: otel.GetMeterProvider(),
	}
}

func (s *Server) init() {
	s.initOnce.Do(func() {
		if s.MaxConns > 0 {
			s.pool = newBoundedPool(s.MaxConns)
		} else {
			s.pool = newUnboundedPool()
		}

		s.listeners = make(map[net.Listener]struct{})
		s.conns = make(map[*trackedConn]struct{})

		provider := s.MeterProvider
		if provider == nil {
			provider = otel.GetMeterProvider()
		}
		meter := provider.Meter(instrumentationName)

		var err error
		s.activeConns, err = meter.Int64UpDownCounter("http.server.active_connections",
			metric.WithDescription("Number of open client connections"),
			metric.WithUnit("{connection}"))
		if err != nil {
			s.log().Warn("creating connection gauge failed", "error", err)
			s.activeConns = noop.Int64UpDownCounter{}
		}

		s.rejectedConns, err = meter.Int64Counter("http.server.rejected_connections",
			metric.WithDescription("Connections refused because the connection limit was reached"),
			metric.WithUnit("{connection}"))
		if err != nil {
			s.log().Warn("creating rejection counter failed", "error", err)
			s.rejectedConns = noop.Int64Counter{}
		}
	})
}

func (s *Server) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) shuttingDown() bool {
	return s.closed.Load()
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if s.shuttingDown() {
		return ErrServerClosed
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.log().Info("listening", "server", s.Name, "addr", listener.Addr().String())
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until Shutdown is called.
// It always returns a non-nil error.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.init()

	if !s.trackListener(listener, true) {
		listener.Close()
		return ErrServerClosed
	}
	defer s.trackListener(listener, false)

	var delay time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.log().Warn("accepting connection failed", "error", err, "retry_in", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		delay = 0

		go s.ServeConn(ctx, conn)
	}
}

// ServeConn serves requests on conn until it closes. It owns conn and closes it on return.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	s.init()

	buffers, ok := s.pool.acquire()
	if !ok {
		s.reject(ctx, conn)
		return
	}
	defer s.pool.release(buffers)

	tc := s.trackConn(conn)
	if tc == nil {
		conn.Close()
		return
	}
	defer s.untrackConn(tc)

	s.serveConn(ctx, tc, buffers)
}

func (s *Server) serveConn(ctx context.Context, conn *trackedConn, buffers *connBuffers) {
	defer conn.Close()

	connID := uuid.NewString()
	logger := s.log().With("conn", connID, "remote", remoteAddr(conn))
	logger.Debug("connection opened")
	defer logger.Debug("connection closed")

	s.activeConns.Add(ctx, 1)
	defer s.activeConns.Add(ctx, -1)

	buffers.reset(conn)
	br, bw := buffers.br, buffers.bw

	handler := s.Handler
	if handler == nil {
		handler = NotFoundHandler
	}

	reqCtx := RequestCtx{
		ConnID: connID,
		Logger: logger,
	}

	for {
		// Mark idle before checking for shutdown so Shutdown either sees the
		// idle state or this loop sees the closed flag.
		conn.setIdle()
		if s.shuttingDown() {
			return
		}

		if s.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
		}

		// The request is in flight from its first byte on.
		if _, err := br.Peek(1); err != nil {
			s.handleReadError(logger, conn, br, bw, err)
			return
		}
		if !conn.setActive() {
			return
		}

		req, err := ReadRequest(br, s.MaxBodySize)
		if err != nil {
			s.handleReadError(logger, conn, br, bw, err)
			return
		}

		shouldClose := req.WantsClose()

		reqCtx.Reset(ctx, req)
		handler(&reqCtx)

		if shouldClose {
			reqCtx.Response.AddHeader(HeaderConnection, "close")
		}

		if err := reqCtx.Response.Write(bw); err != nil {
			logger.Warn("writing response failed", "error", err)
			return
		}

		if shouldClose {
			return
		}
	}
}

func (s *Server) handleReadError(logger *slog.Logger, conn net.Conn, br *bufio.Reader, bw *bufio.Writer, err error) {
	switch {
	case errors.Is(err, io.EOF):
		return
	case errors.Is(err, ErrMalformedRequestLine):
		writeClosingError(bw, StatusBadRequest)
	case errors.Is(err, ErrBodyTooLarge):
		if writeClosingError(bw, StatusRequestEntityTooLarge) == nil {
			discardInput(conn, br)
		}
	}

	if s.shuttingDown() {
		logger.Debug("reading request stopped by shutdown", "error", err)
		return
	}
	logger.Warn("reading request failed", "error", err)
}

// writeClosingError answers a request that cannot be served and ends the connection.
func writeClosingError(bw *bufio.Writer, status uint16) error {
	res := Response{Status: status}
	res.AddHeader(HeaderConnection, "close")
	return res.Write(bw)
}

// discardInput reads and drops what the client is still sending, bounded in
// size and time.
func discardInput(conn net.Conn, br *bufio.Reader) {
	conn.SetReadDeadline(time.Now().Add(drainTimeout))
	io.Copy(io.Discard, io.LimitReader(br, maxDrainSize))
}

func (s *Server) reject(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	s.rejectedConns.Add(ctx, 1)
	s.log().Warn("connection limit reached", "limit", s.MaxConns, "remote", remoteAddr(conn))

	if err := writeClosingError(bufio.NewWriterSize(conn, 128), StatusServiceUnavailable); err != nil {
		s.log().Debug("writing rejection failed", "error", err)
	}
}

func (s *Server) trackListener(listener net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if add {
		if s.shuttingDown() {
			return false
		}
		s.listeners[listener] = struct{}{}
		return true
	}

	delete(s.listeners, listener)
	return true
}

func (s *Server) trackConn(conn net.Conn) *trackedConn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown() {
		return nil
	}

	tc := &trackedConn{Conn: conn}
	s.conns[tc] = struct{}{}
	return tc
}

func (s *Server) untrackConn(tc *trackedConn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conns, tc)
}

// closeIdleConns closes connections waiting for a request and reports
// whether no connections remain.
func (s *Server) closeIdleConns() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiescent := true
	for tc := range s.conns {
		if !tc.closeIfIdle() {
			quiescent = false
			continue
		}
		delete(s.conns, tc)
	}
	return quiescent
}

func (s *Server) closeAllConns() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tc := range s.conns {
		tc.Close()
		delete(s.conns, tc)
	}
}

// Shutdown stops accepting connections, closes idle ones and waits for busy
// ones to finish their current request. When ctx ends first, the remaining
// connections are closed and ctx's error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.init()
	s.closed.Store(true)

	var err error

	s.mu.Lock()
	for listener := range s.listeners {
		if closeErr := listener.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = errors.Join(err, closeErr)
		}
	}
	s.mu.Unlock()

	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()

	for {
		if s.closeIdleConns() {
			return err
		}

		select {
		case <-ctx.Done():
			s.closeAllConns()
			return errors.Join(err, ctx.Err())
		case <-ticker.C:
		}
	}
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
