package rest

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/hammer90/embeddable-rest-server/rest"

// drainWindow bounds how long Stop waits for in-flight connections
// before giving up on them.
const drainWindow = 5 * time.Second

// RestServer is an embeddable HTTP/1.x server. Routes are registered
// on the unstarted server; Start freezes them. The context value C is
// shared read-only with every handler invocation for the server's
// lifetime.
type RestServer[C any] struct {
	listener net.Listener
	routes   *router[C]
	context  C
	bufSize  int

	log      *slog.Logger
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram

	started  atomic.Bool
	stopping atomic.Bool
	conns    sync.WaitGroup
}

// New validates the configuration and binds the listener. bufSize
// bounds every internal read and write buffer and the body window
// delivered per Chunk call. Port 0 picks a free port, see Port.
func New[C any](host string, port uint16, bufSize int, context C) (*RestServer[C], error) {
	if bufSize <= 0 {
		return nil, ErrBufferSize
	}
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, err
	}

	meter := otel.Meter(scopeName)
	requests, err := meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of requests served, by method and status code"))
	if err != nil {
		slog.Warn("request counter unavailable", "err", err)
	}
	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time from first request byte to response written"),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("duration histogram unavailable", "err", err)
	}

	return &RestServer[C]{
		listener: listener,
		routes:   newRouter[C](),
		context:  context,
		bufSize:  bufSize,
		log:      slog.Default(),
		tracer:   otel.Tracer(scopeName),
		requests: requests,
		duration: duration,
	}, nil
}

// WithLogger replaces the server's logger. Only meaningful before
// Start.
func (s *RestServer[C]) WithLogger(log *slog.Logger) *RestServer[C] {
	s.log = log
	return s
}

// Port returns the actually bound port, useful after binding port 0.
func (s *RestServer[C]) Port() uint16 {
	return uint16(s.listener.Addr().(*net.TCPAddr).Port)
}

// Register adds a route. Malformed or overlapping templates are
// configuration errors; registration after Start is rejected.
func (s *RestServer[C]) Register(verb Verb, template string, route Route[C]) error {
	if s.started.Load() {
		return ErrServerStarted
	}
	return s.routes.add(verb, template, route)
}

func (s *RestServer[C]) Get(template string, route Route[C]) error {
	return s.Register(GET, template, route)
}

func (s *RestServer[C]) Post(template string, route Route[C]) error {
	return s.Register(POST, template, route)
}

func (s *RestServer[C]) Put(template string, route Route[C]) error {
	return s.Register(PUT, template, route)
}

func (s *RestServer[C]) Delete(template string, route Route[C]) error {
	return s.Register(DELETE, template, route)
}

func (s *RestServer[C]) Patch(template string, route Route[C]) error {
	return s.Register(PATCH, template, route)
}

// Start freezes the routes and blocks the calling goroutine in the
// accept loop until Stop. Each accepted connection is served on its
// own goroutine for its entire lifetime, keep-alive reuse included.
func (s *RestServer[C]) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerStarted
	}
	return s.acceptLoop()
}

func (s *RestServer[C]) acceptLoop() error {
	s.log.Info("server listening", "addr", s.listener.Addr().String())
	for {
		rwc, err := s.listener.Accept()
		if err != nil {
			if s.stopping.Load() {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		s.conns.Add(1)
		go s.serveConn(rwc)
	}
}

func (s *RestServer[C]) serveConn(rwc net.Conn) {
	defer s.conns.Done()
	c := &conn[C]{
		srv: s,
		rwc: rwc,
		br:  bufio.NewReaderSize(rwc, s.bufSize),
		bw:  bufio.NewWriterSize(rwc, s.bufSize),
		log: s.log.With("conn", uuid.NewString(), "remote", rwc.RemoteAddr().String()),
	}
	c.log.Debug("connection accepted")
	c.serve()
	c.log.Debug("connection closed")
}

// Stop terminates the accept loop and gives in-flight connections a
// bounded window to finish. Idempotent; connections stalled past the
// window are abandoned to their sockets.
func (s *RestServer[C]) Stop() {
	if !s.stopping.CompareAndSwap(false, true) {
		return
	}
	s.listener.Close()
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainWindow):
		s.log.Warn("stop timed out waiting for open connections")
	}
	s.log.Info("server stopped")
}
