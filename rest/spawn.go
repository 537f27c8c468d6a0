package rest

import (
	"sync"
	"sync/atomic"
	"time"
)

// SpawnedServer runs a RestServer on a background goroutine. Once
// spawned the server accepts no further route registrations; the
// handle only stops and observes.
type SpawnedServer[C any] struct {
	srv      *RestServer[C]
	errc     chan error
	stopOnce sync.Once
	stopped  atomic.Bool
}

// Spawn starts the server in the background and returns the handle.
// The stack-size hint of thread-based environments has no equivalent
// here; goroutine stacks grow on demand.
func Spawn[C any](srv *RestServer[C]) (*SpawnedServer[C], error) {
	if !srv.started.CompareAndSwap(false, true) {
		return nil, ErrServerStarted
	}
	s := &SpawnedServer[C]{srv: srv, errc: make(chan error, 1)}
	go func() {
		s.errc <- srv.acceptLoop()
	}()
	return s, nil
}

// Stop shuts the server down and joins the background goroutine. Safe
// to call more than once; later calls return immediately.
func (s *SpawnedServer[C]) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.srv.Stop()
		select {
		case err = <-s.errc:
		case <-time.After(drainWindow):
			// Start did not return inside the drain window; the
			// listener is closed, so it will exit on its own.
		}
		s.stopped.Store(true)
	})
	return err
}

func (s *SpawnedServer[C]) IsStopped() bool {
	return s.stopped.Load()
}
