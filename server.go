package busybee

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cybozu-go/log"
)

// HTTPServer is a wrapper for http.Server.
//
// This struct overrides Serve and ListenAndServe methods to run the
// server under an Environment, and replaces the Handler with one
// wrapped by an Instrumentor so that every request produces exactly
// one access log record.
type HTTPServer struct {
	*http.Server

	// AccessLog is a logger for access logs.
	// If this is nil, the default logger is used.
	AccessLog *log.Logger

	// Console, if non-nil, receives colored access log lines.
	Console *Console

	// WarnThreshold and SlowThreshold configure latency tier
	// classification.  Zero values select the defaults.
	WarnThreshold time.Duration
	SlowThreshold time.Duration

	// ShutdownTimeout is the maximum duration the server waits for
	// in-flight requests to complete before shutdown.
	//
	// Zero duration disables timeout.
	ShutdownTimeout time.Duration

	// Env is the environment where this server runs.
	// If nil, a private environment is created.
	Env *Environment

	once     sync.Once
	timedout int32
}

func (s *HTTPServer) init() {
	if s.Env == nil {
		s.Env = NewEnvironment(context.Background())
	}

	ins := &Instrumentor{
		Logger:        s.AccessLog,
		Console:       s.Console,
		WarnThreshold: s.WarnThreshold,
		SlowThreshold: s.SlowThreshold,
	}
	handler := s.Server.Handler
	if handler == nil {
		handler = http.DefaultServeMux
	}
	s.Server.Handler = ins.Wrap(handler)
}

// TimedOut returns true if the server shut down before all in-flight
// requests got completed.
func (s *HTTPServer) TimedOut() bool {
	return atomic.LoadInt32(&s.timedout) != 0
}

// ListenAndServe listens on the address of the underlying http.Server
// and calls Serve.  Inability to bind the port is the only error
// returned to the caller; everything after that is reported through
// the environment.
func (s *HTTPServer) ListenAndServe() error {
	addr := s.Server.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.Serve(ln)
	return nil
}

// Serve starts a managed goroutine to serve connections accepted
// from l.
//
// Serve itself returns immediately.  The goroutine continues to
// serve requests until the environment's base context is canceled,
// then shuts down gracefully: in-flight requests are allowed to
// complete (bounded by ShutdownTimeout) and still produce their
// access log lines.
func (s *HTTPServer) Serve(l net.Listener) {
	s.once.Do(s.init)

	s.Env.Go(func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Server.Serve(l)
		}()

		select {
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		sctx := context.Background()
		if s.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, s.ShutdownTimeout)
			defer cancel()
		}
		if err := s.Server.Shutdown(sctx); err != nil {
			log.Warn("busybee: timeout waiting for shutdown", nil)
			atomic.StoreInt32(&s.timedout, 1)
			s.Server.Close()
		}
		<-errCh
		return nil
	})
}
