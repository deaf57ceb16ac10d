package testutil

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/preston-bernstein/nba-live-service/internal/poller"
)

// StubPoller implements the server's poller contract and counts calls.
type StubPoller struct {
	Err       error
	StatusVal poller.Status

	starts atomic.Int32
	stops  atomic.Int32
}

func (p *StubPoller) Start(context.Context) { p.starts.Add(1) }

func (p *StubPoller) Stop(context.Context) error {
	p.stops.Add(1)
	return p.Err
}

func (p *StubPoller) Status() poller.Status { return p.StatusVal }

func (p *StubPoller) StartCalls() int { return int(p.starts.Load()) }
func (p *StubPoller) StopCalls() int  { return int(p.stops.Load()) }

// StubHTTPServer stands in for the server's HTTP listener.
// ListenAndServe returns ListenErr immediately; use http.ErrServerClosed for a
// clean exit. When Block is non-nil, Shutdown waits for it to close or for ctx.
type StubHTTPServer struct {
	AddrVal     string
	HandlerVal  http.Handler
	ListenErr   error
	ShutdownErr error
	Block       chan struct{}

	listens   atomic.Int32
	shutdowns atomic.Int32
}

func (s *StubHTTPServer) ListenAndServe() error {
	s.listens.Add(1)
	return s.ListenErr
}

func (s *StubHTTPServer) Shutdown(ctx context.Context) error {
	s.shutdowns.Add(1)
	if s.Block == nil {
		return s.ShutdownErr
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.Block:
		return s.ShutdownErr
	}
}

func (s *StubHTTPServer) Addr() string {
	if s.AddrVal == "" {
		return ":0"
	}
	return s.AddrVal
}

func (s *StubHTTPServer) Handler() http.Handler {
	if s.HandlerVal == nil {
		return http.NotFoundHandler()
	}
	return s.HandlerVal
}

func (s *StubHTTPServer) ListenCalls() int   { return int(s.listens.Load()) }
func (s *StubHTTPServer) ShutdownCalls() int { return int(s.shutdowns.Load()) }
