package serverutil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// fakeService blocks in Start until Shutdown releases it, mirroring an HTTP
// serve loop.
type fakeService struct {
	startErr    error
	shutdownErr error
	release     chan struct{}
	shutdowns   chan struct{}
}

func newFakeService() *fakeService {
	return &fakeService{
		release:   make(chan struct{}),
		shutdowns: make(chan struct{}, 1),
	}
}

func (s *fakeService) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	<-s.release
	return http.ErrServerClosed
}

func (s *fakeService) Shutdown(ctx context.Context) error {
	select {
	case s.shutdowns <- struct{}{}:
	default:
	}
	close(s.release)
	return s.shutdownErr
}

func TestRunRequiresService(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected an error for a nil service")
	}
}

func TestRunStartErrorPropagates(t *testing.T) {
	svc := newFakeService()
	svc.startErr = errors.New("bind: address already in use")

	err := Run(context.Background(), svc)
	if !errors.Is(err, svc.startErr) {
		t.Fatalf("expected the start error, got %v", err)
	}
	select {
	case <-svc.shutdowns:
		t.Fatal("shutdown must not run when the serve loop fails to start")
	default:
	}
}

func TestRunServerClosedIsClean(t *testing.T) {
	svc := newFakeService()
	svc.startErr = http.ErrServerClosed

	if err := Run(context.Background(), svc); err != nil {
		t.Fatalf("expected a clean stop, got %v", err)
	}
}

func TestRunCancelTriggersShutdown(t *testing.T) {
	svc := newFakeService()
	ctx, cancel := context.WithCancel(context.Background())

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, svc, WithReady(ready))
	}()

	<-ready
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected a graceful stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	select {
	case <-svc.shutdowns:
	default:
		t.Fatal("expected Shutdown to be invoked")
	}
}

func TestRunReturnsShutdownError(t *testing.T) {
	svc := newFakeService()
	svc.shutdownErr = errors.New("drain failed")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, svc)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, svc.shutdownErr) {
			t.Fatalf("expected the shutdown error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
