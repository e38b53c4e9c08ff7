package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/observability"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:     time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
	}
}

func TestGracefulServer_ShutdownRunsHooksAndEndsStreams(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	streaming := make(chan struct{})
	streamEnded := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(streaming)
		<-r.Context().Done()
		close(streamEnded)
	})

	gs := NewGracefulServer(&http.Server{Handler: mux}, observability.Discard(), testConfig())

	var hooks atomic.Int32
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		hooks.Add(1)
		return nil
	})
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		hooks.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- gs.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/stream")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	<-streaming

	cancel()

	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown did not finish")
	}

	select {
	case <-streamEnded:
	default:
		t.Error("open stream should end when shutdown starts")
	}
	if hooks.Load() != 2 {
		t.Errorf("hooks run = %d, want 2", hooks.Load())
	}
}

func TestGracefulServer_HookErrors(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	gs := NewGracefulServer(&http.Server{Handler: http.NotFoundHandler()}, observability.Discard(), testConfig())
	errStop := errors.New("stop failed")
	gs.RegisterShutdownHook(func(ctx context.Context) error { return errStop })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gs.Serve(ctx, listener); !errors.Is(err, errStop) {
		t.Errorf("Serve() error = %v, want %v", err, errStop)
	}
}
