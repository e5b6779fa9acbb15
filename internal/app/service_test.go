package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/swiftmeta/internal/config"
)

type recordingService struct {
	name     string
	startErr error
	mu       *sync.Mutex
	stops    *[]string
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *recordingService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.stops = append(*s.stops, s.name)
	return nil
}

func TestRunnerStopsInRegistrationOrder(t *testing.T) {
	var mu sync.Mutex
	var stops []string
	runner := NewRunner(
		&recordingService{name: "http", mu: &mu, stops: &stops},
		&recordingService{name: "container", mu: &mu, stops: &stops},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := runner.Run(ctx, time.Second, nil); err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("deadline should surface, got %v", err)
	}
	if len(stops) != 2 || stops[0] != "http" || stops[1] != "container" {
		t.Fatalf("unexpected stop order %v", stops)
	}
}

func TestRunnerReturnsFirstServiceError(t *testing.T) {
	var mu sync.Mutex
	var stops []string
	boom := errors.New("listen failed")
	runner := NewRunner(
		&recordingService{name: "http", startErr: boom, mu: &mu, stops: &stops},
		&recordingService{name: "container", mu: &mu, stops: &stops},
	)
	if err := runner.Run(context.Background(), time.Second, nil); !errors.Is(err, boom) {
		t.Fatalf("want start error, got %v", err)
	}
	if len(stops) != 2 {
		t.Fatalf("all services should be stopped, got %v", stops)
	}
}

func TestRunnerCanceledIsClean(t *testing.T) {
	var mu sync.Mutex
	var stops []string
	runner := NewRunner(&recordingService{name: "worker", mu: &mu, stops: &stops})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runner.Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancellation should be a clean exit, got %v", err)
	}
	if names := runner.Services(); len(names) != 1 || names[0] != "worker" {
		t.Fatalf("unexpected services %v", names)
	}
}

type countingPurger struct {
	calls int
	err   error
}

func (p *countingPurger) PurgeRevokedTokens(time.Time) (int64, error) {
	p.calls++
	return 3, p.err
}

func TestPurgeLoopService(t *testing.T) {
	purger := &countingPurger{}
	svc := newPurgeLoopService(purger)
	svc.interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("purge loop should exit cleanly, got %v", err)
	}
	if purger.calls == 0 {
		t.Fatalf("purge loop should have run at least once")
	}

	purger.err = errors.New("db locked")
	svc.purgeOnce()
	if purger.calls < 2 {
		t.Fatalf("failed purge should still be attempted")
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]string{"": ModeAll, " API ": ModeAPI, "worker": ModeWorker, "all": ModeAll}
	for raw, want := range cases {
		got, err := ParseMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) want %s got %s %v", raw, want, got, err)
		}
	}
	if _, err := ParseMode("cron"); err == nil {
		t.Fatalf("unknown mode should be rejected")
	}
}

func TestServerAddr(t *testing.T) {
	if got := ServerAddr(config.ServerConfig{Host: "0.0.0.0", Port: "9000"}); got != "0.0.0.0:9000" {
		t.Fatalf("unexpected addr %s", got)
	}
	if got := ServerAddr(config.ServerConfig{}); got != ":8080" {
		t.Fatalf("default port want :8080 got %s", got)
	}
}

func TestHTTPServiceServesUntilStopped(t *testing.T) {
	svc := NewHTTPService("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	select {
	case <-svc.Ready():
	case err := <-done:
		t.Fatalf("listen failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not become ready")
	}
	resp, err := http.Get("http://" + svc.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("want 204 got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("graceful stop should return nil, got %v", err)
	}
}
