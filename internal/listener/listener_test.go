package listener

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/xtaci/endlesssh-go/internal/admission"
	"github.com/xtaci/endlesssh-go/internal/client"
	"github.com/xtaci/endlesssh-go/internal/config"
	"github.com/xtaci/endlesssh-go/internal/stats"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("probe listen: %v", err)
	}
	defer ln.Close()
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return port
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Debugf(string, ...any) {}

func TestListenerAdmitsUpToCapacityThenRejects(t *testing.T) {
	cfg := config.New()
	cfg.Port = freePort(t)
	cfg.MaxClients = 1
	cfg.BindFamily = config.BindIPv4
	cfg.Delay = time.Hour

	gate := admission.New(cfg.MaxClients)
	events := make(chan stats.Event, 64)
	handoff := make(chan *client.Client, cfg.MaxClients)

	l := New(cfg, gate, events, nopLogger{})
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- l.Run(ctx, handoff) }()

	// give the listener a moment to bind
	time.Sleep(50 * time.Millisecond)

	connA, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer connA.Close()

	select {
	case c := <-handoff:
		defer c.Close()
	case <-time.After(time.Second):
		t.Fatal("expected connection A to be handed off")
	}

	connB, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer connB.Close()

	select {
	case <-handoff:
		t.Fatal("connection B should have been rejected at capacity 1")
	case <-time.After(300 * time.Millisecond):
	}

	select {
	case ev := <-events:
		if ev.Kind != stats.NewClient {
			t.Fatalf("expected first event to be NewClient, got %v", ev.Kind)
		}
	default:
		t.Fatal("expected at least one NewClient event")
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run returned error on cancellation: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after cancellation")
	}
}
