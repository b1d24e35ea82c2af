package scheduler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/xtaci/endlesssh-go/internal/admission"
	"github.com/xtaci/endlesssh-go/internal/client"
	"github.com/xtaci/endlesssh-go/internal/stats"
)

func newLoopbackPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		acceptCh <- c
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	serverConn := <-acceptCh
	return serverConn, clientConn
}

func TestSchedulerEmitsLinesAtDelayCadence(t *testing.T) {
	serverConn, clientConn := newLoopbackPair(t)
	defer clientConn.Close()

	gate := admission.New(1)
	tok, _ := gate.TryAcquire()
	c := client.New(serverConn, serverConn.RemoteAddr(), time.Now(), tok)

	events := make(chan stats.Event, 64)
	s := New(20*time.Millisecond, 16, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Dispatch(ctx, c)

	buf := make([]byte, 4096)
	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))

	total := 0
	lines := 0
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && lines < 3 {
		n, err := clientConn.Read(buf)
		if err != nil {
			break
		}
		total += n
		for _, b := range buf[:n] {
			if b == '\n' {
				lines++
			}
		}
	}

	if lines < 3 {
		t.Fatalf("expected at least 3 lines within budget, got %d", lines)
	}
	if gate.Live() != 1 {
		t.Fatalf("expected client still holding its permit, got live=%d", gate.Live())
	}
}

func TestSchedulerDropsOnWriteFailure(t *testing.T) {
	serverConn, clientConn := newLoopbackPair(t)

	gate := admission.New(1)
	tok, _ := gate.TryAcquire()
	c := client.New(serverConn, serverConn.RemoteAddr(), time.Now(), tok)

	events := make(chan stats.Event, 64)
	s := New(10*time.Millisecond, 8, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientConn.Close() // peer disappears immediately

	s.Dispatch(ctx, c)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == stats.LostClient {
				if gate.Live() != 0 {
					t.Fatalf("expected permit released after loss, got live=%d", gate.Live())
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for LostClient event")
		}
	}
}

func TestSchedulerAccruesTimeSpentOnWouldBlock(t *testing.T) {
	// net.Pipe's Write blocks until a reader drains it; with nobody
	// reading, every write deadline expires, exercising the same
	// would-block path a stalled peer with a shrunk receive buffer would
	// (see internal/socktune).
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	gate := admission.New(1)
	tok, _ := gate.TryAcquire()
	c := client.New(serverConn, serverConn.RemoteAddr(), time.Now(), tok)

	events := make(chan stats.Event, 64)
	delay := 20 * time.Millisecond
	s := New(delay, 16, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Dispatch(ctx, c)

	var timeSpentTicks int
	deadline := time.After(2 * time.Second)
	for timeSpentTicks < 3 {
		select {
		case ev := <-events:
			switch ev.Kind {
			case stats.BytesSent:
				t.Fatalf("would-block tick must not credit bytes")
			case stats.LostClient:
				t.Fatal("would-block must not be treated as a lost client")
			case stats.TimeSpent:
				if ev.D != delay {
					t.Fatalf("expected TimeSpent event of %s, got %s", delay, ev.D)
				}
				timeSpentTicks++
			}
		case <-deadline:
			t.Fatalf("timed out waiting for TimeSpent events, got %d", timeSpentTicks)
		}
	}
}

func TestSchedulerCancellationDropsClientSilently(t *testing.T) {
	serverConn, clientConn := newLoopbackPair(t)
	defer clientConn.Close()

	gate := admission.New(1)
	tok, _ := gate.TryAcquire()
	c := client.New(serverConn, serverConn.RemoteAddr(), time.Now().Add(time.Hour), tok)

	events := make(chan stats.Event, 64)
	s := New(time.Hour, 8, events)

	ctx, cancel := context.WithCancel(context.Background())
	s.Dispatch(ctx, c)

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)

	if gate.Live() != 0 {
		t.Fatalf("expected permit released on cancellation, got live=%d", gate.Live())
	}
	select {
	case ev := <-events:
		if ev.Kind == stats.LostClient {
			t.Fatal("cancellation must not be counted as a lost client")
		}
	default:
	}
}
