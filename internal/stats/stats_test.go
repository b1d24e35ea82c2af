package stats

import (
	"log"
	"testing"
	"time"
)

func TestAggregatorAppliesEventsInOrder(t *testing.T) {
	a := New(log.Default())
	done := make(chan struct{})
	go a.Run(done, time.Second)

	a.Events() <- Event{Kind: NewClient}
	a.Events() <- Event{Kind: NewClient}
	a.Events() <- Event{Kind: ProcessedClient}
	a.Events() <- Event{Kind: BytesSent, N: 42}
	a.Events() <- Event{Kind: TimeSpent, D: 10 * time.Second}
	a.Events() <- Event{Kind: LostClient}

	sync := make(chan struct{})
	a.Events() <- Event{Kind: LogTotals, Done: sync}
	<-sync

	close(done)
	time.Sleep(10 * time.Millisecond)

	got := a.Snapshot()
	if got.Connects != 2 {
		t.Errorf("Connects = %d, want 2", got.Connects)
	}
	if got.ProcessedClients != 1 {
		t.Errorf("ProcessedClients = %d, want 1", got.ProcessedClients)
	}
	if got.LostClients != 1 {
		t.Errorf("LostClients = %d, want 1", got.LostClients)
	}
	if got.BytesSent != 42 {
		t.Errorf("BytesSent = %d, want 42", got.BytesSent)
	}
	if got.TimeSpent != 10*time.Second {
		t.Errorf("TimeSpent = %s, want 10s", got.TimeSpent)
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0w 0d 0h 0m 0.000s"},
		{1500 * time.Millisecond, "0w 0d 0h 0m 1.500s"},
		{90 * time.Minute, "0w 0d 1h 30m 0.000s"},
		{8 * 24 * time.Hour, "1w 1d 0h 0m 0.000s"},
	}
	for _, c := range cases {
		if got := FormatElapsed(c.d); got != c.want {
			t.Errorf("FormatElapsed(%s) = %q, want %q", c.d, got, c.want)
		}
	}
}
