package hub

import (
	"context"
	"testing"
	"time"
)

func TestNewHub(t *testing.T) {
	h := New("test")
	if h.ClientCount() != 0 {
		t.Error("ClientCount should be 0 initially")
	}
	if h.IsRunning() {
		t.Error("hub should not be running before Run")
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := New("test")
	for i := 0; i < cap(h.broadcast)+5; i++ {
		h.Broadcast(NewJSONMessage([]byte(`{}`)))
	}
	if got := h.Dropped(); got != 5 {
		t.Errorf("Dropped = %d, want 5", got)
	}
}

func TestBroadcastJSONRejectsBadValue(t *testing.T) {
	h := New("test")
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("BroadcastJSON should fail on an unencodable value")
	}
	if err := h.BroadcastJSON(map[string]int{"a": 1}); err != nil {
		t.Errorf("BroadcastJSON: %v", err)
	}
	msg := <-h.broadcast
	if string(msg.Data) != `{"a":1}` {
		t.Errorf("queued %q", msg.Data)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for !h.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !h.IsRunning() {
		t.Fatal("hub never started")
	}

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if h.IsRunning() {
		t.Error("IsRunning after stop")
	}
}
