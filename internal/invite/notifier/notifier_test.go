package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recorder struct {
	got chan InviteCreated
	err error
}

func (r *recorder) InviteCreated(ctx context.Context, ev InviteCreated) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline on delivery context")
	}
	r.got <- ev
	return r.err
}

func (r *recorder) Close() error { return nil }

func TestAsync_DeliversInBackground(t *testing.T) {
	rec := &recorder{got: make(chan InviteCreated, 1)}
	a := NewAsync(rec, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	if err := a.InviteCreated(ctx, InviteCreated{InviteID: "i1", Email: "a@example.com"}); err != nil {
		t.Fatalf("InviteCreated: %v", err)
	}
	cancel()

	select {
	case ev := <-rec.got:
		if ev.InviteID != "i1" {
			t.Errorf("delivered %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestAsync_SwallowsDeliveryError(t *testing.T) {
	rec := &recorder{got: make(chan InviteCreated, 1), err: errors.New("broker down")}
	if err := NewAsync(rec, zerolog.Nop()).InviteCreated(context.Background(), InviteCreated{InviteID: "i1"}); err != nil {
		t.Fatalf("InviteCreated returned %v, want nil", err)
	}
	<-rec.got
}

// gatedNotifier blocks deliveries until release is closed and records the order of events.
type gatedNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	order   []string
}

func (g *gatedNotifier) InviteCreated(_ context.Context, ev InviteCreated) error {
	<-g.release
	g.mu.Lock()
	g.order = append(g.order, "sent:"+ev.InviteID)
	g.mu.Unlock()
	return nil
}

func (g *gatedNotifier) Close() error {
	g.mu.Lock()
	g.order = append(g.order, "closed")
	g.mu.Unlock()
	return nil
}

func TestAsync_CloseWaitsForInFlightDelivery(t *testing.T) {
	g := &gatedNotifier{release: make(chan struct{})}
	a := NewAsync(g, zerolog.Nop())
	if err := a.InviteCreated(context.Background(), InviteCreated{InviteID: "i1"}); err != nil {
		t.Fatalf("InviteCreated: %v", err)
	}

	closed := make(chan error, 1)
	go func() { closed <- a.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned before the in-flight delivery finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(g.release)

	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after delivery finished")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.order) != 2 || g.order[0] != "sent:i1" || g.order[1] != "closed" {
		t.Errorf("order = %v, want delivery before close", g.order)
	}
}

func TestAsync_CloseIsBoundedAndDropsLateEvents(t *testing.T) {
	g := &gatedNotifier{release: make(chan struct{})}
	defer close(g.release)
	a := NewAsync(g, zerolog.Nop())
	a.drain = 20 * time.Millisecond
	if err := a.InviteCreated(context.Background(), InviteCreated{InviteID: "stuck"}); err != nil {
		t.Fatalf("InviteCreated: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.InviteCreated(context.Background(), InviteCreated{InviteID: "late"}); err != nil {
		t.Fatalf("InviteCreated after close: %v", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.order) != 1 || g.order[0] != "closed" {
		t.Errorf("order = %v, want only the close", g.order)
	}
}

func TestNilNotifiersAreSafe(t *testing.T) {
	var k *KafkaNotifier
	if err := k.InviteCreated(context.Background(), InviteCreated{}); err != nil {
		t.Errorf("nil kafka notifier: %v", err)
	}
	if NewKafkaNotifier(nil, "invites") != nil {
		t.Error("NewKafkaNotifier without brokers should return nil")
	}
	var a *Async
	if err := a.Close(); err != nil {
		t.Errorf("nil async close: %v", err)
	}
}

func TestEncode_SetsType(t *testing.T) {
	b, err := encode(InviteCreated{InviteID: "i1", Category: "employee"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != EventInviteCreated || m["invite_id"] != "i1" {
		t.Errorf("payload = %s", b)
	}
}
