package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// sendTimeout bounds a single background delivery.
const sendTimeout = 5 * time.Second

// ShutdownDrainDuration is how long Close waits for in-flight deliveries before closing the
// inner notifier. Must be >= sendTimeout.
const ShutdownDrainDuration = sendTimeout + time.Second

// Async wraps a Notifier so InviteCreated returns immediately and delivery runs in a goroutine.
// The goroutine uses its own timeout so request cancellation does not abort delivery.
type Async struct {
	inner Notifier
	log   zerolog.Logger
	drain time.Duration

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewAsync returns an Async over inner.
func NewAsync(inner Notifier, logger zerolog.Logger) *Async {
	return &Async{
		inner: inner,
		log:   logger.With().Str("component", "invite_notifier").Logger(),
		drain: ShutdownDrainDuration,
	}
}

func (a *Async) InviteCreated(_ context.Context, ev InviteCreated) error {
	if a == nil || a.inner == nil {
		return nil
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.log.Warn().Str("invite_id", ev.InviteID).Msg("invite event dropped: notifier closed")
		return nil
	}
	a.inflight.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.inflight.Done()
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := a.inner.InviteCreated(sendCtx, ev); err != nil {
			a.log.Warn().Err(err).Str("invite_id", ev.InviteID).Msg("invite delivery failed")
		}
	}()
	return nil
}

// Close stops accepting events, waits up to the drain duration for in-flight deliveries and
// then closes the inner notifier.
func (a *Async) Close() error {
	if a == nil || a.inner == nil {
		return nil
	}
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(a.drain):
		a.log.Warn().Dur("drain", a.drain).Msg("closing with invite deliveries still in flight")
	}
	return a.inner.Close()
}
