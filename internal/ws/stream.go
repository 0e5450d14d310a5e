package ws

import (
	"context"
	"errors"
	"time"
)

// Heartbeater is implemented by subscribers that can keep an idle stream alive.
type Heartbeater interface {
	Heartbeat() error
}

// Forward writes every payload of sub to dst until ctx ends, the subscription
// closes, or a write fails. When heartbeat is positive and dst implements
// Heartbeater, idle streams are pinged at that interval.
func Forward(ctx context.Context, sub *Subscription, dst Subscriber, heartbeat time.Duration) error {
	defer sub.Close()

	var (
		tick <-chan time.Time
		beat Heartbeater
	)
	if hb, ok := dst.(Heartbeater); ok && heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		tick = ticker.C
		beat = hb
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-sub.C():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}
			if err := dst.Send(payload); err != nil {
				return err
			}
		case <-tick:
			if err := beat.Heartbeat(); err != nil {
				return err
			}
		}
	}
}

// IsClosed reports whether err only signals the end of a subscription.
func IsClosed(err error) bool {
	return err == nil || errors.Is(err, ErrSubscriptionClosed) || errors.Is(err, context.Canceled)
}
