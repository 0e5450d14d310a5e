package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raj200501/WatchDog-datadog-local-stack/pkg/logger"
)

func TestPublishIsServiceScoped(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	web1 := hub.Subscribe(ctx, "web")
	web2 := hub.Subscribe(ctx, "web")
	defer web1.Close()
	defer web2.Close()

	hub.Publish("api", []byte("api-line"))
	requireEmpty(t, web1)
	requireEmpty(t, web2)

	hub.Publish("web", []byte("web-line"))
	for _, sub := range []*Subscription{web1, web2} {
		payload, err := sub.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, "web-line", string(payload))
		requireEmpty(t, sub)
	}
}

func TestPublishCopiesPayload(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(context.Background(), "web")
	defer sub.Close()

	payload := []byte("abc")
	hub.Publish("web", payload)
	payload[0] = 'z'

	got, err := sub.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Publish("nobody", []byte("x"))
	require.Zero(t, hub.Total())
}

func TestSlowSubscriberKeepsEveryPayload(t *testing.T) {
	var queued atomic.Int64
	hub := NewHub(WithPublishHook(func(string) { queued.Add(1) }))
	ctx := context.Background()

	slow := hub.Subscribe(ctx, "web")
	fast := hub.Subscribe(ctx, "web")
	defer slow.Close()
	defer fast.Close()

	const n = 150
	for i := 0; i < n; i++ {
		hub.Publish("web", []byte(strconv.Itoa(i)))
		got, err := fast.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, strconv.Itoa(i), string(got))
	}
	require.EqualValues(t, 2*n, queued.Load())

	for i := 0; i < n; i++ {
		got, err := slow.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, strconv.Itoa(i), string(got))
	}
	require.Zero(t, slow.Pending())
}

func TestCloseIsIdempotentAndDeregisters(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(context.Background(), "web")
	require.Equal(t, 1, hub.Subscribers("web"))

	sub.Close()
	sub.Close()
	require.Zero(t, hub.Subscribers("web"))

	_, err := sub.Next(context.Background())
	require.ErrorIs(t, err, ErrSubscriptionClosed)

	hub.Publish("web", []byte("after close"))
}

func TestContextCancelDeregisters(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, "web")
	require.Equal(t, 1, hub.Total())

	cancel()
	require.Eventually(t, func() bool { return hub.Total() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-sub.C()
	require.False(t, ok)
}

func TestNextBlocksUntilPublish(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(context.Background(), "web")
	defer sub.Close()

	done := make(chan string, 1)
	go func() {
		payload, err := sub.Next(context.Background())
		if err == nil {
			done <- string(payload)
		}
	}()

	select {
	case <-done:
		t.Fatal("Next returned before publish")
	case <-time.After(20 * time.Millisecond):
	}

	hub.Publish("web", []byte("late"))
	select {
	case got := <-done:
		require.Equal(t, "late", got)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after publish")
	}
}

func TestNextHonoursContext(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(context.Background(), "web")
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := sub.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads []string
	beats    int
	failOn   int
}

func (r *recordingSubscriber) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, string(payload))
	if r.failOn > 0 && len(r.payloads) == r.failOn {
		return errors.New("broken pipe")
	}
	return nil
}

func (r *recordingSubscriber) Heartbeat() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beats++
	return nil
}

func (r *recordingSubscriber) Close() {}

func (r *recordingSubscriber) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.payloads...), r.beats
}

func TestForwardStreamsUntilCancelled(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, "web")
	dst := &recordingSubscriber{}

	errCh := make(chan error, 1)
	go func() { errCh <- Forward(ctx, sub, dst, 5*time.Millisecond) }()

	hub.Publish("web", []byte("a"))
	hub.Publish("web", []byte("b"))
	require.Eventually(t, func() bool {
		payloads, beats := dst.snapshot()
		return len(payloads) == 2 && beats > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
	require.Zero(t, hub.Total())
}

func TestForwardStopsOnSendError(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(context.Background(), "web")
	dst := &recordingSubscriber{failOn: 1}

	hub.Publish("web", []byte("a"))
	err := Forward(context.Background(), sub, dst, 0)
	require.Error(t, err)
	require.False(t, IsClosed(err))
	require.Zero(t, hub.Total())
}

func TestSSEClientFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	client, err := NewSSEClient(rec, logger.Discard())
	require.NoError(t, err)

	require.NoError(t, client.Send([]byte(`{"message":"hi"}`)))
	require.NoError(t, client.Heartbeat())
	require.NoError(t, client.Send([]byte("two\nlines")))
	client.Close()
	require.Error(t, client.Send([]byte("closed")))

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "data: {\"message\":\"hi\"}\n\n: ping\n\ndata: two\ndata: lines\n\n", rec.Body.String())
	require.Equal(t, 2, client.Sent())
}

func requireEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case payload := <-sub.C():
		t.Fatalf("unexpected payload %q", payload)
	case <-time.After(20 * time.Millisecond):
	}
}
