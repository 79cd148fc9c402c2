package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/MohamedElaraby99/socrates-sub000/internal/metrics"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/internal/notify"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
)

// stubFetcher — GrantFetcher с заданным ответом.
type stubFetcher struct {
	mu    sync.Mutex
	grant models.CourseAccessGrant
	err   error
	calls int
}

func (f *stubFetcher) Check(_ context.Context, courseID string) (models.CourseAccessGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	return f.grant, f.err
}

func (f *stubFetcher) set(g models.CourseAccessGrant) {
	f.mu.Lock()
	f.grant = g
	f.mu.Unlock()
}

func (f *stubFetcher) n() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func TestWatcher_NotifiesOnceUntilReset(t *testing.T) {
	t.Parallel()

	c := newClock()
	ctx := log.Into(context.Background(), slog.New(&capHandler{}))

	ev := NewEvaluator(student, "c1", nil, WithClock(c.now))
	stale := codeGrant(true, c.t.Add(time.Minute))
	ev.SetGrant(stale)

	fetch := &stubFetcher{grant: stale}
	rec := &notify.Recorder{}
	m := metrics.New(prometheus.NewRegistry())

	w := NewWatcher(WatcherOptions{Evaluator: ev, Fetcher: fetch, Notifier: rec, Metrics: m})

	w.Check(ctx, true)
	require.Zero(t, rec.Count(MsgAccessExpired))
	require.Equal(t, 1, fetch.n(), "active code grant is reconciled on poll")

	c.advance(2 * time.Minute)
	for range 5 {
		w.Check(ctx, true)
	}

	require.True(t, w.Notified())
	require.Equal(t, 2, rec.Count(MsgAccessExpired), "one toast and one banner")
	require.Equal(t, 1.0, testutil.ToFloat64(m.AccessExpired))
	require.Equal(t, 6, fetch.n(), "every detection requests a fresh grant")

	notices := rec.Notices()
	require.False(t, notices[0].Persistent)
	require.Equal(t, notify.LongTTL, notices[0].TTL)
	require.True(t, notices[1].Persistent)

	// новый код
	fresh := codeGrant(true, c.t.Add(time.Hour))
	w.Reset(fresh)
	require.False(t, w.Notified())
	require.False(t, ev.GrantExpired())
	fetch.set(fresh)

	w.Check(ctx, false)
	require.Equal(t, 2, rec.Count(MsgAccessExpired))

	c.advance(2 * time.Hour)
	w.Check(ctx, false)
	w.Check(ctx, false)
	require.Equal(t, 4, rec.Count(MsgAccessExpired), "a later expiry notifies again")
	require.Equal(t, 2.0, testutil.ToFloat64(m.AccessExpired))
}

func TestWatcher_RestoredFromServer(t *testing.T) {
	t.Parallel()

	c := newClock()
	h := &capHandler{}
	ctx := log.Into(context.Background(), slog.New(h))

	ev := NewEvaluator(student, "c1", nil, WithClock(c.now))
	ev.SetGrant(codeGrant(true, c.t.Add(-time.Second)))

	// код активирован в другом сеансе
	fetch := &stubFetcher{grant: codeGrant(true, c.t.Add(time.Hour))}
	rec := &notify.Recorder{}

	w := NewWatcher(WatcherOptions{Evaluator: ev, Fetcher: fetch, Notifier: rec})
	w.Check(ctx, false)

	require.Equal(t, 2, rec.Count(MsgAccessExpired))
	require.False(t, w.Notified())
	require.False(t, ev.GrantExpired())
	require.True(t, ev.IsItemPurchased(models.PurchaseLesson, "l1"))
	require.Equal(t, 1, h.n("access_restored"))
}

func TestWatcher_FetchFailureKeepsState(t *testing.T) {
	t.Parallel()

	c := newClock()
	h := &capHandler{}
	ctx := log.Into(context.Background(), slog.New(h))

	ev := NewEvaluator(student, "c1", nil, WithClock(c.now))
	expired := codeGrant(true, c.t.Add(-time.Second))
	ev.SetGrant(expired)

	fetch := &stubFetcher{err: errors.New("boom")}
	w := NewWatcher(WatcherOptions{Evaluator: ev, Fetcher: fetch})

	require.NotPanics(t, func() { w.Check(ctx, true) })
	require.True(t, w.Notified())
	require.Equal(t, expired, ev.Grant())
	require.Equal(t, 1, h.n("access_check_failed"))
}

func TestWatcher_NonCodeGrantNotPolled(t *testing.T) {
	t.Parallel()

	ev := NewEvaluator(student, "c1", nil)
	ev.SetGrant(models.CourseAccessGrant{HasAccess: true, Source: models.AccessSourcePurchase})

	fetch := &stubFetcher{}
	w := NewWatcher(WatcherOptions{Evaluator: ev, Fetcher: fetch})

	w.Check(context.Background(), true)
	require.Zero(t, fetch.n())
	require.False(t, w.Notified())
}

func TestWatcher_RunFiresAtAccessEnd(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(log.Into(context.Background(), slog.New(&capHandler{})))
	defer cancel()

	ev := NewEvaluator(student, "c1", nil)
	g := codeGrant(true, time.Now().Add(50*time.Millisecond))
	ev.SetGrant(g)

	fetch := &stubFetcher{grant: g}
	rec := &notify.Recorder{}

	// опрос реже, чем истекает доступ: срабатывает таймер
	w := NewWatcher(WatcherOptions{Evaluator: ev, Fetcher: fetch, Notifier: rec, Interval: time.Hour})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.Count(MsgAccessExpired) == 2 }, 2*time.Second, 5*time.Millisecond)

	w.Reset(codeGrant(true, time.Now().Add(50*time.Millisecond)))
	require.Eventually(t, func() bool { return rec.Count(MsgAccessExpired) == 4 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_RunPollsAfterExpiry(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(log.Into(context.Background(), slog.New(&capHandler{})))
	defer cancel()

	ev := NewEvaluator(student, "c1", nil)
	expired := codeGrant(true, time.Now().Add(-time.Minute))
	ev.SetGrant(expired)

	fetch := &stubFetcher{grant: expired}
	rec := &notify.Recorder{}
	w := NewWatcher(WatcherOptions{Evaluator: ev, Fetcher: fetch, Notifier: rec, Interval: 10 * time.Millisecond})

	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool { return fetch.n() >= 5 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 2, rec.Count(MsgAccessExpired))
}
