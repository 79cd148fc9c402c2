package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
)

// capHandler — slog.Handler, считающий сообщения.
type capHandler struct {
	mu    sync.Mutex
	count map[string]int
	attrs map[string]any
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == nil {
		h.count = make(map[string]int)
	}
	h.count[r.Message]++

	h.attrs = make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		h.attrs[a.Key] = a.Value.Any()
		return true
	})
	return nil
}
func (h *capHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capHandler) WithGroup(string) slog.Handler      { return h }

func (h *capHandler) n(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.count[msg]
}

// stubChecker — StatusChecker с ответами по itemID и замером параллелизма.
type stubChecker struct {
	purchased map[string]bool
	fail      map[string]bool
	delay     time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *stubChecker) PurchaseStatus(ctx context.Context, k models.PurchaseKey) (bool, error) {
	s.calls.Add(1)
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	for {
		p := s.peak.Load()
		if cur <= p || s.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	if s.fail[k.ItemID] {
		return false, errors.New("server error")
	}

	return s.purchased[k.ItemID], nil
}

func testCourse() models.Course {
	return models.Course{
		ID: "c1",
		Units: []models.Unit{
			{ID: "u1", Price: 100, Lessons: []models.Lesson{{ID: "l1", Price: 30}, {ID: "l2", Price: 30}, {ID: "l-free", Price: 0}}},
			{ID: "u-free", Price: 0, Lessons: []models.Lesson{{ID: "l3", Price: 20}}},
		},
		DirectLessons: []models.Lesson{{ID: "l4", Price: 15}, {ID: "l5", Price: 15}},
	}
}

func TestPurchaseCache_Load(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	ctx := log.Into(context.Background(), slog.New(h))

	chk := &stubChecker{
		purchased: map[string]bool{"l1": true, "u1": false, "l4": true},
		fail:      map[string]bool{"l2": true},
		delay:     10 * time.Millisecond,
	}

	pc := NewPurchaseCache()
	require.NoError(t, pc.Load(ctx, chk, testCourse(), 2))

	// u1, l1, l2, l3, l4, l5 — платные; бесплатные не проверяются.
	require.EqualValues(t, 6, chk.calls.Load())
	require.LessOrEqual(t, chk.peak.Load(), int32(2))
	require.Equal(t, 5, pc.Len())

	v, ok := pc.Get(models.PurchaseKey{CourseID: "c1", Type: models.PurchaseLesson, ItemID: "l1"})
	require.True(t, ok)
	require.True(t, v)

	v, ok = pc.Get(models.PurchaseKey{CourseID: "c1", Type: models.PurchaseUnit, ItemID: "u1"})
	require.True(t, ok)
	require.False(t, v)

	_, ok = pc.Get(models.PurchaseKey{CourseID: "c1", Type: models.PurchaseLesson, ItemID: "l2"})
	require.False(t, ok, "failed check leaves the key absent")
	require.Equal(t, 1, h.n("purchase_status_failed"))

	_, ok = pc.Get(models.PurchaseKey{CourseID: "c1", Type: models.PurchaseLesson, ItemID: "l-free"})
	require.False(t, ok)
}

func TestPurchaseCache_LoadCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chk := &stubChecker{delay: time.Second}
	pc := NewPurchaseCache()

	err := pc.Load(log.Into(ctx, slog.New(&capHandler{})), chk, testCourse(), 0)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, pc.Len())
}
