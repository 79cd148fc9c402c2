package entitlement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MohamedElaraby99/socrates-sub000/internal/metrics"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/internal/notify"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
)

// DefaultPollInterval — период сверки доступа с сервером.
const DefaultPollInterval = 60 * time.Second

// MsgAccessExpired — текст тоста и баннера об истёкшем доступе.
const MsgAccessExpired = "انتهت صلاحية الوصول إلى هذا الكورس، يرجى إدخال كود جديد"

// GrantFetcher — источник актуального доступа (api.CourseAccess).
type GrantFetcher interface {
	Check(ctx context.Context, courseID string) (models.CourseAccessGrant, error)
}

type WatcherOptions struct {
	Evaluator *Evaluator
	Fetcher   GrantFetcher
	Interval  time.Duration
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
}

// Watcher следит за истечением доступа по коду: таймер на accessEndAt и
// периодическая сверка с сервером. О переходе в «истёк» пользователь узнаёт
// один раз, пока Reset не сбросит флаг.
type Watcher struct {
	ev       *Evaluator
	fetch    GrantFetcher
	interval time.Duration
	notifier notify.Notifier
	metrics  *metrics.Metrics

	mu       sync.Mutex
	notified bool

	rearm chan struct{}
}

func NewWatcher(opts WatcherOptions) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}

	return &Watcher{
		ev:       opts.Evaluator,
		fetch:    opts.Fetcher,
		interval: opts.Interval,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		rearm:    make(chan struct{}, 1),
	}
}

// Notified — уведомление об истечении уже показано.
func (w *Watcher) Notified() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.notified
}

// Reset вызывается после успешной активации кода: новый доступ, сброс флага,
// перевзвод таймера.
func (w *Watcher) Reset(g models.CourseAccessGrant) {
	w.ev.SetGrant(g)

	w.mu.Lock()
	w.notified = false
	w.mu.Unlock()

	select {
	case w.rearm <- struct{}{}:
	default:
	}
}

// Run работает до отмены ctx. Первая проверка выполняется сразу.
func (w *Watcher) Run(ctx context.Context) error {
	const op = "entitlement/Watcher.Run"

	lg := log.From(ctx)
	lg.Info("access_watch_start",
		slog.String("op", op),
		slog.String("course_id", w.ev.CourseID()),
		slog.Duration("interval", w.interval),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	w.Check(ctx, false)
	w.arm(timer)

	for {
		select {
		case <-ctx.Done():
			lg.Info("access_watch_stop", slog.String("op", op))
			return nil
		case <-timer.C:
			w.Check(ctx, false)
			w.arm(timer)
		case <-ticker.C:
			w.Check(ctx, true)
			w.arm(timer)
		case <-w.rearm:
			w.arm(timer)
		}
	}
}

// arm ставит таймер на accessEndAt будущего доступа по коду; иначе останавливает.
func (w *Watcher) arm(t *time.Timer) {
	t.Stop()

	g := w.ev.Grant()
	if !g.IsCode() || g.AccessEndAt == nil {
		return
	}

	if d := g.AccessEndAt.Sub(w.ev.Now()); d > 0 {
		t.Reset(d)
	}
}

// Check — одна проверка. reconcile — сначала сверить доступ по коду с сервером.
// При истечении: одно уведомление (тост и баннер), затем запрос свежего доступа.
func (w *Watcher) Check(ctx context.Context, reconcile bool) {
	if reconcile && w.ev.Grant().IsCode() && !w.ev.GrantExpired() {
		w.refresh(ctx)
	}

	if !w.ev.GrantExpired() {
		return
	}

	if w.markNotified() {
		log.From(ctx).Warn("access_expired",
			slog.String("op", "entitlement/Watcher.Check"),
			slog.String("course_id", w.ev.CourseID()),
		)
		w.metrics.ObserveAccessExpired()

		if w.notifier != nil {
			w.notifier.Notify(ctx, notify.Toast(notify.KindWarning, MsgAccessExpired))
			w.notifier.Notify(ctx, notify.Banner(notify.KindWarning, MsgAccessExpired))
		}
	}

	w.refresh(ctx)
}

func (w *Watcher) markNotified() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.notified {
		return false
	}
	w.notified = true

	return true
}

// refresh запрашивает доступ у сервера. Действующий доступ, полученный после
// истечения (код активирован в другом сеансе), снимает флаг уведомления.
func (w *Watcher) refresh(ctx context.Context) {
	const op = "entitlement/Watcher.refresh"

	if w.fetch == nil || ctx.Err() != nil {
		return
	}

	g, err := w.fetch.Check(ctx, w.ev.CourseID())
	if err != nil {
		log.From(ctx).Warn("access_check_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return
	}

	w.ev.SetGrant(g)

	if g.HasAccess && !g.ExpiredAt(w.ev.Now()) {
		w.mu.Lock()
		restored := w.notified
		w.notified = false
		w.mu.Unlock()

		if restored {
			log.From(ctx).Info("access_restored", slog.String("op", op))
		}
	}
}
