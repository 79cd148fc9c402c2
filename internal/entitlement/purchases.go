package entitlement

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
)

// DefaultConcurrency — сколько проверок покупки выполняется одновременно.
const DefaultConcurrency = 6

// StatusChecker — источник записей о покупке (api.Payments).
type StatusChecker interface {
	PurchaseStatus(ctx context.Context, k models.PurchaseKey) (bool, error)
}

// PurchaseCache — записи о покупке по ключу {course, type, item}.
// Каждая запись кэшируется независимо; безопасен для конкурентного использования.
type PurchaseCache struct {
	mu sync.RWMutex
	m  map[models.PurchaseKey]bool
}

func NewPurchaseCache() *PurchaseCache {
	return &PurchaseCache{m: make(map[models.PurchaseKey]bool)}
}

// Get — значение и признак наличия записи.
func (c *PurchaseCache) Get(k models.PurchaseKey) (purchased, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	purchased, ok = c.m[k]
	return purchased, ok
}

func (c *PurchaseCache) Set(k models.PurchaseKey, purchased bool) {
	c.mu.Lock()
	c.m[k] = purchased
	c.mu.Unlock()
}

func (c *PurchaseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.m)
}

// Load проверяет все платные элементы курса параллельно, не более limit
// одновременно. Неудачная проверка логируется, ключ остаётся незаполненным
// (то есть «не куплено»). Ошибку возвращает только отмена ctx.
func (c *PurchaseCache) Load(ctx context.Context, checker StatusChecker, course models.Course, limit int) error {
	const op = "entitlement/PurchaseCache.Load"

	if limit <= 0 {
		limit = DefaultConcurrency
	}

	lg := log.From(ctx)

	var g errgroup.Group
	g.SetLimit(limit)

	for _, it := range course.Items() {
		if it.Free() {
			continue
		}

		k := models.PurchaseKey{CourseID: course.ID, Type: it.Type, ItemID: it.ID}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			ok, err := checker.PurchaseStatus(ctx, k)
			if err != nil {
				lg.Warn("purchase_status_failed",
					slog.String("op", op),
					slog.String("type", string(k.Type)),
					slog.String("item_id", k.ItemID),
					slog.String("err", err.Error()),
				)
				return nil
			}

			c.Set(k, ok)
			return nil
		})
	}

	_ = g.Wait()

	return ctx.Err()
}
