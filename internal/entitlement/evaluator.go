package entitlement

import (
	"sync"
	"time"

	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
)

// Evaluator — решение о доступе к элементам одного курса для одного пользователя.
// Истечение доступа пересчитывается по часам при каждом вызове.
type Evaluator struct {
	caps      Capabilities
	courseID  string
	purchases *PurchaseCache
	now       func() time.Time

	mu    sync.RWMutex
	grant models.CourseAccessGrant
}

// Option настраивает Evaluator.
type Option func(*Evaluator)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator; purchases == nil — пустой кэш.
func NewEvaluator(u models.User, courseID string, purchases *PurchaseCache, opts ...Option) *Evaluator {
	if purchases == nil {
		purchases = NewPurchaseCache()
	}

	e := &Evaluator{
		caps:      ResolveCapabilities(u),
		courseID:  courseID,
		purchases: purchases,
		now:       time.Now,
		grant:     models.CourseAccessGrant{Source: models.AccessSourceNone},
	}
	for _, o := range opts {
		o(e)
	}

	return e
}

func (e *Evaluator) CourseID() string { return e.courseID }

func (e *Evaluator) Capabilities() Capabilities { return e.caps }

func (e *Evaluator) Purchases() *PurchaseCache { return e.purchases }

// Now — текущее время по часам Evaluator.
func (e *Evaluator) Now() time.Time { return e.now() }

func (e *Evaluator) SetGrant(g models.CourseAccessGrant) {
	e.mu.Lock()
	e.grant = g
	e.mu.Unlock()
}

func (e *Evaluator) Grant() models.CourseAccessGrant {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.grant
}

// GrantExpired — доступ по коду, срок которого уже наступил.
func (e *Evaluator) GrantExpired() bool {
	return e.Grant().ExpiredAt(e.now())
}

// IsItemPurchased — доступ к платному элементу без учёта цены.
func (e *Evaluator) IsItemPurchased(typ models.PurchaseType, itemID string) bool {
	if e.caps.BypassesPurchase {
		return true
	}

	g := e.Grant()
	if g.ExpiredAt(e.now()) {
		return false
	}
	if g.HasAccess {
		return true
	}

	v, _ := e.purchases.Get(models.PurchaseKey{CourseID: e.courseID, Type: typ, ItemID: itemID})
	return v
}

// CanWatch — бесплатный элемент или IsItemPurchased.
func (e *Evaluator) CanWatch(it models.CatalogItem) bool {
	if it.Free() {
		return true
	}

	return e.IsItemPurchased(it.Type, it.ID)
}
