// course — экран курса без разметки: загрузка курса и доступа, решение по
// каждому элементу, активация кода, покупка за кошелёк и слежение за
// истечением доступа.
package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MohamedElaraby99/socrates-sub000/internal/entitlement"
	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/internal/metrics"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/internal/notify"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/redact"
)

var (
	// ErrNotOpened — Open ещё не выполнен.
	ErrNotOpened = errors.New("course is not opened")
	// ErrAlreadyAvailable — элемент бесплатный или уже куплен; покупка не нужна.
	ErrAlreadyAvailable = errors.New("item is already available")
	// ErrItemNotFound — в курсе нет элемента с таким типом и id.
	ErrItemNotFound = errors.New("item not found in course")
)

// Тексты тостов.
const (
	MsgRedeemed         = "تم تفعيل الكود بنجاح"
	MsgPurchased        = "تم الشراء بنجاح"
	MsgAlreadyAvailable = "هذا العنصر متاح لك بالفعل"
)

type CourseGetter interface {
	GetByID(ctx context.Context, id string) (models.Course, error)
}

type Payments interface {
	entitlement.StatusChecker
	WalletBalance(ctx context.Context) (models.WalletBalance, error)
	Purchase(ctx context.Context, req models.PurchaseRequest) (models.WalletBalance, error)
}

type Access interface {
	entitlement.GrantFetcher
	Redeem(ctx context.Context, courseID, code string) (models.CourseAccessGrant, string, error)
}

// Deps — зависимости контроллера. Clock нужен тестам.
type Deps struct {
	Courses      CourseGetter
	Payments     Payments
	Access       Access
	Notifier     notify.Notifier
	Metrics      *metrics.Metrics
	Concurrency  int
	PollInterval time.Duration
	Clock        func() time.Time
}

// ItemView — элемент каталога с решением о доступе.
type ItemView struct {
	models.CatalogItem
	Watchable bool
}

type Controller struct {
	user models.User
	deps Deps

	mu      sync.RWMutex
	course  models.Course
	ev      *entitlement.Evaluator
	watcher *entitlement.Watcher
}

func New(u models.User, deps Deps) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Multi(nil)
	}

	return &Controller{user: u, deps: deps}
}

// Open загружает курс и, если пользователь не обходит покупку, доступ по коду
// и записи о покупках. Сбой проверки доступа не мешает открыть курс: доступ
// считается отсутствующим.
func (c *Controller) Open(ctx context.Context, courseID string) error {
	const op = "course/Open"

	ctx, lg := log.With(ctx, slog.String("course_id", courseID))

	crs, err := c.deps.Courses.GetByID(ctx, courseID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var opts []entitlement.Option
	if c.deps.Clock != nil {
		opts = append(opts, entitlement.WithClock(c.deps.Clock))
	}
	ev := entitlement.NewEvaluator(c.user, crs.ID, entitlement.NewPurchaseCache(), opts...)

	if !ev.Capabilities().BypassesPurchase {
		g, err := c.deps.Access.Check(ctx, crs.ID)
		if err != nil {
			lg.Warn("access_check_failed", slog.String("op", op), slog.String("err", err.Error()))
		} else {
			ev.SetGrant(g)
		}

		if err := ev.Purchases().Load(ctx, c.deps.Payments, crs, c.deps.Concurrency); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	w := entitlement.NewWatcher(entitlement.WatcherOptions{
		Evaluator: ev,
		Fetcher:   c.deps.Access,
		Interval:  c.deps.PollInterval,
		Notifier:  c.deps.Notifier,
		Metrics:   c.deps.Metrics,
	})

	c.mu.Lock()
	c.course, c.ev, c.watcher = crs, ev, w
	c.mu.Unlock()

	lg.Info("course_opened",
		slog.String("op", op),
		slog.Int("items", len(crs.Items())),
		slog.Int("purchase_records", ev.Purchases().Len()),
	)

	return nil
}

func (c *Controller) state() (models.Course, *entitlement.Evaluator, *entitlement.Watcher, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ev == nil {
		return models.Course{}, nil, nil, ErrNotOpened
	}

	return c.course, c.ev, c.watcher, nil
}

func (c *Controller) Course() (models.Course, error) {
	crs, _, _, err := c.state()
	return crs, err
}

func (c *Controller) Evaluator() (*entitlement.Evaluator, error) {
	_, ev, _, err := c.state()
	return ev, err
}

// Items — все разделы и уроки курса с решением CanWatch.
func (c *Controller) Items() ([]ItemView, error) {
	crs, ev, _, err := c.state()
	if err != nil {
		return nil, err
	}

	items := crs.Items()
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		out = append(out, ItemView{CatalogItem: it, Watchable: ev.CanWatch(it)})
	}

	return out, nil
}

// Redeem проверяет код локально (без сети при ошибке), активирует его,
// перечитывает доступ и перевзводит наблюдение за истечением.
// Отказ сервера возвращается как *entitlement.RedemptionError.
func (c *Controller) Redeem(ctx context.Context, raw string) (models.CourseAccessGrant, error) {
	const op = "course/Redeem"

	crs, _, w, err := c.state()
	if err != nil {
		return models.CourseAccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	code, err := entitlement.ValidateCode(raw)
	if err != nil {
		c.deps.Notifier.Notify(ctx, notify.Toast(notify.KindError, apierrors.UserMessage(err)))
		return models.CourseAccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	g, msg, err := c.deps.Access.Redeem(ctx, crs.ID, code)
	if err != nil {
		re := entitlement.ClassifyRedemption(err)
		log.From(ctx).Warn("code_redeem_failed",
			slog.String("op", op),
			slog.String("code", redact.Code(code)),
			slog.String("reason", string(re.Reason)),
			slog.String("err", err.Error()),
		)
		c.deps.Notifier.Notify(ctx, notify.Toast(notify.KindError, re.Message))
		return models.CourseAccessGrant{}, fmt.Errorf("%s: %w", op, re)
	}

	if fresh, err := c.deps.Access.Check(ctx, crs.ID); err == nil {
		g = fresh
	} else {
		log.From(ctx).Warn("access_check_failed", slog.String("op", op), slog.String("err", err.Error()))
	}

	w.Reset(g)

	if msg == "" {
		msg = MsgRedeemed
	}
	c.deps.Notifier.Notify(ctx, notify.Toast(notify.KindSuccess, msg))

	log.From(ctx).Info("code_redeemed",
		slog.String("op", op),
		slog.String("course_id", crs.ID),
		slog.String("code", redact.Code(code)),
	)

	return g, nil
}

// Purchase покупает урок или раздел за кошелёк. Бесплатный или уже доступный
// элемент не покупается; нехватка баланса ловится до запроса покупки.
func (c *Controller) Purchase(ctx context.Context, typ models.PurchaseType, itemID string) (models.WalletBalance, error) {
	const op = "course/Purchase"

	crs, ev, _, err := c.state()
	if err != nil {
		return models.WalletBalance{}, fmt.Errorf("%s: %w", op, err)
	}

	item, ok := findItem(crs, typ, itemID)
	if !ok {
		return models.WalletBalance{}, fmt.Errorf("%s: %w", op, ErrItemNotFound)
	}

	if ev.CanWatch(item) {
		c.deps.Notifier.Notify(ctx, notify.Toast(notify.KindInfo, MsgAlreadyAvailable))
		return models.WalletBalance{}, fmt.Errorf("%s: %w", op, ErrAlreadyAvailable)
	}

	bal, err := c.deps.Payments.WalletBalance(ctx)
	if err != nil {
		c.fail(ctx, err)
		return models.WalletBalance{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := entitlement.CheckBalance(bal.Balance, item.Price); err != nil {
		c.fail(ctx, err)
		return bal, fmt.Errorf("%s: %w", op, err)
	}

	bal, err = c.deps.Payments.Purchase(ctx, models.PurchaseRequest{CourseID: crs.ID, PurchaseType: typ, ItemID: itemID})
	if err != nil {
		c.fail(ctx, err)
		return models.WalletBalance{}, fmt.Errorf("%s: %w", op, err)
	}

	k := models.PurchaseKey{CourseID: crs.ID, Type: typ, ItemID: itemID}
	purchased, err := c.deps.Payments.PurchaseStatus(ctx, k)
	if err != nil {
		// покупка прошла; запись ставится по её результату
		log.From(ctx).Warn("purchase_status_failed", slog.String("op", op), slog.String("err", err.Error()))
		purchased = true
	}
	ev.Purchases().Set(k, purchased)

	c.deps.Notifier.Notify(ctx, notify.Toast(notify.KindSuccess, MsgPurchased))
	log.From(ctx).Info("item_purchased",
		slog.String("op", op),
		slog.String("type", string(typ)),
		slog.String("item_id", itemID),
	)

	return bal, nil
}

// Watch следит за истечением доступа до отмены ctx.
func (c *Controller) Watch(ctx context.Context) error {
	const op = "course/Watch"

	_, _, w, err := c.state()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return w.Run(ctx)
}

func (c *Controller) fail(ctx context.Context, err error) {
	c.deps.Notifier.Notify(ctx, notify.Toast(notify.KindError, apierrors.UserMessage(err)))
}

func findItem(crs models.Course, typ models.PurchaseType, id string) (models.CatalogItem, bool) {
	for _, it := range crs.Items() {
		if it.Type == typ && it.ID == id {
			return it, true
		}
	}

	return models.CatalogItem{}, false
}
