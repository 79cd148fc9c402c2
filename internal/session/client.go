// session — HTTP-клиент портала с сессией в cookie и прозрачным обновлением
// сессии при 401.
//
// Протокол ответа:
//   - 2xx и прочие статусы — отдаются как есть;
//   - 403 с маркером неавторизованного устройства — как есть, без повтора;
//   - 401 на неповторённый запрос — обновление сессии (одно на всех) и один повтор;
//   - неудачное обновление — очистка локальной сессии и переход на страницу входа,
//     каждый ожидающий получает ErrSessionExpired вместе с исходной ошибкой 401;
//   - 401 на повторе — отдаётся как есть.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/internal/metrics"
	"github.com/MohamedElaraby99/socrates-sub000/internal/storage"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
)

// DefaultRefreshPath — эндпоинт ротации сессии относительно базового URL.
const DefaultRefreshPath = "/users/refresh-token"

// Options — зависимости клиента. Обязателен только BaseURL.
type Options struct {
	BaseURL        string
	RefreshPath    string
	LoginRoute     string
	RefreshTimeout time.Duration
	Transport      http.RoundTripper
	Store          storage.Store
	Navigator      Navigator
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

type Client struct {
	http       *http.Client
	jar        http.CookieJar
	base       *url.URL
	refreshURL string
	loginRoute string
	store      storage.Store
	nav        Navigator
	log        *slog.Logger
	metrics    *metrics.Metrics
	refresher  *Refresher
}

// New создаёт клиент с cookie jar (список публичных суффиксов x/net).
func New(opts Options) (*Client, error) {
	const op = "session/New"

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: base url: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, opts.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("%s: cookie jar: %w", op, err)
	}

	if opts.RefreshPath == "" {
		opts.RefreshPath = DefaultRefreshPath
	}
	if opts.LoginRoute == "" {
		opts.LoginRoute = "/login"
	}
	if opts.Navigator == nil {
		opts.Navigator = nopNavigator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Client{
		http:       &http.Client{Transport: opts.Transport, Jar: jar},
		jar:        jar,
		base:       base,
		refreshURL: base.String() + opts.RefreshPath,
		loginRoute: opts.LoginRoute,
		store:      opts.Store,
		nav:        opts.Navigator,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
	c.refresher = NewRefresher(c.callRefresh, opts.RefreshTimeout, c.expire)

	return c, nil
}

// BaseURL — базовый URL бэкенда без завершающего слэша.
func (c *Client) BaseURL() string { return c.base.String() }

// Refresher — общий для клиента ресурс обновления сессии.
func (c *Client) Refresher() *Refresher { return c.refresher }

type ctxKey struct{}

// SkipRefresh отключает обновление сессии для запроса (вход, выход):
// 401 на них означает неверные данные, а не истёкшую сессию.
func SkipRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, true)
}

func skipRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKey{}).(bool)
	return v
}

// Do выполняет запрос по протоколу пакета. Ответ 401, который не удалось
// восстановить, возвращается ошибкой; прочие статусы — ответом.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	const op = "session/Do"

	if err := bufferBody(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// http.Client дописывает cookie из jar в заголовки отправленного запроса,
	// поэтому наружу уходит копия: повтор должен взять из jar уже новые cookie.
	resp, err := c.http.Do(req.Clone(req.Context()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode != http.StatusUnauthorized || skipRefresh(req.Context()) {
		return resp, nil
	}

	ctx := req.Context()
	origErr := drainError(resp)

	if err := c.refresher.Refresh(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return nil, fmt.Errorf("%s: %w", op, errors.Join(apierrors.ErrSessionExpired, origErr, err))
	}

	retry := req.Clone(ctx)
	retry.Header.Del("Cookie")
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("%s: replay body: %w", op, err)
		}
		retry.Body = body
	}

	resp, err = c.http.Do(retry)
	if err != nil {
		return nil, fmt.Errorf("%s: retry: %w", op, err)
	}

	return resp, nil
}

// callRefresh — POST на эндпоинт обновления; новая cookie приходит в jar.
func (c *Client) callRefresh(ctx context.Context) (err error) {
	defer func() { c.metrics.ObserveRefresh(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}

	if resp.StatusCode/100 != 2 {
		return drainError(resp)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if err := c.SaveCookies(ctx); err != nil {
		log.From(ctx).Warn("session_cookies_save_failed", slog.String("err", err.Error()))
	}

	log.From(ctx).Info("session_refreshed")
	return nil
}

// expire очищает локальную сессию и уводит на страницу входа.
func (c *Client) expire(ctx context.Context, cause error) {
	l := c.log
	l.Warn("session_refresh_failed", slog.String("err", cause.Error()))

	if c.store != nil {
		if err := storage.ClearSession(context.WithoutCancel(ctx), c.store); err != nil {
			l.Error("session_clear_failed", slog.String("err", err.Error()))
		}
	}

	c.nav.Navigate(c.loginRoute)
}

// bufferBody делает тело запроса повторяемым, если вызывающий не задал GetBody.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}

	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	req.Body = io.NopCloser(bytes.NewReader(b))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}

	return nil
}

// drainError читает тело не-2xx ответа в *apierrors.Error и закрывает его.
func drainError(resp *http.Response) *apierrors.Error {
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	rid := ""
	if resp.Request != nil {
		rid = resp.Request.Header.Get("X-Request-Id")
	}

	return apierrors.Parse(resp.StatusCode, raw, rid)
}

// DrainError — то же для пакетов-потребителей Do.
func DrainError(resp *http.Response) *apierrors.Error { return drainError(resp) }
