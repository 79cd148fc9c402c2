package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MohamedElaraby99/socrates-sub000/internal/api"
	"github.com/MohamedElaraby99/socrates-sub000/internal/config"
	"github.com/MohamedElaraby99/socrates-sub000/internal/metrics"
	"github.com/MohamedElaraby99/socrates-sub000/internal/notify"
	"github.com/MohamedElaraby99/socrates-sub000/internal/session"
	"github.com/MohamedElaraby99/socrates-sub000/internal/storage"
	"github.com/MohamedElaraby99/socrates-sub000/internal/storage/file"
	"github.com/MohamedElaraby99/socrates-sub000/internal/storage/memory"
	"github.com/MohamedElaraby99/socrates-sub000/internal/storage/redis"
	"github.com/MohamedElaraby99/socrates-sub000/internal/transport"
)

var errUsage = errors.New("invalid arguments")

// drivers — хранилища состояния клиента по storage.driver.
var drivers = map[string]storage.Opener{
	"memory": func(context.Context, config.StorageConfig) (storage.Store, error) {
		return memory.New(), nil
	},
	"file": func(_ context.Context, cfg config.StorageConfig) (storage.Store, error) {
		return file.New(cfg.Path)
	},
	"redis": func(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
		return redis.New(ctx, cfg.RedisURL, cfg.Prefix)
	},
}

type app struct {
	cfg      *config.Config
	log      *slog.Logger
	out      io.Writer
	reg      *prometheus.Registry
	metrics  *metrics.Metrics
	store    storage.Store
	session  *session.Client
	api      *api.Clients
	notifier notify.Notifier
}

func newApp(ctx context.Context, cfg *config.Config, lg *slog.Logger) (*app, error) {
	const op = "main/newApp"

	st, err := storage.Open(ctx, cfg.Storage, drivers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	baseURL := config.ResolveBaseURL(cfg.API)
	lg.Debug("api_base_url", slog.String("url", baseURL))

	sc, err := session.New(session.Options{
		BaseURL:        baseURL,
		LoginRoute:     cfg.API.LoginRoute,
		RefreshTimeout: cfg.Timeouts.Refresh,
		Transport:      transport.New(http.DefaultTransport, cfg, lg, m),
		Store:          st,
		Navigator: session.NavigatorFunc(func(route string) {
			lg.Warn("navigate", slog.String("route", route))
		}),
		Logger:  lg,
		Metrics: m,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := sc.RestoreCookies(ctx); err != nil {
		lg.Warn("cookies_restore_failed", slog.String("err", err.Error()))
	}

	return &app{
		cfg:      cfg,
		log:      lg,
		out:      os.Stdout,
		reg:      reg,
		metrics:  m,
		store:    st,
		session:  sc,
		api:      api.New(sc),
		notifier: notify.NewLogger(lg),
	}, nil
}

func (a *app) close() error {
	return a.store.Close()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "course":
		return a.course(ctx, args)
	case "redeem":
		return a.redeem(ctx, args)
	case "purchase":
		return a.purchase(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	case "notifications":
		return a.notifications(ctx, args)
	case "stats":
		return a.stats(ctx, args)
	}

	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// serveMetrics публикует /metrics, пока жив ctx; пустой адрес — не публикует.
func (a *app) serveMetrics(ctx context.Context) {
	addr := a.cfg.Metrics.Addr()
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info("metrics_listen_start", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics_serve_failed", slog.String("err", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("metrics_shutdown_incomplete", slog.String("err", err.Error()))
		}
	}()
}
