package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MohamedElaraby99/socrates-sub000/internal/config"
	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const usage = `usage: portal-client [-config path] <command> [args]

commands:
  login <email> <password>
  logout
  course <courseId>
  redeem <courseId> <code>
  purchase <courseId> <lesson|unit> <itemId>
  watch <courseId>
  notifications [-read-all]
  stats [-from YYYY-MM-DD] [-to YYYY-MM-DD]
`

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.MustLoad(configPath)

	lg := setupLogger(cfg.Env)
	slog.SetDefault(lg)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	ctx := log.Into(rootCtx, lg)

	a, err := newApp(ctx, cfg, lg)
	if err != nil {
		lg.Error("client_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	err = a.run(ctx, flag.Arg(0), flag.Args()[1:])

	if cerr := a.close(); cerr != nil {
		lg.Warn("client_close_failed", slog.String("err", cerr.Error()))
	}

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	default:
		lg.Error("command_failed", slog.String("cmd", flag.Arg(0)), slog.String("err", err.Error()))
		fmt.Fprintln(os.Stderr, apierrors.UserMessage(err))
		os.Exit(1)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
