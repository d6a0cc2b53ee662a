package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"

	auth "github.com/goliatone/go-auth-core"
	"github.com/goliatone/go-auth-core/config"
	"github.com/goliatone/go-auth-core/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "authd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lgr := newLogger(cfg)
	logger := lgr.GetLogger("authd")
	loggerFor := func(name string) auth.Logger {
		return lgr.GetLogger(name)
	}

	logger.Debug("configuration loaded", "config", print.MaybePrettyJSON(cfg.Redacted()))

	auth.PasswordHashCost = cfg.BcryptCost

	ctx := context.Background()

	store, err := auth.OpenStore(ctx, cfg.DatabaseURL, auth.WithStoreLogger(loggerFor("store")))
	if err != nil {
		return err
	}
	defer store.Close()
	store.MustValidate()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	providers, stopProviders, err := buildProviders(cfg, loggerFor("providers"))
	if err != nil {
		return err
	}
	defer stopProviders()

	app, err := NewApp(Deps{
		Config:    cfg,
		Store:     store,
		Providers: providers,
		Metrics:   metrics.New(),
		Logger:    loggerFor,
	})
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Environment(), "dialect", store.Dialect())
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-WaitExitSignal():
		logger.Info("shutting down", "signal", sig.String())
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", "error", err)
		return err
	}
	return nil
}

func newLogger(cfg *config.Config) *glog.BaseLogger {
	opts := []glog.Option{
		glog.WithLevel(logLevel(cfg.LogLevel)),
		glog.WithName("authd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	}

	if cfg.IsProduction() {
		opts = append(opts, glog.WithLoggerTypeJSON())
	} else {
		opts = append(opts, glog.WithLoggerTypePretty())
	}

	return glog.NewLogger(opts...)
}

// logLevel maps LOG_LEVEL to a glog level, unknown values fall back to info.
func logLevel(raw string) string {
	switch level := strings.ToUpper(strings.TrimSpace(raw)); level {
	case glog.Trace, glog.Debug, glog.Info, glog.Warn, glog.Error:
		return level
	}
	return glog.Info
}

// WaitExitSignal returns a channel receiving the first termination signal.
func WaitExitSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return ch
}
