package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"tracker/internal/backend"
	apphttp "tracker/internal/http"
	"tracker/internal/ledger"
	"tracker/internal/log"
	"tracker/internal/watch"
)

type ServeCmd struct {
	Port    string `help:"Port to listen on; overrides PORT." placeholder:"PORT"`
	NoWatch bool   `help:"Do not watch the ledger file for edits made by other programs."`
}

func (cmd *ServeCmd) Run(ctx context.Context, app *App) error {
	cfg := app.Config
	if cmd.Port != "" {
		if port, err := strconv.Atoi(cmd.Port); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port %q", cmd.Port)
		}
		cfg.Port = cmd.Port
	}

	svc, err := app.Service(ctx)
	if err != nil {
		return err
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             app.Logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info("Starting tracker server",
			"port", cfg.Port,
			log.FieldBackend, app.backend.Type,
			"serialized_writes", svc.Serialized())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if !cmd.NoWatch && cfg.WatchLedgerFile {
		watcher, err := newLedgerWatcher(app.backend, svc, app.Logger)
		if err != nil {
			app.Logger.Warn("Ledger file watching disabled", log.FieldError, err)
		} else if watcher != nil {
			g.Go(func() error { return watcher.Run(gctx) })
		}
	}

	err = g.Wait()
	app.Logger.Info("Server stopped gracefully")
	return err
}

// newLedgerWatcher watches the file backend's ledger. Other backends have no
// file to watch and get a nil watcher.
func newLedgerWatcher(result *backend.BackendResult, svc *ledger.Service, logger *log.Logger) (*watch.Watcher, error) {
	if result.Type != backend.FileBackend || result.LedgerFile == "" {
		return nil, nil
	}
	opts := []watch.Option{watch.WithLogger(logger)}
	if own, ok := result.Store.(interface{ Wrote([]byte) bool }); ok {
		opts = append(opts, watch.WithIgnore(own.Wrote))
	}
	return watch.New(result.LedgerFile, svc, opts...)
}
