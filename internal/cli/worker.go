package cli

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"tracker/internal/amqp"
	"tracker/internal/backend"
	"tracker/internal/ledger"
	"tracker/internal/log"
	"tracker/internal/sheets"
	sheetmem "tracker/internal/sheets/memory"
	"tracker/internal/worker"
)

// WorkerCLI is the tracker-worker command line. It has no subcommands.
type WorkerCLI struct {
	Version kong.VersionFlag `help:"Show version information."`
	Globals

	Schedule string `help:"Cron schedule of full resyncs; overrides MIRROR_SCHEDULE." placeholder:"SPEC"`
	DryRun   bool   `help:"Mirror into an in-memory tab instead of Google Sheets."`
}

func (cmd *WorkerCLI) Run(ctx context.Context, app *App) error {
	cfg := app.Config
	if cmd.Schedule != "" {
		cfg.MirrorSchedule = cmd.Schedule
	}
	if !cmd.DryRun {
		if err := cfg.ValidateMirror(); err != nil {
			return err
		}
	}

	svc, err := app.Service(ctx)
	if err != nil {
		return err
	}

	mirror, err := app.openMirror(ctx, cmd.DryRun)
	if err != nil {
		return err
	}

	var events worker.EventSource
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, app.Logger)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer client.Close()
		events = client
	} else {
		app.Logger.Info("AMQP_URL not set, resyncing on schedule only")
	}

	app.Logger.Info("Starting tracker-worker",
		log.FieldBackend, app.backend.Type,
		"dry_run", cmd.DryRun,
		"schedule", cfg.MirrorSchedule)
	return worker.NewSyncWorker(svc, mirror, app.Logger).Run(ctx, events, cfg.MirrorSchedule)
}

func (a *App) openMirror(ctx context.Context, dryRun bool) (ledger.Replacer, error) {
	if dryRun {
		return sheets.NewStore(sheetmem.New()), nil
	}
	backendConfig, err := backend.FromAppConfig(a.Config)
	if err != nil {
		return nil, err
	}
	return a.factory.CreateMirror(ctx, backendConfig)
}
