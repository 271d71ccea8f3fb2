package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"

	"tracker/internal/config"
)

// Run executes the tracker command line and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	var c CLI
	return execute(&c, &c.Globals, "tracker",
		"Expense tracker: a transaction ledger with category, monthly and yearly reports.",
		args, stdout, stderr)
}

// RunWorker executes the tracker-worker command line.
func RunWorker(args []string, stdout, stderr io.Writer) int {
	var c WorkerCLI
	return execute(&c, &c.Globals, "tracker-worker",
		"Mirror the ledger into a Google Sheets tab on every ledger event.",
		args, stdout, stderr)
}

func execute(grammar any, globals *Globals, name, description string, args []string, stdout, stderr io.Writer) int {
	parser, err := kong.New(grammar,
		kong.Name(name),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{
			"version":  buildVersion(),
			"backends": strings.Join(config.Backends, ", "),
		},
	)
	if err != nil {
		printError(stderr, err.Error())
		return 2
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		printError(stderr, err.Error())
		return 2
	}

	LoadEnvFile()
	cfg := config.Load()
	globals.apply(cfg)
	if err := cfg.Validate(); err != nil {
		printError(stderr, err.Error())
		return 1
	}

	// Long-running processes log at LOG_LEVEL; one-shot commands stay quiet.
	command := kctx.Command()
	quiet := !globals.Verbose && name == "tracker" && !strings.HasPrefix(command, "serve")
	logger := SetupLogger(cfg, stderr, quiet)

	ctx, stop := GracefulShutdown(context.Background(), logger)
	defer stop()

	app := NewApp(cfg, logger, stdout, stderr)
	kctx.BindTo(ctx, (*context.Context)(nil))
	runErr := kctx.Run(app)
	if err := app.Close(); err != nil {
		logger.Error("Failed to close ledger", "error", err)
	}
	if runErr != nil {
		printError(stderr, describe(runErr))
		return 1
	}
	return 0
}

func buildVersion() string {
	version := Version
	if version == "" {
		version = "dev"
	}
	if CommitSHA == "" {
		return version
	}
	return fmt.Sprintf("%s (%s)", version, CommitSHA)
}
