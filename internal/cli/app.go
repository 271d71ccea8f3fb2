package cli

import (
	"context"
	"fmt"
	"io"

	"tracker/internal/amqp"
	"tracker/internal/backend"
	"tracker/internal/config"
	"tracker/internal/ledger"
	"tracker/internal/log"
)

// App holds what every command needs. The ledger is opened on first use so
// commands that fail flag validation never touch storage.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Stdout io.Writer
	Stderr io.Writer

	factory backend.Factory
	backend *backend.BackendResult
	service *ledger.Service
}

func NewApp(cfg *config.Config, logger *log.Logger, stdout, stderr io.Writer) *App {
	return &App{
		Config:  cfg,
		Logger:  logger,
		Stdout:  stdout,
		Stderr:  stderr,
		factory: backend.NewFactory(logger),
	}
}

// Service opens the configured backend and wraps it in a ledger service.
func (a *App) Service(ctx context.Context) (*ledger.Service, error) {
	if a.service != nil {
		return a.service, nil
	}

	backendConfig, err := backend.FromAppConfig(a.Config)
	if err != nil {
		return nil, err
	}
	result, err := a.factory.CreateBackend(ctx, backendConfig)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", backendConfig.Type, err)
	}

	opts := []ledger.Option{
		ledger.WithLogger(a.Logger),
		ledger.WithSerializedWrites(a.Config.SerializeWrites),
	}
	if publisher := a.openPublisher(); publisher != nil {
		opts = append(opts, ledger.WithPublisher(publisher))
	}

	a.backend = result
	a.service = ledger.NewService(result.Store, opts...)
	return a.service, nil
}

// openPublisher connects to the broker when AMQP_URL is set. A broker that
// is down disables events rather than the ledger.
func (a *App) openPublisher() ledger.Publisher {
	if a.Config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue, a.Logger)
	if err != nil {
		a.Logger.Warn("AMQP unavailable, ledger events disabled", log.FieldError, err)
		return nil
	}
	return client
}

// Close releases the ledger service, its store and its publisher.
func (a *App) Close() error {
	if a.service == nil {
		return nil
	}
	err := a.service.Close()
	a.service = nil
	return err
}
