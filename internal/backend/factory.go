// Package backend opens the ledger store selected by DATA_BACKEND.
package backend

import (
	"context"
	"errors"
	"fmt"

	"tracker/internal/log"
	"tracker/internal/sheets"
	gsheet "tracker/internal/sheets/google"
	"tracker/internal/storage"
	"tracker/internal/storage/dynamo"
	"tracker/internal/storage/jsonfile"
	"tracker/internal/storage/memory"
)

var _ Factory = (*DefaultFactory)(nil)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case FileBackend:
		result, err = f.createFileBackend(config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(ctx, config)
	case DynamoDBBackend:
		result, err = f.createDynamoDBBackend(ctx, config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	result.Type = config.Type
	return result, nil
}

// CreateMirror opens the mirror tab the worker replaces on every event.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*sheets.Store, error) {
	if config.GoogleMirrorSheetName == "" {
		return nil, errors.New("mirror sheet name is required")
	}
	tab, err := gsheet.New(ctx, f.sheetsConfig(config, config.GoogleMirrorSheetName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mirror sheet: %w", err)
	}

	f.logger.Info("Initialized Google Sheets mirror", "sheet", config.GoogleMirrorSheetName)
	return sheets.NewStore(tab), nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	store, err := jsonfile.New(config.LedgerFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger file: %w", err)
	}

	f.logger.Info("Initialized file backend", "ledger_file", config.LedgerFile)
	return &BackendResult{Store: store, LedgerFile: store.Path()}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()
	if config.LedgerFile != "" {
		var err error
		store, err = memory.NewFromFile(config.LedgerFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.LedgerFile)
	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewPostgresRepository(ctx, config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
	}

	f.logger.Info("Initialized PostgreSQL backend")
	return &BackendResult{Store: repo}, nil
}

func (f *DefaultFactory) createDynamoDBBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := dynamo.New(ctx, dynamo.Config{
		Region:   config.DynamoDBRegion,
		Table:    config.DynamoDBTable,
		Endpoint: config.DynamoDBEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DynamoDB store: %w", err)
	}

	f.logger.Info("Initialized DynamoDB backend",
		"table", config.DynamoDBTable,
		"region", config.DynamoDBRegion)
	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	tab, err := gsheet.New(ctx, f.sheetsConfig(config, config.GoogleSheetName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
	return &BackendResult{Store: sheets.NewStore(tab)}, nil
}

func (f *DefaultFactory) sheetsConfig(config Config, sheetName string) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       sheetName,
		CredentialsJSON: config.GoogleCredentialsJSON,
		CredentialsFile: config.GoogleCredentialsFile,
	}
}
