package backend

import (
	"context"

	"tracker/internal/ledger"
	"tracker/internal/sheets"
)

// BackendResult holds an opened ledger store. Closing the ledger.Service
// that wraps Store releases it.
type BackendResult struct {
	Store ledger.Store
	Type  BackendType

	// LedgerFile is the watched file for the file backend, empty otherwise.
	LedgerFile string
}

// Factory opens ledger stores and mirror tabs from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateMirror(ctx context.Context, config Config) (*sheets.Store, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File and memory
	LedgerFile string

	// SQLite
	SQLiteDBPath string

	// PostgreSQL
	PostgresURL string

	// DynamoDB
	DynamoDBTable    string
	DynamoDBRegion   string
	DynamoDBEndpoint string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleMirrorSheetName string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend     BackendType = "file"
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	DynamoDBBackend BackendType = "dynamodb"
	SheetsBackend   BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, MemoryBackend, SQLiteBackend, PostgresBackend, DynamoDBBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
