package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"tracker/internal/config"
	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/sheets"
)

// isolate clears the environment the commands read so the host's settings
// cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"DATA_BACKEND", "LEDGER_FILE", "AMQP_URL", "LOG_LEVEL", "LOG_FORMAT", "PORT",
		"RATE_LIMIT_PER_MINUTE", "SHUTDOWN_TIMEOUT", "MIRROR_SCHEDULE", "LEDGER_SERIALIZE_WRITES",
	} {
		t.Setenv(key, "")
	}
	return filepath.Join(t.TempDir(), "transactions.json")
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestAddListAndReports(t *testing.T) {
	ledger := isolate(t)

	code, out, errOut := run(t, "--ledger-file", ledger, "add",
		"--description", "Salary", "--amount", "2500", "--date", "2024-03-01", "--category", "Income")
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Added transaction 1: Salary 2500.00")

	code, out, errOut = run(t, "--ledger-file", ledger, "add",
		"--description", "Coffee", "--amount=-3,50", "--date", "2024-03-05", "--category", "Food")
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Added transaction 2: Coffee -3.50")

	data, err := os.ReadFile(ledger)
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"description": "Coffee"`)

	code, out, _ = run(t, "--ledger-file", ledger, "list")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Salary")
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, "2496.50")

	code, out, _ = run(t, "--ledger-file", ledger, "categories")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "-3.50")
	assert.Contains(t, out, "Income")

	code, out, _ = run(t, "--ledger-file", ledger, "balance", "2024", "3")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "2024-3")
	assert.Contains(t, out, "2496.50")

	code, out, _ = run(t, "--ledger-file", ledger, "trend", "2024")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "March")
	assert.Contains(t, out, "December")
}

func TestListEmptyLedger(t *testing.T) {
	ledger := isolate(t)

	code, out, _ := run(t, "--ledger-file", ledger, "list")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "No transactions")

	data, err := os.ReadFile(ledger)
	assert.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestRemove(t *testing.T) {
	ledger := isolate(t)
	for _, desc := range []string{"Rent", "Tea", "Salary"} {
		code, _, errOut := run(t, "--ledger-file", ledger, "add",
			"-d", desc, "-a", "10", "--date", "2024-03-01", "-c", "Misc")
		assert.Equal(t, 0, code, errOut)
	}

	code, out, _ := run(t, "--ledger-file", ledger, "remove", "0")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Transaction deleted successfully.")

	code, _, _ = run(t, "--ledger-file", ledger, "remove", "--id", "3")
	assert.Equal(t, 0, code)

	code, out, _ = run(t, "--ledger-file", ledger, "list")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Tea")
	assert.NotContains(t, out, "Rent")
	assert.NotContains(t, out, "Salary")

	code, _, errOut := run(t, "--ledger-file", ledger, "remove", "5")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Transaction at index 5 not found.")

	code, _, errOut = run(t, "--ledger-file", ledger, "remove", "--id", "99")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Transaction 99 not found.")
}

func TestRemoveNeedsExactlyOneTarget(t *testing.T) {
	ledger := isolate(t)

	code, _, errOut := run(t, "--ledger-file", ledger, "remove")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "either an index or --id")

	code, _, _ = run(t, "--ledger-file", ledger, "remove", "1", "--id", "1")
	assert.Equal(t, 2, code)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"amount", []string{"-d", "Tea", "-a", "lots", "-c", "Food"}, "Invalid amount: must be a number."},
		{"date", []string{"-d", "Tea", "-a", "1", "--date", "2024-02-30", "-c", "Food"}, "Invalid date"},
		{"blank category", []string{"-d", "Tea", "-a", "1", "-c", "  "}, "Invalid category: is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := isolate(t)
			code, _, errOut := run(t, append([]string{"--ledger-file", ledger, "add"}, tt.args...)...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestBalanceRejectsMonthOutOfRange(t *testing.T) {
	ledger := isolate(t)
	code, _, errOut := run(t, "--ledger-file", ledger, "balance", "2024", "13")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Invalid month")
}

func TestInvalidBackendFailsValidation(t *testing.T) {
	isolate(t)
	code, _, errOut := run(t, "--backend", "floppy", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid data backend 'floppy'")
}

func TestMemoryBackendIsSeededButNotPersisted(t *testing.T) {
	ledger := isolate(t)
	code, _, errOut := run(t, "--ledger-file", ledger, "add", "-d", "Rent", "--amount=-900", "--date", "2024-03-02", "-c", "Housing")
	assert.Equal(t, 0, code, errOut)
	before, err := os.ReadFile(ledger)
	assert.NoError(t, err)

	code, out, errOut := run(t, "--backend", "memory", "--ledger-file", ledger, "add",
		"-d", "Tea", "--amount=-2", "--date", "2024-03-03", "-c", "Food")
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Added transaction 2")

	after, err := os.ReadFile(ledger)
	assert.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("append: %w", &core.ValidationError{Field: "amount", Reason: "must be a finite number"}), "Invalid amount: must be a finite number."},
		{core.IndexNotFound(2), "Transaction at index 2 not found."},
		{core.IDNotFound(7), "Transaction 7 not found."},
		{core.ErrDegenerateInput, "Cannot fit a trend line to this data."},
		{core.Unavailable("load", errors.New("permission denied")), "Ledger storage unavailable: permission denied"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describe(tt.err))
	}
}

func TestDryRunMirrorIsInMemory(t *testing.T) {
	app := NewApp(&config.Config{}, log.Discard(), &bytes.Buffer{}, &bytes.Buffer{})
	mirror, err := app.openMirror(context.Background(), true)
	assert.NoError(t, err)

	store, ok := mirror.(*sheets.Store)
	assert.True(t, ok)
	assert.NoError(t, store.Replace(context.Background(), []core.Transaction{
		{ID: 1, Description: "Rent", Amount: -900, Date: "2024-03-02", Category: "Housing"},
	}))
	txs, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, len(txs))
}

func TestGlobalsOverrideEnvironment(t *testing.T) {
	cfg := &config.Config{DataBackend: "file", LedgerFile: "env.json"}
	g := Globals{Backend: "SQLite", LedgerFile: "flag.json"}
	g.apply(cfg)
	assert.Equal(t, "sqlite", cfg.DataBackend)
	assert.Equal(t, "flag.json", cfg.LedgerFile)

	cfg = &config.Config{DataBackend: "file", LedgerFile: "env.json"}
	(&Globals{}).apply(cfg)
	assert.Equal(t, "file", cfg.DataBackend)
	assert.Equal(t, "env.json", cfg.LedgerFile)
}
