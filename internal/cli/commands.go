package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"tracker/internal/config"
	"tracker/internal/core"
)

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines flags available to all commands. Flags that are set win
// over the environment.
type Globals struct {
	Backend    string `help:"Ledger backend (${backends})." placeholder:"NAME"`
	LedgerFile string `help:"Ledger file for the file and memory backends." placeholder:"PATH"`
	Verbose    bool   `help:"Log at LOG_LEVEL instead of warnings only." short:"v"`
}

func (g *Globals) apply(cfg *config.Config) {
	if g.Backend != "" {
		cfg.DataBackend = strings.ToLower(g.Backend)
	}
	if g.LedgerFile != "" {
		cfg.LedgerFile = g.LedgerFile
	}
}

// CLI is the tracker command line.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information."`
	Globals

	Serve      ServeCmd      `cmd:"" help:"Start the HTTP API."`
	List       ListCmd       `cmd:"" help:"List every transaction in ledger order."`
	Add        AddCmd        `cmd:"" help:"Append a transaction."`
	Remove     RemoveCmd     `cmd:"" help:"Delete a transaction by position or by ID."`
	Categories CategoriesCmd `cmd:"" help:"Show the total of every category."`
	Balance    BalanceCmd    `cmd:"" help:"Show the balance of one month."`
	Trend      TrendCmd      `cmd:"" help:"Show the monthly totals of a year and their trend line."`
}

type ListCmd struct{}

func (cmd *ListCmd) Run(ctx context.Context, app *App) error {
	svc, err := app.Service(ctx)
	if err != nil {
		return err
	}
	txs, err := svc.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		printInfof(app.Stdout, "No transactions in %s", pathStyle.Render(app.ledgerName()))
		return nil
	}
	summary, err := svc.Summary(ctx)
	if err != nil {
		return err
	}

	table := newTable(app.Stdout, []string{"#", "ID", "Date", "Description", "Category", "Amount"}, 0, 1, 5)
	for i, tx := range txs {
		table.Append([]string{
			fmt.Sprint(i),
			fmt.Sprint(tx.ID),
			tx.Date,
			tx.Description,
			tx.Category,
			formatAmount(tx.Amount),
		})
	}
	table.SetFooter([]string{"", "", "", fmt.Sprintf("%d transactions", summary.Count),
		"income " + formatAmount(summary.Income) + " / expenses " + formatAmount(summary.Expenses),
		formatAmount(summary.Net)})
	table.Render()
	return nil
}

type AddCmd struct {
	Description string `help:"What the money was for." required:"" short:"d"`
	Amount      string `help:"Signed amount; negative for expenses. A decimal comma is accepted." required:"" short:"a"`
	Date        string `help:"Calendar date as YYYY-MM-DD. Defaults to today." placeholder:"YYYY-MM-DD"`
	Category    string `help:"Category label." required:"" short:"c"`
}

func (cmd *AddCmd) Run(ctx context.Context, app *App) error {
	amount, err := core.ParseAmount(cmd.Amount)
	if err != nil {
		return &core.ValidationError{Field: "amount", Reason: "must be a number"}
	}
	date := cmd.Date
	if date == "" {
		date = time.Now().Format(core.DateLayout)
	}

	svc, err := app.Service(ctx)
	if err != nil {
		return err
	}
	stored, err := svc.Append(ctx, core.Transaction{
		Description: cmd.Description,
		Amount:      amount,
		Date:        date,
		Category:    cmd.Category,
	})
	if err != nil {
		return err
	}
	printSuccess(app.Stdout, fmt.Sprintf("Added transaction %d: %s %s (%s, %s)",
		stored.ID, stored.Description, formatAmount(stored.Amount), stored.Category, stored.Date))
	return nil
}

type RemoveCmd struct {
	Index int   `arg:"" optional:"" default:"-1" help:"Zero-based position in the ledger."`
	ID    int64 `help:"Stable transaction ID." name:"id"`
}

// Validate is called by kong after parsing.
func (cmd *RemoveCmd) Validate() error {
	if (cmd.Index >= 0) == (cmd.ID != 0) {
		return errors.New("give either an index or --id")
	}
	return nil
}

func (cmd *RemoveCmd) Run(ctx context.Context, app *App) error {
	svc, err := app.Service(ctx)
	if err != nil {
		return err
	}
	if cmd.Index >= 0 {
		err = svc.RemoveAt(ctx, cmd.Index)
	} else {
		err = svc.Remove(ctx, cmd.ID)
	}
	if err != nil {
		return err
	}
	printSuccess(app.Stdout, "Transaction deleted successfully.")
	return nil
}

type CategoriesCmd struct{}

func (cmd *CategoriesCmd) Run(ctx context.Context, app *App) error {
	svc, err := app.Service(ctx)
	if err != nil {
		return err
	}
	totals, err := svc.CategoryTotals(ctx)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		printInfof(app.Stdout, "No transactions in %s", pathStyle.Render(app.ledgerName()))
		return nil
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	table := newTable(app.Stdout, []string{"Category", "Total"}, 1)
	for _, name := range names {
		table.Append([]string{name, formatAmount(totals[name])})
	}
	table.Render()
	return nil
}

type BalanceCmd struct {
	Year  int `arg:"" help:"Calendar year."`
	Month int `arg:"" help:"Month, 1 to 12."`
}

func (cmd *BalanceCmd) Run(ctx context.Context, app *App) error {
	svc, err := app.Service(ctx)
	if err != nil {
		return err
	}
	balance, err := svc.MonthlyBalance(ctx, cmd.Year, cmd.Month)
	if err != nil {
		return err
	}

	table := newTable(app.Stdout, []string{"Month", "Transactions", "Balance"}, 1, 2)
	table.Append([]string{balance.Label, fmt.Sprint(balance.Count), formatAmount(balance.Balance)})
	table.Render()
	return nil
}

type TrendCmd struct {
	Year int `arg:"" help:"Calendar year."`
}

func (cmd *TrendCmd) Run(ctx context.Context, app *App) error {
	svc, err := app.Service(ctx)
	if err != nil {
		return err
	}
	trend, err := svc.YearlyTrend(ctx, cmd.Year)
	if err != nil {
		return err
	}

	table := newTable(app.Stdout, []string{"Month", "Total", "Trend"}, 1, 2)
	for i := range trend.MonthlyTotals {
		table.Append([]string{
			time.Month(i + 1).String(),
			formatAmount(trend.MonthlyTotals[i]),
			formatAmount(trend.TrendLine[i]),
		})
	}
	table.Render()
	return nil
}

func (a *App) ledgerName() string {
	if a.backend != nil && a.backend.LedgerFile != "" {
		return a.backend.LedgerFile
	}
	return a.Config.DataBackend + " ledger"
}
