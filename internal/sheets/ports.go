package sheets

import "context"

// Tab is one worksheet of a spreadsheet, addressed by zero-based row index.
// Row 0 is the header once the tab has been bootstrapped.
type Tab interface {
	Rows(ctx context.Context) ([][]any, error)
	AppendRow(ctx context.Context, row []any) error
	DeleteRow(ctx context.Context, row int) error
	ReplaceRows(ctx context.Context, rows [][]any) error
}
