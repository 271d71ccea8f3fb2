package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"tracker/internal/core"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		successStyle.Render(successSymbol),
		message,
	)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		errorStyle.Render(errorSymbol),
		errorStyle.Render(message),
	)
}

func printInfof(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		infoStyle.Render(infoSymbol),
		fmt.Sprintf(format, args...),
	)
}

// describe turns a service error into the sentence shown to the user.
func describe(err error) string {
	var (
		validation *core.ValidationError
		notFound   *core.NotFoundError
		storage    *core.StorageError
	)
	switch {
	case errors.As(err, &validation):
		return fmt.Sprintf("Invalid %s: %s.", validation.Field, validation.Reason)
	case errors.As(err, &notFound):
		if notFound.ByID {
			return fmt.Sprintf("Transaction %d not found.", notFound.ID)
		}
		return fmt.Sprintf("Transaction at index %d not found.", notFound.Index)
	case errors.Is(err, core.ErrDegenerateInput):
		return "Cannot fit a trend line to this data."
	case errors.As(err, &storage):
		return fmt.Sprintf("Ledger storage unavailable: %v", storage.Err)
	default:
		return err.Error()
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// newTable returns a report table writing to w. Columns listed in right
// are right-aligned.
func newTable(w io.Writer, header []string, right ...int) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	align := make([]int, len(header))
	for i := range align {
		align[i] = tablewriter.ALIGN_LEFT
	}
	for _, col := range right {
		align[col] = tablewriter.ALIGN_RIGHT
	}
	table.SetColumnAlignment(align)
	return table
}
