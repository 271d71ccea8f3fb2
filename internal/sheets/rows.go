package sheets

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tracker/internal/core"
)

// Header is the first row of a ledger tab.
var Header = []any{"ID", "Description", "Amount", "Date", "Category"}

const (
	colID = iota
	colDescription
	colAmount
	colDate
	colCategory
)

// FormatRow renders tx in Header column order. A legacy record without an
// ID gets an empty ID cell.
func FormatRow(tx core.Transaction) []any {
	var id any = ""
	if tx.ID > 0 {
		id = tx.ID
	}
	return []any{id, tx.Description, tx.Amount, tx.Date, tx.Category}
}

// ParseRow reads a row written by FormatRow or edited by hand. Cells may be
// numbers or text, depending on how the sheet was rendered.
func ParseRow(row []any) (core.Transaction, error) {
	var tx core.Transaction

	id, err := parseID(cell(row, colID))
	if err != nil {
		return tx, err
	}
	tx.ID = id
	tx.Description = cellString(row, colDescription)
	tx.Date = cellString(row, colDate)
	tx.Category = cellString(row, colCategory)

	amount, err := parseAmount(cell(row, colAmount))
	if err != nil {
		return tx, err
	}
	tx.Amount = amount
	return tx, nil
}

// IsHeader reports whether row is the ledger header.
func IsHeader(row []any) bool {
	return strings.EqualFold(cellString(row, colID), "ID") &&
		strings.EqualFold(cellString(row, colDescription), "Description")
}

// IsBlank reports whether every cell of row is empty.
func IsBlank(row []any) bool {
	for i := range row {
		if cellString(row, i) != "" {
			return false
		}
	}
	return true
}

func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func cellString(row []any, i int) string {
	v := cell(row, i)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func parseID(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if x != math.Trunc(x) || x < 0 {
			return 0, fmt.Errorf("invalid id %v", x)
		}
		return int64(x), nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseAmount(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case nil:
		return 0, fmt.Errorf("missing amount")
	}
	return core.ParseAmount(fmt.Sprint(v))
}
