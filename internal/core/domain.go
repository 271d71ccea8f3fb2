package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// UncategorizedLabel replaces a missing category when records are grouped.
const UncategorizedLabel = "Uncategorized"

const maxDescriptionLength = 200

// Transaction is one ledger record. ID is zero for records written before
// stable identifiers existed; those are addressable only by position.
type Transaction struct {
	ID          int64   `json:"id,omitempty"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category,omitempty"`
}

// Normalize trims text fields and rewrites Date in canonical YYYY-MM-DD form
// when it parses. Unparseable dates are left untouched for Validate to report.
func (t Transaction) Normalize() Transaction {
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	t.Date = strings.TrimSpace(t.Date)
	if d, err := ParseDate(t.Date); err == nil {
		t.Date = d.String()
	}
	return t
}

// Validate reports the first missing or invalid field, checked in the order
// description, amount, date, category.
func (t Transaction) Validate() error {
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if len(desc) > maxDescriptionLength {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("must be at most %d characters", maxDescriptionLength)}
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return &ValidationError{Field: "amount", Reason: "must be a finite number"}
	}
	if strings.TrimSpace(t.Date) == "" {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if _, err := ParseDate(t.Date); err != nil {
		return &ValidationError{Field: "date", Reason: "must be a calendar date (YYYY-MM-DD)"}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ValidationError{Field: "category", Reason: "is required"}
	}
	return nil
}

// CategoryOrDefault returns the category used for grouping.
func (t Transaction) CategoryOrDefault() string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return UncategorizedLabel
}

// Period returns the calendar year and month (1-12) of the record.
// ok is false when the stored date does not parse.
func (t Transaction) Period() (year, month int, ok bool) {
	d, err := ParseDate(t.Date)
	if err != nil {
		return 0, 0, false
	}
	return d.Year(), d.Month(), true
}

// UnmarshalJSON accepts amount as a JSON number or a numeric string, since
// older ledgers stored whatever the client submitted.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	var raw struct {
		plain
		Amount json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Transaction(raw.plain)

	amount := bytes.TrimSpace(raw.Amount)
	if len(amount) == 0 || bytes.Equal(amount, []byte("null")) {
		t.Amount = 0
		return nil
	}
	if amount[0] == '"' {
		var s string
		if err := json.Unmarshal(amount, &s); err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
		v, err := ParseAmount(s)
		if err != nil {
			return fmt.Errorf("decode amount %q: %w", s, err)
		}
		t.Amount = v
		return nil
	}
	if err := json.Unmarshal(amount, &t.Amount); err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}
	return nil
}
