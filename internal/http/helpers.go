package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// pathInt parses the named path value as a base-10 integer.
func pathInt(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// parseYear accepts four-digit years only.
func parseYear(r *http.Request) (int, error) {
	y, err := pathInt(r, "year")
	if err != nil {
		return 0, err
	}
	if y < 1 || y > 9999 {
		return 0, fmt.Errorf("year must be between 1 and 9999, got %d", y)
	}
	return int(y), nil
}

func parseMonth(r *http.Request) (int, error) {
	m, err := pathInt(r, "month")
	if err != nil {
		return 0, err
	}
	if m < 1 || m > 12 {
		return 0, fmt.Errorf("month must be between 1 and 12, got %d", m)
	}
	return int(m), nil
}
