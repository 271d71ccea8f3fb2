// This file parses transaction request bodies. JSON and form-encoded bodies
// are both accepted.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tracker/internal/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// errMalformedBody is returned for bodies that are neither a JSON object nor
// a form.
var errMalformedBody = errors.New("malformed request body")

// RequestBodyParser reads the body once and exposes its fields regardless
// of encoding.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. Content that looks like JSON must be a JSON object.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '{' || trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
			return p.err
		}
		if p.jsonData == nil {
			p.err = fmt.Errorf("%w: expected a JSON object", errMalformedBody)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Transaction builds the record described by the body. The returned
// ValidationError, if any, concerns the amount only; other fields are left
// for Transaction.Validate.
func (p *RequestBodyParser) Transaction() (core.Transaction, *core.ValidationError) {
	tx := core.Transaction{
		Description: p.Get("description"),
		Date:        p.Get("date"),
		Category:    p.Get("category"),
	}

	raw := p.Get("amount")
	if raw == "" {
		return tx, &core.ValidationError{Field: "amount", Reason: "is required"}
	}
	amount, err := core.ParseAmount(raw)
	if err != nil {
		return tx, &core.ValidationError{Field: "amount", Reason: "must be a number"}
	}
	tx.Amount = amount
	return tx, nil
}

// stringValue renders a decoded JSON value as the string a form would carry.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
