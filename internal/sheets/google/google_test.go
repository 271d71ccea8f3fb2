package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{SheetName: "Ledger"})
	assert.EqualError(t, err, "missing GOOGLE_SPREADSHEET_ID")
}

func TestCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	got, err := credentials(Config{CredentialsJSON: ` {"type":"service_account"} `})
	assert.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(got))

	path := filepath.Join(t.TempDir(), "sa.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{"from":"file"}`), 0o600))
	got, err = credentials(Config{CredentialsFile: path})
	assert.NoError(t, err)
	assert.Equal(t, `{"from":"file"}`, string(got))

	_, err = credentials(Config{})
	assert.Error(t, err)
}

func TestRangeOfQuotesSheetName(t *testing.T) {
	c := &Client{sheetName: "Bob's Ledger"}
	assert.Equal(t, "'Bob''s Ledger'!A:E", c.rangeOf("A:E"))
}

func TestFindSheetID(t *testing.T) {
	list := []*gsheet.Sheet{
		{Properties: &gsheet.SheetProperties{Title: "Other", SheetId: 1}},
		nil,
		{Properties: &gsheet.SheetProperties{Title: "Ledger", SheetId: 42}},
	}
	id, ok := findSheetID(list, "ledger")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = findSheetID(list, "Missing")
	assert.False(t, ok)
}

func TestSheetIDCacheExpiration(t *testing.T) {
	c := &Client{cacheValidDuration: 100 * time.Millisecond}

	c.mu.Lock()
	c.cachedSheetID = 7
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	id, err := c.sheetID(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(7), id)

	c.invalidateSheetID()
	c.mu.Lock()
	valid := time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	assert.False(t, valid, "cache should be invalid after invalidateSheetID")
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	assert.NoError(t, err)
	return newClient(svc, "sheet-123", "Ledger")
}

func TestRowsReadsUnformattedValues(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.Contains(r.URL.Path, "/values/") {
			http.Error(w, "unexpected call", http.StatusBadRequest)
			return
		}
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"range": "Ledger!A1:E2",
			"values": [][]any{
				{"ID", "Description", "Amount", "Date", "Category"},
				{1, "Tea", -2.5, "2024-01-01", "Food"},
			},
		})
	})

	rows, err := c.Rows(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(rows))
	assert.Equal(t, any("Tea"), rows[1][1])
	assert.Equal(t, any(-2.5), rows[1][2])
	assert.Contains(t, gotQuery, "valueRenderOption=UNFORMATTED_VALUE")
}

func TestRowsWrapsAPIErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	})

	_, err := c.Rows(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read Ledger")
}
