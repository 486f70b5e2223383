package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/export"
	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheetsAPI records the calls the writer makes against the Sheets REST API.
type fakeSheetsAPI struct {
	updates    map[string][][]any
	calls      []string
	existing   []string
	failStatus int
	mu         sync.Mutex
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets")
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	if f.failStatus != 0 && r.Method != http.MethodGet {
		w.WriteHeader(f.failStatus)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"bad request"}}`)
		return
	}

	switch {
	case r.Method == http.MethodGet:
		var tabs []string
		for i, title := range f.existing {
			tabs = append(tabs, fmt.Sprintf(`{"properties":{"sheetId":%d,"title":%q}}`, i, title))
		}
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1","sheets":[`+strings.Join(tabs, ",")+`]}`)
	case r.Method == http.MethodPost && path == "":
		_, _ = io.WriteString(w, `{"spreadsheetId":"new-sheet","spreadsheetUrl":"https://example.test/new-sheet",
			"sheets":[{"properties":{"sheetId":0,"title":"Summary"}},{"properties":{"sheetId":1,"title":"Bills"}}]}`)
	case strings.HasSuffix(path, ":batchUpdate"):
		_, _ = io.WriteString(w, `{"replies":[{"addSheet":{"properties":{"sheetId":7,"title":"Bills"}}}]}`)
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.updates == nil {
			f.updates = make(map[string][][]any)
		}
		f.updates[path] = body.Values
		_, _ = io.WriteString(w, `{}`)
	default:
		_, _ = io.WriteString(w, `{}`)
	}
}

func (f *fakeSheetsAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, config Config) *Writer {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	return NewWriterWithService(srv, config, nil)
}

func testReport() *export.Report {
	r1 := testutil.Record("r1", 2, "25.50", "餐饮", "美团")
	r1.SubCategory = model.StringPtr("三餐")
	r2 := testutil.Record("r2", 3, "8", "交通", "滴滴出行")
	return export.BuildReport([]model.Record{r1, r2}, nil)
}

func TestWriter_WriteExistingSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{existing: []string{"Summary"}}
	config := DefaultConfig()
	config.SpreadsheetID = "sheet-1"
	config.RetryDelay = time.Millisecond
	w := newTestWriter(t, api, config)

	id, err := w.Write(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "sheet-1", id)

	calls := api.Calls()
	assert.Equal(t, "GET /sheet-1", calls[0])
	assert.Equal(t, "POST /sheet-1:batchUpdate", calls[1], "missing Bills tab is added")
	assert.Contains(t, calls, "POST /sheet-1/values/Summary!A:Z:clear")
	assert.Contains(t, calls, "POST /sheet-1/values/Bills!A:Z:clear")

	bills := api.updates["/sheet-1/values/Bills!A1"]
	require.Len(t, bills, 3)
	assert.Equal(t, []any{"Date", "Flow", "Category", "Subcategory", "Amount", "Note"}, bills[0])
	assert.Equal(t, []any{"2024-01-03", "支出", "交通", "", 8.0, "滴滴出行"}, bills[1])

	summary := api.updates["/sheet-1/values/Summary!A1"]
	require.NotEmpty(t, summary)
	assert.Equal(t, "Bills Report", summary[0][0])
}

func TestWriter_CreatesSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{}
	config := DefaultConfig()
	config.EnableFormatting = false
	w := newTestWriter(t, api, config)

	id, err := w.Write(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "new-sheet", id)

	calls := api.Calls()
	assert.Equal(t, "POST ", calls[0])
	for _, call := range calls {
		assert.NotContains(t, call, ":batchUpdate")
	}
}

func TestWriter_Batches(t *testing.T) {
	api := &fakeSheetsAPI{existing: []string{"Summary", "Bills"}}
	config := DefaultConfig()
	config.SpreadsheetID = "sheet-1"
	config.BatchSize = 2
	config.EnableFormatting = false
	w := newTestWriter(t, api, config)

	_, err := w.Write(context.Background(), testReport())
	require.NoError(t, err)

	assert.Len(t, api.updates["/sheet-1/values/Bills!A1"], 2)
	assert.Len(t, api.updates["/sheet-1/values/Bills!A3"], 1)
}

func TestWriter_ClientErrorIsNotRetried(t *testing.T) {
	api := &fakeSheetsAPI{existing: []string{"Summary", "Bills"}}
	config := DefaultConfig()
	config.SpreadsheetID = "sheet-1"
	config.RetryDelay = time.Millisecond
	w := newTestWriter(t, api, config)

	api.failStatus = http.StatusBadRequest
	_, err := w.Write(context.Background(), testReport())
	require.Error(t, err)
	assert.Equal(t, []string{"GET /sheet-1", "POST /sheet-1/values/Summary!A:Z:clear"}, api.Calls())
}

func TestMockWriter(t *testing.T) {
	m := NewMockWriter()
	report := testReport()

	id, err := m.Write(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, "mock-spreadsheet", id)
	assert.Same(t, report, m.LastReport)

	m.SetWriteError(assert.AnError)
	_, err = m.Write(context.Background(), report)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, m.GetWriteCalls(), 2)
}
