package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/medallion/internal/config"
	"github.com/JonMunkholm/medallion/internal/core"
	"github.com/JonMunkholm/medallion/internal/core/tables"
	"github.com/JonMunkholm/medallion/internal/metrics"
	"github.com/JonMunkholm/medallion/internal/pipeline"
	"github.com/JonMunkholm/medallion/internal/storage"
)

// Only the gold inputs carry rows; every other extract is header-only.
var goldInputs = map[string]string{
	tables.Orders: `order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date
o1,c1,delivered,2017-10-02 10:56:33,2017-10-02 11:07:15,,,2017-10-18 00:00:00
o2,c2,shipped,2018-07-24 20:41:37,,,,2018-08-13 00:00:00
`,
	tables.Customers: `customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state
c1,u1,01037,sao paulo,SP
c2,u2,13023,campinas,SP
`,
	tables.OrderPayments: `order_id,payment_sequential,payment_type,payment_installments,payment_value
o1,1,credit_card,1,10.00
o1,2,voucher,2,20.00
o1,3,voucher,3,5.00
`,
}

// header lists the declared and temporal columns of a definition.
func header(def core.TableDefinition) string {
	if def.Schema == nil {
		return "geolocation_zip_code_prefix,geolocation_city"
	}
	var names []string
	for _, c := range def.Schema.Columns {
		names = append(names, c.Name)
	}
	for _, ts := range def.Schema.Temporal {
		if _, ok := def.Schema.TypeOf(ts); !ok {
			names = append(names, ts)
		}
	}
	return strings.Join(names, ",")
}

func newTestServer(t *testing.T) (*Server, *pipeline.Runner) {
	t.Helper()
	root := t.TempDir()
	dirs := pipeline.Dirs{
		Raw:    filepath.Join(root, "raw"),
		Bronze: filepath.Join(root, "bronze"),
		Silver: filepath.Join(root, "processed"),
		Gold:   filepath.Join(root, "processed"),
	}
	require.NoError(t, os.MkdirAll(dirs.Raw, 0o755))
	for _, def := range core.All() {
		content, ok := goldInputs[def.Name]
		if !ok {
			content = header(def) + "\n"
		}
		require.NoError(t, os.WriteFile(filepath.Join(dirs.Raw, def.FileName), []byte(content), 0o644))
	}

	reg := metrics.NewRegistry()
	runner := pipeline.NewRunner(pipeline.New(dirs, storage.NewStore(storage.FormatParquet), reg), nil)
	return NewServer(runner, reg, config.ServerConfig{Host: "127.0.0.1", Port: 0}), runner
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestLatestRun_NoneYet(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Code)
}

func TestGoldPreview_BeforeFirstRun(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/gold")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, core.CodeMissingArtifact, body.Code)
}

func TestTriggerRun_ThenRead(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var m pipeline.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, 2, m.GoldRows)
	assert.Len(t, m.Bronze, 9)

	rec = do(t, s, http.MethodGet, "/api/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest pipeline.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Equal(t, m.RunID, latest.RunID)

	rec = do(t, s, http.MethodGet, "/api/gold?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var preview GoldPreview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, 2, preview.Total)
	assert.Equal(t, pipeline.GoldColumns, preview.Columns)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "o1", preview.Rows[0]["order_id"])
	assert.InDelta(t, 35.0, preview.Rows[0]["total_payment_value"], 1e-9)

	rec = do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "medallion_gold_rows 2")
}

func TestGoldPreview_Limit(t *testing.T) {
	s, runner := newTestServer(t)
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantRows int
	}{
		{name: "default", query: "", wantCode: http.StatusOK, wantRows: 2},
		{name: "clamped", query: "?limit=100000", wantCode: http.StatusOK, wantRows: 2},
		{name: "zero", query: "?limit=0", wantCode: http.StatusBadRequest},
		{name: "not a number", query: "?limit=ten", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/gold"+tt.query)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			var preview GoldPreview
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
			assert.Len(t, preview.Rows, tt.wantRows)
		})
	}
}

// blockingExporter holds a run open until release is closed.
type blockingExporter struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingExporter) ExportGold(ctx context.Context, gold *core.Table) (int64, error) {
	close(b.entered)
	<-b.release
	return int64(gold.Len()), nil
}

func TestTriggerRun_ConflictWhileRunning(t *testing.T) {
	s, runner := newTestServer(t)
	exp := &blockingExporter{entered: make(chan struct{}), release: make(chan struct{})}
	busy := pipeline.NewRunner(runner.Pipeline(), exp)
	s.runner = busy

	done := make(chan error, 1)
	go func() {
		_, err := busy.Run(context.Background())
		done <- err
	}()
	<-exp.entered

	rec := do(t, s, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/runs/active")
	require.Equal(t, http.StatusOK, rec.Code)
	var st pipeline.GateStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Active)
	assert.Equal(t, "all", st.Stage)

	close(exp.release)
	require.NoError(t, <-done)
	assert.False(t, busy.Status().Active)
}

func TestTriggerRun_FailureIsMapped(t *testing.T) {
	s, runner := newTestServer(t)
	require.NoError(t, os.Remove(filepath.Join(runner.Pipeline().Dirs().Raw, "olist_orders_dataset.csv")))

	rec := do(t, s, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, core.CodeMissingSource, body.Code)
	assert.NotEmpty(t, body.Action)
}
