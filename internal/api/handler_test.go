package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/business-reports/internal/catalog"
	"github.com/kurihiro0119/business-reports/internal/domain"
	"github.com/kurihiro0119/business-reports/internal/logger"
	"github.com/kurihiro0119/business-reports/internal/report"
	"github.com/kurihiro0119/business-reports/internal/storage"
	"github.com/kurihiro0119/business-reports/internal/storage/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := sqlite.NewSQLiteStorage(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	day := func(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, storage.Seed(context.Background(), store, &storage.DemoData{
		Entities: []domain.Entity{{Kind: domain.EntityProduct, ID: "p1", Name: `Widget "Pro"`}},
		Sales: []domain.Sale{
			{ID: "s1", CustomerID: "c1", ProductID: "p1", SaleDate: day(2), Amount: 100000, Cost: 60000},
			{ID: "s2", CustomerID: "c2", ProductID: "p1", SaleDate: day(9), Amount: 50000, Cost: 30000},
		},
	}))

	now := func() time.Time { return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC) }
	svc := report.NewService(catalog.Default(), store, logger.Discard(), report.WithClock(now))
	return SetupRoutes(NewHandler(svc, "viewer"), logger.Discard())
}

func do(t *testing.T, router *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Metric  string `json:"metric"`
		Details []struct {
			Code  string `json:"code"`
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

var januarySpec = map[string]any{
	"metric":    "sales_total",
	"dateRange": map[string]any{"mode": "absolute", "from": "2024-01-01", "to": "2024-01-31"},
}

func TestHealthAndCatalog(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cat struct {
		Metrics []domain.MetricDefinition `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &cat))
	assert.Len(t, cat.Metrics, 8)
}

func TestEvaluateEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/v1/reports/evaluate", map[string]any{"spec": januarySpec, "viz": "auto"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var eval report.Evaluation
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &eval))
	assert.Equal(t, 150000.0, eval.Result.Rows[0]["amount"])
	assert.Equal(t, domain.VizKPI, eval.Result.Meta.Viz)
	assert.Equal(t, 1, eval.Result.Meta.RowCount)
	require.Len(t, eval.Points, 1)
	assert.Equal(t, 150000.0, eval.Points[0].Value)
}

func TestEvaluateValidationErrors(t *testing.T) {
	router := newTestRouter(t)
	spec := map[string]any{
		"metric":    "unknown",
		"dateRange": map[string]any{"mode": "absolute", "from": "2024-02-01", "to": "2024-01-01"},
		"filters":   []map[string]any{{"field": "region", "op": "eq", "value": "EU"}},
	}

	w := do(t, router, http.MethodPost, "/api/v1/reports/evaluate", map[string]any{"spec": spec})
	require.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.GreaterOrEqual(t, len(env.Error.Details), 3)
	assert.Equal(t, "UNKNOWN_METRIC", env.Error.Details[0].Code)
}

func TestEvaluateUnsupportedOperator(t *testing.T) {
	router := newTestRouter(t)
	spec := map[string]any{
		"metric":    "sales_total",
		"dateRange": map[string]any{"mode": "relative", "value": "ytd"},
		"filters":   []map[string]any{{"field": "customerId", "op": "contains", "value": "ac"}},
	}

	w := do(t, router, http.MethodPost, "/api/v1/reports/evaluate", map[string]any{"spec": spec})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode(t, w)
	assert.Equal(t, "UNSUPPORTED_FILTER_OPERATOR", env.Error.Code)
	assert.Equal(t, "sales_total", env.Error.Metric)
}

func TestEvaluateMalformedBody(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/evaluate", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardEndpoint(t *testing.T) {
	router := newTestRouter(t)
	byProduct := map[string]any{"metric": "sales_by_product", "dateRange": januarySpec["dateRange"]}

	w := do(t, router, http.MethodPost, "/api/v1/dashboards/evaluate", map[string]any{
		"widgets": []map[string]any{{"spec": januarySpec}, {"spec": byProduct, "viz": "pie"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var results []report.Evaluation
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &results))
	require.Len(t, results, 2)
	assert.Equal(t, domain.MetricSalesTotal, results[0].Result.Metric)
	assert.Equal(t, domain.VizPie, results[1].Result.Meta.Viz)
}

func TestReportSnapshotExportFlow(t *testing.T) {
	router := newTestRouter(t)
	byProduct := map[string]any{"metric": "sales_by_product", "dateRange": januarySpec["dateRange"]}

	w := do(t, router, http.MethodPost, "/api/v1/reports", map[string]any{"name": "By product", "spec": byProduct})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rep domain.ReportDefinition
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rep))

	w = do(t, router, http.MethodGet, "/api/v1/reports/"+rep.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/reports/"+rep.ID+"/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/reports/"+rep.ID+"/snapshots", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var snap domain.ReportSnapshot
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &snap))

	w = do(t, router, http.MethodGet, "/api/v1/export?snapshotId="+snap.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="report-`+snap.ID+`.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "amount,key,label\n150000,p1,\"Widget \"\"Pro\"\"\"\n", w.Body.String())

	w = do(t, router, http.MethodGet, "/api/v1/export?reportId="+rep.ID, nil, RoleHeader, "admin")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "amount,cost,key,label,margin\n"), w.Body.String())

	w = do(t, router, http.MethodGet, "/api/v1/export?reportId="+rep.ID, nil, RoleHeader, "stranger")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "margin")
}

func TestExportErrors(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/v1/export?reportId=nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w).Error.Code)

	w = do(t, router, http.MethodGet, "/api/v1/export?snapshotId=nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/export", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/export?reportId=a&snapshotId=b", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/reports/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
