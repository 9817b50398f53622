package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/business-reports/internal/domain"
)

func TestEvaluateSendsSpecAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/reports/evaluate", r.URL.Path)

		var body struct {
			Spec domain.ReportSpecification `json:"spec"`
			Viz  domain.Viz                 `json:"viz"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, domain.MetricSalesTotal, body.Spec.Metric)
		assert.Equal(t, "c1", body.Spec.Filters["customerId"].Value)
		assert.Equal(t, domain.VizAuto, body.Viz)

		_, _ = io.WriteString(w, `{"data":{"result":{"metric":"sales_total","rows":[{"label":"Sales Total","amount":150000}],"meta":{"rowCount":1,"viz":"kpi","recommendedViz":"kpi"}},"points":[{"label":"Sales Total","value":150000,"raw":{}}]}}`)
	}))
	defer srv.Close()

	spec := domain.ReportSpecification{Metric: domain.MetricSalesTotal, DateRange: domain.Relative(domain.RangeYearToDate)}
	spec.Filters.Upsert(domain.FilterClause{Field: "customerId", Op: domain.OpEq, Value: "c1"})

	eval, err := NewClient(srv.URL).Evaluate(context.Background(), spec, domain.VizAuto)
	require.NoError(t, err)
	assert.Equal(t, 1, eval.Result.Meta.RowCount)
	assert.Equal(t, 150000.0, eval.Points[0].Value)
}

func TestErrorEnvelopeIsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"VALIDATION_FAILED","message":"2 validation error(s)","details":[{"code":"UNKNOWN_METRIC","field":"metric","message":"unknown"},{"code":"VALIDATION_FAILED","field":"limit","message":"bad"}]}}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Evaluate(context.Background(), domain.ReportSpecification{}, "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "VALIDATION_FAILED", string(apiErr.Code))
	assert.Len(t, apiErr.Details, 2)
}

func TestExportStreamsCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snap-1", r.URL.Query().Get("snapshotId"))
		assert.Empty(t, r.URL.Query().Get("reportId"))
		assert.Equal(t, "manager", r.Header.Get("X-Role"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "a,b\n1,\n")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	err := NewClient(srv.URL).Export(context.Background(), ExportTarget{SnapshotID: "snap-1"}, "manager", &buf)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\n", buf.String())
}

func TestExportNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":"NOT_FOUND","message":"report x not found"}}`)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Export(context.Background(), ExportTarget{ReportID: "x"}, "", io.Discard)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
