package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
	"github.com/kurihiro0119/business-reports/internal/report"
)

// Client is the API client for business-reports
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response decoded from the error envelope
type APIError struct {
	Status  int
	Code    apperrors.ErrCode           `json:"code"`
	Message string                      `json:"message"`
	Metric  string                      `json:"metric,omitempty"`
	Details []apperrors.ValidationError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: %d", e.Status)
	}
	return fmt.Sprintf("API error: %d %s - %s", e.Status, e.Code, e.Message)
}

// Catalog is the registry returned by the API
type Catalog struct {
	Metrics      []domain.MetricDefinition      `json:"metrics"`
	Dimensions   []domain.DimensionDefinition   `json:"dimensions"`
	Breakdowns   []domain.BreakdownDefinition   `json:"breakdowns"`
	FilterFields []domain.FilterFieldDefinition `json:"filterFields"`
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

// Catalog retrieves the registered metrics, axes and filter fields
func (c *Client) Catalog(ctx context.Context) (*Catalog, error) {
	var response struct {
		Data *Catalog `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// Evaluate evaluates one specification
func (c *Client) Evaluate(ctx context.Context, spec domain.ReportSpecification, viz domain.Viz) (*report.Evaluation, error) {
	body := map[string]any{"spec": spec, "viz": viz}
	var response struct {
		Data *report.Evaluation `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/reports/evaluate", nil, body, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// EvaluateDashboard evaluates several widgets; results are in widget order
func (c *Client) EvaluateDashboard(ctx context.Context, widgets []report.Widget) ([]*report.Evaluation, error) {
	body := map[string]any{"widgets": widgets}
	var response struct {
		Data []*report.Evaluation `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/dashboards/evaluate", nil, body, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// CreateReport saves a report definition
func (c *Client) CreateReport(ctx context.Context, name string, spec domain.ReportSpecification, schedule string) (*domain.ReportDefinition, error) {
	body := map[string]any{"name": name, "spec": spec, "schedule": schedule}
	var response struct {
		Data *domain.ReportDefinition `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/reports", nil, body, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetReport retrieves a report definition
func (c *Client) GetReport(ctx context.Context, id string) (*domain.ReportDefinition, error) {
	var response struct {
		Data *domain.ReportDefinition `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/reports/"+url.PathEscape(id), nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// CreateSnapshot freezes a report's current result
func (c *Client) CreateSnapshot(ctx context.Context, reportID string) (*domain.ReportSnapshot, error) {
	var response struct {
		Data *domain.ReportSnapshot `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/reports/"+url.PathEscape(reportID)+"/snapshots", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ExportTarget selects what Export downloads; set exactly one field
type ExportTarget struct {
	ReportID   string
	SnapshotID string
}

// Export streams the CSV export of a report or snapshot to w
func (c *Client) Export(ctx context.Context, target ExportTarget, role string, w io.Writer) error {
	params := url.Values{}
	if target.ReportID != "" {
		params.Set("reportId", target.ReportID)
	}
	if target.SnapshotID != "" {
		params.Set("snapshotId", target.SnapshotID)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/export", params, nil)
	if err != nil {
		return err
	}
	if role != "" {
		req.Header.Set("X-Role", role)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body any) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, result any) error {
	req, err := c.newRequest(ctx, method, path, params, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}
	envelope.Error.Status = resp.StatusCode
	return envelope.Error
}
