package catalog

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Len(t, c.ListMetrics(), 8)
	assert.Len(t, c.ListDimensions(), 4)
	assert.Len(t, c.ListBreakdowns(), 2)
	assert.Len(t, c.ListFilterFields(), 5)

	m, err := c.GetMetric(domain.MetricSalesTotal)
	require.NoError(t, err)
	assert.Equal(t, "Sales Total", m.Label)
	assert.Equal(t, domain.DomainSales, m.Domain)
	assert.Equal(t, domain.VizKPI, m.DefaultViz)

	f, ok := c.FilterField("customerId")
	require.True(t, ok)
	assert.Equal(t, domain.FieldTypeSelect, f.Type)
	assert.Equal(t, domain.EntityCustomer, f.LookupKind)

	assert.True(t, c.HasDimension("month"))
	assert.False(t, c.HasDimension("weekday"))
	assert.True(t, c.HasBreakdown("vendor"))
}

func TestGetMetricUnknown(t *testing.T) {
	_, err := Default().GetMetric("gross_margin")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnknownMetric, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsValidation(err))
}

func TestListIsACopy(t *testing.T) {
	c := Default()
	metrics := c.ListMetrics()
	metrics[0].Label = "changed"
	assert.Equal(t, "Sales Total", c.ListMetrics()[0].Label)
}

func TestLoadRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"duplicate metric": "metrics:\n  - {id: a, label: A, domain: SALES}\n  - {id: a, label: B, domain: SALES}\n",
		"unknown domain":   "metrics:\n  - {id: a, label: A, domain: HR}\n",
		"unknown type":     "filter_fields:\n  - {field: x, label: X, type: date}\n",
		"unknown key":      "metricz: []\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadDefaultsViz(t *testing.T) {
	c, err := Load(strings.NewReader("metrics:\n  - {id: a, label: A, domain: OPERATIONS}\n"))
	require.NoError(t, err)
	m, err := c.GetMetric("a")
	require.NoError(t, err)
	assert.Equal(t, domain.VizTable, m.DefaultViz)
}

func TestConcurrentReads(t *testing.T) {
	c := Default()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, m := range c.ListMetrics() {
				_, err := c.GetMetric(m.ID)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
