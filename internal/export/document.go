package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/kurihiro0119/business-reports/internal/domain"
)

// Document is a redacted, column-aligned rendering of result rows
type Document struct {
	Columns []string
	Records [][]string
}

// ExportRows redacts rows for role under the default policy and aligns them into a document
func ExportRows(rows []domain.Row, role string) *Document {
	return DefaultPolicy().Export(rows, role)
}

// Export redacts rows for role and aligns them into a document
func (p *Policy) Export(rows []domain.Row, role string) *Document {
	clean := p.Sanitize(rows, role)
	columns := Columns(clean)

	records := make([][]string, len(clean))
	for i, row := range clean {
		record := make([]string, len(columns))
		for j, col := range columns {
			record[j] = FormatValue(row[col])
		}
		records[i] = record
	}
	return &Document{Columns: columns, Records: records}
}

// Columns is the union of keys across rows in first-seen order.
// Keys new to a row are taken in sorted order so output is stable.
func Columns(rows []domain.Row) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			columns = append(columns, k)
		}
	}
	return columns
}

// FormatValue renders a row value as a cell; missing and nil values are empty
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes a header line and one line per record. Only fields containing
// commas, quotes or line breaks are quoted, with inner quotes doubled. Plain
// values stay bare so a missing column renders as an empty field (1, and ,2)
// rather than as "".
func (d *Document) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(d.Records); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteTable renders the document as a terminal table
func (d *Document) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(d.Columns)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(d.Records)
	table.Render()
}
