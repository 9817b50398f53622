package sqldb

import (
	"fmt"
	"strings"
	"time"

	"github.com/kurihiro0119/business-reports/internal/domain"
)

// columns whitelists the filter fields each table can be constrained on
var columns = map[string]map[string]string{
	"sales": {
		"customerId": "customer_id",
		"vendorId":   "vendor_id",
		"productId":  "product_id",
		"saleDate":   "sale_date",
		"amount":     "amount",
	},
	"receivables": {
		"customerId": "customer_id",
		"amount":     "amount",
	},
	"inventory": {
		"productId": "product_id",
	},
	"shipments": {
		"productId": "product_id",
	},
}

var comparisons = map[domain.FilterOp]string{
	domain.OpEq:  "=",
	domain.OpNeq: "<>",
	domain.OpGt:  ">",
	domain.OpLt:  "<",
	domain.OpGte: ">=",
	domain.OpLte: "<=",
}

// whereClause renders constraints as AND-joined predicates with ? placeholders.
// Field names are mapped through the table whitelist; values are always bound.
func whereClause(table string, constraints []domain.Constraint) ([]string, []any, error) {
	cols, ok := columns[table]
	if !ok {
		return nil, nil, fmt.Errorf("no filterable columns for table %q", table)
	}

	preds := make([]string, 0, len(constraints))
	args := make([]any, 0, len(constraints))
	for _, c := range constraints {
		col, ok := cols[c.Field]
		if !ok {
			return nil, nil, fmt.Errorf("field %q cannot be filtered on %s", c.Field, table)
		}
		if len(c.Values) == 0 {
			return nil, nil, fmt.Errorf("constraint on %q has no values", c.Field)
		}

		switch c.Op {
		case domain.OpIn:
			marks := strings.TrimSuffix(strings.Repeat("?,", len(c.Values)), ",")
			preds = append(preds, fmt.Sprintf("%s IN (%s)", col, marks))
			for _, v := range c.Values {
				args = append(args, bindValue(v))
			}
		case domain.OpContains:
			preds = append(preds, col+" LIKE ?")
			args = append(args, "%"+fmt.Sprint(c.Values[0])+"%")
		default:
			sqlOp, ok := comparisons[c.Op]
			if !ok {
				return nil, nil, fmt.Errorf("operator %q has no SQL form", c.Op)
			}
			preds = append(preds, fmt.Sprintf("%s %s ?", col, sqlOp))
			args = append(args, bindValue(c.Values[0]))
		}
	}
	return preds, args, nil
}

func bindValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}
