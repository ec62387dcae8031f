package model

import "github.com/shopspring/decimal"

// ComputeTotal sums quantity x unit price over all items. When the item
// collection is empty the server-maintained estimate is returned instead, so
// list views, detail views and exports always agree on the same number.
func ComputeTotal(items []RequestItem, fallback decimal.Decimal) decimal.Decimal {
	if len(items) == 0 {
		return fallback
	}
	total := decimal.Zero
	for _, it := range items {
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}
	return total
}
