package ledger

import (
	"github.com/shopspring/decimal"

	"cuops/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Balance is the computed budget position of a contract.
type Balance struct {
	Total       decimal.Decimal `json:"total"`
	Used        decimal.Decimal `json:"used"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percent_used"`
	OverBudget  bool            `json:"over_budget"`
}

// BalanceOf computes total = granted + rollover and remaining = total - used.
// Remaining goes negative on overdraft. PercentUsed is clamped to [0, 100]
// for display and is 0 when nothing was granted.
func BalanceOf(c domain.Contract) Balance {
	total := c.TotalContentUnits.Add(c.RolloverUnits)
	used := c.UsedContentUnits
	b := Balance{
		Total:       total,
		Used:        used,
		Remaining:   total.Sub(used),
		PercentUsed: decimal.Zero,
	}
	b.OverBudget = b.Remaining.IsNegative()
	if total.IsPositive() {
		pct := used.Div(total).Mul(hundred).Round(1)
		switch {
		case pct.IsNegative():
			pct = decimal.Zero
		case pct.GreaterThan(hundred):
			pct = hundred
		}
		b.PercentUsed = pct
	}
	return b
}
