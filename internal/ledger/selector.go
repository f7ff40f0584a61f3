package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cuops/internal/domain"
)

// ContractOption is an active contract offered for a commission.
type ContractOption struct {
	Contract domain.Contract `json:"contract"`
	Balance  Balance         `json:"balance"`
}

// ActiveOptions keeps active contracts and computes their balances.
func ActiveOptions(contracts []domain.Contract) []ContractOption {
	var out []ContractOption
	for _, c := range contracts {
		if c.Status != domain.ContractActive {
			continue
		}
		out = append(out, ContractOption{Contract: c, Balance: BalanceOf(c)})
	}
	return out
}

// AutoSelect returns the only option when exactly one exists.
func AutoSelect(options []ContractOption) (ContractOption, bool) {
	if len(options) == 1 {
		return options[0], true
	}
	return ContractOption{}, false
}

// CheckAffordable fails with ErrInsufficientBalance when cost exceeds the remaining balance.
func CheckAffordable(b Balance, cost decimal.Decimal) error {
	if cost.GreaterThan(b.Remaining) {
		return fmt.Errorf("%w: cost %s exceeds remaining %s", domain.ErrInsufficientBalance, cost.String(), b.Remaining.String())
	}
	return nil
}
