package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"cuops/internal/domain"
	"cuops/internal/events"
	"cuops/internal/ledger"
	"cuops/internal/repo"
)

type ContractCreateOptions struct {
	CustomerID        string
	Name              string
	Status            string
	TotalContentUnits decimal.Decimal
	RolloverUnits     decimal.Decimal
	StartDate         string
	EndDate           string
	MonthlyFee        *decimal.Decimal
	Notes             string
	ActorID           string
}

func (e Engine) CreateContract(ctx context.Context, opts ContractCreateOptions) (domain.Contract, error) {
	if err := required("customer_id", opts.CustomerID); err != nil {
		return domain.Contract{}, err
	}
	if err := required("name", opts.Name); err != nil {
		return domain.Contract{}, err
	}
	if err := ledger.ValidateUnits(opts.TotalContentUnits); err != nil {
		return domain.Contract{}, err
	}
	if err := ledger.ValidateUnits(opts.RolloverUnits); err != nil {
		return domain.Contract{}, err
	}
	if opts.MonthlyFee != nil {
		if err := ledger.ValidateAmount("monthly_fee", *opts.MonthlyFee); err != nil {
			return domain.Contract{}, err
		}
	}
	if err := validDate("start_date", opts.StartDate); err != nil {
		return domain.Contract{}, err
	}
	if err := validDate("end_date", opts.EndDate); err != nil {
		return domain.Contract{}, err
	}
	if opts.StartDate > opts.EndDate {
		return domain.Contract{}, invalid("start_date %s is after end_date %s", opts.StartDate, opts.EndDate)
	}
	if opts.Status == "" {
		opts.Status = domain.ContractDraft
	}
	if !domain.ValidContractStatus(opts.Status) {
		return domain.Contract{}, invalid("unknown contract status %q", opts.Status)
	}
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.Contract{}, err
	}
	defer tx.Rollback()
	if _, err := r.GetCustomer(ctx, opts.CustomerID); err != nil {
		return domain.Contract{}, err
	}
	now := e.stamp()
	c := domain.Contract{
		ID:                newID(),
		CustomerID:        opts.CustomerID,
		Name:              opts.Name,
		Status:            opts.Status,
		TotalContentUnits: opts.TotalContentUnits,
		RolloverUnits:     opts.RolloverUnits,
		UsedContentUnits:  decimal.Zero,
		StartDate:         opts.StartDate,
		EndDate:           opts.EndDate,
		MonthlyFee:        opts.MonthlyFee,
		Notes:             opts.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := r.InsertContract(ctx, c); err != nil {
		return domain.Contract{}, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "contract.created", EntityKind: "contract", EntityID: c.ID, CustomerID: c.CustomerID, ActorID: opts.ActorID,
		Payload: events.EventPayload{"name": c.Name, "status": c.Status, "total_content_units": c.TotalContentUnits.String(), "rollover_units": c.RolloverUnits.String()},
	}); err != nil {
		return domain.Contract{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Contract{}, err
	}
	e.log(ctx).Info("contract created", "contract_id", c.ID, "customer_id", c.CustomerID)
	return c, nil
}

// UpdateContractStatus sets any of the contract statuses; transitions are user-driven.
func (e Engine) UpdateContractStatus(ctx context.Context, id, status, actorID string) (domain.Contract, error) {
	if !domain.ValidContractStatus(status) {
		return domain.Contract{}, invalid("unknown contract status %q", status)
	}
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.Contract{}, err
	}
	defer tx.Rollback()
	c, err := r.GetContract(ctx, id)
	if err != nil {
		return c, err
	}
	old := c.Status
	c.Status = status
	c.UpdatedAt = e.stamp()
	if err := r.UpdateContractStatus(ctx, id, status, c.UpdatedAt); err != nil {
		return c, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "contract.status", EntityKind: "contract", EntityID: id, CustomerID: c.CustomerID, ActorID: actorID,
		Payload: events.EventPayload{"from": old, "to": status},
	}); err != nil {
		return c, err
	}
	return c, tx.Commit()
}

func (e Engine) GetContract(ctx context.Context, id string) (ledger.ContractOption, error) {
	c, err := e.Repo.GetContract(ctx, id)
	if err != nil {
		return ledger.ContractOption{}, err
	}
	return ledger.ContractOption{Contract: c, Balance: ledger.BalanceOf(c)}, nil
}

// ListContracts returns every contract of a customer with its balance.
func (e Engine) ListContracts(ctx context.Context, customerID string) ([]ledger.ContractOption, error) {
	if _, err := e.Repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	contracts, err := e.Repo.ListContracts(ctx, customerID, "")
	if err != nil {
		return nil, err
	}
	out := make([]ledger.ContractOption, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, ledger.ContractOption{Contract: c, Balance: ledger.BalanceOf(c)})
	}
	return out, nil
}

// ContractSelection lists the contracts a commission may draw from.
// Selected is set when exactly one is active.
type ContractSelection struct {
	Options  []ledger.ContractOption `json:"options"`
	Selected *ledger.ContractOption  `json:"selected,omitempty"`
}

func (e Engine) ActiveContracts(ctx context.Context, customerID string) (ContractSelection, error) {
	if _, err := e.Repo.GetCustomer(ctx, customerID); err != nil {
		return ContractSelection{}, err
	}
	contracts, err := e.Repo.ListContracts(ctx, customerID, domain.ContractActive)
	if err != nil {
		return ContractSelection{}, err
	}
	sel := ContractSelection{Options: ledger.ActiveOptions(contracts)}
	if sel.Options == nil {
		sel.Options = []ledger.ContractOption{}
	}
	if only, ok := ledger.AutoSelect(sel.Options); ok {
		sel.Selected = &only
	}
	return sel, nil
}

// Preflight is the read-only answer to "can this commission be charged".
type Preflight struct {
	ContractSelection
	Cost       decimal.Decimal `json:"cost"`
	Affordable bool            `json:"affordable"`
	Reason     string          `json:"reason,omitempty"`
}

// PreflightCommission checks a cost against the given contract, or against
// the auto-selected one when contractID is empty. Nothing is written.
func (e Engine) PreflightCommission(ctx context.Context, customerID, contractID string, cost decimal.Decimal) (Preflight, error) {
	if err := ledger.ValidateUnits(cost); err != nil {
		return Preflight{}, err
	}
	sel, err := e.ActiveContracts(ctx, customerID)
	if err != nil {
		return Preflight{}, err
	}
	p := Preflight{ContractSelection: sel, Cost: cost}
	if contractID != "" {
		c, err := e.Repo.GetContract(ctx, contractID)
		if err != nil {
			return Preflight{}, err
		}
		if c.CustomerID != customerID {
			return Preflight{}, invalid("contract %s does not belong to customer %s", contractID, customerID)
		}
		opt := ledger.ContractOption{Contract: c, Balance: ledger.BalanceOf(c)}
		p.Selected = &opt
	}
	if p.Selected == nil {
		switch {
		case len(p.Options) == 0:
			p.Reason = "customer has no active contract"
		default:
			p.Reason = "several active contracts; choose one"
		}
		return p, nil
	}
	if err := ledger.CheckAffordable(p.Selected.Balance, cost); err != nil {
		p.Reason = err.Error()
		return p, nil
	}
	p.Affordable = true
	return p, nil
}

// ContractLedger is a contract with its balance and the content objects charged to it.
type ContractLedger struct {
	ledger.ContractOption
	Debits []repo.ContractDebit `json:"debits"`
}

func (e Engine) ContractLedger(ctx context.Context, contractID string) (ContractLedger, error) {
	opt, err := e.GetContract(ctx, contractID)
	if err != nil {
		return ContractLedger{}, err
	}
	debits, err := e.Repo.ContractDebits(ctx, contractID)
	if err != nil {
		return ContractLedger{}, err
	}
	if debits == nil {
		debits = []repo.ContractDebit{}
	}
	return ContractLedger{ContractOption: opt, Debits: debits}, nil
}
