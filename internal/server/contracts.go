package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"cuops/internal/engine"
)

type contractBody struct {
	Body ContractResponse `json:"body"`
}

func (h handlers) registerContracts(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-contracts",
		Method:      http.MethodGet,
		Path:        "/customers/{id}/contracts",
		Summary:     "List a customer's contracts with balances",
		Tags:        []string{"contracts"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *customerPath) (*struct {
		Body []ContractResponse `json:"body"`
	}, error) {
		items, err := h.e.ListContracts(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body []ContractResponse `json:"body"`
		}{Body: contractResponses(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-contract",
		Method:        http.MethodPost,
		Path:          "/customers/{id}/contracts",
		Summary:       "Create contract",
		Tags:          []string{"contracts"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body CreateContractRequest `json:"body"`
	}) (*contractBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ContractCreateOptions{
			CustomerID:        input.ID,
			Name:              input.Body.Name,
			Status:            input.Body.Status,
			TotalContentUnits: units(input.Body.TotalContentUnits),
			RolloverUnits:     units(input.Body.RolloverUnits),
			StartDate:         input.Body.StartDate,
			EndDate:           input.Body.EndDate,
			Notes:             input.Body.Notes,
			ActorID:           actorID,
		}
		if input.Body.MonthlyFee != nil {
			fee := decimal.NewFromFloat(*input.Body.MonthlyFee)
			opts.MonthlyFee = &fee
		}
		c, err := h.e.CreateContract(ctx, opts)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		opt, err := h.e.GetContract(ctx, c.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &contractBody{Body: contractResponse(opt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "active-contracts",
		Method:      http.MethodGet,
		Path:        "/customers/{id}/contracts/active",
		Summary:     "Active contracts for commissioning",
		Description: "Lists active contracts with balances; selected is set when exactly one is active.",
		Tags:        []string{"contracts"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *customerPath) (*struct {
		Body ContractSelectionResponse `json:"body"`
	}, error) {
		sel, err := h.e.ActiveContracts(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body ContractSelectionResponse `json:"body"`
		}{Body: selectionResponse(sel)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "preflight-commission",
		Method:      http.MethodPost,
		Path:        "/customers/{id}/contracts/preflight",
		Summary:     "Check whether a cost fits a contract",
		Tags:        []string{"contracts"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body PreflightRequest `json:"body"`
	}) (*struct {
		Body PreflightResponse `json:"body"`
	}, error) {
		p, err := h.e.PreflightCommission(ctx, input.ID, input.Body.ContractID, units(input.Body.ContentUnits))
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body PreflightResponse `json:"body"`
		}{Body: PreflightResponse{
			ContractSelectionResponse: selectionResponse(p.ContractSelection),
			Cost:                      toFloat(p.Cost),
			Affordable:                p.Affordable,
			Reason:                    p.Reason,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-contract",
		Method:      http.MethodGet,
		Path:        "/contracts/{id}",
		Summary:     "Get contract with balance",
		Tags:        []string{"contracts"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*contractBody, error) {
		opt, err := h.e.GetContract(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &contractBody{Body: contractResponse(opt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-contract-status",
		Method:      http.MethodPatch,
		Path:        "/contracts/{id}/status",
		Summary:     "Update contract status",
		Tags:        []string{"contracts"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                      `path:"id"`
		Body UpdateContractStatusRequest `json:"body"`
	}) (*contractBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := h.e.UpdateContractStatus(ctx, input.ID, input.Body.Status, actorID); err != nil {
			return nil, h.handleError(ctx, err)
		}
		opt, err := h.e.GetContract(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &contractBody{Body: contractResponse(opt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "contract-ledger",
		Method:      http.MethodGet,
		Path:        "/contracts/{id}/ledger",
		Summary:     "Content objects charged to a contract",
		Tags:        []string{"contracts"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ContractLedgerResponse `json:"body"`
	}, error) {
		l, err := h.e.ContractLedger(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body ContractLedgerResponse `json:"body"`
		}{Body: ledgerResponse(l)}, nil
	})
}
