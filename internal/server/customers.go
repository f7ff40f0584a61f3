package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cuops/internal/domain"
	"cuops/internal/engine"
)

type customerBody struct {
	Body domain.Customer `json:"body"`
}

type customerPath struct {
	ID string `path:"id"`
}

func (h handlers) registerCustomers(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-customers",
		Method:      http.MethodGet,
		Path:        "/customers",
		Summary:     "List customers",
		Tags:        []string{"customers"},
	}, func(ctx context.Context, input *struct {
		IncludeArchived bool `query:"include_archived"`
	}) (*struct {
		Body []domain.Customer `json:"body"`
	}, error) {
		items, err := h.e.ListCustomers(ctx, input.IncludeArchived)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body []domain.Customer `json:"body"`
		}{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-customer",
		Method:        http.MethodPost,
		Path:          "/customers",
		Summary:       "Create customer",
		Tags:          []string{"customers"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateCustomerRequest `json:"body"`
	}) (*customerBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := h.e.CreateCustomer(ctx, engine.CustomerInput{
			Name:           input.Body.Name,
			Status:         input.Body.Status,
			Industry:       input.Body.Industry,
			PrimaryContact: input.Body.PrimaryContact,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &customerBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-customer",
		Method:      http.MethodGet,
		Path:        "/customers/{id}",
		Summary:     "Get customer",
		Tags:        []string{"customers"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *customerPath) (*customerBody, error) {
		c, err := h.e.GetCustomer(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &customerBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-customer",
		Method:      http.MethodPatch,
		Path:        "/customers/{id}",
		Summary:     "Update customer",
		Tags:        []string{"customers"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body UpdateCustomerRequest `json:"body"`
	}) (*customerBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := h.e.UpdateCustomer(ctx, input.ID, engine.CustomerPatch{
			Name:           input.Body.Name,
			Status:         input.Body.Status,
			Industry:       input.Body.Industry,
			PrimaryContact: input.Body.PrimaryContact,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &customerBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-customer",
		Method:      http.MethodPost,
		Path:        "/customers/{id}/archive",
		Summary:     "Archive customer",
		Tags:        []string{"customers"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *customerPath) (*customerBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := h.e.ArchiveCustomer(ctx, input.ID, actorID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &customerBody{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-customer",
		Method:      http.MethodDelete,
		Path:        "/customers/{id}",
		Summary:     "Delete customer",
		Description: "Fails with precondition_failed while the customer has an active contract.",
		Tags:        []string{"customers"},
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *customerPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.e.DeleteCustomer(ctx, input.ID, actorID); err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}
