package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cuops/internal/ledger"
	"cuops/internal/repo"
)

func (h handlers) registerEvents(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List the activity log, newest first",
		Tags:        []string{"events"},
	}, func(ctx context.Context, input *struct {
		CustomerID string `query:"customer_id"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" minimum:"0" maximum:"200"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		items, err := h.e.ListEvents(ctx, repo.EventFilters{
			Scope:      ledger.ScopeFrom(input.CustomerID),
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Limit:      normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		out := make([]EventResponse, 0, len(items))
		for _, e := range items {
			out = append(out, eventResponse(e))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: out}, nil
	})
}
