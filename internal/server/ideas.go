package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cuops/internal/domain"
	"cuops/internal/engine"
	"cuops/internal/ledger"
)

type ideaBody struct {
	Body domain.Idea `json:"body"`
}

type ideaPath struct {
	ID string `path:"id"`
}

func (h handlers) registerIdeas(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-ideas",
		Method:      http.MethodGet,
		Path:        "/ideas",
		Summary:     "List ideas",
		Tags:        []string{"ideas"},
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		CustomerID string `query:"customer_id"`
		Status     string `query:"status"`
	}) (*struct {
		Body []domain.Idea `json:"body"`
	}, error) {
		items, err := h.e.ListIdeas(ctx, ledger.ScopeFrom(input.CustomerID), input.Status)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body []domain.Idea `json:"body"`
		}{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-idea",
		Method:        http.MethodPost,
		Path:          "/ideas",
		Summary:       "Submit idea",
		Tags:          []string{"ideas"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateIdeaRequest `json:"body"`
	}) (*ideaBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		i, err := h.e.SubmitIdea(ctx, engine.IdeaInput{
			CustomerID:          input.Body.CustomerID,
			Title:               input.Body.Title,
			Description:         input.Body.Description,
			PredictedEngagement: input.Body.PredictedEngagement,
			TopicTags:           input.Body.TopicTags,
			StrategicTags:       input.Body.StrategicTags,
			EventTags:           input.Body.EventTags,
			ActorID:             actorID,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &ideaBody{Body: i}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-idea",
		Method:      http.MethodGet,
		Path:        "/ideas/{id}",
		Summary:     "Get idea",
		Tags:        []string{"ideas"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *ideaPath) (*ideaBody, error) {
		i, err := h.e.GetIdea(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &ideaBody{Body: i}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-idea",
		Method:      http.MethodPatch,
		Path:        "/ideas/{id}",
		Summary:     "Update idea",
		Description: "Omitted fields are unchanged. Status moves only through the transition endpoints.",
		Tags:        []string{"ideas"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateIdeaRequest `json:"body"`
	}) (*ideaBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		i, err := h.e.UpdateIdea(ctx, input.ID, engine.IdeaPatch{
			CustomerID:          input.Body.CustomerID,
			Title:               input.Body.Title,
			Description:         input.Body.Description,
			PredictedEngagement: input.Body.PredictedEngagement,
			ClearEngagement:     input.Body.ClearEngagement,
			TopicTags:           input.Body.TopicTags,
			StrategicTags:       input.Body.StrategicTags,
			EventTags:           input.Body.EventTags,
			ActorID:             actorID,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &ideaBody{Body: i}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-idea",
		Method:      http.MethodDelete,
		Path:        "/ideas/{id}",
		Summary:     "Delete idea",
		Description: "Fails with precondition_failed once content has been commissioned from the idea.",
		Tags:        []string{"ideas"},
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *ideaPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.e.DeleteIdea(ctx, input.ID, actorID); err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct{}{}, nil
	})

	transitions := []struct {
		id, action, summary string
		apply               func(context.Context, string, string) (domain.Idea, error)
	}{
		{"shortlist-idea", "shortlist", "Shortlist a submitted idea", h.e.ShortlistIdea},
		{"reject-idea", "reject", "Reject a submitted or shortlisted idea", h.e.RejectIdea},
		{"reopen-idea", "reopen", "Return a rejected idea to submitted", h.e.ReopenIdea},
	}
	for _, tr := range transitions {
		apply := tr.apply
		huma.Register(api, huma.Operation{
			OperationID: tr.id,
			Method:      http.MethodPost,
			Path:        "/ideas/{id}/" + tr.action,
			Summary:     tr.summary,
			Tags:        []string{"ideas"},
			Errors:      []int{http.StatusNotFound, http.StatusConflict},
		}, func(ctx context.Context, input *ideaPath) (*ideaBody, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			i, err := apply(ctx, input.ID, actorID)
			if err != nil {
				return nil, h.handleError(ctx, err)
			}
			return &ideaBody{Body: i}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID:   "commission-idea",
		Method:        http.MethodPost,
		Path:          "/ideas/{id}/commission",
		Summary:       "Commission an idea into a content object",
		Description:   "Creates the content object and debits the contract atomically. Returns insufficient_balance when the contract cannot cover the cost.",
		Tags:          []string{"ideas"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body CommissionRequest `json:"body"`
	}) (*struct {
		Body ContentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := h.e.Commission(ctx, engine.CommissionOptions{
			IdeaID:       input.ID,
			ContentType:  input.Body.ContentType,
			CustomerID:   input.Body.CustomerID,
			ContractID:   input.Body.ContractID,
			ContentUnits: units(input.Body.ContentUnits),
			ActorID:      actorID,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body ContentResponse `json:"body"`
		}{Body: contentResponse(c)}, nil
	})
}
