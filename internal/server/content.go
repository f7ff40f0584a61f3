package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cuops/internal/domain"
	"cuops/internal/engine"
	"cuops/internal/ledger"
)

type contentBody struct {
	Body ContentResponse `json:"body"`
}

type contentPath struct {
	ID string `path:"id"`
}

func (h handlers) registerContent(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-content",
		Method:      http.MethodGet,
		Path:        "/content",
		Summary:     "List content objects",
		Description: "status filters on the derived label: Not Started, In Progress, Complete, No Tasks, Published or Spiked.",
		Tags:        []string{"content"},
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		CustomerID string `query:"customer_id"`
		Status     string `query:"status"`
		Type       string `query:"type"`
	}) (*struct {
		Body []ContentResponse `json:"body"`
	}, error) {
		items, err := h.e.ListContent(ctx, engine.ContentFilters{
			Scope:       ledger.ScopeFrom(input.CustomerID),
			Status:      input.Status,
			ContentType: input.Type,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body []ContentResponse `json:"body"`
		}{Body: contentResponses(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "content-pipeline",
		Method:      http.MethodGet,
		Path:        "/content/pipeline",
		Summary:     "Count content objects per derived status",
		Tags:        []string{"content"},
	}, func(ctx context.Context, input *struct {
		CustomerID string `query:"customer_id"`
	}) (*struct {
		Body map[string]int `json:"body"`
	}, error) {
		counts, err := h.e.Pipeline(ctx, ledger.ScopeFrom(input.CustomerID))
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body map[string]int `json:"body"`
		}{Body: counts}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-content",
		Method:      http.MethodGet,
		Path:        "/content/{id}",
		Summary:     "Get content object with tasks and progress",
		Tags:        []string{"content"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *contentPath) (*struct {
		Body ContentDetailResponse `json:"body"`
	}, error) {
		d, err := h.e.GetContent(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body ContentDetailResponse `json:"body"`
		}{Body: ContentDetailResponse{
			ContentResponse: contentResponse(d.ContentObject),
			Tasks:           d.Tasks,
			Progress:        d.Progress,
			Posts:           d.Posts,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-content",
		Method:      http.MethodPatch,
		Path:        "/content/{id}",
		Summary:     "Update content object",
		Tags:        []string{"content"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body UpdateContentRequest `json:"body"`
	}) (*contentBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := h.e.UpdateContent(ctx, input.ID, engine.ContentPatch{
			WorkingTitle: input.Body.WorkingTitle,
			FinalTitle:   input.Body.FinalTitle,
			Body:         input.Body.Body,
			ContentType:  input.Body.ContentType,
			Evergreen:    input.Body.Evergreen,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &contentBody{Body: contentResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-content",
		Method:      http.MethodDelete,
		Path:        "/content/{id}",
		Summary:     "Delete content object and its tasks",
		Description: "Consumed content units are not returned to the contract.",
		Tags:        []string{"content"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *contentPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.e.DeleteContent(ctx, input.ID, actorID); err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct{}{}, nil
	})

	flags := []struct {
		id, action, summary string
		apply               func(context.Context, string, string) (domain.ContentObject, error)
	}{
		{"publish-content", "publish", "Mark content published", h.e.PublishContent},
		{"spike-content", "spike", "Mark content spiked", h.e.SpikeContent},
		{"reset-content-status", "reset-status", "Clear the explicit status so it derives from tasks", h.e.ResetContentStatus},
	}
	for _, f := range flags {
		apply := f.apply
		huma.Register(api, huma.Operation{
			OperationID: f.id,
			Method:      http.MethodPost,
			Path:        "/content/{id}/" + f.action,
			Summary:     f.summary,
			Tags:        []string{"content"},
			Errors:      []int{http.StatusNotFound},
		}, func(ctx context.Context, input *contentPath) (*contentBody, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			c, err := apply(ctx, input.ID, actorID)
			if err != nil {
				return nil, h.handleError(ctx, err)
			}
			return &contentBody{Body: contentResponse(c)}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID:   "link-post",
		Method:        http.MethodPost,
		Path:          "/content/{id}/posts",
		Summary:       "Link a social post",
		Tags:          []string{"content"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body LinkPostRequest `json:"body"`
	}) (*struct {
		Body domain.PostLink `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		link, err := h.e.LinkPost(ctx, input.ID, input.Body.PostID, input.Body.Platform, actorID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body domain.PostLink `json:"body"`
		}{Body: link}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unlink-post",
		Method:      http.MethodDelete,
		Path:        "/content/{id}/posts/{post_id}",
		Summary:     "Unlink a social post",
		Tags:        []string{"content"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		PostID string `path:"post_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.e.UnlinkPost(ctx, input.ID, input.PostID, actorID); err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}
