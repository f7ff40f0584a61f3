package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cuops/internal/domain"
	"cuops/internal/engine"
)

type taskBody struct {
	Body domain.Task `json:"body"`
}

type taskPath struct {
	ID string `path:"id"`
}

type taskListBody struct {
	Body []domain.Task `json:"body"`
}

func (h handlers) registerTasks(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/content/{id}/tasks",
		Summary:     "List production tasks in order",
		Tags:        []string{"tasks"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *contentPath) (*taskListBody, error) {
		items, err := h.e.ListTasks(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &taskListBody{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/content/{id}/tasks",
		Summary:       "Add production task",
		Tags:          []string{"tasks"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body CreateTaskRequest `json:"body"`
	}) (*taskBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := h.e.AddTask(ctx, engine.TaskCreateOptions{
			ContentObjectID: input.ID,
			Title:           input.Body.Title,
			SortOrder:       input.Body.SortOrder,
			DueDate:         input.Body.DueDate,
			Assignee:        input.Body.Assignee,
			Notes:           input.Body.Notes,
			ActorID:         actorID,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &taskBody{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "apply-task-template",
		Method:        http.MethodPost,
		Path:          "/content/{id}/tasks/template",
		Summary:       "Append tasks from a configured template",
		Description:   "template defaults to the content object's type.",
		Tags:          []string{"tasks"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID       string `path:"id"`
		Template string `query:"template"`
	}) (*taskListBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := h.e.ApplyTemplate(ctx, input.ID, input.Template, actorID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &taskListBody{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update production task",
		Tags:        []string{"tasks"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*taskBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := h.e.UpdateTask(ctx, engine.TaskUpdateOptions{
			ID:        input.ID,
			Title:     input.Body.Title,
			Status:    input.Body.Status,
			SortOrder: input.Body.SortOrder,
			DueDate:   input.Body.DueDate,
			Assignee:  input.Body.Assignee,
			Notes:     input.Body.Notes,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &taskBody{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/toggle",
		Summary:     "Flip a task between todo and done",
		Tags:        []string{"tasks"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*taskBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := h.e.ToggleTask(ctx, input.ID, actorID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &taskBody{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete production task",
		Tags:        []string{"tasks"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.e.DeleteTask(ctx, input.ID, actorID); err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}
