package engine

import (
	"context"

	"cuops/internal/domain"
	"cuops/internal/events"
	"cuops/internal/ledger"
	"cuops/internal/repo"
)

// TaskCreateOptions are parameters for adding a production task.
type TaskCreateOptions struct {
	ContentObjectID string
	Title           string
	SortOrder       *int
	DueDate         string
	Assignee        string
	Notes           string
	ActorID         string
}

func (e Engine) AddTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if err := required("title", opts.Title); err != nil {
		return domain.Task{}, err
	}
	if opts.DueDate != "" {
		if err := validDate("due_date", opts.DueDate); err != nil {
			return domain.Task{}, err
		}
	}
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	c, err := r.GetContent(ctx, opts.ContentObjectID)
	if err != nil {
		return domain.Task{}, err
	}
	order := 0
	if opts.SortOrder != nil {
		order = *opts.SortOrder
	} else {
		highest, err := r.MaxSortOrder(ctx, c.ID)
		if err != nil {
			return domain.Task{}, err
		}
		order = highest + 1
	}
	now := e.stamp()
	t := domain.Task{
		ID:              newID(),
		ContentObjectID: c.ID,
		Title:           opts.Title,
		Status:          domain.TaskTodo,
		SortOrder:       order,
		DueDate:         optionalString(opts.DueDate),
		Assignee:        optionalString(opts.Assignee),
		Notes:           optionalString(opts.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.InsertTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "task.created", EntityKind: "task", EntityID: t.ID, CustomerID: deref(c.CustomerID), ActorID: opts.ActorID,
		Payload: events.EventPayload{"content_object_id": c.ID, "title": t.Title, "sort_order": t.SortOrder},
	}); err != nil {
		return domain.Task{}, err
	}
	return t, tx.Commit()
}

// TaskUpdateOptions merges into an existing task. Nil fields are left
// unchanged; an empty DueDate, Assignee or Notes clears the field.
type TaskUpdateOptions struct {
	ID        string
	Title     *string
	Status    *string
	SortOrder *int
	DueDate   *string
	Assignee  *string
	Notes     *string
	ActorID   string
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	if opts.Status != nil && !domain.ValidTaskStatus(*opts.Status) {
		return domain.Task{}, invalid("task status must be %s or %s", domain.TaskTodo, domain.TaskDone)
	}
	if opts.DueDate != nil && *opts.DueDate != "" {
		if err := validDate("due_date", *opts.DueDate); err != nil {
			return domain.Task{}, err
		}
	}
	return e.mutateTask(ctx, opts.ID, "task.updated", opts.ActorID, func(t *domain.Task, now string) error {
		if opts.Title != nil {
			if err := required("title", *opts.Title); err != nil {
				return err
			}
			t.Title = *opts.Title
		}
		if opts.Status != nil {
			ledger.SetStatus(t, *opts.Status, now)
		}
		if opts.SortOrder != nil {
			t.SortOrder = *opts.SortOrder
		}
		applyOptional(&t.DueDate, opts.DueDate)
		applyOptional(&t.Assignee, opts.Assignee)
		applyOptional(&t.Notes, opts.Notes)
		return nil
	})
}

// ToggleTask flips a task between todo and done.
func (e Engine) ToggleTask(ctx context.Context, id, actorID string) (domain.Task, error) {
	return e.mutateTask(ctx, id, "task.toggled", actorID, func(t *domain.Task, now string) error {
		ledger.SetStatus(t, ledger.Toggled(t.Status), now)
		return nil
	})
}

func (e Engine) mutateTask(ctx context.Context, id, eventType, actorID string, apply func(*domain.Task, string) error) (domain.Task, error) {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	t, err := r.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	c, err := r.GetContent(ctx, t.ContentObjectID)
	if err != nil {
		return t, err
	}
	old := t.Status
	now := e.stamp()
	if err := apply(&t, now); err != nil {
		return t, err
	}
	t.UpdatedAt = now
	if err := r.UpdateTask(ctx, t); err != nil {
		return t, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: eventType, EntityKind: "task", EntityID: t.ID, CustomerID: deref(c.CustomerID), ActorID: actorID,
		Payload: events.EventPayload{"content_object_id": t.ContentObjectID, "from": old, "to": t.Status},
	}); err != nil {
		return t, err
	}
	return t, tx.Commit()
}

func (e Engine) DeleteTask(ctx context.Context, id, actorID string) error {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	t, err := r.GetTask(ctx, id)
	if err != nil {
		return err
	}
	c, err := r.GetContent(ctx, t.ContentObjectID)
	if err != nil {
		return err
	}
	if err := r.DeleteTask(ctx, id); err != nil {
		return err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "task.deleted", EntityKind: "task", EntityID: id, CustomerID: deref(c.CustomerID), ActorID: actorID,
		Payload: events.EventPayload{"content_object_id": t.ContentObjectID, "title": t.Title},
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListTasks returns the tasks of a content object in display order.
func (e Engine) ListTasks(ctx context.Context, contentID string) ([]domain.Task, error) {
	if _, err := e.Repo.GetContent(ctx, contentID); err != nil {
		return nil, err
	}
	tasks, err := e.Repo.ListTasks(ctx, contentID)
	if err != nil {
		return nil, err
	}
	ledger.SortTasks(tasks)
	return tasks, nil
}

// ApplyTemplate appends the tasks of a configured template after the existing
// ones. An empty name picks the template named after the content type.
func (e Engine) ApplyTemplate(ctx context.Context, contentID, name, actorID string) ([]domain.Task, error) {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	c, err := r.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = c.ContentType
	}
	titles, ok := e.Config.Template(name)
	if !ok {
		return nil, invalid("task template %q is not configured", name)
	}
	highest, err := r.MaxSortOrder(ctx, contentID)
	if err != nil {
		return nil, err
	}
	tasks, err := e.insertTemplateTasks(ctx, r, contentID, titles, highest+1, e.stamp())
	if err != nil {
		return nil, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "task.template_applied", EntityKind: "content_object", EntityID: contentID, CustomerID: deref(c.CustomerID), ActorID: actorID,
		Payload: events.EventPayload{"template": name, "tasks": len(tasks)},
	}); err != nil {
		return nil, err
	}
	return tasks, tx.Commit()
}

func (e Engine) insertTemplateTasks(ctx context.Context, r repo.Repo, contentID string, titles []string, start int, now string) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(titles))
	for i, title := range titles {
		t := domain.Task{
			ID:              newID(),
			ContentObjectID: contentID,
			Title:           title,
			Status:          domain.TaskTodo,
			SortOrder:       start + i,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := r.InsertTask(ctx, t); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
