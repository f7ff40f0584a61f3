package engine

import (
	"context"

	"cuops/internal/domain"
	"cuops/internal/events"
	"cuops/internal/ledger"
	"cuops/internal/repo"
)

type ContentFilters struct {
	Scope       ledger.Scope
	Status      string
	ContentType string
}

// ListContent returns content objects with task aggregates. Status filters on
// the derived display label.
func (e Engine) ListContent(ctx context.Context, f ContentFilters) ([]domain.ContentObject, error) {
	if f.Status != "" && !validDisplayStatus(f.Status) {
		return nil, invalid("unknown content status %q", f.Status)
	}
	if f.ContentType != "" && !domain.ValidContentType(f.ContentType) {
		return nil, invalid("unknown content type %q", f.ContentType)
	}
	items, err := e.Repo.ListContent(ctx, repo.ContentFilters{Scope: f.Scope, ContentType: f.ContentType})
	if err != nil {
		return nil, err
	}
	if f.Status == "" {
		return items, nil
	}
	out := items[:0]
	for _, c := range items {
		if c.DerivedStatus == f.Status {
			out = append(out, c)
		}
	}
	return out, nil
}

func validDisplayStatus(s string) bool {
	for _, d := range ledger.DisplayStatuses {
		if d == s {
			return true
		}
	}
	return false
}

// ContentDetail is a content object with its ordered tasks and linked posts.
type ContentDetail struct {
	domain.ContentObject
	Tasks    []domain.Task     `json:"tasks"`
	Progress ledger.Progress   `json:"progress"`
	Posts    []domain.PostLink `json:"posts"`
}

func (e Engine) GetContent(ctx context.Context, id string) (ContentDetail, error) {
	c, err := e.Repo.GetContent(ctx, id)
	if err != nil {
		return ContentDetail{}, err
	}
	tasks, err := e.Repo.ListTasks(ctx, id)
	if err != nil {
		return ContentDetail{}, err
	}
	posts, err := e.Repo.ListPostLinks(ctx, id)
	if err != nil {
		return ContentDetail{}, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	if posts == nil {
		posts = []domain.PostLink{}
	}
	return ContentDetail{ContentObject: c, Tasks: tasks, Progress: ledger.ProgressOf(tasks), Posts: posts}, nil
}

// ContentPatch holds optional content updates; nil fields are left unchanged.
type ContentPatch struct {
	WorkingTitle *string
	FinalTitle   *string
	Body         *string
	ContentType  *string
	Evergreen    *bool
	ActorID      string
}

func (e Engine) UpdateContent(ctx context.Context, id string, p ContentPatch) (domain.ContentObject, error) {
	return e.mutateContent(ctx, id, "content.updated", p.ActorID, func(c *domain.ContentObject) error {
		if p.WorkingTitle != nil {
			if err := required("working_title", *p.WorkingTitle); err != nil {
				return err
			}
			c.WorkingTitle = *p.WorkingTitle
		}
		applyOptional(&c.FinalTitle, p.FinalTitle)
		if p.Body != nil {
			c.Body = *p.Body
		}
		if p.ContentType != nil {
			if !domain.ValidContentType(*p.ContentType) {
				return invalid("unknown content type %q", *p.ContentType)
			}
			c.ContentType = *p.ContentType
		}
		if p.Evergreen != nil {
			c.Evergreen = *p.Evergreen
		}
		return nil
	})
}

// PublishContent flags the object as published and stamps published_at once.
func (e Engine) PublishContent(ctx context.Context, id, actorID string) (domain.ContentObject, error) {
	return e.mutateContent(ctx, id, "content.published", actorID, func(c *domain.ContentObject) error {
		c.Status = domain.ContentPublished
		if c.PublishedAt == nil {
			now := e.stamp()
			c.PublishedAt = &now
		}
		return nil
	})
}

func (e Engine) SpikeContent(ctx context.Context, id, actorID string) (domain.ContentObject, error) {
	return e.mutateContent(ctx, id, "content.spiked", actorID, func(c *domain.ContentObject) error {
		c.Status = domain.ContentSpiked
		return nil
	})
}

// ResetContentStatus clears the explicit flag so the status follows the tasks again.
func (e Engine) ResetContentStatus(ctx context.Context, id, actorID string) (domain.ContentObject, error) {
	return e.mutateContent(ctx, id, "content.status_reset", actorID, func(c *domain.ContentObject) error {
		c.Status = ""
		c.PublishedAt = nil
		return nil
	})
}

func (e Engine) mutateContent(ctx context.Context, id, eventType, actorID string, apply func(*domain.ContentObject) error) (domain.ContentObject, error) {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.ContentObject{}, err
	}
	defer tx.Rollback()
	c, err := r.GetContent(ctx, id)
	if err != nil {
		return c, err
	}
	if err := apply(&c); err != nil {
		return c, err
	}
	c.UpdatedAt = e.stamp()
	if err := r.UpdateContent(ctx, c); err != nil {
		return c, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: eventType, EntityKind: "content_object", EntityID: c.ID, CustomerID: deref(c.CustomerID), ActorID: actorID,
		Payload: events.EventPayload{"status": c.Status, "working_title": c.WorkingTitle},
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	ledger.Annotate(&c)
	return c, nil
}

// DeleteContent removes a content object with its tasks and post links.
// Units already charged to a contract are not refunded.
func (e Engine) DeleteContent(ctx context.Context, id, actorID string) error {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	c, err := r.GetContent(ctx, id)
	if err != nil {
		return err
	}
	if err := r.DeleteContent(ctx, id); err != nil {
		return err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "content.deleted", EntityKind: "content_object", EntityID: id, CustomerID: deref(c.CustomerID), ActorID: actorID,
		Payload: events.EventPayload{"working_title": c.WorkingTitle, "tasks": c.TotalTasks},
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) LinkPost(ctx context.Context, contentID, postID, platform, actorID string) (domain.PostLink, error) {
	if err := required("post_id", postID); err != nil {
		return domain.PostLink{}, err
	}
	if err := required("platform", platform); err != nil {
		return domain.PostLink{}, err
	}
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.PostLink{}, err
	}
	defer tx.Rollback()
	c, err := r.GetContent(ctx, contentID)
	if err != nil {
		return domain.PostLink{}, err
	}
	existing, err := r.ListPostLinks(ctx, contentID)
	if err != nil {
		return domain.PostLink{}, err
	}
	for _, l := range existing {
		if l.PostID == postID {
			return domain.PostLink{}, precondition("post %s is already linked to %s", postID, contentID)
		}
	}
	l := domain.PostLink{ContentObjectID: contentID, PostID: postID, Platform: platform, CreatedAt: e.stamp()}
	if err := r.InsertPostLink(ctx, l); err != nil {
		return domain.PostLink{}, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "content.post_linked", EntityKind: "content_object", EntityID: contentID, CustomerID: deref(c.CustomerID), ActorID: actorID,
		Payload: events.EventPayload{"post_id": postID, "platform": platform},
	}); err != nil {
		return domain.PostLink{}, err
	}
	return l, tx.Commit()
}

func (e Engine) UnlinkPost(ctx context.Context, contentID, postID, actorID string) error {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	c, err := r.GetContent(ctx, contentID)
	if err != nil {
		return err
	}
	if err := r.DeletePostLink(ctx, contentID, postID); err != nil {
		return err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "content.post_unlinked", EntityKind: "content_object", EntityID: contentID, CustomerID: deref(c.CustomerID), ActorID: actorID,
		Payload: events.EventPayload{"post_id": postID},
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// Pipeline counts content objects per derived status. Every label is present.
func (e Engine) Pipeline(ctx context.Context, scope ledger.Scope) (map[string]int, error) {
	items, err := e.Repo.ListContent(ctx, repo.ContentFilters{Scope: scope})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(ledger.DisplayStatuses))
	for _, s := range ledger.DisplayStatuses {
		counts[s] = 0
	}
	for _, c := range items {
		counts[c.DerivedStatus]++
	}
	return counts, nil
}
