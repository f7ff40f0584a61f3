package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cuops/internal/domain"
	"cuops/internal/events"
	"cuops/internal/ledger"
	"cuops/internal/repo"
)

type IdeaInput struct {
	CustomerID          string
	Title               string
	Description         string
	PredictedEngagement *float64
	TopicTags           []string
	StrategicTags       []string
	EventTags           []string
	ActorID             string
}

func (e Engine) SubmitIdea(ctx context.Context, in IdeaInput) (domain.Idea, error) {
	if err := required("title", in.Title); err != nil {
		return domain.Idea{}, err
	}
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.Idea{}, err
	}
	defer tx.Rollback()
	customerID := optionalString(in.CustomerID)
	if customerID != nil {
		if _, err := r.GetCustomer(ctx, *customerID); err != nil {
			return domain.Idea{}, err
		}
	}
	now := e.stamp()
	i := domain.Idea{
		ID:                  newID(),
		CustomerID:          customerID,
		Title:               in.Title,
		Description:         in.Description,
		Status:              domain.IdeaSubmitted,
		PredictedEngagement: in.PredictedEngagement,
		TopicTags:           uniqueTags(in.TopicTags),
		StrategicTags:       uniqueTags(in.StrategicTags),
		EventTags:           uniqueTags(in.EventTags),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := r.InsertIdea(ctx, i); err != nil {
		return domain.Idea{}, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "idea.submitted", EntityKind: "idea", EntityID: i.ID, CustomerID: in.CustomerID, ActorID: in.ActorID,
		Payload: events.EventPayload{"title": i.Title},
	}); err != nil {
		return domain.Idea{}, err
	}
	return i, tx.Commit()
}

// IdeaPatch holds optional idea updates. Nil tag slices are left unchanged;
// an empty CustomerID detaches the idea from its customer.
type IdeaPatch struct {
	CustomerID          *string
	Title               *string
	Description         *string
	PredictedEngagement *float64
	ClearEngagement     bool
	TopicTags           []string
	StrategicTags       []string
	EventTags           []string
	ActorID             string
}

func (e Engine) UpdateIdea(ctx context.Context, id string, p IdeaPatch) (domain.Idea, error) {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.Idea{}, err
	}
	defer tx.Rollback()
	i, err := r.GetIdea(ctx, id)
	if err != nil {
		return i, err
	}
	if p.Title != nil {
		if err := required("title", *p.Title); err != nil {
			return i, err
		}
		i.Title = *p.Title
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.CustomerID != nil {
		i.CustomerID = optionalString(*p.CustomerID)
		if i.CustomerID != nil {
			if _, err := r.GetCustomer(ctx, *i.CustomerID); err != nil {
				return i, err
			}
		}
	}
	switch {
	case p.ClearEngagement:
		i.PredictedEngagement = nil
	case p.PredictedEngagement != nil:
		i.PredictedEngagement = p.PredictedEngagement
	}
	if p.TopicTags != nil {
		i.TopicTags = uniqueTags(p.TopicTags)
	}
	if p.StrategicTags != nil {
		i.StrategicTags = uniqueTags(p.StrategicTags)
	}
	if p.EventTags != nil {
		i.EventTags = uniqueTags(p.EventTags)
	}
	i.UpdatedAt = e.stamp()
	if err := r.UpdateIdea(ctx, i); err != nil {
		return i, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "idea.updated", EntityKind: "idea", EntityID: i.ID, CustomerID: deref(i.CustomerID), ActorID: p.ActorID,
		Payload: events.EventPayload{"title": i.Title},
	}); err != nil {
		return i, err
	}
	return i, tx.Commit()
}

func (e Engine) ShortlistIdea(ctx context.Context, id, actorID string) (domain.Idea, error) {
	return e.transitionIdea(ctx, id, []string{domain.IdeaSubmitted}, domain.IdeaShortlisted, "idea.shortlisted", actorID)
}

func (e Engine) RejectIdea(ctx context.Context, id, actorID string) (domain.Idea, error) {
	return e.transitionIdea(ctx, id, []string{domain.IdeaSubmitted, domain.IdeaShortlisted}, domain.IdeaRejected, "idea.rejected", actorID)
}

func (e Engine) ReopenIdea(ctx context.Context, id, actorID string) (domain.Idea, error) {
	return e.transitionIdea(ctx, id, []string{domain.IdeaRejected}, domain.IdeaSubmitted, "idea.reopened", actorID)
}

func (e Engine) transitionIdea(ctx context.Context, id string, from []string, to, eventType, actorID string) (domain.Idea, error) {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.Idea{}, err
	}
	defer tx.Rollback()
	i, err := r.GetIdea(ctx, id)
	if err != nil {
		return i, err
	}
	now := e.stamp()
	ok, err := r.TransitionIdea(ctx, id, from, to, now)
	if err != nil {
		return i, err
	}
	if !ok {
		return i, precondition("idea %s is %s; expected %s", id, i.Status, strings.Join(from, " or "))
	}
	old := i.Status
	i.Status = to
	i.UpdatedAt = now
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: eventType, EntityKind: "idea", EntityID: id, CustomerID: deref(i.CustomerID), ActorID: actorID,
		Payload: events.EventPayload{"from": old, "to": to},
	}); err != nil {
		return i, err
	}
	return i, tx.Commit()
}

// DeleteIdea removes an idea that has not produced any content object.
func (e Engine) DeleteIdea(ctx context.Context, id, actorID string) error {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	i, err := r.GetIdea(ctx, id)
	if err != nil {
		return err
	}
	n, err := r.CountContentForIdea(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return precondition("idea %s has %d content object(s)", id, n)
	}
	if err := r.DeleteIdea(ctx, id); err != nil {
		return err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "idea.deleted", EntityKind: "idea", EntityID: id, CustomerID: deref(i.CustomerID), ActorID: actorID,
		Payload: events.EventPayload{"title": i.Title},
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) GetIdea(ctx context.Context, id string) (domain.Idea, error) {
	return e.Repo.GetIdea(ctx, id)
}

func (e Engine) ListIdeas(ctx context.Context, scope ledger.Scope, status string) ([]domain.Idea, error) {
	if status != "" && !validIdeaStatus(status) {
		return nil, invalid("unknown idea status %q", status)
	}
	return e.Repo.ListIdeas(ctx, repo.IdeaFilters{Scope: scope, Status: status})
}

func validIdeaStatus(s string) bool {
	switch s {
	case domain.IdeaSubmitted, domain.IdeaShortlisted, domain.IdeaCommissioned, domain.IdeaRejected:
		return true
	}
	return false
}

// CommissionOptions are the inputs of Commission. CustomerID and ContractID
// are optional; the customer falls back to the contract's, then the idea's.
type CommissionOptions struct {
	IdeaID       string
	ContentType  string
	CustomerID   string
	ContractID   string
	ContentUnits decimal.Decimal
	ActorID      string
}

// Commission turns a submitted or shortlisted idea into a content object and
// charges its cost to the contract. Everything happens in one transaction:
// on any failure the idea, the contract balance and the content table are
// left untouched.
func (e Engine) Commission(ctx context.Context, opts CommissionOptions) (domain.ContentObject, error) {
	if !domain.ValidContentType(opts.ContentType) {
		return domain.ContentObject{}, invalid("unknown content type %q", opts.ContentType)
	}
	if err := ledger.ValidateUnits(opts.ContentUnits); err != nil {
		return domain.ContentObject{}, err
	}
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.ContentObject{}, err
	}
	defer tx.Rollback()

	idea, err := r.GetIdea(ctx, opts.IdeaID)
	if err != nil {
		return domain.ContentObject{}, err
	}
	if idea.Status != domain.IdeaSubmitted && idea.Status != domain.IdeaShortlisted {
		return domain.ContentObject{}, precondition("idea %s is %s and cannot be commissioned", idea.ID, idea.Status)
	}

	// An idea that belongs to a customer is only ever charged to that customer.
	customerID := strings.TrimSpace(opts.CustomerID)
	if owner := deref(idea.CustomerID); owner != "" {
		if customerID != "" && customerID != owner {
			return domain.ContentObject{}, invalid("idea %s belongs to customer %s, not %s", idea.ID, owner, customerID)
		}
		customerID = owner
	}
	var contract *domain.Contract
	if contractID := strings.TrimSpace(opts.ContractID); contractID != "" {
		c, err := r.GetContract(ctx, contractID)
		if err != nil {
			return domain.ContentObject{}, err
		}
		if customerID != "" && customerID != c.CustomerID {
			return domain.ContentObject{}, invalid("contract %s does not belong to customer %s", c.ID, customerID)
		}
		customerID = c.CustomerID
		contract = &c
	}
	if customerID != "" {
		if _, err := r.GetCustomer(ctx, customerID); err != nil {
			return domain.ContentObject{}, err
		}
	}

	now := e.stamp()
	ok, err := r.TransitionIdea(ctx, idea.ID, []string{domain.IdeaSubmitted, domain.IdeaShortlisted}, domain.IdeaCommissioned, now)
	if err != nil {
		return domain.ContentObject{}, err
	}
	if !ok {
		return domain.ContentObject{}, precondition("idea %s was commissioned concurrently", idea.ID)
	}

	debited := false
	if contract != nil && opts.ContentUnits.IsPositive() {
		enforce := !e.Config.Ledger.AllowOverdraft
		ok, err := r.DebitContract(ctx, contract.ID, opts.ContentUnits, now, enforce)
		if err != nil {
			return domain.ContentObject{}, err
		}
		if !ok {
			current, err := r.GetContract(ctx, contract.ID)
			if err != nil {
				return domain.ContentObject{}, err
			}
			b := ledger.BalanceOf(current)
			return domain.ContentObject{}, fmt.Errorf("%w: contract %s has %s units remaining, commission needs %s",
				domain.ErrInsufficientBalance, contract.ID, b.Remaining.String(), opts.ContentUnits.String())
		}
		debited = true
	}

	obj := domain.ContentObject{
		ID:           newID(),
		IdeaID:       &idea.ID,
		CustomerID:   optionalString(customerID),
		WorkingTitle: idea.Title,
		ContentType:  opts.ContentType,
		Body:         idea.Description,
		ContentUnits: opts.ContentUnits,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if contract != nil {
		obj.ContractID = &contract.ID
	}
	if err := r.InsertContent(ctx, obj); err != nil {
		return domain.ContentObject{}, err
	}
	if e.Config.Tasks.ApplyTemplateOnCommission {
		if titles, ok := e.Config.Template(obj.ContentType); ok {
			tasks, err := e.insertTemplateTasks(ctx, r, obj.ID, titles, 0, now)
			if err != nil {
				return domain.ContentObject{}, err
			}
			obj.TotalTasks = len(tasks)
		}
	}

	payload := events.EventPayload{
		"content_object_id": obj.ID,
		"content_type":      obj.ContentType,
		"content_units":     obj.ContentUnits.String(),
	}
	if contract != nil {
		payload["contract_id"] = contract.ID
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "idea.commissioned", EntityKind: "idea", EntityID: idea.ID, CustomerID: customerID, ActorID: opts.ActorID, Payload: payload,
	}); err != nil {
		return domain.ContentObject{}, err
	}
	if debited {
		if err := e.appendEvent(ctx, tx, events.Entry{
			Type: "contract.debited", EntityKind: "contract", EntityID: contract.ID, CustomerID: customerID, ActorID: opts.ActorID,
			Payload: events.EventPayload{"content_object_id": obj.ID, "amount": opts.ContentUnits.String()},
		}); err != nil {
			return domain.ContentObject{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.ContentObject{}, err
	}
	ledger.Annotate(&obj)
	e.log(ctx).Info("idea commissioned",
		"idea_id", idea.ID, "content_object_id", obj.ID, "contract_id", deref(obj.ContractID), "content_units", obj.ContentUnits.String())
	return obj, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
