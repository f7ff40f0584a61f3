package engine

import (
	"context"

	"cuops/internal/domain"
	"cuops/internal/events"
)

type CustomerInput struct {
	Name           string
	Status         string
	Industry       string
	PrimaryContact string
	ActorID        string
}

func (e Engine) CreateCustomer(ctx context.Context, in CustomerInput) (domain.Customer, error) {
	if err := required("name", in.Name); err != nil {
		return domain.Customer{}, err
	}
	if in.Status == "" {
		in.Status = domain.CustomerActive
	}
	if !domain.ValidCustomerStatus(in.Status) {
		return domain.Customer{}, invalid("unknown customer status %q", in.Status)
	}
	now := e.stamp()
	c := domain.Customer{
		ID:             newID(),
		Name:           in.Name,
		Status:         in.Status,
		Industry:       in.Industry,
		PrimaryContact: in.PrimaryContact,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.Customer{}, err
	}
	defer tx.Rollback()
	if err := r.InsertCustomer(ctx, c); err != nil {
		return domain.Customer{}, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "customer.created", EntityKind: "customer", EntityID: c.ID, CustomerID: c.ID, ActorID: in.ActorID,
		Payload: events.EventPayload{"name": c.Name, "status": c.Status},
	}); err != nil {
		return domain.Customer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Customer{}, err
	}
	e.log(ctx).Info("customer created", "customer_id", c.ID)
	return c, nil
}

// CustomerPatch holds optional customer updates; nil fields are left unchanged.
type CustomerPatch struct {
	Name           *string
	Status         *string
	Industry       *string
	PrimaryContact *string
	ActorID        string
}

func (e Engine) UpdateCustomer(ctx context.Context, id string, p CustomerPatch) (domain.Customer, error) {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return domain.Customer{}, err
	}
	defer tx.Rollback()
	c, err := r.GetCustomer(ctx, id)
	if err != nil {
		return c, err
	}
	if p.Name != nil {
		if err := required("name", *p.Name); err != nil {
			return c, err
		}
		c.Name = *p.Name
	}
	if p.Status != nil {
		if !domain.ValidCustomerStatus(*p.Status) {
			return c, invalid("unknown customer status %q", *p.Status)
		}
		c.Status = *p.Status
	}
	if p.Industry != nil {
		c.Industry = *p.Industry
	}
	if p.PrimaryContact != nil {
		c.PrimaryContact = *p.PrimaryContact
	}
	c.UpdatedAt = e.stamp()
	if err := r.UpdateCustomer(ctx, c); err != nil {
		return c, err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "customer.updated", EntityKind: "customer", EntityID: c.ID, CustomerID: c.ID, ActorID: p.ActorID,
		Payload: events.EventPayload{"name": c.Name, "status": c.Status},
	}); err != nil {
		return c, err
	}
	return c, tx.Commit()
}

func (e Engine) ArchiveCustomer(ctx context.Context, id, actorID string) (domain.Customer, error) {
	status := domain.CustomerArchived
	return e.UpdateCustomer(ctx, id, CustomerPatch{Status: &status, ActorID: actorID})
}

func (e Engine) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return e.Repo.GetCustomer(ctx, id)
}

func (e Engine) ListCustomers(ctx context.Context, includeArchived bool) ([]domain.Customer, error) {
	return e.Repo.ListCustomers(ctx, includeArchived)
}

// DeleteCustomer removes a customer that has no active contract. Its other
// contracts are removed and its ideas and content objects are unlinked.
func (e Engine) DeleteCustomer(ctx context.Context, id, actorID string) error {
	tx, r, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	c, err := r.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	active, err := r.CountContracts(ctx, id, domain.ContractActive)
	if err != nil {
		return err
	}
	if active > 0 {
		return precondition("customer %s has %d active contract(s)", id, active)
	}
	if err := r.DetachCustomer(ctx, id); err != nil {
		return err
	}
	if err := r.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	if err := e.appendEvent(ctx, tx, events.Entry{
		Type: "customer.deleted", EntityKind: "customer", EntityID: id, CustomerID: id, ActorID: actorID,
		Payload: events.EventPayload{"name": c.Name},
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.log(ctx).Info("customer deleted", "customer_id", id)
	return nil
}
