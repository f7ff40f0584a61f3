package repo

import (
	"context"

	"cuops/internal/domain"
)

const customerColumns = `id,name,status,COALESCE(industry,''),COALESCE(primary_contact,''),created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Status, &c.Industry, &c.PrimaryContact, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r Repo) InsertCustomer(ctx context.Context, c domain.Customer) error {
	_, err := r.exec(ctx, `INSERT INTO customers(id,name,status,industry,primary_contact,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.Status, nullable(c.Industry), nullable(c.PrimaryContact), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	c, err := scanCustomer(r.queryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=?`, id))
	if isNoRows(err) {
		return c, notFound("customer", id)
	}
	return c, err
}

func (r Repo) ListCustomers(ctx context.Context, includeArchived bool) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if !includeArchived {
		query += ` WHERE status<>?`
		args = append(args, domain.CustomerArchived)
	}
	query += ` ORDER BY name ASC, id ASC`
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	return r.execOne(ctx, notFound("customer", c.ID),
		`UPDATE customers SET name=?, status=?, industry=?, primary_contact=?, updated_at=? WHERE id=?`,
		c.Name, c.Status, nullable(c.Industry), nullable(c.PrimaryContact), c.UpdatedAt, c.ID)
}

func (r Repo) DeleteCustomer(ctx context.Context, id string) error {
	return r.execOne(ctx, notFound("customer", id), `DELETE FROM customers WHERE id=?`, id)
}

// CountContracts counts a customer's contracts, optionally by status.
func (r Repo) CountContracts(ctx context.Context, customerID, status string) (int, error) {
	query := `SELECT COUNT(*) FROM contracts WHERE customer_id=?`
	args := []any{customerID}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	var n int
	err := r.queryRow(ctx, query, args...).Scan(&n)
	return n, err
}

// DetachCustomer removes a customer's contracts and unlinks its ideas and
// content so the customer row can be deleted. Content keeps its history.
func (r Repo) DetachCustomer(ctx context.Context, customerID string) error {
	if _, err := r.exec(ctx, `UPDATE content_objects SET contract_id=NULL WHERE contract_id IN (SELECT id FROM contracts WHERE customer_id=?)`, customerID); err != nil {
		return err
	}
	if _, err := r.exec(ctx, `UPDATE content_objects SET customer_id=NULL WHERE customer_id=?`, customerID); err != nil {
		return err
	}
	if _, err := r.exec(ctx, `UPDATE ideas SET customer_id=NULL WHERE customer_id=?`, customerID); err != nil {
		return err
	}
	_, err := r.exec(ctx, `DELETE FROM contracts WHERE customer_id=?`, customerID)
	return err
}
