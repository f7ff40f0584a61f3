package repo

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"cuops/internal/domain"
	"cuops/internal/ledger"
)

const contractColumns = `id,customer_id,name,status,total_cu,rollover_cu,used_cu,start_date,end_date,monthly_fee_cents,notes,created_at,updated_at`

func scanContract(row rowScanner) (domain.Contract, error) {
	var (
		c                     domain.Contract
		total, rollover, used int64
		fee                   sql.NullInt64
		notes                 sql.NullString
	)
	err := row.Scan(&c.ID, &c.CustomerID, &c.Name, &c.Status, &total, &rollover, &used, &c.StartDate, &c.EndDate, &fee, &notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.TotalContentUnits = ledger.FromCenti(total)
	c.RolloverUnits = ledger.FromCenti(rollover)
	c.UsedContentUnits = ledger.FromCenti(used)
	if fee.Valid {
		f := decimal.New(fee.Int64, -2)
		c.MonthlyFee = &f
	}
	if notes.Valid {
		c.Notes = notes.String
	}
	return c, nil
}

func (r Repo) InsertContract(ctx context.Context, c domain.Contract) error {
	var fee any
	if c.MonthlyFee != nil {
		centi, err := ledger.ToCenti(*c.MonthlyFee)
		if err != nil {
			return err
		}
		fee = centi
	}
	var amounts [3]int64
	for i, d := range []decimal.Decimal{c.TotalContentUnits, c.RolloverUnits, c.UsedContentUnits} {
		centi, err := ledger.ToCenti(d)
		if err != nil {
			return err
		}
		amounts[i] = centi
	}
	_, err := r.exec(ctx, `INSERT INTO contracts(`+contractColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.CustomerID, c.Name, c.Status, amounts[0], amounts[1], amounts[2],
		c.StartDate, c.EndDate, fee, nullable(c.Notes), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetContract(ctx context.Context, id string) (domain.Contract, error) {
	c, err := scanContract(r.queryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id=?`, id))
	if isNoRows(err) {
		return c, notFound("contract", id)
	}
	return c, err
}

// ListContracts returns a customer's contracts, newest start date first.
// An empty status returns every contract.
func (r Repo) ListContracts(ctx context.Context, customerID, status string) ([]domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE customer_id=?`
	args := []any{customerID}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	query += ` ORDER BY start_date DESC, created_at DESC, id DESC`
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateContractStatus(ctx context.Context, id, status, now string) error {
	return r.execOne(ctx, notFound("contract", id), `UPDATE contracts SET status=?, updated_at=? WHERE id=?`, status, now, id)
}

// DebitContract adds amount to used units in one statement. With enforce set
// the update only applies while used+amount stays within total+rollover, so
// concurrent debits cannot overdraw. It reports whether a row was updated.
func (r Repo) DebitContract(ctx context.Context, id string, amount decimal.Decimal, now string, enforce bool) (bool, error) {
	centi, err := ledger.ToCenti(amount)
	if err != nil {
		return false, err
	}
	var res sql.Result
	if enforce {
		res, err = r.exec(ctx, `UPDATE contracts SET used_cu=used_cu+?, updated_at=? WHERE id=? AND used_cu+? <= total_cu+rollover_cu`,
			centi, now, id, centi)
	} else {
		res, err = r.exec(ctx, `UPDATE contracts SET used_cu=used_cu+?, updated_at=? WHERE id=?`, centi, now, id)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
