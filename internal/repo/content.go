package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"cuops/internal/domain"
	"cuops/internal/ledger"
)

const contentColumns = `c.id,c.idea_id,c.customer_id,c.contract_id,c.working_title,c.final_title,c.content_type,c.body,c.status,c.evergreen,c.content_cu,c.published_at,c.created_at,c.updated_at,
COALESCE(t.total,0),COALESCE(t.done,0)`

// contentFrom joins per-object task counts so list and detail reads carry aggregates.
const contentFrom = ` FROM content_objects c
LEFT JOIN (
  SELECT content_object_id, COUNT(*) AS total, SUM(CASE WHEN status='done' THEN 1 ELSE 0 END) AS done
  FROM production_tasks GROUP BY content_object_id
) t ON t.content_object_id = c.id`

func scanContent(row rowScanner) (domain.ContentObject, error) {
	var (
		c                                     domain.ContentObject
		ideaID, customerID, contractID, final sql.NullString
		body, publishedAt                     sql.NullString
		centi                                 int64
	)
	err := row.Scan(&c.ID, &ideaID, &customerID, &contractID, &c.WorkingTitle, &final, &c.ContentType, &body, &c.Status,
		&c.Evergreen, &centi, &publishedAt, &c.CreatedAt, &c.UpdatedAt, &c.TotalTasks, &c.DoneTasks)
	if err != nil {
		return c, err
	}
	c.IdeaID = stringPtr(ideaID)
	c.CustomerID = stringPtr(customerID)
	c.ContractID = stringPtr(contractID)
	c.FinalTitle = stringPtr(final)
	c.PublishedAt = stringPtr(publishedAt)
	if body.Valid {
		c.Body = body.String
	}
	c.ContentUnits = ledger.FromCenti(centi)
	ledger.Annotate(&c)
	return c, nil
}

func (r Repo) InsertContent(ctx context.Context, c domain.ContentObject) error {
	centi, err := ledger.ToCenti(c.ContentUnits)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, `INSERT INTO content_objects(id,idea_id,customer_id,contract_id,working_title,final_title,content_type,body,status,evergreen,content_cu,published_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, nullableStringPtr(c.IdeaID), nullableStringPtr(c.CustomerID), nullableStringPtr(c.ContractID),
		c.WorkingTitle, nullableStringPtr(c.FinalTitle), c.ContentType, nullable(c.Body), c.Status, c.Evergreen,
		centi, nullableStringPtr(c.PublishedAt), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetContent(ctx context.Context, id string) (domain.ContentObject, error) {
	c, err := scanContent(r.queryRow(ctx, `SELECT `+contentColumns+contentFrom+` WHERE c.id=?`, id))
	if isNoRows(err) {
		return c, notFound("content object", id)
	}
	return c, err
}

// UpdateContent rewrites the mutable columns. Links to idea, customer and
// contract are fixed at commission time and left untouched.
func (r Repo) UpdateContent(ctx context.Context, c domain.ContentObject) error {
	return r.execOne(ctx, notFound("content object", c.ID),
		`UPDATE content_objects SET working_title=?, final_title=?, content_type=?, body=?, status=?, evergreen=?, published_at=?, updated_at=? WHERE id=?`,
		c.WorkingTitle, nullableStringPtr(c.FinalTitle), c.ContentType, nullable(c.Body), c.Status, c.Evergreen,
		nullableStringPtr(c.PublishedAt), c.UpdatedAt, c.ID)
}

// DeleteContent removes a content object; tasks and post links cascade.
func (r Repo) DeleteContent(ctx context.Context, id string) error {
	return r.execOne(ctx, notFound("content object", id), `DELETE FROM content_objects WHERE id=?`, id)
}

type ContentFilters struct {
	Scope       ledger.Scope
	ContentType string
	IdeaID      string
	ContractID  string
}

func (r Repo) ListContent(ctx context.Context, f ContentFilters) ([]domain.ContentObject, error) {
	var clauses []string
	var args []any
	if id, ok := f.Scope.CustomerID(); ok {
		clauses = append(clauses, "c.customer_id=?")
		args = append(args, id)
	}
	if f.ContentType != "" {
		clauses = append(clauses, "c.content_type=?")
		args = append(args, f.ContentType)
	}
	if f.IdeaID != "" {
		clauses = append(clauses, "c.idea_id=?")
		args = append(args, f.IdeaID)
	}
	if f.ContractID != "" {
		clauses = append(clauses, "c.contract_id=?")
		args = append(args, f.ContractID)
	}
	query := `SELECT ` + contentColumns + contentFrom
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY c.created_at DESC, c.id DESC`
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ContentObject
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// ContractDebit is one content object charged against a contract.
type ContractDebit struct {
	ContentObjectID string          `json:"content_object_id"`
	WorkingTitle    string          `json:"working_title"`
	ContentUnits    decimal.Decimal `json:"content_units"`
	CreatedAt       string          `json:"created_at"`
}

// ContractDebits lists the content objects charged to a contract, oldest first.
func (r Repo) ContractDebits(ctx context.Context, contractID string) ([]ContractDebit, error) {
	rows, err := r.query(ctx, `SELECT id, working_title, content_cu, created_at FROM content_objects WHERE contract_id=? ORDER BY created_at ASC, id ASC`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ContractDebit
	for rows.Next() {
		var d ContractDebit
		var centi int64
		if err := rows.Scan(&d.ContentObjectID, &d.WorkingTitle, &centi, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.ContentUnits = ledger.FromCenti(centi)
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) InsertPostLink(ctx context.Context, l domain.PostLink) error {
	_, err := r.exec(ctx, `INSERT INTO content_post_links(content_object_id,post_id,platform,created_at) VALUES (?,?,?,?)`,
		l.ContentObjectID, l.PostID, l.Platform, l.CreatedAt)
	return err
}

func (r Repo) DeletePostLink(ctx context.Context, contentID, postID string) error {
	return r.execOne(ctx, notFound("post link", postID),
		`DELETE FROM content_post_links WHERE content_object_id=? AND post_id=?`, contentID, postID)
}

func (r Repo) ListPostLinks(ctx context.Context, contentID string) ([]domain.PostLink, error) {
	rows, err := r.query(ctx, `SELECT content_object_id, post_id, platform, created_at FROM content_post_links WHERE content_object_id=? ORDER BY created_at ASC, post_id ASC`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.PostLink
	for rows.Next() {
		var l domain.PostLink
		if err := rows.Scan(&l.ContentObjectID, &l.PostID, &l.Platform, &l.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}
