package repo

import (
	"context"
	"database/sql"

	"cuops/internal/domain"
)

const taskColumns = `id,content_object_id,title,status,sort_order,due_date,assignee,notes,completed_at,created_at,updated_at`

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t                                 domain.Task
		due, assignee, notes, completedAt sql.NullString
	)
	err := row.Scan(&t.ID, &t.ContentObjectID, &t.Title, &t.Status, &t.SortOrder, &due, &assignee, &notes, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.DueDate = stringPtr(due)
	t.Assignee = stringPtr(assignee)
	t.Notes = stringPtr(notes)
	t.CompletedAt = stringPtr(completedAt)
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := r.exec(ctx, `INSERT INTO production_tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ContentObjectID, t.Title, t.Status, t.SortOrder,
		nullableStringPtr(t.DueDate), nullableStringPtr(t.Assignee), nullableStringPtr(t.Notes), nullableStringPtr(t.CompletedAt),
		t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := scanTask(r.queryRow(ctx, `SELECT `+taskColumns+` FROM production_tasks WHERE id=?`, id))
	if isNoRows(err) {
		return t, notFound("task", id)
	}
	return t, err
}

func (r Repo) UpdateTask(ctx context.Context, t domain.Task) error {
	return r.execOne(ctx, notFound("task", t.ID),
		`UPDATE production_tasks SET title=?, status=?, sort_order=?, due_date=?, assignee=?, notes=?, completed_at=?, updated_at=? WHERE id=?`,
		t.Title, t.Status, t.SortOrder, nullableStringPtr(t.DueDate), nullableStringPtr(t.Assignee), nullableStringPtr(t.Notes),
		nullableStringPtr(t.CompletedAt), t.UpdatedAt, t.ID)
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	return r.execOne(ctx, notFound("task", id), `DELETE FROM production_tasks WHERE id=?`, id)
}

// ListTasks returns a content object's tasks in display order.
func (r Repo) ListTasks(ctx context.Context, contentID string) ([]domain.Task, error) {
	rows, err := r.query(ctx, `SELECT `+taskColumns+` FROM production_tasks WHERE content_object_id=? ORDER BY sort_order ASC, created_at ASC, id ASC`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// MaxSortOrder returns the highest sort order in use, or -1 when the object has no tasks.
func (r Repo) MaxSortOrder(ctx context.Context, contentID string) (int, error) {
	var n sql.NullInt64
	if err := r.queryRow(ctx, `SELECT MAX(sort_order) FROM production_tasks WHERE content_object_id=?`, contentID).Scan(&n); err != nil {
		return 0, err
	}
	if !n.Valid {
		return -1, nil
	}
	return int(n.Int64), nil
}
