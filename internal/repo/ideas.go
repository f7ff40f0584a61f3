package repo

import (
	"context"
	"database/sql"
	"strings"

	"cuops/internal/domain"
	"cuops/internal/ledger"
)

const ideaColumns = `id,customer_id,title,description,status,predicted_engagement,topic_tags_json,strategic_tags_json,event_tags_json,created_at,updated_at`

func scanIdea(row rowScanner) (domain.Idea, error) {
	var (
		i                       domain.Idea
		customerID, desc        sql.NullString
		score                   sql.NullFloat64
		topic, strategic, event string
	)
	err := row.Scan(&i.ID, &customerID, &i.Title, &desc, &i.Status, &score, &topic, &strategic, &event, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return i, err
	}
	i.CustomerID = stringPtr(customerID)
	if desc.Valid {
		i.Description = desc.String
	}
	if score.Valid {
		s := score.Float64
		i.PredictedEngagement = &s
	}
	if i.TopicTags, err = unmarshalTags(topic); err != nil {
		return i, err
	}
	if i.StrategicTags, err = unmarshalTags(strategic); err != nil {
		return i, err
	}
	if i.EventTags, err = unmarshalTags(event); err != nil {
		return i, err
	}
	return i, nil
}

func ideaTagArgs(i domain.Idea) ([]any, error) {
	var args []any
	for _, tags := range [][]string{i.TopicTags, i.StrategicTags, i.EventTags} {
		raw, err := marshalTags(tags)
		if err != nil {
			return nil, err
		}
		args = append(args, raw)
	}
	return args, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func (r Repo) InsertIdea(ctx context.Context, i domain.Idea) error {
	tags, err := ideaTagArgs(i)
	if err != nil {
		return err
	}
	args := []any{i.ID, nullableStringPtr(i.CustomerID), i.Title, nullable(i.Description), i.Status, nullableFloat(i.PredictedEngagement)}
	args = append(args, tags...)
	args = append(args, i.CreatedAt, i.UpdatedAt)
	_, err = r.exec(ctx, `INSERT INTO ideas(`+ideaColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`, args...)
	return err
}

func (r Repo) GetIdea(ctx context.Context, id string) (domain.Idea, error) {
	i, err := scanIdea(r.queryRow(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id=?`, id))
	if isNoRows(err) {
		return i, notFound("idea", id)
	}
	return i, err
}

// UpdateIdea rewrites the editable fields; status changes go through TransitionIdea.
func (r Repo) UpdateIdea(ctx context.Context, i domain.Idea) error {
	tags, err := ideaTagArgs(i)
	if err != nil {
		return err
	}
	args := []any{nullableStringPtr(i.CustomerID), i.Title, nullable(i.Description), nullableFloat(i.PredictedEngagement)}
	args = append(args, tags...)
	args = append(args, i.UpdatedAt, i.ID)
	return r.execOne(ctx, notFound("idea", i.ID),
		`UPDATE ideas SET customer_id=?, title=?, description=?, predicted_engagement=?, topic_tags_json=?, strategic_tags_json=?, event_tags_json=?, updated_at=? WHERE id=?`,
		args...)
}

// TransitionIdea moves an idea to status only if its current status is one of from.
// It reports whether the row changed.
func (r Repo) TransitionIdea(ctx context.Context, id string, from []string, to, now string) (bool, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	args := []any{to, now, id}
	for _, f := range from {
		args = append(args, f)
	}
	res, err := r.exec(ctx, `UPDATE ideas SET status=?, updated_at=? WHERE id=? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) DeleteIdea(ctx context.Context, id string) error {
	return r.execOne(ctx, notFound("idea", id), `DELETE FROM ideas WHERE id=?`, id)
}

type IdeaFilters struct {
	Scope  ledger.Scope
	Status string
}

func (r Repo) ListIdeas(ctx context.Context, f IdeaFilters) ([]domain.Idea, error) {
	var clauses []string
	var args []any
	if id, ok := f.Scope.CustomerID(); ok {
		clauses = append(clauses, "customer_id=?")
		args = append(args, id)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := `SELECT ` + ideaColumns + ` FROM ideas`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Idea
	for rows.Next() {
		i, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	return res, rows.Err()
}

// CountContentForIdea counts content objects commissioned from an idea.
func (r Repo) CountContentForIdea(ctx context.Context, ideaID string) (int, error) {
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM content_objects WHERE idea_id=?`, ideaID).Scan(&n)
	return n, err
}
