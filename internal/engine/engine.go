package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"cuops/internal/config"
	"cuops/internal/db"
	"cuops/internal/domain"
	"cuops/internal/events"
	"cuops/internal/logger"
	"cuops/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Logger *slog.Logger
	Now    func() time.Time
}

func New(conn *sql.DB, d db.Dialect, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     conn,
		Repo:   repo.New(conn, d),
		Events: events.Writer{Dialect: d},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return domain.FormatTime(e.now())
}

func (e Engine) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, e.Logger)
}

// begin opens a transaction and returns the repo bound to it.
func (e Engine) begin(ctx context.Context) (*sql.Tx, repo.Repo, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, repo.Repo{}, err
	}
	return tx, e.Repo.WithTx(tx), nil
}

func (e Engine) appendEvent(ctx context.Context, tx *sql.Tx, entry events.Entry) error {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	if err := w.Append(ctx, tx, entry); err != nil {
		return fmt.Errorf("append %s event: %w", entry.Type, err)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrPrecondition, fmt.Sprintf(format, args...))
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// applyOptional updates dst from a patch value; an empty patch clears it.
func applyOptional(dst **string, patch *string) {
	if patch == nil {
		return
	}
	*dst = optionalString(*patch)
}

func validDate(field, v string) error {
	if _, err := time.Parse(domain.DateLayout, v); err != nil {
		return invalid("%s must be a YYYY-MM-DD date", field)
	}
	return nil
}

// uniqueTags trims tags and drops blanks and duplicates, keeping first-seen order.
func uniqueTags(in []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
