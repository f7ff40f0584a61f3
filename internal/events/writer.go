package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cuops/internal/db"
	"cuops/internal/domain"
)

// Writer appends audit events inside the caller's transaction.
type Writer struct {
	Dialect db.Dialect
	Now     func() time.Time
}

type EventPayload map[string]any

// Entry describes one event to append.
type Entry struct {
	Type       string
	EntityKind string
	EntityID   string
	CustomerID string
	ActorID    string
	Payload    EventPayload
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, e Entry) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := domain.FormatTime(w.Now())
	if e.Payload == nil {
		e.Payload = EventPayload{}
	}
	if e.ActorID == "" {
		e.ActorID = "system"
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, w.Dialect.Rebind(`INSERT INTO events(ts,type,entity_kind,entity_id,customer_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`),
		ts, e.Type, e.EntityKind, nullable(e.EntityID), nullable(e.CustomerID), e.ActorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
