package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

// AuditRepository persists retrieval lifecycle events consumed by the
// worker, so searches remain inspectable after the fact.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS retrieval_events (
	id TEXT PRIMARY KEY,
	event TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}'::jsonb,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_retrieval_events_occurred_at ON retrieval_events(occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_retrieval_events_event ON retrieval_events(event);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AuditRepository) RecordEvent(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO retrieval_events (id, event, agent_name, payload, occurred_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO NOTHING
`, event.ID, event.Event, event.AgentName, payload, event.Timestamp)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "record event", err)
	}
	return nil
}

func (r *AuditRepository) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, event, agent_name, payload, occurred_at
FROM retrieval_events
WHERE id = $1
`, id)

	var event domain.Event
	var payload []byte
	if err := row.Scan(&event.ID, &event.Event, &event.AgentName, &payload, &event.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get event", err)
		}
		return nil, domain.WrapError(domain.ErrTemporary, "get event", err)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &event.Data); err != nil {
			return nil, fmt.Errorf("unmarshal event payload: %w", err)
		}
	}
	return &event, nil
}

func (r *AuditRepository) ListRecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, event, agent_name, payload, occurred_at
FROM retrieval_events
ORDER BY occurred_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "list events", err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0, limit)
	for rows.Next() {
		var event domain.Event
		var payload []byte
		if err := rows.Scan(&event.ID, &event.Event, &event.AgentName, &payload, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan retrieval event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Data); err != nil {
				return nil, fmt.Errorf("unmarshal event payload: %w", err)
			}
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "list events", err)
	}
	return out, nil
}
