package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "warden/pkg/platform/audit"
	txcontext "warden/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL. One row per event in
// audit_events, indexed for the two read paths: per-community recency and
// per-participant history.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Option configures a Store instance.
type Option func(*Store)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates a PostgreSQL-backed audit store.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// EnsureSchema creates the audit_events table and its indexes if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id               UUID PRIMARY KEY,
			action           VARCHAR(40)  NOT NULL,
			category         VARCHAR(20)  NOT NULL,
			community_id     VARCHAR(32)  NOT NULL,
			community_name   VARCHAR(255) NOT NULL DEFAULT '',
			participant_id   VARCHAR(32)  NOT NULL,
			participant_name VARCHAR(255) NOT NULL DEFAULT '',
			actor_id         VARCHAR(32),
			actor_name       VARCHAR(255),
			inviter_id       VARCHAR(32),
			inviter_name     VARCHAR(255),
			reason           TEXT,
			detail           JSONB,
			timestamp        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_community_timestamp
			ON audit_events (community_id, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_participant
			ON audit_events (participant_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
	}
	return nil
}

// Append inserts an audit event. Honors an ambient transaction from
// pkg/platform/tx so callers can batch the event with their own writes.
// Idempotent for a given event ID via ON CONFLICT DO NOTHING.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := event.ID
	if eventID == "" {
		eventID = uuid.New().String()
	}
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = s.clock()
	}

	// Always derive category from action - eventCategories map is the source of truth
	category := audit.AuditEvent(event.Action).Category()

	var detail []byte
	if len(event.Detail) > 0 {
		var err error
		detail, err = json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (
			id, action, category, community_id, community_name,
			participant_id, participant_name, actor_id, actor_name,
			inviter_id, inviter_name, reason, detail, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		eventID,
		event.Action,
		string(category),
		event.CommunityID,
		event.CommunityName,
		event.ParticipantID,
		event.ParticipantName,
		nullString(event.ActorID),
		nullString(event.ActorName),
		nullString(event.InviterID),
		nullString(event.InviterName),
		nullString(event.Reason),
		detail,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByParticipant returns events touching a participant, newest first.
func (s *Store) ListByParticipant(ctx context.Context, participantID string) ([]audit.Event, error) {
	query := selectColumns + `
		FROM audit_events
		WHERE participant_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns up to limit events for a community, newest first.
func (s *Store) ListRecent(ctx context.Context, communityID string, limit int) ([]audit.Event, error) {
	query := selectColumns + `
		FROM audit_events
		WHERE community_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, communityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Stats aggregates a community's trail: lifetime action totals plus a
// rolling 24 hour window, one query each.
func (s *Store) Stats(ctx context.Context, communityID string) (audit.Stats, error) {
	var stats audit.Stats

	lifetime := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE action = 'participant_detected'),
			COUNT(*) FILTER (WHERE action = 'participant_approved'),
			COUNT(*) FILTER (WHERE action = 'participant_rejected'),
			COUNT(*) FILTER (WHERE action = 'participant_timed_out')
		FROM audit_events
		WHERE community_id = $1
	`
	err := s.db.QueryRowContext(ctx, lifetime, communityID).Scan(
		&stats.TotalActions,
		&stats.Detected,
		&stats.Approved,
		&stats.Rejected,
		&stats.TimedOut,
	)
	if err != nil {
		return audit.Stats{}, fmt.Errorf("query audit stats: %w", err)
	}

	window := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE action = 'participant_approved'),
			COUNT(*) FILTER (WHERE action = 'participant_rejected'),
			COUNT(*) FILTER (WHERE action = 'participant_timed_out')
		FROM audit_events
		WHERE community_id = $1 AND timestamp > $2
	`
	windowStart := s.clock().Add(-24 * time.Hour)
	err = s.db.QueryRowContext(ctx, window, communityID, windowStart).Scan(
		&stats.Recent24h.Total,
		&stats.Recent24h.Approved,
		&stats.Recent24h.Rejected,
		&stats.Recent24h.TimedOut,
	)
	if err != nil {
		return audit.Stats{}, fmt.Errorf("query audit window stats: %w", err)
	}

	return stats, nil
}

// Purge deletes events older than the cutoff in the given categories.
// Compliance events are meant to outlive the operational ones; callers
// choose which categories a retention policy covers.
func (s *Store) Purge(ctx context.Context, before time.Time, categories []audit.EventCategory) (int64, error) {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	query := `
		DELETE FROM audit_events
		WHERE timestamp < $1 AND category = ANY($2)
	`
	res, err := s.db.ExecContext(ctx, query, before, pq.Array(names))
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	return deleted, nil
}

const selectColumns = `
	SELECT id, action, category, community_id, community_name,
		   participant_id, participant_name, actor_id, actor_name,
		   inviter_id, inviter_name, reason, detail, timestamp
`

// scanEvents scans multiple rows into an audit.Event slice.
func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			event       audit.Event
			category    string
			actorID     sql.NullString
			actorName   sql.NullString
			inviterID   sql.NullString
			inviterName sql.NullString
			reason      sql.NullString
			detail      []byte
		)

		err := rows.Scan(
			&event.ID,
			&event.Action,
			&category,
			&event.CommunityID,
			&event.CommunityName,
			&event.ParticipantID,
			&event.ParticipantName,
			&actorID,
			&actorName,
			&inviterID,
			&inviterName,
			&reason,
			&detail,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		event.ActorID = actorID.String
		event.ActorName = actorName.String
		event.InviterID = inviterID.String
		event.InviterName = inviterName.String
		event.Reason = reason.String
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
