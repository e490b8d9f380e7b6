package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one entry of a reservation's history.
type Event struct {
	ID            string         `json:"id"`
	ReservationID string         `json:"reservationId"`
	Code          string         `json:"code,omitempty"`
	EventType     string         `json:"eventType"`
	Summary       string         `json:"summary"`
	Actor         string         `json:"actor"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Data          map[string]any `json:"data,omitempty"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func Insert(ctx context.Context, tx pgx.Tx, e Event) error {
	var s *string
	if e.Data != nil {
		b, _ := json.Marshal(e.Data)
		str := string(b)
		s = &str
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	const q = `
INSERT INTO reservation_events (reservation_id, event_type, summary, actor, occurred_at, data)
VALUES ($1, $2, $3, $4, $5, CAST($6 AS jsonb))
`
	_, err := tx.Exec(ctx, q, e.ReservationID, e.EventType, e.Summary, e.Actor, e.OccurredAt, s)
	return err
}

func (r *Repository) ListByReservation(ctx context.Context, reservationID string) ([]Event, error) {
	const q = `
SELECT e.id, e.reservation_id, r.code, e.event_type, e.summary, e.actor, e.occurred_at, COALESCE(e.data, '{}'::jsonb)
FROM reservation_events e
JOIN reservations r ON r.id = e.reservation_id
WHERE e.reservation_id = $1
ORDER BY e.occurred_at ASC, e.id ASC
`
	return r.query(ctx, q, reservationID)
}

// ListSince returns events newer than since, newest first.
func (r *Repository) ListSince(ctx context.Context, since time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT e.id, e.reservation_id, r.code, e.event_type, e.summary, e.actor, e.occurred_at, COALESCE(e.data, '{}'::jsonb)
FROM reservation_events e
JOIN reservations r ON r.id = e.reservation_id
WHERE e.occurred_at > $1
ORDER BY e.occurred_at DESC, e.id DESC
LIMIT $2
`
	return r.query(ctx, q, since, limit)
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ReservationID, &e.Code, &e.EventType, &e.Summary, &e.Actor, &e.OccurredAt, &e.Data); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
