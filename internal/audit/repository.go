package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hotelsuite/internal/logger"
)

const (
	ActionStaffLogin        = "STAFF_LOGIN"
	ActionStaffLogout       = "STAFF_LOGOUT"
	ActionStaffLoginFailed  = "STAFF_LOGIN_FAILED"
	ActionReservationEdited = "RESERVATION_EDITED"
	ActionStatusChanged     = "STATUS_CHANGED"
)

// Recorder writes audit entries outside of a reservation transaction.
type Recorder interface {
	Record(ctx context.Context, reservationID *string, action, actor string, metadata any) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func Insert(ctx context.Context, tx pgx.Tx, reservationID *string, action, actor string, metadata any) error {
	s := encode(metadata)
	const q = `
INSERT INTO audit_logs (reservation_id, action, actor, metadata)
VALUES ($1, $2, $3, CAST($4 AS jsonb))
`
	_, err := tx.Exec(ctx, q, reservationID, action, actor, s)
	return err
}

func (r *Repository) Record(ctx context.Context, reservationID *string, action, actor string, metadata any) error {
	s := encode(metadata)
	const q = `
INSERT INTO audit_logs (reservation_id, action, actor, metadata)
VALUES ($1, $2, $3, CAST($4 AS jsonb))
`
	_, err := r.db.Exec(ctx, q, reservationID, action, actor, s)
	return err
}

func encode(metadata any) *string {
	if metadata == nil {
		return nil
	}
	b, _ := json.Marshal(metadata)
	str := string(b)
	return &str
}

// LogRecorder sends audit entries to the structured log. Used by the memory driver.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, reservationID *string, action, actor string, metadata any) error {
	args := []any{"action", action, "actor", actor, "metadata", metadata}
	if reservationID != nil {
		args = append(args, "reservation_id", *reservationID)
	}
	logger.FromContext(ctx).Info("audit", args...)
	return nil
}
