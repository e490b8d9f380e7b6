package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/stay"
	"hotelsuite/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetProperty(ctx context.Context, id string) (*Property, error) {
	if notUUID(id) {
		return nil, apperr.NotFound("property not found")
	}
	const q = `SELECT id, code, name, currency FROM properties WHERE id = $1`
	var p Property
	if err := r.db.QueryRow(ctx, q, id).Scan(&p.ID, &p.Code, &p.Name, &p.Currency); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("property not found")
		}
		return nil, err
	}
	return &p, nil
}

const roomTypeColumns = `id, property_id, code, name, description, total_rooms, max_occupancy`

func scanRoomType(row pgx.Row) (RoomType, error) {
	var rt RoomType
	err := row.Scan(&rt.ID, &rt.PropertyID, &rt.Code, &rt.Name, &rt.Description, &rt.TotalRooms, &rt.MaxOccupancy)
	return rt, err
}

func (r *Repository) ListRoomTypes(ctx context.Context, propertyID string) ([]RoomType, error) {
	if notUUID(propertyID) {
		return []RoomType{}, nil
	}
	q := `SELECT ` + roomTypeColumns + ` FROM room_types WHERE property_id = $1 ORDER BY code`
	return r.queryRoomTypes(ctx, q, propertyID)
}

func (r *Repository) ListAllRoomTypes(ctx context.Context) ([]RoomType, error) {
	q := `SELECT ` + roomTypeColumns + ` FROM room_types ORDER BY property_id, code`
	return r.queryRoomTypes(ctx, q)
}

func (r *Repository) queryRoomTypes(ctx context.Context, q string, args ...any) ([]RoomType, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RoomType{}
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *Repository) GetRoomType(ctx context.Context, id string) (*RoomType, error) {
	if notUUID(id) {
		return nil, apperr.NotFound("room type not found")
	}
	q := `SELECT ` + roomTypeColumns + ` FROM room_types WHERE id = $1`
	rt, err := scanRoomType(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("room type not found")
		}
		return nil, err
	}
	return &rt, nil
}

// LockRoomType takes a row lock on the room type for the rest of tx. Reservations that
// hold inventory of this room type serialise on it.
func LockRoomType(ctx context.Context, tx pgx.Tx, id string) (*RoomType, error) {
	if notUUID(id) {
		return nil, apperr.Validation("UNKNOWN_ROOM_TYPE", "room type not found")
	}
	q := `SELECT ` + roomTypeColumns + ` FROM room_types WHERE id = $1 FOR UPDATE`
	rt, err := scanRoomType(tx.QueryRow(ctx, q, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.Validation("UNKNOWN_ROOM_TYPE", "room type not found")
		}
		return nil, err
	}
	return &rt, nil
}

func (r *Repository) ListRooms(ctx context.Context, roomTypeID string) ([]Room, error) {
	if notUUID(roomTypeID) {
		return []Room{}, nil
	}
	const q = `
SELECT id, room_type_id, number, out_of_service
FROM rooms
WHERE room_type_id = $1
ORDER BY number
`
	rows, err := r.db.Query(ctx, q, roomTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Room{}
	for rows.Next() {
		var rm Room
		if err := rows.Scan(&rm.ID, &rm.RoomTypeID, &rm.Number, &rm.OutOfService); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

const ratePlanColumns = `
id, property_id, COALESCE(room_type_id::text, ''), code, name, refundable, includes_breakfast,
nightly_rate::text, currency, min_nights, valid_from, valid_to, active`

func scanRatePlan(row pgx.Row) (RatePlan, error) {
	var (
		p                  RatePlan
		rate               string
		validFrom, validTo *time.Time
	)
	if err := row.Scan(&p.ID, &p.PropertyID, &p.RoomTypeID, &p.Code, &p.Name, &p.Refundable, &p.IncludesBreakfast,
		&rate, &p.Currency, &p.MinNights, &validFrom, &validTo, &p.Active); err != nil {
		return p, err
	}
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return p, err
	}
	p.NightlyRate = d
	if validFrom != nil {
		p.ValidFrom = stay.DateOf(*validFrom)
	}
	if validTo != nil {
		p.ValidTo = stay.DateOf(*validTo)
	}
	return p, nil
}

func (r *Repository) ListRatePlans(ctx context.Context, propertyID string) ([]RatePlan, error) {
	if notUUID(propertyID) {
		return []RatePlan{}, nil
	}
	q := `SELECT ` + ratePlanColumns + ` FROM rate_plans WHERE property_id = $1 ORDER BY code`
	rows, err := r.db.Query(ctx, q, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RatePlan{}
	for rows.Next() {
		p, err := scanRatePlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) GetRatePlan(ctx context.Context, id string) (*RatePlan, error) {
	if notUUID(id) {
		return nil, apperr.NotFound("rate plan not found")
	}
	q := `SELECT ` + ratePlanColumns + ` FROM rate_plans WHERE id = $1`
	p, err := scanRatePlan(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("rate plan not found")
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) UpsertProperty(ctx context.Context, p Property) error {
	const q = `
INSERT INTO properties (id, code, name, currency)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, currency = EXCLUDED.currency
`
	_, err := r.db.Exec(ctx, q, p.ID, p.Code, p.Name, p.Currency)
	return err
}

func (r *Repository) UpsertRoomType(ctx context.Context, rt RoomType) error {
	const q = `
INSERT INTO room_types (id, property_id, code, name, description, total_rooms, max_occupancy)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  code = EXCLUDED.code, name = EXCLUDED.name, description = EXCLUDED.description,
  total_rooms = EXCLUDED.total_rooms, max_occupancy = EXCLUDED.max_occupancy, updated_at = NOW()
`
	_, err := r.db.Exec(ctx, q, rt.ID, rt.PropertyID, rt.Code, rt.Name, rt.Description, rt.TotalRooms, rt.MaxOccupancy)
	return err
}

func (r *Repository) UpsertRoom(ctx context.Context, rm Room) error {
	const q = `
INSERT INTO rooms (id, room_type_id, number, out_of_service)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET number = EXCLUDED.number, out_of_service = EXCLUDED.out_of_service
`
	_, err := r.db.Exec(ctx, q, rm.ID, rm.RoomTypeID, rm.Number, rm.OutOfService)
	return err
}

func (r *Repository) UpsertRatePlan(ctx context.Context, p RatePlan) error {
	const q = `
INSERT INTO rate_plans (id, property_id, room_type_id, code, name, refundable, includes_breakfast,
                        nightly_rate, currency, min_nights, valid_from, valid_to, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, CAST($8 AS numeric), $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
  room_type_id = EXCLUDED.room_type_id, code = EXCLUDED.code, name = EXCLUDED.name,
  refundable = EXCLUDED.refundable, includes_breakfast = EXCLUDED.includes_breakfast,
  nightly_rate = EXCLUDED.nightly_rate, currency = EXCLUDED.currency, min_nights = EXCLUDED.min_nights,
  valid_from = EXCLUDED.valid_from, valid_to = EXCLUDED.valid_to, active = EXCLUDED.active
`
	_, err := r.db.Exec(ctx, q, p.ID, p.PropertyID, nullString(p.RoomTypeID), p.Code, p.Name, p.Refundable,
		p.IncludesBreakfast, p.NightlyRate.String(), p.Currency, p.MinNights, nullDate(p.ValidFrom), nullDate(p.ValidTo), p.Active)
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullDate(d stay.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}

// notUUID reports ids Postgres would reject as malformed input; they cannot match a row.
func notUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err != nil
}
