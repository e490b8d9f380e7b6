package reservation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/audit"
	"hotelsuite/internal/availability"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/events"
	"hotelsuite/internal/stay"
	"hotelsuite/pkg/db"
)

// Repository is the Postgres Store. Capacity is serialised by locking the room_types rows
// a reservation touches (always in id order) before reading overlapping holds.
type Repository struct {
	db      *pgxpool.Pool
	catalog *catalog.Repository
	events  *events.Repository
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, catalog: catalog.NewRepository(pool), events: events.NewRepository(pool)}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const reservationColumns = `
r.id, r.code, r.property_id, r.primary_guest_id, COALESCE(r.customer_id::text, ''), r.status, r.channel,
r.check_in_date, r.check_out_date, r.adults, r.children, r.special_requests,
r.total_amount::text, r.currency, COALESCE(r.idempotency_key, ''), r.request_hash, r.created_at, r.updated_at,
g.id, g.first_name, g.last_name, g.email, g.phone`

const reservationFrom = `
FROM reservations r
JOIN guests g ON g.id = r.primary_guest_id`

func scanReservation(row pgx.Row) (*Reservation, error) {
	var (
		res           Reservation
		status, total string
		in, out       time.Time
	)
	if err := row.Scan(
		&res.ID, &res.Code, &res.PropertyID, &res.PrimaryGuestID, &res.CustomerID, &status, &res.Channel,
		&in, &out, &res.Adults, &res.Children, &res.SpecialRequests,
		&total, &res.Currency, &res.IdempotencyKey, &res.RequestHash, &res.CreatedAt, &res.UpdatedAt,
		&res.Guest.ID, &res.Guest.FirstName, &res.Guest.LastName, &res.Guest.Email, &res.Guest.Phone,
	); err != nil {
		return nil, err
	}
	res.Status = Status(status)
	res.CheckInDate = stay.DateOf(in)
	res.CheckOutDate = stay.DateOf(out)
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("total_amount: %w", err)
	}
	res.TotalAmount = amount
	return &res, nil
}

func loadRooms(ctx context.Context, q querier, list []*Reservation) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, 0, len(list))
	byID := make(map[string]*Reservation, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
		byID[r.ID] = r
		r.Rooms = []Room{}
	}

	const sql = `
SELECT rr.id, rr.reservation_id, rr.room_type_id, rr.room_id, COALESCE(rm.number, ''), rr.rate_plan_id, rr.guests_in_room
FROM reservation_rooms rr
LEFT JOIN rooms rm ON rm.id = rr.room_id
WHERE rr.reservation_id = ANY($1::uuid[])
ORDER BY rr.reservation_id, rr.position
`
	rows, err := q.Query(ctx, sql, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rm    Room
			resID string
		)
		if err := rows.Scan(&rm.ID, &resID, &rm.RoomTypeID, &rm.RoomID, &rm.RoomNumber, &rm.RatePlanID, &rm.GuestsInRoom); err != nil {
			return err
		}
		if r, ok := byID[resID]; ok {
			r.Rooms = append(r.Rooms, rm)
		}
	}
	return rows.Err()
}

func getOne(ctx context.Context, q querier, where string, arg any) (*Reservation, error) {
	res, err := scanReservation(q.QueryRow(ctx, `SELECT `+reservationColumns+reservationFrom+` WHERE `+where, arg))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, errNotFound()
		}
		return nil, err
	}
	if err := loadRooms(ctx, q, []*Reservation{res}); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errNotFound()
	}
	return getOne(ctx, r.db, `r.id = $1`, id)
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*Reservation, error) {
	return getOne(ctx, r.db, `r.code = $1`, NormalizeCode(code))
}

// lockRoomTypes locks the distinct room types of rooms in id order so concurrent
// multi-type reservations cannot deadlock.
func lockRoomTypes(ctx context.Context, tx pgx.Tx, rooms []Room) (map[string]catalog.RoomType, error) {
	seen := map[string]bool{}
	var ids []string
	for _, rm := range rooms {
		if !seen[rm.RoomTypeID] {
			seen[rm.RoomTypeID] = true
			ids = append(ids, rm.RoomTypeID)
		}
	}
	sort.Strings(ids)

	out := make(map[string]catalog.RoomType, len(ids))
	for _, id := range ids {
		rt, err := catalog.LockRoomType(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		out[id] = *rt
	}
	return out, nil
}

func holds(ctx context.Context, q querier, propertyID string, rng stay.Range, excludeID string) ([]availability.Hold, error) {
	const sql = `
SELECT r.id, rr.room_type_id, r.check_in_date, r.check_out_date, COUNT(*)
FROM reservations r
JOIN reservation_rooms rr ON rr.reservation_id = r.id
WHERE r.property_id = $1
  AND r.status IN ('CONFIRMED', 'CHECKED_IN')
  AND r.check_in_date < $3
  AND r.check_out_date > $2
  AND ($4::text = '' OR r.id::text <> $4::text)
GROUP BY r.id, rr.room_type_id, r.check_in_date, r.check_out_date
`
	rows, err := q.Query(ctx, sql, propertyID, rng.From.Time(), rng.To.Time(), excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Hold
	for rows.Next() {
		var (
			h       availability.Hold
			in, end time.Time
		)
		if err := rows.Scan(&h.ReservationID, &h.RoomTypeID, &in, &end, &h.Units); err != nil {
			return nil, err
		}
		h.Stay = stay.Range{From: stay.DateOf(in), To: stay.DateOf(end)}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repository) Holds(ctx context.Context, propertyID string, rng stay.Range) ([]availability.Hold, error) {
	return holds(ctx, r.db, propertyID, rng, "")
}

func checkCapacity(ctx context.Context, tx pgx.Tx, res *Reservation, roomTypes map[string]catalog.RoomType) error {
	existing, err := holds(ctx, tx, res.PropertyID, res.Stay(), res.ID)
	if err != nil {
		return err
	}
	for _, h := range res.Holds() {
		rt, ok := roomTypes[h.RoomTypeID]
		if !ok {
			return apperr.Validation("UNKNOWN_ROOM_TYPE", "room type not found")
		}
		if err := availability.CheckCapacity(rt, h.Stay, existing, h.Units); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, d Draft) (*Reservation, bool, error) {
	var (
		out     *Reservation
		created bool
	)
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		roomTypes, err := lockRoomTypes(ctx, tx, d.Rooms)
		if err != nil {
			return err
		}

		if d.IdempotencyKey != "" {
			existing, err := getOne(ctx, tx, `r.idempotency_key = $1`, d.IdempotencyKey)
			switch {
			case err == nil:
				if existing.RequestHash != d.RequestHash {
					return errKeyReused()
				}
				out = existing
				return nil
			case apperr.KindOf(err) != apperr.KindNotFound:
				return err
			}
		}

		res := draftReservation(d)
		if res.Status.HoldsInventory() {
			if err := checkCapacity(ctx, tx, res, roomTypes); err != nil {
				return err
			}
		}
		if err := insertReservation(ctx, tx, res); err != nil {
			return err
		}
		if err := events.Insert(ctx, tx, withReservation(createdEvent(res, d.Actor), res)); err != nil {
			return err
		}
		out, created = res, true
		return nil
	})

	switch {
	case err == nil:
		return out, created, nil
	case db.IsUniqueViolation(err, "reservations_code_key"):
		return nil, false, ErrCodeTaken
	case db.IsUniqueViolation(err, "reservations_idempotency_key_key"):
		// A concurrent request with the same key committed first.
		existing, gerr := getOne(ctx, r.db, `r.idempotency_key = $1`, d.IdempotencyKey)
		if gerr != nil {
			return nil, false, gerr
		}
		if existing.RequestHash != d.RequestHash {
			return nil, false, errKeyReused()
		}
		return existing, false, nil
	default:
		return nil, false, err
	}
}

func draftReservation(d Draft) *Reservation {
	res := &Reservation{
		Code:            d.Code,
		PropertyID:      d.PropertyID,
		CustomerID:      d.CustomerID,
		Status:          d.Status,
		Channel:         d.Channel,
		CheckInDate:     d.Stay.From,
		CheckOutDate:    d.Stay.To,
		Adults:          d.Adults,
		Children:        d.Children,
		SpecialRequests: d.SpecialRequests,
		Guest:           d.Guest,
		TotalAmount:     d.TotalAmount,
		Currency:        d.Currency,
		IdempotencyKey:  d.IdempotencyKey,
		RequestHash:     d.RequestHash,
	}
	for _, rm := range d.Rooms {
		rm.RoomID = nil
		res.Rooms = append(res.Rooms, rm)
	}
	return res
}

func insertReservation(ctx context.Context, tx pgx.Tx, res *Reservation) error {
	const qGuest = `
INSERT INTO guests (first_name, last_name, email, phone, customer_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	if err := tx.QueryRow(ctx, qGuest,
		res.Guest.FirstName, res.Guest.LastName, res.Guest.Email, res.Guest.Phone, nullString(res.CustomerID),
	).Scan(&res.Guest.ID); err != nil {
		return err
	}
	res.PrimaryGuestID = res.Guest.ID

	const qRes = `
INSERT INTO reservations (
  code, property_id, primary_guest_id, customer_id, status, channel, check_in_date, check_out_date,
  adults, children, special_requests, total_amount, currency, idempotency_key, request_hash
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CAST($12 AS numeric), $13, $14, $15)
RETURNING id, created_at, updated_at
`
	if err := tx.QueryRow(ctx, qRes,
		res.Code, res.PropertyID, res.PrimaryGuestID, nullString(res.CustomerID), string(res.Status), res.Channel,
		res.CheckInDate.Time(), res.CheckOutDate.Time(), res.Adults, res.Children, res.SpecialRequests,
		res.TotalAmount.StringFixed(2), res.Currency, nullString(res.IdempotencyKey), res.RequestHash,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return err
	}

	const qRoom = `
INSERT INTO reservation_rooms (reservation_id, position, room_type_id, rate_plan_id, guests_in_room)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	for i := range res.Rooms {
		rm := &res.Rooms[i]
		if err := tx.QueryRow(ctx, qRoom, res.ID, i, rm.RoomTypeID, rm.RatePlanID, rm.GuestsInRoom).Scan(&rm.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Mutate(ctx context.Context, id, actor string, fn func(res *Reservation) (Change, error)) (*Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errNotFound()
	}

	var out *Reservation
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cur, err := getOne(ctx, tx, `r.id = $1 FOR UPDATE OF r`, id)
		if err != nil {
			return err
		}
		next := cur.clone()
		ch, err := fn(next)
		if err != nil {
			return err
		}

		acquire := !cur.Status.HoldsInventory() && next.Status.HoldsInventory()
		if acquire || ch.AssignRooms || roomsChanged(cur, next) {
			roomTypes, err := lockRoomTypes(ctx, tx, next.Rooms)
			if err != nil {
				return err
			}
			if acquire {
				if err := checkCapacity(ctx, tx, next, roomTypes); err != nil {
					return err
				}
			}
			occupied, err := occupiedRooms(ctx, tx, next)
			if err != nil {
				return err
			}
			if err := assignRooms(ctx, cur, next, ch.AssignRooms, r.catalog.ListRooms, occupied); err != nil {
				return err
			}
		}

		if err := updateReservation(ctx, tx, cur, next); err != nil {
			return err
		}
		if err := events.Insert(ctx, tx, withReservation(events.Event{
			EventType: ch.EventType,
			Summary:   ch.Summary,
			Actor:     actor,
			Data:      ch.Data,
		}, next)); err != nil {
			return err
		}
		if ch.Audit {
			resID := next.ID
			if err := audit.Insert(ctx, tx, &resID, ch.AuditAction, actor, ch.Data); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func roomsChanged(before, after *Reservation) bool {
	for i := range after.Rooms {
		if after.Rooms[i].RoomID != nil && changedRoom(before, i, *after.Rooms[i].RoomID) {
			return true
		}
	}
	return false
}

func occupiedRooms(ctx context.Context, tx pgx.Tx, res *Reservation) (map[string]bool, error) {
	const sql = `
SELECT rr.room_id::text
FROM reservation_rooms rr
JOIN reservations r ON r.id = rr.reservation_id
WHERE rr.room_id IS NOT NULL
  AND r.id <> $1
  AND r.status IN ('CONFIRMED', 'CHECKED_IN')
  AND r.check_in_date < $3
  AND r.check_out_date > $2
`
	rows, err := tx.Query(ctx, sql, res.ID, res.CheckInDate.Time(), res.CheckOutDate.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func updateReservation(ctx context.Context, tx pgx.Tx, before, after *Reservation) error {
	const qRes = `
UPDATE reservations
SET status = $1, adults = $2, children = $3, special_requests = $4, updated_at = NOW()
WHERE id = $5
RETURNING updated_at
`
	if err := tx.QueryRow(ctx, qRes,
		string(after.Status), after.Adults, after.Children, after.SpecialRequests, after.ID,
	).Scan(&after.UpdatedAt); err != nil {
		return err
	}

	if after.Guest != before.Guest {
		const qGuest = `
UPDATE guests
SET first_name = $1, last_name = $2, email = $3, phone = $4
WHERE id = $5
`
		if _, err := tx.Exec(ctx, qGuest,
			after.Guest.FirstName, after.Guest.LastName, after.Guest.Email, after.Guest.Phone, after.PrimaryGuestID,
		); err != nil {
			return err
		}
	}

	const qRoom = `UPDATE reservation_rooms SET room_id = $1 WHERE id = $2`
	for i, rm := range after.Rooms {
		if rm.RoomID == nil || !changedRoom(before, i, *rm.RoomID) {
			continue
		}
		if _, err := tx.Exec(ctx, qRoom, *rm.RoomID, rm.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Reservation, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if f.PropertyID != "" {
		if _, err := uuid.Parse(f.PropertyID); err != nil {
			return []Reservation{}, 0, nil
		}
		add(`r.property_id = $?`, f.PropertyID)
	}
	if f.Status != "" {
		add(`r.status = $?`, string(f.Status))
	}
	if f.CustomerID != "" {
		add(`r.customer_id::text = $?`, f.CustomerID)
	}
	if !f.Stay.From.IsZero() && !f.Stay.To.IsZero() {
		add(`r.check_out_date > $?`, f.Stay.From.Time())
		add(`r.check_in_date < $?`, f.Stay.To.Time())
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add(`(r.code ILIKE $? OR g.email ILIKE $? OR (g.first_name || ' ' || g.last_name) ILIKE $?)`, "%"+q+"%")
	}
	cond := ""
	if len(where) > 0 {
		cond = ` WHERE ` + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+reservationFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(f)
	q := `SELECT ` + reservationColumns + reservationFrom + cond +
		fmt.Sprintf(` ORDER BY r.created_at DESC, r.code LIMIT %d OFFSET %d`, limit, offset)
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	var list []*Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		list = append(list, res)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := loadRooms(ctx, r.db, list); err != nil {
		return nil, 0, err
	}

	out := make([]Reservation, 0, len(list))
	for _, res := range list {
		out = append(out, *res)
	}
	return out, total, nil
}

func (r *Repository) DueNoShows(ctx context.Context, cutoff stay.Date, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id
FROM reservations
WHERE status = 'CONFIRMED' AND check_in_date < $1
ORDER BY check_in_date, id
LIMIT $2
`
	rows, err := r.db.Query(ctx, q, cutoff.Time(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repository) Events(ctx context.Context, reservationID string) ([]events.Event, error) {
	if _, err := uuid.Parse(reservationID); err != nil {
		return nil, errNotFound()
	}
	return r.events.ListByReservation(ctx, reservationID)
}

func (r *Repository) EventsSince(ctx context.Context, since time.Time, limit int) ([]events.Event, error) {
	return r.events.ListSince(ctx, since, limit)
}

func withReservation(e events.Event, r *Reservation) events.Event {
	e.ReservationID = r.ID
	e.Code = r.Code
	return e
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
