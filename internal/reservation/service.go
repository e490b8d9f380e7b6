package reservation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/audit"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/events"
	"hotelsuite/internal/logger"
	"hotelsuite/internal/messaging"
	"hotelsuite/internal/metrics"
	"hotelsuite/internal/stay"
	"hotelsuite/internal/validation"
)

const codeAttempts = 5

// Invalidator drops cached availability of a property.
type Invalidator interface {
	Invalidate(ctx context.Context, propertyID string)
}

type Service struct {
	Store        Store
	Rates        catalog.Resolver
	Availability Invalidator
	Publisher    messaging.Publisher
	Metrics      *metrics.Metrics

	MaxStayNights   int
	NoShowGraceDays int
	// Now defaults to time.Now. Dates are taken in UTC.
	Now func() time.Time
}

type CreateRequest struct {
	PropertyID      string    `json:"propertyId" validate:"required"`
	RoomTypeID      string    `json:"roomTypeId" validate:"required"`
	RatePlanID      string    `json:"ratePlanId" validate:"required"`
	CheckInDate     stay.Date `json:"checkInDate"`
	CheckOutDate    stay.Date `json:"checkOutDate"`
	Adults          int       `json:"adults" validate:"gte=1,lte=20"`
	Children        int       `json:"children" validate:"gte=0,lte=20"`
	Rooms           int       `json:"rooms,omitempty" validate:"gte=0,lte=10"`
	SpecialRequests string    `json:"specialRequests,omitempty" validate:"max=2000"`
	Guest           Guest     `json:"guest"`
	IdempotencyKey  string    `json:"idempotencyKey,omitempty" validate:"max=200"`

	// Set by the caller, never decoded.
	Channel    string `json:"-"`
	CustomerID string `json:"-"`
	Tentative  bool   `json:"-"`
	Actor      string `json:"-"`
}

func (s *Service) today() stay.Date {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return stay.DateOf(now().UTC())
}

// Create validates, prices and atomically books req. created is false when req replays an
// idempotency key already used with the same request.
func (s *Service) Create(ctx context.Context, req CreateRequest) (res *Reservation, created bool, err error) {
	defer func() {
		if err != nil {
			s.Metrics.BookingRejected(apperr.CodeOf(err))
		}
	}()

	req.Guest.normalize()
	req.PropertyID = strings.TrimSpace(req.PropertyID)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.Rooms == 0 {
		req.Rooms = 1
	}
	if req.Channel == "" {
		req.Channel = ChannelWeb
	}
	if err := validation.Struct(req); err != nil {
		return nil, false, err
	}
	rng, err := s.validateStay(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return nil, false, err
	}

	rt, err := s.Rates.RoomType(ctx, req.PropertyID, req.RoomTypeID)
	if err != nil {
		return nil, false, err
	}
	if guests := req.Adults + req.Children; guests > rt.MaxOccupancy*req.Rooms {
		return nil, false, apperr.Validation("OCCUPANCY_EXCEEDED",
			fmt.Sprintf("%d guests exceed the occupancy of %d x %s", guests, req.Rooms, rt.Name))
	}
	offer, err := s.Rates.Resolve(ctx, req.PropertyID, req.RoomTypeID, req.RatePlanID, rng, req.Rooms)
	if err != nil {
		return nil, false, err
	}

	status := StatusConfirmed
	if req.Tentative {
		status = StatusPending
	}
	draft := Draft{
		PropertyID:      req.PropertyID,
		CustomerID:      req.CustomerID,
		Status:          status,
		Channel:         req.Channel,
		Stay:            rng,
		Adults:          req.Adults,
		Children:        req.Children,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		Guest:           req.Guest,
		Rooms:           splitRooms(req.RoomTypeID, req.RatePlanID, req.Rooms, req.Adults+req.Children),
		TotalAmount:     offer.Total,
		Currency:        offer.Currency,
		IdempotencyKey:  req.IdempotencyKey,
		RequestHash:     requestHash(req),
		Actor:           req.Actor,
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		draft.Code = NewCode()
		res, created, err = s.Store.Create(ctx, draft)
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		break
	}
	if errors.Is(err, ErrCodeTaken) {
		return nil, false, apperr.Internal("could not allocate a reservation code", err)
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		s.Metrics.ReservationCreated(res.Channel, string(res.Status))
		s.afterChange(ctx, res, req.Actor)
		logger.FromContext(ctx).Info("reservation created",
			"reservation_id", res.ID, "code", res.Code, "status", res.Status, "channel", res.Channel)
	}
	return res, created, nil
}

func (s *Service) validateStay(in, out stay.Date) (stay.Range, error) {
	if in.IsZero() || out.IsZero() {
		return stay.Range{}, apperr.Validation("VALIDATION_FAILED", "checkInDate and checkOutDate are required")
	}
	rng := stay.Range{From: in, To: out}
	if rng.Empty() {
		return stay.Range{}, apperr.Validation("INVALID_DATE_RANGE", "checkOutDate must be after checkInDate")
	}
	if in.Before(s.today()) {
		return stay.Range{}, apperr.Validation("CHECK_IN_IN_PAST", "checkInDate is in the past")
	}
	if s.MaxStayNights > 0 && rng.Nights() > s.MaxStayNights {
		return stay.Range{}, apperr.Validation("STAY_TOO_LONG",
			fmt.Sprintf("stays are limited to %d nights", s.MaxStayNights))
	}
	return rng, nil
}

// splitRooms spreads guests over units as evenly as possible, earlier rooms first.
func splitRooms(roomTypeID, ratePlanID string, units, guests int) []Room {
	rooms := make([]Room, units)
	for i := range rooms {
		n := guests / units
		if i < guests%units {
			n++
		}
		rooms[i] = Room{RoomTypeID: roomTypeID, RatePlanID: ratePlanID, GuestsInRoom: n}
	}
	return rooms
}

// requestHash fingerprints the fields that define a booking, so a retried request with
// the same idempotency key can be told apart from a different one.
func requestHash(req CreateRequest) string {
	canonical := struct {
		PropertyID, RoomTypeID, RatePlanID string
		In, Out                            string
		Adults, Children, Rooms            int
		SpecialRequests                    string
		Guest                              Guest
		Channel, CustomerID                string
		Tentative                          bool
	}{
		req.PropertyID, req.RoomTypeID, req.RatePlanID,
		req.CheckInDate.String(), req.CheckOutDate.String(),
		req.Adults, req.Children, req.Rooms,
		strings.TrimSpace(req.SpecialRequests),
		req.Guest,
		req.Channel, req.CustomerID,
		req.Tentative,
	}
	b, _ := json.Marshal(canonical)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type TransitionOptions struct {
	// RoomID requests a specific physical room at check-in.
	RoomID string
	Reason string
	Actor  string
	// Audit also writes an audit_logs row; set for console actions.
	Audit bool
}

// Transition applies action to the reservation. Capacity is re-checked atomically when
// the reservation starts holding inventory again.
func (s *Service) Transition(ctx context.Context, id string, action Action, opts TransitionOptions) (*Reservation, error) {
	res, err := s.Store.Mutate(ctx, id, opts.Actor, func(r *Reservation) (Change, error) {
		from := r.Status
		to, err := Next(from, action)
		if err != nil {
			return Change{}, err
		}
		r.Status = to

		data := map[string]any{"from": from, "to": to, "action": action}
		if opts.Reason != "" {
			data["reason"] = opts.Reason
		}
		if action == ActionCheckIn && opts.RoomID != "" {
			if err := requestRoom(r, opts.RoomID); err != nil {
				return Change{}, err
			}
			data["roomId"] = opts.RoomID
		}
		return Change{
			EventType:   eventType(action),
			Summary:     fmt.Sprintf("Status changed from %s to %s", from, to),
			Data:        data,
			AssignRooms: action == ActionCheckIn,
			Audit:       opts.Audit,
			AuditAction: audit.ActionStatusChanged,
		}, nil
	})
	s.Metrics.Transition(string(action), err)
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, res, opts.Actor)
	logger.FromContext(ctx).Info("reservation transition",
		"reservation_id", res.ID, "code", res.Code, "action", action, "status", res.Status, "actor", opts.Actor)
	return res, nil
}

func requestRoom(r *Reservation, roomID string) error {
	for i := range r.Rooms {
		if r.Rooms[i].RoomID == nil {
			id := roomID
			r.Rooms[i].RoomID = &id
			return nil
		}
	}
	return apperr.Conflict("ROOM_UNAVAILABLE", "every room of this reservation is already assigned")
}

func (s *Service) afterChange(ctx context.Context, res *Reservation, actor string) {
	if s.Availability != nil {
		s.Availability.Invalidate(ctx, res.PropertyID)
	}
	if s.Publisher == nil {
		return
	}
	ev := messaging.ReservationEvent{
		Type:          messaging.RoutingKey(string(res.Status)),
		ReservationID: res.ID,
		Code:          res.Code,
		PropertyID:    res.PropertyID,
		Status:        string(res.Status),
		Channel:       res.Channel,
		CheckInDate:   res.CheckInDate.String(),
		CheckOutDate:  res.CheckOutDate.String(),
		GuestName:     res.Guest.FullName(),
		GuestEmail:    res.Guest.Email,
		Actor:         actor,
		OccurredAt:    res.UpdatedAt,
	}
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn("lifecycle message not published",
			"reservation_id", res.ID, "routing_key", ev.Type, "error", err)
	}
}

// Lookup returns the reservation with code when email matches its primary guest. A wrong
// code and a wrong email are indistinguishable.
func (s *Service) Lookup(ctx context.Context, code, email string) (*Reservation, error) {
	res, err := s.Store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(email), res.Guest.Email) {
		return nil, errNotFound()
	}
	return res, nil
}

// CancelAsGuest cancels by code for the guest whose email matches, or for the customer
// that owns the reservation.
func (s *Service) CancelAsGuest(ctx context.Context, code, email, customerID, actor string) (*Reservation, error) {
	res, err := s.Store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	owner := customerID != "" && res.CustomerID == customerID
	if !owner && !strings.EqualFold(strings.TrimSpace(email), res.Guest.Email) {
		return nil, errNotFound()
	}
	return s.Transition(ctx, res.ID, ActionCancel, TransitionOptions{Actor: actor, Reason: "cancelled by guest"})
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Reservation, error) {
	return s.Store.GetByCode(ctx, code)
}

func (s *Service) Get(ctx context.Context, id string) (*Reservation, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Reservation, int, error) {
	return s.Store.List(ctx, f)
}

func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]Reservation, error) {
	if customerID == "" {
		return []Reservation{}, nil
	}
	items, _, err := s.Store.List(ctx, ListFilter{CustomerID: customerID, Limit: 200})
	return items, err
}

func (s *Service) Events(ctx context.Context, id string) ([]events.Event, error) {
	if _, err := s.Store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.Events(ctx, id)
}

func (s *Service) RecentEvents(ctx context.Context, since time.Time, limit int) ([]events.Event, error) {
	return s.Store.EventsSince(ctx, since, limit)
}

// GuestPatch fields that are present must not be blank, except Phone.
type GuestPatch struct {
	FirstName *string `json:"firstName" validate:"omitnil,required,max=100"`
	LastName  *string `json:"lastName" validate:"omitnil,required,max=100"`
	Email     *string `json:"email" validate:"omitnil,required,email,max=254"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
}

// DetailsPatch edits guest-facing details. Nil fields are left unchanged.
type DetailsPatch struct {
	Guest           *GuestPatch `json:"guest"`
	Adults          *int        `json:"adults" validate:"omitempty,gte=1,lte=20"`
	Children        *int        `json:"children" validate:"omitempty,gte=0,lte=20"`
	SpecialRequests *string     `json:"specialRequests" validate:"omitempty,max=2000"`
}

// trimmed returns p with every present string trimmed, so blank values fail validation
// instead of being stored empty.
func (p DetailsPatch) trimmed() DetailsPatch {
	if p.Guest != nil {
		g := *p.Guest
		g.FirstName = trimPtr(g.FirstName)
		g.LastName = trimPtr(g.LastName)
		g.Email = trimPtr(g.Email)
		g.Phone = trimPtr(g.Phone)
		p.Guest = &g
	}
	p.SpecialRequests = trimPtr(p.SpecialRequests)
	return p
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

// UpdateDetails applies p unless the reservation is terminal (RESERVATION_LOCKED).
func (s *Service) UpdateDetails(ctx context.Context, id string, p DetailsPatch, actor string) (*Reservation, error) {
	p = p.trimmed()
	if err := validation.Struct(p); err != nil {
		return nil, err
	}
	res, err := s.Store.Mutate(ctx, id, actor, func(r *Reservation) (Change, error) {
		if r.Status.Terminal() {
			return Change{}, apperr.Conflict("RESERVATION_LOCKED",
				fmt.Sprintf("a %s reservation can no longer be edited", r.Status))
		}
		changed := map[string]any{}
		if g := p.Guest; g != nil {
			setString(&r.Guest.FirstName, g.FirstName, "guest.firstName", changed)
			setString(&r.Guest.LastName, g.LastName, "guest.lastName", changed)
			setString(&r.Guest.Email, g.Email, "guest.email", changed)
			setString(&r.Guest.Phone, g.Phone, "guest.phone", changed)
			r.Guest.normalize()
		}
		if p.Adults != nil && *p.Adults != r.Adults {
			r.Adults = *p.Adults
			changed["adults"] = r.Adults
		}
		if p.Children != nil && *p.Children != r.Children {
			r.Children = *p.Children
			changed["children"] = r.Children
		}
		setString(&r.SpecialRequests, p.SpecialRequests, "specialRequests", changed)

		if err := s.checkOccupancy(ctx, r); err != nil {
			return Change{}, err
		}
		return Change{
			EventType:   "EDITED",
			Summary:     "Reservation details edited",
			Data:        map[string]any{"changed": changed},
			Audit:       true,
			AuditAction: audit.ActionReservationEdited,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("reservation edited", "reservation_id", res.ID, "code", res.Code, "actor", actor)
	return res, nil
}

func (s *Service) checkOccupancy(ctx context.Context, r *Reservation) error {
	if len(r.Rooms) == 0 {
		return nil
	}
	capacity := 0
	for _, rm := range r.Rooms {
		rt, err := s.Rates.Store.GetRoomType(ctx, rm.RoomTypeID)
		if err != nil {
			return err
		}
		capacity += rt.MaxOccupancy
	}
	if guests := r.Adults + r.Children; guests > capacity {
		return apperr.Validation("OCCUPANCY_EXCEEDED",
			fmt.Sprintf("%d guests exceed the occupancy of the booked rooms (%d)", guests, capacity))
	}
	return nil
}

func setString(dst *string, v *string, field string, changed map[string]any) {
	if v == nil {
		return
	}
	nv := *v
	if nv == *dst {
		return
	}
	*dst = nv
	changed[field] = nv
}

// MarkNoShows moves CONFIRMED reservations whose check-in is more than NoShowGraceDays in
// the past to NO_SHOW. It returns how many were marked.
func (s *Service) MarkNoShows(ctx context.Context) (int, error) {
	cutoff := s.today().AddDays(-s.NoShowGraceDays)
	ids, err := s.Store.DueNoShows(ctx, cutoff, 200)
	if err != nil {
		return 0, err
	}
	marked := 0
	for _, id := range ids {
		_, err := s.Transition(ctx, id, ActionNoShow, TransitionOptions{Actor: "system", Reason: "no-show sweep"})
		switch {
		case err == nil:
			marked++
		case apperr.CodeOf(err) == "INVALID_STATE_TRANSITION":
			// Checked in or cancelled since it was listed.
		default:
			return marked, err
		}
	}
	s.Metrics.NoShowsMarked(marked)
	return marked, nil
}
