package hotelclient

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SignInRequired is returned by Submit when the server wants a signed-in customer.
// ReturnPath brings the guest back to the same booking afterwards.
type SignInRequired struct {
	ReturnPath string
	Err        error
}

func (e *SignInRequired) Error() string { return "sign in required to complete the booking" }
func (e *SignInRequired) Unwrap() error { return e.Err }

// BookingSession collects one reservation and submits it. It is not safe for concurrent use.
type BookingSession struct {
	Client *Client
	// ReturnBase is the storefront path the sign-in detour returns to. Defaults to "/book".
	ReturnBase string

	PropertyID      string
	RoomTypeID      string
	CheckIn         time.Time
	CheckOut        time.Time
	Rooms           int
	Adults          int
	Children        int
	SpecialRequests string
	Guest           Guest

	plans       []RatePlan
	ratePlanID  string
	key         string
	fingerprint string
}

func NewBookingSession(c *Client, propertyID string) *BookingSession {
	return &BookingSession{Client: c, PropertyID: propertyID, Rooms: 1, Adults: 1}
}

// SelectRoomType changes the room type. Rate plans fetched for another room type are dropped.
func (s *BookingSession) SelectRoomType(roomTypeID string) {
	if roomTypeID != s.RoomTypeID {
		s.RoomTypeID = roomTypeID
		s.invalidate()
	}
}

// SetDates changes the stay. Rate plans fetched for other dates are dropped.
func (s *BookingSession) SetDates(checkIn, checkOut time.Time) {
	checkIn, checkOut = day(checkIn), day(checkOut)
	if !checkIn.Equal(s.CheckIn) || !checkOut.Equal(s.CheckOut) {
		s.CheckIn, s.CheckOut = checkIn, checkOut
		s.invalidate()
	}
}

func (s *BookingSession) SetRooms(n int) {
	if n != s.Rooms {
		s.Rooms = n
		s.invalidate()
	}
}

func (s *BookingSession) invalidate() {
	s.plans = nil
	s.ratePlanID = ""
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RatePlans fetches the plans eligible for the current room type and dates and makes them
// the only selectable ones.
func (s *BookingSession) RatePlans(ctx context.Context) ([]RatePlan, error) {
	if err := s.validateStay(); err != nil {
		return nil, err
	}
	if s.RoomTypeID == "" {
		return nil, localError("ROOM_TYPE_REQUIRED", "select a room type")
	}
	plans, err := s.Client.RatePlans(ctx, s.PropertyID, s.RoomTypeID, s.CheckIn, s.CheckOut, s.Rooms)
	if err != nil {
		return nil, err
	}
	s.plans = plans
	if s.ratePlanID != "" && s.plan(s.ratePlanID) == nil {
		s.ratePlanID = ""
	}
	return plans, nil
}

func (s *BookingSession) plan(id string) *RatePlan {
	for i := range s.plans {
		if s.plans[i].ID == id {
			return &s.plans[i]
		}
	}
	return nil
}

// SelectRatePlan accepts only a plan from the last RatePlans result.
func (s *BookingSession) SelectRatePlan(id string) error {
	if s.plan(id) == nil {
		return localError("RATE_PLAN_NOT_ELIGIBLE", "rate plan is not offered for this room type and dates")
	}
	s.ratePlanID = id
	return nil
}

// SelectedRatePlan returns nil when no plan is selected.
func (s *BookingSession) SelectedRatePlan() *RatePlan {
	if s.ratePlanID == "" {
		return nil
	}
	return s.plan(s.ratePlanID)
}

func localError(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func (s *BookingSession) validateStay() error {
	if s.PropertyID == "" {
		return localError("PROPERTY_REQUIRED", "property is required")
	}
	if s.CheckIn.IsZero() || s.CheckOut.IsZero() {
		return localError("DATES_REQUIRED", "check-in and check-out dates are required")
	}
	if !s.CheckOut.After(s.CheckIn) {
		return localError("INVALID_DATE_RANGE", "check-out must be after check-in")
	}
	return nil
}

// Validate runs every local check Submit performs before it calls the server.
func (s *BookingSession) Validate() error {
	if err := s.validateStay(); err != nil {
		return err
	}
	if s.RoomTypeID == "" {
		return localError("ROOM_TYPE_REQUIRED", "select a room type")
	}
	if s.SelectedRatePlan() == nil {
		return localError("RATE_PLAN_REQUIRED", "select a rate plan")
	}
	if s.Adults < 1 {
		return localError("VALIDATION_FAILED", "at least one adult is required")
	}
	if s.Children < 0 {
		return localError("VALIDATION_FAILED", "children must not be negative")
	}
	var missing []string
	if strings.TrimSpace(s.Guest.FirstName) == "" {
		missing = append(missing, "first name")
	}
	if strings.TrimSpace(s.Guest.LastName) == "" {
		missing = append(missing, "last name")
	}
	if !strings.Contains(strings.TrimSpace(s.Guest.Email), "@") {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return localError("VALIDATION_FAILED", "guest "+strings.Join(missing, ", ")+" required")
	}
	return nil
}

func (s *BookingSession) request() CreateReservation {
	return CreateReservation{
		PropertyID:      s.PropertyID,
		RoomTypeID:      s.RoomTypeID,
		RatePlanID:      s.ratePlanID,
		CheckInDate:     s.CheckIn.Format(DateLayout),
		CheckOutDate:    s.CheckOut.Format(DateLayout),
		Adults:          s.Adults,
		Children:        s.Children,
		Rooms:           s.Rooms,
		SpecialRequests: strings.TrimSpace(s.SpecialRequests),
		Guest: Guest{
			FirstName: strings.TrimSpace(s.Guest.FirstName),
			LastName:  strings.TrimSpace(s.Guest.LastName),
			Email:     strings.TrimSpace(s.Guest.Email),
			Phone:     strings.TrimSpace(s.Guest.Phone),
		},
	}
}

// IdempotencyKey is the key the next Submit of the current draft sends. It stays the same
// across retries and changes when the draft changes.
func (s *BookingSession) IdempotencyKey() string {
	b, _ := json.Marshal(s.request())
	fp := fmt.Sprintf("%x", sha256.Sum256(b))
	if s.key == "" || fp != s.fingerprint {
		s.key = uuid.NewString()
		s.fingerprint = fp
	}
	return s.key
}

// ReturnPath encodes the booking parameters for the sign-in detour.
func (s *BookingSession) ReturnPath() string {
	base := s.ReturnBase
	if base == "" {
		base = "/book"
	}
	q := url.Values{}
	q.Set("propertyId", s.PropertyID)
	if s.RoomTypeID != "" {
		q.Set("roomTypeId", s.RoomTypeID)
	}
	if !s.CheckIn.IsZero() {
		q.Set("checkIn", s.CheckIn.Format(DateLayout))
	}
	if !s.CheckOut.IsZero() {
		q.Set("checkOut", s.CheckOut.Format(DateLayout))
	}
	if s.Rooms > 1 {
		q.Set("rooms", strconv.Itoa(s.Rooms))
	}
	q.Set("adults", strconv.Itoa(s.Adults))
	if s.Children > 0 {
		q.Set("children", strconv.Itoa(s.Children))
	}
	if s.ratePlanID != "" {
		q.Set("ratePlanId", s.ratePlanID)
	}
	return base + "?" + q.Encode()
}

// Submit validates locally and sends a single creation call.
func (s *BookingSession) Submit(ctx context.Context) (*Confirmation, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	conf, err := s.Client.CreateReservation(ctx, s.request(), s.IdempotencyKey())
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized {
			return nil, &SignInRequired{ReturnPath: s.ReturnPath(), Err: err}
		}
		return nil, err
	}
	return conf, nil
}

// RestoreBookingSession rebuilds a session from a ReturnPath query. The rate plan choice
// is kept pending until RatePlans confirms it is still offered.
func RestoreBookingSession(c *Client, query url.Values) (*BookingSession, error) {
	s := NewBookingSession(c, query.Get("propertyId"))
	s.RoomTypeID = query.Get("roomTypeId")
	if v := query.Get("checkIn"); v != "" {
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return nil, localError("INVALID_DATE", "checkIn is not a date")
		}
		s.CheckIn = t
	}
	if v := query.Get("checkOut"); v != "" {
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return nil, localError("INVALID_DATE", "checkOut is not a date")
		}
		s.CheckOut = t
	}
	for key, dst := range map[string]*int{"rooms": &s.Rooms, "adults": &s.Adults, "children": &s.Children} {
		if v := query.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, localError("VALIDATION_FAILED", key+" is not a number")
			}
			*dst = n
		}
	}
	s.ratePlanID = query.Get("ratePlanId")
	return s, nil
}
