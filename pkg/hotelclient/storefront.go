package hotelclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	idempotencyKeyHeader   = "Idempotency-Key"
	idempotentReplayHeader = "Idempotent-Replayed"
)

func stayQuery(propertyID string, from, to time.Time) url.Values {
	q := url.Values{}
	q.Set("propertyId", propertyID)
	q.Set("from", from.Format(DateLayout))
	q.Set("to", to.Format(DateLayout))
	return q
}

func (c *Client) RoomTypes(ctx context.Context, propertyID string) ([]RoomType, error) {
	var out items[RoomType]
	err := c.getJSON(ctx, "/public/room-types", url.Values{"propertyId": {propertyID}}, &out)
	return out.Items, err
}

func (c *Client) SearchRoomTypes(ctx context.Context, propertyID, query string) ([]RoomType, error) {
	var out items[RoomType]
	err := c.getJSON(ctx, "/public/room-types/search", url.Values{"propertyId": {propertyID}, "q": {query}}, &out)
	return out.Items, err
}

// Availability fetches the matrix for [from, to). roomTypeID may be empty.
func (c *Client) Availability(ctx context.Context, propertyID, roomTypeID string, from, to time.Time) (*Availability, error) {
	q := stayQuery(propertyID, from, to)
	if roomTypeID != "" {
		q.Set("roomTypeId", roomTypeID)
	}
	var out Availability
	if err := c.getJSON(ctx, "/public/availability", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RatePlans(ctx context.Context, propertyID, roomTypeID string, from, to time.Time, rooms int) ([]RatePlan, error) {
	q := stayQuery(propertyID, from, to)
	q.Set("roomTypeId", roomTypeID)
	if rooms > 1 {
		q.Set("rooms", strconv.Itoa(rooms))
	}
	var out items[RatePlan]
	err := c.getJSON(ctx, "/public/rate-plans", q, &out)
	return out.Items, err
}

type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates a customer account and keeps its token in the token store.
func (c *Client) Register(ctx context.Context, reg Registration) (*Session, error) {
	return c.authenticate(ctx, "/public/auth/register", reg)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/public/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) Logout() {
	if c.Tokens != nil {
		c.Tokens.Clear()
	}
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*Session, error) {
	var out Session
	if _, err := c.do(ctx, call{method: http.MethodPost, path: path, body: body, out: &out}); err != nil {
		return nil, err
	}
	if c.Tokens != nil {
		c.Tokens.Set(out.Token, out.ExpiresAt)
	}
	return &out, nil
}

// CreateReservation sends one creation call under idempotencyKey.
func (c *Client) CreateReservation(ctx context.Context, req CreateReservation, idempotencyKey string) (*Confirmation, error) {
	var out Confirmation
	resp, err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    "/public/reservations",
		headers: map[string]string{idempotencyKeyHeader: idempotencyKey},
		body:    req,
		out:     &out,
	})
	if err != nil {
		return nil, err
	}
	out.Replayed = resp.Header.Get(idempotentReplayHeader) == "true"
	return &out, nil
}

func (c *Client) MyReservations(ctx context.Context) ([]Reservation, error) {
	var out items[Reservation]
	err := c.getJSON(ctx, "/public/reservations/me", nil, &out)
	return out.Items, err
}

// Lookup finds a reservation by code and the guest email it was booked with.
func (c *Client) Lookup(ctx context.Context, code, email string) (*Reservation, error) {
	var out Reservation
	if err := c.getJSON(ctx, "/public/reservations/"+url.PathEscape(code), url.Values{"email": {email}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, code, email string) (*Reservation, error) {
	var out Reservation
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/public/reservations/" + url.PathEscape(code) + "/cancel",
		query:  url.Values{"email": {email}},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
