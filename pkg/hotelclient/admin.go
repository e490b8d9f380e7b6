package hotelclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Admin is a console client. The session lives in the cookie jar of its HTTP client.
type Admin struct {
	c *Client
}

func NewAdmin(baseURL string) (*Admin, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Admin{c: &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
	}}, nil
}

func (a *Admin) Login(ctx context.Context, email, password string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	_, err := a.c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   map[string]string{"email": email, "password": password},
		out:    &out,
	})
	return out.User, err
}

func (a *Admin) Logout(ctx context.Context) error {
	_, err := a.c.do(ctx, call{method: http.MethodPost, path: "/api/auth/logout"})
	return err
}

func (a *Admin) Me(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	err := a.c.getJSON(ctx, "/api/auth/me", nil, &out)
	return out.User, err
}

type ListOptions struct {
	PropertyID string
	Status     string
	Query      string
	From, To   time.Time
	Limit      int
	Offset     int
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("propertyId", o.PropertyID)
	set("status", o.Status)
	set("q", o.Query)
	if !o.From.IsZero() && !o.To.IsZero() {
		q.Set("from", o.From.Format(DateLayout))
		q.Set("to", o.To.Format(DateLayout))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

func (a *Admin) Reservations(ctx context.Context, opts ListOptions) ([]AdminReservation, int, error) {
	var out struct {
		Items []AdminReservation `json:"items"`
		Total int                `json:"total"`
	}
	err := a.c.getJSON(ctx, "/api/reservations", opts.values(), &out)
	return out.Items, out.Total, err
}

func (a *Admin) Reservation(ctx context.Context, id string) (*AdminReservation, error) {
	var out AdminReservation
	if err := a.c.getJSON(ctx, "/api/reservations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Admin) Events(ctx context.Context, id string) ([]Event, error) {
	var out items[Event]
	err := a.c.getJSON(ctx, "/api/reservations/"+url.PathEscape(id)+"/events", nil, &out)
	return out.Items, err
}

// Book creates a front-desk reservation.
func (a *Admin) Book(ctx context.Context, req CreateReservation, idempotencyKey string) (*Confirmation, error) {
	var out Confirmation
	_, err := a.c.do(ctx, call{
		method:  http.MethodPost,
		path:    "/api/reservations",
		headers: map[string]string{idempotencyKeyHeader: idempotencyKey},
		body:    req,
		out:     &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Console actions as exposed in AdminReservation.AllowedActions.
const (
	ActionConfirm  = "confirm"
	ActionCheckIn  = "check-in"
	ActionCheckOut = "check-out"
	ActionCancel   = "cancel"
	ActionNoShow   = "no-show"
)

var actionPaths = map[string]string{
	ActionConfirm:  "confirm",
	ActionCheckIn:  "checkin",
	ActionCheckOut: "checkout",
	ActionCancel:   "cancel",
	ActionNoShow:   "no-show",
}

type TransitionOptions struct {
	RoomID string `json:"roomId,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Transition runs one lifecycle action and returns the updated reservation.
func (a *Admin) Transition(ctx context.Context, id, action string, opts TransitionOptions) (*AdminReservation, error) {
	path, ok := actionPaths[action]
	if !ok {
		return nil, localError("UNKNOWN_ACTION", fmt.Sprintf("unknown action %q", action))
	}
	var body any
	if opts.RoomID != "" || opts.Reason != "" {
		body = opts
	}
	var out AdminReservation
	_, err := a.c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/reservations/" + url.PathEscape(id) + "/" + path,
		body:   body,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Admin) CheckIn(ctx context.Context, id, roomID string) (*AdminReservation, error) {
	return a.Transition(ctx, id, ActionCheckIn, TransitionOptions{RoomID: roomID})
}

func (a *Admin) CheckOut(ctx context.Context, id string) (*AdminReservation, error) {
	return a.Transition(ctx, id, ActionCheckOut, TransitionOptions{})
}

func (a *Admin) Cancel(ctx context.Context, id, reason string) (*AdminReservation, error) {
	return a.Transition(ctx, id, ActionCancel, TransitionOptions{Reason: reason})
}

// DetailsUpdate edits non-booking metadata. Nil fields are left unchanged.
type DetailsUpdate struct {
	Guest           *GuestUpdate `json:"guest,omitempty"`
	Adults          *int         `json:"adults,omitempty"`
	Children        *int         `json:"children,omitempty"`
	SpecialRequests *string      `json:"specialRequests,omitempty"`
}

type GuestUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

func (a *Admin) Update(ctx context.Context, id string, u DetailsUpdate) (*AdminReservation, error) {
	var out AdminReservation
	_, err := a.c.do(ctx, call{method: http.MethodPut, path: "/api/reservations/" + url.PathEscape(id), body: u, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Admin) Availability(ctx context.Context, propertyID string, from, to time.Time) (*Availability, error) {
	var out Availability
	if err := a.c.getJSON(ctx, "/api/availability", stayQuery(propertyID, from, to), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Notifications returns reservation events after since and the server time to pass as
// since on the next poll.
func (a *Admin) Notifications(ctx context.Context, since time.Time) ([]Event, time.Time, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	var out struct {
		Items      []Event   `json:"items"`
		ServerTime time.Time `json:"serverTime"`
	}
	err := a.c.getJSON(ctx, "/api/notifications", q, &out)
	return out.Items, out.ServerTime, err
}
