package api

import (
	"context"
	"time"
)

type ctxKey string

const (
	ctxKeyCustomer ctxKey = "customer"
	ctxKeyStaff    ctxKey = "staff"
)

// Principal is an authenticated caller, either a storefront customer or a console user.
type Principal struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
	ExpiresAt time.Time
}

func WithCustomer(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKeyCustomer, p)
}

func CustomerFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKeyCustomer).(*Principal)
	return p
}

func WithStaff(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKeyStaff, p)
}

func StaffFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKeyStaff).(*Principal)
	return p
}

// Actor names the caller for audit and event rows.
func Actor(ctx context.Context) string {
	if p := StaffFromContext(ctx); p != nil {
		return "staff:" + p.Email
	}
	if p := CustomerFromContext(ctx); p != nil {
		return "customer:" + p.Email
	}
	return "guest"
}
