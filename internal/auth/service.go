package auth

import (
	"context"
	"fmt"
	"time"

	"hotelsuite/internal/api"
	"hotelsuite/internal/apperr"
	"hotelsuite/internal/audit"
	"hotelsuite/internal/logger"
	"hotelsuite/internal/validation"
)

type Service struct {
	Users   Users
	Tokens  Tokens
	Revoker Revoker
	Audit   audit.Recorder

	CustomerTTL time.Duration
	AdminTTL    time.Duration
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is an issued token and when it stops being accepted.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`

	id string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperr.Validation("VALIDATION_FAILED", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Internal("could not create account", err)
	}
	u, err := s.Users.Create(ctx, User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         RoleCustomer,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("customer registered", "user_id", u.ID)
	return s.issue(u, AudienceStorefront, s.CustomerTTL)
}

// Login authenticates a storefront customer. Staff accounts may also book as customers.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	u, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(u, AudienceStorefront, s.CustomerTTL)
}

// StaffLogin authenticates a console user and records the attempt in the audit log.
func (s *Service) StaffLogin(ctx context.Context, req LoginRequest) (*Session, error) {
	u, err := s.authenticate(ctx, req)
	if err == nil && !u.Role.Staff() {
		err = apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		s.record(ctx, audit.ActionStaffLoginFailed, "staff:"+normalizeEmail(req.Email), nil)
		return nil, err
	}
	sess, err := s.issue(u, AudienceConsole, s.AdminTTL)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionStaffLogin, "staff:"+u.Email, map[string]any{"sessionId": sess.id})
	return sess, nil
}

// StaffLogout revokes the session so the cookie stops working before it expires.
func (s *Service) StaffLogout(ctx context.Context, p *api.Principal) error {
	if p == nil {
		return nil
	}
	if s.Revoker != nil {
		if err := s.Revoker.Revoke(ctx, p.SessionID, p.ExpiresAt); err != nil {
			return apperr.Internal("could not end session", err)
		}
	}
	s.record(ctx, audit.ActionStaffLogout, "staff:"+p.Email, map[string]any{"sessionId": p.SessionID})
	return nil
}

func (s *Service) Me(ctx context.Context, p *api.Principal) (*User, error) {
	if p == nil {
		return nil, apperr.Unauthorized("not signed in")
	}
	return s.Users.GetByID(ctx, p.UserID)
}

// BootstrapAdmin creates the first console account when no user with email exists.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u, err := s.Users.Create(ctx, User{Email: email, PasswordHash: hash, Role: RoleAdmin, FirstName: "Hotel", LastName: "Admin"})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("bootstrap admin created", "user_id", u.ID, "email", u.Email)
	return nil
}

func (s *Service) authenticate(ctx context.Context, req LoginRequest) (*User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, req.Password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return u, nil
}

func (s *Service) issue(u *User, audience string, ttl time.Duration) (*Session, error) {
	token, claims, err := s.Tokens.Issue(*u, audience, ttl)
	if err != nil {
		return nil, apperr.Internal("could not issue token", err)
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u, id: claims.ID}, nil
}

func (s *Service) record(ctx context.Context, action, actor string, metadata any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, nil, action, actor, metadata); err != nil {
		logger.FromContext(ctx).Warn("audit record failed", "action", action, "error", err)
	}
}
