package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hotelsuite/internal/apperr"
)

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RoleFrontDesk Role = "front_desk"
)

// Staff roles may sign in to the console.
func (r Role) Staff() bool { return r == RoleAdmin || r == RoleFrontDesk }

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Users interface {
	Create(ctx context.Context, u User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func errEmailTaken() error {
	return apperr.Conflict("EMAIL_TAKEN", "an account with this email already exists")
}

// MemoryUsers backs the memory store driver.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byID: map[string]User{}, byEmail: map[string]string{}}
}

func (m *MemoryUsers) Create(_ context.Context, u User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	if _, ok := m.byEmail[u.Email]; ok {
		return nil, errEmailTaken()
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return &u, nil
}

func (m *MemoryUsers) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	u := m.byID[id]
	return &u, nil
}

func (m *MemoryUsers) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return &u, nil
}
