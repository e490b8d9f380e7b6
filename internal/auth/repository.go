package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"hotelsuite/internal/apperr"
	"hotelsuite/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, password_hash, role, first_name, last_name, created_at`

func (r *Repository) Create(ctx context.Context, u User) (*User, error) {
	const q = `
INSERT INTO users (email, password_hash, role, first_name, last_name)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns
	var out User
	err := r.db.QueryRow(ctx, q, normalizeEmail(u.Email), u.PasswordHash, string(u.Role), u.FirstName, u.LastName).Scan(
		&out.ID, &out.Email, &out.PasswordHash, &out.Role, &out.FirstName, &out.LastName, &out.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, errEmailTaken()
		}
		return nil, err
	}
	return &out, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
}

func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("user not found")
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *Repository) getOne(ctx context.Context, q string, arg any) (*User, error) {
	var u User
	if err := r.db.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName, &u.CreatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &u, nil
}
