package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"freelancehub/internal/model"
)

type userRepo struct{ q querier }

const userColumns = `id, email, password_hash, name, role, verified, profile, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Verified, &u.Profile, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r userRepo) Create(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (email, password_hash, name, role, verified, profile)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.q.QueryRow(ctx, query, u.Email, u.PasswordHash, u.Name, u.Role, u.Verified, u.Profile).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r userRepo) Update(ctx context.Context, u *model.User) error {
	query := `
        UPDATE users SET name = $2, profile = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	return mapErr(r.q.QueryRow(ctx, query, u.ID, u.Name, u.Profile).Scan(&u.UpdatedAt))
}

func (r userRepo) SetVerified(ctx context.Context, id int64) error {
	return expectOne(r.q.Exec(ctx, `UPDATE users SET verified = TRUE, updated_at = NOW() WHERE id = $1`, id))
}
