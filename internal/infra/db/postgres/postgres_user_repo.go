package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo reads platform accounts. Accounts are created by the platform's
// auth service, never here.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, username, first_name, last_name, program, created_at`

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Program, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.User, error) {
	return scanUser(pickRow(ctx, r.pool, qx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id))
}

func (r *UserRepo) FindByUsername(ctx context.Context, qx repository.Tx, username string) (*model.User, error) {
	return scanUser(pickRow(ctx, r.pool, qx, `SELECT `+userColumns+` FROM users WHERE lower(username)=lower($1);`, username))
}

// Search matches username or names case-insensitively, excluding one user.
func (r *UserRepo) Search(ctx context.Context, qx repository.Tx, query, excludeID string, limit int) ([]*model.User, error) {
	const q = `
SELECT ` + userColumns + ` FROM users
 WHERE id <> $2
   AND (username ILIKE '%' || $1 || '%' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%')
 ORDER BY username
 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, qx, q, query, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
