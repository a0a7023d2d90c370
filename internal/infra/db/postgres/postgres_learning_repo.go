package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
)

var _ repository.LearningRepository = (*LearningRepo)(nil)

type LearningRepo struct {
	pool *pgxpool.Pool
}

func NewLearningRepo(pool *pgxpool.Pool) *LearningRepo {
	return &LearningRepo{pool: pool}
}

const pathSelect = `
SELECT p.id, p.name, p.description, p.icon, p.difficulty,
       (SELECT COUNT(*) FROM learning_modules m WHERE m.path_id = p.id),
       p.created_at
  FROM career_paths p`

func scanPath(row scanner) (*model.CareerPath, error) {
	var p model.CareerPath
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Icon, &p.Difficulty, &p.ModuleCount, &p.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *LearningRepo) collectPaths(ctx context.Context, qx repository.Tx, q string, args ...any) ([]*model.CareerPath, error) {
	rows, err := queryRows(ctx, r.pool, qx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.CareerPath
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *LearningRepo) FindPath(ctx context.Context, qx repository.Tx, id int64) (*model.CareerPath, error) {
	return scanPath(pickRow(ctx, r.pool, qx, pathSelect+` WHERE p.id=$1;`, id))
}

// FindPathByName prefers an exact (case-insensitive) match, then a substring.
func (r *LearningRepo) FindPathByName(ctx context.Context, qx repository.Tx, name string) (*model.CareerPath, error) {
	q := pathSelect + `
 WHERE p.name ILIKE '%' || $1 || '%'
 ORDER BY (lower(p.name) = lower($1)) DESC, p.id
 LIMIT 1;`
	return scanPath(pickRow(ctx, r.pool, qx, q, name))
}

func (r *LearningRepo) SearchPaths(ctx context.Context, qx repository.Tx, query string, limit int) ([]*model.CareerPath, error) {
	q := pathSelect + `
 WHERE p.name ILIKE '%' || $1 || '%' OR p.description ILIKE '%' || $1 || '%'
 ORDER BY p.id
 LIMIT $2;`
	return r.collectPaths(ctx, qx, q, query, limit)
}

func (r *LearningRepo) ListPaths(ctx context.Context, qx repository.Tx, limit int) ([]*model.CareerPath, error) {
	return r.collectPaths(ctx, qx, pathSelect+` ORDER BY p.id LIMIT $1;`, limit)
}

func (r *LearningRepo) SearchModules(ctx context.Context, qx repository.Tx, query string, limit int) ([]*model.LearningModule, error) {
	const q = `
SELECT m.id, m.path_id, p.name, m.title, m.description, m.order_index
  FROM learning_modules m
  JOIN career_paths p ON p.id = m.path_id
 WHERE m.title ILIKE '%' || $1 || '%' OR m.description ILIKE '%' || $1 || '%'
 ORDER BY m.path_id, m.order_index
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, qx, q, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.LearningModule
	for rows.Next() {
		var m model.LearningModule
		if err := rows.Scan(&m.ID, &m.PathID, &m.PathName, &m.Title, &m.Description, &m.Order); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// CreateEnrollment relies on the (user_id, path_id) unique constraint; a
// second enrollment inserts nothing and reports ErrAlreadyExists.
func (r *LearningRepo) CreateEnrollment(ctx context.Context, qx repository.Tx, e *model.Enrollment) error {
	const q = `
INSERT INTO user_progress (user_id, path_id, status, completed_modules)
VALUES ($1,$2,$3,0)
ON CONFLICT (user_id, path_id) DO NOTHING
RETURNING id, created_at;`
	if e.Status == "" {
		e.Status = model.EnrollmentInProgress
	}
	err := pickRow(ctx, r.pool, qx, q, e.UserID, e.PathID, string(e.Status)).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if mapErr(err) == domain.ErrNotFound {
			// no row returned: conflict swallowed by DO NOTHING
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create enrollment: %w", mapErr(err))
	}
	return nil
}

const enrollmentSelect = `
SELECT up.id, up.user_id, up.path_id, p.name, p.description, up.status, up.completed_modules,
       (SELECT COUNT(*) FROM learning_modules m WHERE m.path_id = p.id),
       up.created_at
  FROM user_progress up
  JOIN career_paths p ON p.id = up.path_id`

func scanEnrollment(row scanner) (*model.Enrollment, error) {
	var e model.Enrollment
	var status string
	if err := row.Scan(&e.ID, &e.UserID, &e.PathID, &e.PathName, &e.PathDescription, &status,
		&e.CompletedModules, &e.TotalModules, &e.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	e.Status = model.EnrollmentStatus(status)
	return &e, nil
}

func (r *LearningRepo) FindEnrollment(ctx context.Context, qx repository.Tx, userID string, pathID int64) (*model.Enrollment, error) {
	return scanEnrollment(pickRow(ctx, r.pool, qx, enrollmentSelect+` WHERE up.user_id=$1 AND up.path_id=$2;`, userID, pathID))
}

func (r *LearningRepo) DeleteEnrollment(ctx context.Context, qx repository.Tx, userID string, pathID int64) error {
	tag, err := execWith(ctx, r.pool, qx, `DELETE FROM user_progress WHERE user_id=$1 AND path_id=$2;`, userID, pathID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LearningRepo) ListEnrollments(ctx context.Context, qx repository.Tx, userID string) ([]*model.Enrollment, error) {
	rows, err := queryRows(ctx, r.pool, qx, enrollmentSelect+` WHERE up.user_id=$1 ORDER BY up.created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
