package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
)

var _ repository.ProjectRepository = (*ProjectRepo)(nil)

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

const projectSelect = `
SELECT p.id, p.owner_id, p.name, p.description, p.project_type, p.programming_language,
       p.tech_stack, p.status, p.visibility, p.created_at,
       u.id, u.username, u.first_name, u.last_name, u.program, u.created_at
  FROM projects p
  JOIN users u ON u.id = p.owner_id`

func scanProject(row scanner) (*model.Project, error) {
	var p model.Project
	var u model.User
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.ProjectType, &p.ProgrammingLanguage,
		&p.TechStack, &p.Status, &p.Visibility, &p.CreatedAt,
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Program, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	p.Owner = &u
	return &p, nil
}

func (r *ProjectRepo) Create(ctx context.Context, qx repository.Tx, p *model.Project) error {
	const q = `
INSERT INTO projects (id, owner_id, name, description, project_type, programming_language, tech_stack, status, visibility, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	stack := p.TechStack
	if stack == nil {
		stack = []string{}
	}
	if _, err := execWith(ctx, r.pool, qx, q, p.ID, p.OwnerID, p.Name, p.Description, p.ProjectType,
		p.ProgrammingLanguage, stack, p.Status, p.Visibility, p.CreatedAt); err != nil {
		return fmt.Errorf("create project: %w", mapErr(err))
	}
	return nil
}

func (r *ProjectRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Project, error) {
	return scanProject(pickRow(ctx, r.pool, qx, projectSelect+` WHERE p.id=$1;`, id))
}

func (r *ProjectRepo) collect(ctx context.Context, qx repository.Tx, q string, args ...any) ([]*model.Project, error) {
	rows, err := queryRows(ctx, r.pool, qx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepo) ListOwned(ctx context.Context, qx repository.Tx, ownerID string) ([]*model.Project, error) {
	return r.collect(ctx, qx, projectSelect+` WHERE p.owner_id=$1 ORDER BY p.created_at DESC;`, ownerID)
}

// ListMemberOf returns projects where the user holds an active membership.
func (r *ProjectRepo) ListMemberOf(ctx context.Context, qx repository.Tx, userID string) ([]*model.Project, error) {
	q := projectSelect + `
  JOIN project_members pm ON pm.project_id = p.id
 WHERE pm.user_id=$1 AND pm.status='active' AND p.owner_id <> $1
 ORDER BY pm.created_at DESC;`
	return r.collect(ctx, qx, q, userID)
}

func (r *ProjectRepo) FindMember(ctx context.Context, qx repository.Tx, projectID, userID string) (*model.ProjectMember, error) {
	const q = `
SELECT project_id, user_id, role, status, message, created_at
  FROM project_members WHERE project_id=$1 AND user_id=$2;`
	var m model.ProjectMember
	var status string
	if err := pickRow(ctx, r.pool, qx, q, projectID, userID).Scan(
		&m.ProjectID, &m.UserID, &m.Role, &status, &m.Message, &m.CreatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	m.Status = model.MembershipStatus(status)
	return &m, nil
}

func (r *ProjectRepo) UpsertMember(ctx context.Context, qx repository.Tx, m *model.ProjectMember) error {
	const q = `
INSERT INTO project_members (project_id, user_id, role, status, message, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (project_id, user_id) DO UPDATE SET
  role = EXCLUDED.role,
  status = EXCLUDED.status,
  message = EXCLUDED.message,
  created_at = EXCLUDED.created_at;`
	if _, err := execWith(ctx, r.pool, qx, q, m.ProjectID, m.UserID, m.Role, string(m.Status), m.Message, m.CreatedAt); err != nil {
		return fmt.Errorf("upsert member: %w", mapErr(err))
	}
	return nil
}
