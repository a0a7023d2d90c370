package model

import "time"

const (
	ProjectStatusPlanning    = "planning"
	ProjectVisibilityPrivate = "private"
	ProjectTypeWebApp        = "web_application"
	ProjectLanguagePython    = "python"
)

type Project struct {
	ID                  string
	OwnerID             string
	Owner               *User
	Name                string
	Description         string
	ProjectType         string
	ProgrammingLanguage string
	TechStack           []string
	Status              string
	Visibility          string
	CreatedAt           time.Time
}

func (p *Project) Summary() map[string]any {
	out := map[string]any{
		"id":                   p.ID,
		"name":                 p.Name,
		"description":          p.Description,
		"project_type":         p.ProjectType,
		"programming_language": p.ProgrammingLanguage,
		"tech_stack":           p.TechStack,
		"status":               p.Status,
		"visibility":           p.Visibility,
		"created_at":           p.CreatedAt,
	}
	if p.Owner != nil {
		out["owner"] = p.Owner.Summary()
	}
	return out
}

type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipActive   MembershipStatus = "active"
	MembershipRejected MembershipStatus = "rejected"
)

type ProjectMember struct {
	ProjectID string
	UserID    string
	Role      string
	Status    MembershipStatus
	Message   string
	CreatedAt time.Time
}
