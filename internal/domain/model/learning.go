package model

import "time"

type CareerPath struct {
	ID          int64
	Name        string
	Description string
	Icon        string
	Difficulty  string
	ModuleCount int
	CreatedAt   time.Time
}

func (p *CareerPath) Summary() map[string]any {
	return map[string]any{
		"id":           p.ID,
		"name":         p.Name,
		"description":  p.Description,
		"icon":         p.Icon,
		"module_count": p.ModuleCount,
	}
}

type LearningModule struct {
	ID          int64
	PathID      int64
	PathName    string
	Title       string
	Description string
	Order       int
}

func (m *LearningModule) Summary() map[string]any {
	return map[string]any{
		"id":          m.ID,
		"title":       m.Title,
		"description": m.Description,
		"path_name":   m.PathName,
		"order":       m.Order,
	}
}

type EnrollmentStatus string

const (
	EnrollmentInProgress EnrollmentStatus = "in_progress"
	EnrollmentCompleted  EnrollmentStatus = "completed"
)

// Enrollment is a user's progress record on a career path.
type Enrollment struct {
	ID               int64
	UserID           string
	PathID           int64
	PathName         string
	PathDescription  string
	Status           EnrollmentStatus
	CompletedModules int
	TotalModules     int
	CreatedAt        time.Time
}

func (e *Enrollment) Summary() map[string]any {
	return map[string]any{
		"id":                e.PathID,
		"name":              e.PathName,
		"description":       e.PathDescription,
		"status":            string(e.Status),
		"completed_modules": e.CompletedModules,
		"started_at":        e.CreatedAt,
	}
}
