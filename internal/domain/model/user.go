package model

import (
	"strings"
	"time"
)

// User is the platform account an action acts for or on.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Program   string
	CreatedAt time.Time
}

func (u *User) FullName() string {
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Username
}

// Summary is the user shape embedded in action payloads.
func (u *User) Summary() map[string]any {
	return map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"full_name": u.FullName(),
	}
}
