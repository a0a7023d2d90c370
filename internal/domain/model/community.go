package model

import (
	"strings"
	"time"
)

type Post struct {
	ID            int64
	UserID        string
	Author        *User
	Content       string
	Hashtags      []string
	LikesCount    int
	CommentsCount int
	CreatedAt     time.Time
}

func (p *Post) Summary() map[string]any {
	out := map[string]any{
		"id":             p.ID,
		"content":        p.Content,
		"hashtags":       p.Hashtags,
		"likes_count":    p.LikesCount,
		"comments_count": p.CommentsCount,
		"created_at":     p.CreatedAt,
	}
	if p.Author != nil {
		out["user"] = map[string]any{"id": p.Author.ID, "username": p.Author.Username}
	}
	return out
}

type Hashtag struct {
	ID         int64
	Name       string
	UsageCount int
}

// NormalizeHashtags strips leading '#', trims, lowercases and dedups tags, keeping
// first-seen order. Empty tags are dropped.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		clean := strings.ToLower(strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#")))
		if clean == "" {
			continue
		}
		if _, dup := seen[clean]; dup {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}

type Comment struct {
	ID        int64
	PostID    int64
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

type FollowStatus string

const (
	FollowPending  FollowStatus = "pending"
	FollowAccepted FollowStatus = "accepted"
	FollowRejected FollowStatus = "rejected"
)

type Follow struct {
	FollowerID  string
	FollowingID string
	Status      FollowStatus
	CreatedAt   time.Time
}
