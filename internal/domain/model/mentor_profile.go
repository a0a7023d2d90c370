package model

import "time"

// MentorProfile holds per-user provider preference and usage counters.
type MentorProfile struct {
	UserID            string
	PreferredModel    string
	TotalInteractions int
	TotalTokensUsed   int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewMentorProfile(userID string) *MentorProfile {
	now := time.Now().UTC()
	return &MentorProfile{UserID: userID, CreatedAt: now, UpdatedAt: now}
}

// RecordExchange bumps counters after a completed chat turn.
func (p *MentorProfile) RecordExchange(tokens int) {
	p.TotalInteractions++
	if tokens > 0 {
		p.TotalTokensUsed += tokens
	}
	p.UpdatedAt = time.Now().UTC()
}
