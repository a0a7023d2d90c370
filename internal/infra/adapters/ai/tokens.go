package ai

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"codehub-mentor/internal/domain/ports/adapter"
)

// TokenCounter estimates token usage when a provider does not report it.
// With an empty encoding it counts words.
type TokenCounter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
}

func NewTokenCounter(encoding string) *TokenCounter {
	return &TokenCounter{encoding: encoding}
}

func (c *TokenCounter) load() *tiktoken.Tiktoken {
	if c == nil || c.encoding == "" {
		return nil
	}
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err == nil {
			c.enc = enc
		}
	})
	return c.enc
}

// Count returns the token estimate for a text.
func (c *TokenCounter) Count(text string) int {
	if enc := c.load(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(strings.Fields(text))
}

// CountMessages sums Count over message contents.
func (c *TokenCounter) CountMessages(messages []adapter.Message) int {
	n := 0
	for _, m := range messages {
		n += c.Count(m.Content)
	}
	return n
}
