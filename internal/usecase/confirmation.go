package usecase

import (
	"strings"
	"unicode"
)

// Confirmation is the reading of a reply to a pending action proposal.
type Confirmation int

const (
	ConfirmUnclear Confirmation = iota
	ConfirmYes
	ConfirmNo
)

func (c Confirmation) String() string {
	switch c {
	case ConfirmYes:
		return "confirmed"
	case ConfirmNo:
		return "declined"
	}
	return "unclear"
}

var affirmatives = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "do it",
	"confirm", "proceed", "go ahead", "continue", "agree",
}

var negatives = []string{"no", "nope", "cancel", "stop", "dont", "don't", "abort", "never"}

// ExtractConfirmation matches whole words only, so "know" is not "no" and
// "okay-ish" still reads as "okay". Negatives win over affirmatives: "no,
// don't do it" is a refusal.
func ExtractConfirmation(message string) Confirmation {
	words := strings.FieldsFunc(strings.ToLower(normalizeApostrophes(message)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	if len(words) == 0 {
		return ConfirmUnclear
	}
	padded := " " + strings.Join(words, " ") + " "
	has := func(list []string) bool {
		for _, w := range list {
			if strings.Contains(padded, " "+w+" ") {
				return true
			}
		}
		return false
	}
	switch {
	case has(negatives):
		return ConfirmNo
	case has(affirmatives):
		return ConfirmYes
	}
	return ConfirmUnclear
}

func normalizeApostrophes(s string) string {
	return strings.NewReplacer("’", "'", "‘", "'", "`", "'").Replace(s)
}
