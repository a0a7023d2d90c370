//go:build !integration

package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classification struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Parameters map[string]any `json:"parameters"`
}

func TestDecode_MalformedPatterns(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"plain", `{"intent": "search", "confidence": 0.9, "parameters": {}}`},
		{"json fence", "```json\n{\"intent\": \"search\", \"confidence\": 0.9}\n```"},
		{"bare fence", "```\n{\"intent\": \"search\", \"confidence\": 0.9}\n```"},
		{"prose before and after", "Sure! Here is the classification:\n{\"intent\": \"search\", \"confidence\": 0.9}\nLet me know if you need more."},
		{"trailing commas", `{"intent": "search", "confidence": 0.9, "parameters": {"topic": "go",},}`},
		{"smart quotes", "{“intent”: “search”, “confidence”: 0.9}"},
		{"bom", "\ufeff{\"intent\": \"search\", \"confidence\": 0.9}"},
		{"braces inside strings", `{"intent": "search", "confidence": 0.9, "parameters": {"search_query": "what is {x}"}}`},
		{"escaped quote in string", `{"intent": "search", "confidence": 0.9, "parameters": {"topic": "say \"hi\" }"}} trailing`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c classification
			require.NoError(t, Decode(tc.raw, &c))
			assert.Equal(t, "search", c.Intent)
			assert.InDelta(t, 0.9, c.Confidence, 1e-9)
		})
	}
}

func TestExtract_KeepsCommasAndQuotesInsideStrings(t *testing.T) {
	b, err := Extract(`{"content": "a, }b “quoted”", "tags": ["x",]}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content": "a, }b “quoted”", "tags": ["x"]}`, string(b))
}

func TestExtract_Failures(t *testing.T) {
	_, err := Extract("   ")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = Extract("I cannot help with that.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = Extract(`{"intent": "search"`)
	assert.ErrorIs(t, err, ErrUnbalanced)

	_, err = Extract(`{intent: search}`)
	assert.Error(t, err)
}
