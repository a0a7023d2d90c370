package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/adapter"
	"codehub-mentor/internal/infra/llmjson"
	"codehub-mentor/internal/infra/logging"
)

const (
	// actionConfidenceFloor gates the write intents; below it the message is
	// answered as a general question.
	actionConfidenceFloor = 0.80
	rescueConfidenceBelow = 0.6
	classifierHistory     = 3
	defaultConfidence     = 0.7
)

// Classification sources, used as metric labels.
const (
	sourceLLM      = "llm"
	sourceKeywords = "keyword_fallback"
	sourceRescue   = "keyword_rescue"
	sourceError    = "error"
	sourcePending  = "pending"
)

var vagueHints = []string{"help", "what", "how", "show me", "tell me", "explain", "can you", "could you"}

var creationVerbs = []string{"create", "make", "build", "start", "develop"}

var mentionRe = regexp.MustCompile(`@(\w+)`)

type IntentClassifier struct {
	gen adapter.TextGenerator
	log *zerolog.Logger
}

func NewIntentClassifier(gen adapter.TextGenerator, log *zerolog.Logger) *IntentClassifier {
	return &IntentClassifier{gen: gen, log: log}
}

// Classify asks the model for an intent and post-processes the answer.
// Unparseable answers fall back to keyword heuristics; provider failures are
// returned so the caller can degrade.
func (c *IntentClassifier) Classify(ctx context.Context, message string, history []model.ChatMessage, modelKey string) (model.Classification, string, error) {
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "IntentClassifier.Classify")()

	prompt := classifierPrompt(message, history)
	out, err := c.gen.Generate(ctx, modelKey, []adapter.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return model.Classification{}, sourceError, fmt.Errorf("classify intent: %w", err)
	}

	var raw rawClassification
	if err := llmjson.Decode(out.Text, &raw); err != nil {
		log.Warn().Err(err).Str("response", logging.Preview(out.Text, 200)).Msg("classifier answer is not json, using keywords")
		return keywordFallback(message), sourceKeywords, nil
	}
	return postProcess(raw, message), sourceLLM, nil
}

type rawClassification struct {
	Intent               string          `json:"intent"`
	Confidence           json.RawMessage `json:"confidence"`
	Parameters           map[string]any  `json:"parameters"`
	RequiresConfirmation *bool           `json:"requires_confirmation"`
}

func postProcess(raw rawClassification, message string) model.Classification {
	c := model.Classification{
		Intent:     model.Intent(strings.ToLower(strings.TrimSpace(raw.Intent))),
		Confidence: clamp01(parseConfidence(raw.Confidence)),
		Parameters: paramsFrom(raw.Parameters),
	}
	if !c.Intent.Valid() {
		c.Intent = model.IntentGeneralQuestion
	}
	if raw.RequiresConfirmation != nil {
		c.RequiresConfirmation = *raw.RequiresConfirmation
	} else {
		c.RequiresConfirmation = c.Intent.Gated()
	}

	if c.Intent.Gated() && c.Confidence < actionConfidenceFloor {
		c.Intent = model.IntentGeneralQuestion
		c.RequiresConfirmation = false
	}

	lower := strings.ToLower(message)
	if c.Intent == model.IntentCreateProject && containsAny(lower, vagueHints) && !containsAny(lower, creationVerbs) {
		c.Intent = model.IntentGeneralQuestion
		c.RequiresConfirmation = false
	}
	return c
}

func keywordFallback(message string) model.Classification {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, []string{"find", "search", "show", "look for"}):
		return model.Classification{Intent: model.IntentSearch, Confidence: 0.6,
			Parameters: model.IntentParams{SearchQuery: message}}
	case containsAny(lower, []string{"enroll", "join", "sign up"}):
		return model.Classification{Intent: model.IntentEnroll, Confidence: 0.6, RequiresConfirmation: true}
	case strings.Contains(lower, "create project") || strings.Contains(lower, "make project"):
		return model.Classification{Intent: model.IntentCreateProject, Confidence: 0.6,
			Parameters: model.IntentParams{Topic: message}, RequiresConfirmation: true}
	case strings.Contains(lower, "post") && (strings.Contains(lower, "write") || strings.Contains(lower, "create")):
		return model.Classification{Intent: model.IntentCreatePost, Confidence: 0.6,
			Parameters: model.IntentParams{Topic: message}, RequiresConfirmation: true}
	default:
		return model.GeneralQuestion(0.5)
	}
}

// RescueByKeywords overrides weak or general classifications when the
// message plainly names a read-only action, a mention, or an enrollment.
// It returns the input unchanged when no rule matches.
func RescueByKeywords(message string, c model.Classification) (model.Classification, bool) {
	if c.Intent != model.IntentGeneralQuestion && c.Confidence >= rescueConfidenceBelow {
		return c, false
	}
	lower := strings.ToLower(message)
	hit := func(i model.Intent, p model.IntentParams, confirm bool) (model.Classification, bool) {
		return model.Classification{Intent: i, Confidence: 0.9, Parameters: p, RequiresConfirmation: confirm}, true
	}

	switch {
	case containsAny(lower, []string{"my progress", "my courses", "enrolled", "what am i learning", "my learning"}):
		return hit(model.IntentViewProgress, model.IntentParams{}, false)
	case containsAny(lower, []string{"my projects", "my project", "projects i", "working on"}):
		return hit(model.IntentViewMyProjects, model.IntentParams{}, false)
	case containsAny(lower, []string{"go to", "take me to", "open", "navigate to", "show me the"}):
		return hit(model.IntentNavigate, model.IntentParams{}, false)
	case containsAny(lower, []string{"find", "search", "look for", "show me"}):
		return hit(model.IntentSearch, model.IntentParams{SearchQuery: queryAfterTrigger(message)}, false)
	case strings.Contains(lower, "follow") && strings.Contains(message, "@"):
		p := model.IntentParams{Username: mentionedUsername(message)}
		if strings.Contains(lower, "unfollow") {
			return hit(model.IntentUnfollowUser, p, false)
		}
		return hit(model.IntentFollowUser, p, false)
	case containsAny(lower, []string{"enroll me", "enroll in", "sign me up", "join course"}):
		return hit(model.IntentEnroll, model.IntentParams{}, true)
	}
	return c, false
}

// queryAfterTrigger returns the text following the first search trigger.
func queryAfterTrigger(message string) string {
	lower := strings.ToLower(message)
	src := message
	if len(lower) != len(message) {
		src = lower
	}
	for _, prefix := range []string{"find me", "find", "search for", "search", "look for", "show me"} {
		if i := strings.Index(lower, prefix); i >= 0 {
			if q := strings.TrimSpace(src[i+len(prefix):]); q != "" {
				return q
			}
			break
		}
	}
	return strings.TrimSpace(message)
}

func mentionedUsername(message string) string {
	if m := mentionRe.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

func classifierPrompt(message string, history []model.ChatMessage) string {
	var ctxLines strings.Builder
	if len(history) > classifierHistory {
		history = history[len(history)-classifierHistory:]
	}
	if len(history) > 0 {
		ctxLines.WriteString("\nRecent conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&ctxLines, "%s: %s\n", m.Sender, m.Body)
		}
	}
	return fmt.Sprintf(classifierTemplate, ctxLines.String(), message)
}

const classifierTemplate = `Analyze this user message and determine their intent.
%s
Current message: %q

Available intents:
1. search - find courses, projects, or content ("find React courses", "search for Python")
2. enroll - EXPLICITLY enroll in a course or path ("enroll me", "sign me up for this course"). NOT "what courses are available".
3. unenroll - leave a course ("unenroll me", "drop this class")
4. create_project - EXPLICITLY create or build something specific ("create a todo app", "build a calculator"). NOT "help", "what can I do", "tell me about projects".
5. create_post - write a community post ("write a post", "share my progress"). NOT "show me posts".
6. join_project - join or contribute to an existing project ("join this project", "I want to contribute")
7. navigate - go to a page ("go to learning", "open projects page")
8. view_progress - see enrolled courses and progress ("show my progress", "what am I learning")
9. view_my_projects - see own projects ("show my projects")
10. follow_user - follow someone ("follow @username")
11. unfollow_user - unfollow someone ("unfollow @username")
12. send_message - message someone ("message @username", "chat with @user")
13. view_user_profile - view someone's profile ("show @username's profile", "who is @user")
14. comment_on_post - comment on a post ("comment on this post")
15. like_post - like a post ("like this post")
16. general_question - questions and conversation ("what is React?", "explain hooks", "help", "what can you do")

Classification rules:
- Only use create_project when the user explicitly mentions creating, making, or building something specific.
- Only use enroll when the user explicitly wants to enroll in a course.
- Vague messages ("help", "what can I do", "tell me") are general_question.
- When in doubt, use general_question.
- Action intents (enroll, create_project, create_post, join_project) need high confidence (above 0.85).
- Never invent project ideas the user did not mention.

Return ONLY valid JSON, no additional text:
{
  "intent": "intent_name",
  "confidence": 0.95,
  "parameters": {
    "search_query": "search term or null",
    "category": "course/project/user or null",
    "action_target": "what to act on or null",
    "topic": "topic if creating content or null",
    "username": "username if mentioned or null",
    "post_id": "post id if mentioned or null",
    "path_id": "course id if mentioned or null",
    "project_id": "project id if mentioned or null"
  },
  "requires_confirmation": true
}`

// --- lenient field parsing ---

func parseConfidence(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return defaultConfidence
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultConfidence
	}
	return f
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func paramsFrom(m map[string]any) model.IntentParams {
	return model.IntentParams{
		SearchQuery:  paramString(m["search_query"]),
		Category:     paramString(m["category"]),
		ActionTarget: paramString(m["action_target"]),
		Topic:        paramString(m["topic"]),
		Username:     strings.TrimPrefix(paramString(m["username"]), "@"),
		PostID:       paramInt(m["post_id"]),
		PathID:       paramInt(m["path_id"]),
		ProjectID:    paramString(m["project_id"]),
	}
}

// paramString treats JSON null and the literal strings "null"/"none" as absent.
func paramString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		switch strings.ToLower(s) {
		case "null", "none", "n/a":
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func paramInt(v any) int64 {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return int64(t)
		}
	case string:
		n, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(t), "#"), 10, 64)
		if err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
