package model

import "codehub-mentor/internal/domain"

// ActionType tags the structured action returned alongside a chat reply.
type ActionType string

const (
	ActionSearchResults        ActionType = "search_results"
	ActionEnrolled             ActionType = "enrolled"
	ActionProjectCreated       ActionType = "project_created"
	ActionPostCreated          ActionType = "post_created"
	ActionProgressResults      ActionType = "progress_results"
	ActionProjectsResults      ActionType = "projects_results"
	ActionUnenrolled           ActionType = "unenrolled"
	ActionUserFollowed         ActionType = "user_followed"
	ActionUserUnfollowed       ActionType = "user_unfollowed"
	ActionNavigate             ActionType = "navigate"
	ActionConfirmationRequired ActionType = "confirmation_required"
	ActionError                ActionType = "error"
	ActionCancelled            ActionType = "cancelled"
	ActionInfo                 ActionType = "info"
)

// ActionFailure is the failure variant of an ActionResult.
type ActionFailure struct {
	Kind   domain.ErrorKind `json:"kind"`
	Detail string           `json:"detail,omitempty"`
}

// ActionResult is returned by every dispatcher operation; failures are
// reported here, never as Go errors.
type ActionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   *ActionFailure `json:"error,omitempty"`
}

func Succeeded(msg string, payload map[string]any) ActionResult {
	return ActionResult{Success: true, Message: msg, Payload: payload}
}

func Failed(kind domain.ErrorKind, msg, detail string) ActionResult {
	return ActionResult{Success: false, Message: msg, Error: &ActionFailure{Kind: kind, Detail: detail}}
}

// With attaches payload fields to a result and returns it.
func (r ActionResult) With(key string, v any) ActionResult {
	if r.Payload == nil {
		r.Payload = map[string]any{}
	}
	r.Payload[key] = v
	return r
}

func (r ActionResult) Kind() domain.ErrorKind {
	if r.Error == nil {
		return ""
	}
	return r.Error.Kind
}

// Action is the structured part of a SendMessage response.
type Action struct {
	Type       ActionType     `json:"type"`
	ActionType Intent         `json:"action_type,omitempty"`
	NavigateTo string         `json:"navigate_to,omitempty"`
	Message    string         `json:"message,omitempty"`
	Result     *ActionResult  `json:"result,omitempty"`
	Data       any            `json:"data,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}
