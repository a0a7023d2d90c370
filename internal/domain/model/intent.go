package model

// Intent is the classified purpose of a user chat message.
type Intent string

const (
	IntentSearch          Intent = "search"
	IntentEnroll          Intent = "enroll"
	IntentUnenroll        Intent = "unenroll"
	IntentCreateProject   Intent = "create_project"
	IntentCreatePost      Intent = "create_post"
	IntentJoinProject     Intent = "join_project"
	IntentNavigate        Intent = "navigate"
	IntentGeneralQuestion Intent = "general_question"
	IntentViewProgress    Intent = "view_progress"
	IntentViewMyProjects  Intent = "view_my_projects"
	IntentFollowUser      Intent = "follow_user"
	IntentUnfollowUser    Intent = "unfollow_user"
	IntentSendMessage     Intent = "send_message"
	IntentViewUserProfile Intent = "view_user_profile"
	IntentCommentOnPost   Intent = "comment_on_post"
	IntentLikePost        Intent = "like_post"
)

// AllIntents lists every supported intent in prompt order.
var AllIntents = []Intent{
	IntentSearch, IntentEnroll, IntentUnenroll, IntentCreateProject,
	IntentCreatePost, IntentJoinProject, IntentNavigate, IntentViewProgress,
	IntentViewMyProjects, IntentFollowUser, IntentUnfollowUser, IntentSendMessage,
	IntentViewUserProfile, IntentCommentOnPost, IntentLikePost, IntentGeneralQuestion,
}

func (i Intent) Valid() bool {
	for _, v := range AllIntents {
		if v == i {
			return true
		}
	}
	return false
}

// Gated reports whether the intent performs a user-visible write that must
// pass the confidence gate and, by default, ask for confirmation.
func (i Intent) Gated() bool {
	switch i {
	case IntentEnroll, IntentCreateProject, IntentCreatePost, IntentJoinProject:
		return true
	}
	return false
}

// IntentParams holds everything the classifier may extract. All optional.
type IntentParams struct {
	SearchQuery  string `json:"search_query,omitempty"`
	Category     string `json:"category,omitempty"`
	ActionTarget string `json:"action_target,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Username     string `json:"username,omitempty"`
	PostID       int64  `json:"post_id,omitempty"`
	PathID       int64  `json:"path_id,omitempty"`
	ProjectID    string `json:"project_id,omitempty"`
}

// Classification is the post-processed classifier output.
type Classification struct {
	Intent               Intent       `json:"intent"`
	Confidence           float64      `json:"confidence"`
	Parameters           IntentParams `json:"parameters"`
	RequiresConfirmation bool         `json:"requires_confirmation"`
}

func GeneralQuestion(confidence float64) Classification {
	return Classification{Intent: IntentGeneralQuestion, Confidence: confidence}
}
