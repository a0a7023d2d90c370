package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/adapter"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/infra/llmjson"
	"codehub-mentor/internal/infra/logging"
)

// PostDraft is generated community post content.
type PostDraft struct {
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
	Success  bool     `json:"success"`
}

// ProjectProposal is a generated project description awaiting confirmation.
type ProjectProposal struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	TechStack   string   `json:"tech_stack"`
	Success     bool     `json:"success"`
}

// Draft turns the proposal into CreateProject input.
func (p ProjectProposal) Draft() ProjectDraft {
	var stack []string
	for _, s := range strings.Split(p.TechStack, ",") {
		if s = strings.TrimSpace(s); s != "" && s != defaultTechStack {
			stack = append(stack, s)
		}
	}
	return ProjectDraft{Name: p.Title, Description: p.Description, TechStack: stack}
}

type JoinRequestDraft struct {
	Text    string `json:"text"`
	Success bool   `json:"success"`
}

type CommentDraft struct {
	Content string `json:"content"`
	Success bool   `json:"success"`
}

const defaultTechStack = "appropriate technologies"

// ContentGenerator writes user-facing content with the text generator.
// Every method answers; failures produce a templated fallback with
// Success=false.
type ContentGenerator struct {
	gen      adapter.TextGenerator
	users    repository.UserRepository
	learning repository.LearningRepository
	log      *zerolog.Logger
}

func NewContentGenerator(gen adapter.TextGenerator, users repository.UserRepository, learning repository.LearningRepository, log *zerolog.Logger) *ContentGenerator {
	return &ContentGenerator{gen: gen, users: users, learning: learning, log: log}
}

func (g *ContentGenerator) GeneratePostContent(ctx context.Context, userID, modelKey, topic string, extra map[string]any) PostDraft {
	defer logging.TraceDuration(g.log, "ContentGenerator.GeneratePostContent")()

	var info strings.Builder
	if p := g.progressLine(ctx, userID); p != "" {
		info.WriteString("\nUser's current progress:\n" + p)
	}
	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			fmt.Fprintf(&info, "\nAdditional context: %s", b)
		}
	}

	var out struct {
		Content  string   `json:"content"`
		Hashtags []string `json:"hashtags"`
	}
	err := g.generateJSON(ctx, modelKey, fmt.Sprintf(postTemplate, topic, info.String()), &out)
	if err == nil && strings.TrimSpace(out.Content) == "" {
		err = fmt.Errorf("empty post content")
	}
	if err != nil {
		logging.With(ctx, g.log).Warn().Err(err).Msg("post generation failed, using template")
		return PostDraft{
			Content:  fmt.Sprintf("Excited to share my progress on %s! 🚀\n\nLearning something new every day at CCIS-CodeHub. The journey continues! 💻✨", topic),
			Hashtags: []string{"Learning", "CCIS", "Progress"},
		}
	}
	return PostDraft{Content: strings.TrimSpace(out.Content), Hashtags: out.Hashtags, Success: true}
}

func (g *ContentGenerator) GenerateProjectDescription(ctx context.Context, modelKey, idea string, techStack []string) ProjectProposal {
	defer logging.TraceDuration(g.log, "ContentGenerator.GenerateProjectDescription")()

	stack := defaultTechStack
	if len(techStack) > 0 {
		stack = strings.Join(techStack, ", ")
	}

	var out struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Features    []string        `json:"features"`
		TechStack   json.RawMessage `json:"tech_stack"`
	}
	if err := g.generateJSON(ctx, modelKey, fmt.Sprintf(projectTemplate, idea, stack), &out); err != nil {
		logging.With(ctx, g.log).Warn().Err(err).Msg("project generation failed, using template")
		return ProjectProposal{
			Title:       idea,
			Description: fmt.Sprintf("A project focused on %s. This will be built using modern technologies and best practices.", idea),
			Features:    []string{"Core functionality", "User-friendly interface", "Responsive design"},
			TechStack:   stack,
		}
	}

	p := ProjectProposal{
		Title:       firstNonEmpty(out.Title, idea),
		Description: strings.TrimSpace(out.Description),
		Features:    out.Features,
		TechStack:   firstNonEmpty(stackString(out.TechStack), stack),
		Success:     true,
	}
	return p
}

func (g *ContentGenerator) GenerateJoinRequestMessage(ctx context.Context, userID, modelKey, title, description string) JoinRequestDraft {
	defer logging.TraceDuration(g.log, "ContentGenerator.GenerateJoinRequestMessage")()

	name, program := "Student", ""
	if u, err := g.users.FindByID(ctx, repository.NoTX, userID); err == nil {
		name, program = u.FullName(), u.Program
	}
	prompt := fmt.Sprintf(joinTemplate, title, firstNonEmpty(description, "Not provided"), name, firstNonEmpty(program, "BSCS/BSIT"))

	text, err := g.generateText(ctx, modelKey, prompt)
	if err != nil {
		logging.With(ctx, g.log).Warn().Err(err).Msg("join request generation failed, using template")
		return JoinRequestDraft{Text: fmt.Sprintf(
			"Hi! I'm interested in contributing to %s. I'm a %s student and would love to be part of this project. How can I help?",
			title, firstNonEmpty(program, "CCIS"))}
	}
	return JoinRequestDraft{Text: text, Success: true}
}

func (g *ContentGenerator) GenerateComment(ctx context.Context, modelKey, postContent, topic string) CommentDraft {
	defer logging.TraceDuration(g.log, "ContentGenerator.GenerateComment")()

	prompt := fmt.Sprintf(commentTemplate, firstNonEmpty(postContent, "Not provided"), firstNonEmpty(topic, "general encouragement"))
	text, err := g.generateText(ctx, modelKey, prompt)
	if err != nil {
		logging.With(ctx, g.log).Warn().Err(err).Msg("comment generation failed, using template")
		if topic = strings.TrimSpace(topic); topic != "" {
			return CommentDraft{Content: fmt.Sprintf("Great post! Thanks for sharing your thoughts on %s. 👏", topic)}
		}
		return CommentDraft{Content: "Great post! Thanks for sharing. 👏"}
	}
	return CommentDraft{Content: text, Success: true}
}

func (g *ContentGenerator) generateText(ctx context.Context, modelKey, prompt string) (string, error) {
	out, err := g.gen.Generate(ctx, modelKey, []adapter.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", fmt.Errorf("empty completion from %s", out.Model)
	}
	return text, nil
}

func (g *ContentGenerator) generateJSON(ctx context.Context, modelKey, prompt string, v any) error {
	text, err := g.generateText(ctx, modelKey, prompt)
	if err != nil {
		return err
	}
	return llmjson.Decode(text, v)
}

// progressLine describes the user's first enrollment, or "" when there is
// none or it cannot be loaded.
func (g *ContentGenerator) progressLine(ctx context.Context, userID string) string {
	list, err := g.learning.ListEnrollments(ctx, repository.NoTX, userID)
	if err != nil || len(list) == 0 {
		return ""
	}
	return progressText(list[0])
}

func progressText(e *model.Enrollment) string {
	return fmt.Sprintf("- Path: %s\n- Completed modules: %d", e.PathName, e.CompletedModules)
}

// stackString accepts the tech stack as a string or a list of strings.
func stackString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

const postTemplate = `Generate an engaging community post for a student on CCIS-CodeHub learning platform.

Topic: %s
%s

Requirements:
- Write in first person (I, my, etc.)
- Be enthusiastic and positive
- Include relevant emojis (2-3 max)
- Mention specific achievements or learnings if applicable
- Keep it authentic and relatable
- Length: 100-200 words
- Professional but friendly tone

Also suggest 3-5 relevant hashtags.

Return JSON format:
{
    "content": "The post content here...",
    "hashtags": ["WebDevelopment", "LearningJourney", "SNSU"]
}`

const projectTemplate = `Generate a comprehensive project description for a student project.

Project Idea: %s
Tech Stack: %s

Generate:
1. A catchy project title (concise, descriptive)
2. A detailed description (2-3 paragraphs)
3. 5-7 key features
4. Suggested tech stack (if not provided)

Return JSON format:
{
    "title": "Project Title",
    "description": "Detailed description...",
    "features": ["Feature 1", "Feature 2"],
    "tech_stack": "React, Node.js, MongoDB"
}`

const joinTemplate = `Generate a professional message requesting to join a project.

Project: %s
Project Description: %s
User: %s
User's background: %s student at SNSU

Requirements:
- Professional but friendly tone
- Express genuine interest
- Mention relevant skills or interests
- Ask about ways to contribute
- Keep under 100 words

Generate the message (plain text, no JSON):`

const commentTemplate = `Write a short, supportive comment for a post on a student learning community.

Post: %s
What the commenter wants to say: %s

Requirements:
- One to three sentences
- Friendly and specific to the post
- At most one emoji

Generate the comment (plain text, no JSON):`
