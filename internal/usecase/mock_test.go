//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/adapter"
	"codehub-mentor/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Chat sessions ----

type MockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.ChatSession
	messages map[string][]model.ChatMessage

	ClaimCalls int
}

var _ repository.ChatSessionRepository = (*MockSessionRepo)(nil)

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{sessions: map[string]model.ChatSession{}, messages: map[string][]model.ChatMessage{}}
}

func (r *MockSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.Messages = nil
	r.sessions[s.ID] = cp
	return nil
}

func (r *MockSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *MockSessionRepo) FindAllByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MockSessionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.ChatSessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	r.sessions[id] = s
	return nil
}

func (r *MockSessionRepo) SetState(ctx context.Context, tx repository.Tx, id string, st model.ConversationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.State = st
	r.sessions[id] = s
	return nil
}

func (r *MockSessionRepo) ClaimPending(ctx context.Context, tx repository.Tx, id string) (model.ConversationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ClaimCalls++
	s, ok := r.sessions[id]
	if !ok || !s.State.Awaiting() {
		return model.ConversationState{}, domain.ErrNotFound
	}
	prev := s.State
	s.State = model.IdleState()
	r.sessions[id] = s
	return prev, nil
}

func (r *MockSessionRepo) ExpirePending(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.State.Awaiting() && s.State.ProposedAt != nil && s.State.ProposedAt.Before(cutoff) {
			s.State = model.IdleState()
			r.sessions[id] = s
			n++
		}
	}
	return n, nil
}

func (r *MockSessionRepo) SaveMessage(ctx context.Context, tx repository.Tx, m *model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.SessionID] = append(r.messages[m.SessionID], *m)
	return nil
}

func (r *MockSessionRepo) ListMessages(ctx context.Context, tx repository.Tx, id string, limit int) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.messages[id]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]model.ChatMessage(nil), all...), nil
}

func (r *MockSessionRepo) LastAssistantMessage(ctx context.Context, tx repository.Tx, id string) (*model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.messages[id]
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Sender == model.SenderAssistant {
			m := all[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (r *MockSessionRepo) FindMessage(ctx context.Context, tx repository.Tx, sessionID, messageID string) (*model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages[sessionID] {
		if m.ID == messageID {
			cp := m
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSessionRepo) State(id string) model.ConversationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id].State
}

func (r *MockSessionRepo) Messages(id string) []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChatMessage(nil), r.messages[id]...)
}

// ---- Feedback ----

type MockFeedbackRepo struct {
	mu   sync.Mutex
	rows map[string]model.MessageFeedback // user_id + "/" + message_id
}

var _ repository.FeedbackRepository = (*MockFeedbackRepo)(nil)

func NewMockFeedbackRepo() *MockFeedbackRepo {
	return &MockFeedbackRepo{rows: map[string]model.MessageFeedback{}}
}

func (r *MockFeedbackRepo) Upsert(ctx context.Context, tx repository.Tx, f *model.MessageFeedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := f.UserID + "/" + f.MessageID
	if prev, ok := r.rows[key]; ok {
		f.ID, f.CreatedAt = prev.ID, prev.CreatedAt
	}
	r.rows[key] = *f
	return nil
}

func (r *MockFeedbackRepo) ListBySession(ctx context.Context, tx repository.Tx, sessionID string) ([]model.MessageFeedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MessageFeedback
	for _, f := range r.rows {
		if f.SessionID == sessionID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- Mentor profiles ----

type MockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]model.MentorProfile

	GetErr error
}

var _ repository.MentorProfileRepository = (*MockProfileRepo)(nil)

func NewMockProfileRepo() *MockProfileRepo {
	return &MockProfileRepo{profiles: map[string]model.MentorProfile{}}
}

func (r *MockProfileRepo) GetOrCreate(ctx context.Context, tx repository.Tx, userID string) (*model.MentorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	p, ok := r.profiles[userID]
	if !ok {
		p = *model.NewMentorProfile(userID)
		r.profiles[userID] = p
	}
	return &p, nil
}

func (r *MockProfileRepo) Save(ctx context.Context, tx repository.Tx, p *model.MentorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = *p
	return nil
}

// ---- Users ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo(users ...*model.User) *MockUserRepo {
	r := &MockUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MockUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) Search(ctx context.Context, tx repository.Tx, query, excludeID string, limit int) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var out []*model.User
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		hay := strings.ToLower(u.Username + " " + u.FirstName + " " + u.LastName)
		if strings.Contains(hay, q) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Learning ----

type MockLearningRepo struct {
	mu          sync.Mutex
	paths       map[int64]*model.CareerPath
	modules     []*model.LearningModule
	enrollments map[string]map[int64]*model.Enrollment
	nextID      int64

	ListErr error
}

var _ repository.LearningRepository = (*MockLearningRepo)(nil)

func NewMockLearningRepo(paths ...*model.CareerPath) *MockLearningRepo {
	r := &MockLearningRepo{paths: map[int64]*model.CareerPath{}, enrollments: map[string]map[int64]*model.Enrollment{}}
	for _, p := range paths {
		r.paths[p.ID] = p
	}
	return r
}

func (r *MockLearningRepo) sortedPaths() []*model.CareerPath {
	out := make([]*model.CareerPath, 0, len(r.paths))
	for _, p := range r.paths {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MockLearningRepo) FindPath(ctx context.Context, tx repository.Tx, id int64) (*model.CareerPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.paths[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockLearningRepo) FindPathByName(ctx context.Context, tx repository.Tx, name string) (*model.CareerPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.sortedPaths() {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockLearningRepo) SearchPaths(ctx context.Context, tx repository.Tx, query string, limit int) ([]*model.CareerPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var out []*model.CareerPath
	for _, p := range r.sortedPaths() {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			cp := *p
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockLearningRepo) SearchModules(ctx context.Context, tx repository.Tx, query string, limit int) ([]*model.LearningModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var out []*model.LearningModule
	for _, m := range r.modules {
		if strings.Contains(strings.ToLower(m.Title), q) {
			cp := *m
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockLearningRepo) ListPaths(ctx context.Context, tx repository.Tx, limit int) ([]*model.CareerPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sortedPaths()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockLearningRepo) CreateEnrollment(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.paths[e.PathID]; !ok {
		return domain.ErrNotFound
	}
	byPath := r.enrollments[e.UserID]
	if byPath == nil {
		byPath = map[int64]*model.Enrollment{}
		r.enrollments[e.UserID] = byPath
	}
	if _, dup := byPath[e.PathID]; dup {
		return domain.ErrAlreadyExists
	}
	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = time.Now().UTC()
	cp := *e
	byPath[e.PathID] = &cp
	return nil
}

func (r *MockLearningRepo) FindEnrollment(ctx context.Context, tx repository.Tx, userID string, pathID int64) (*model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[userID][pathID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *MockLearningRepo) DeleteEnrollment(ctx context.Context, tx repository.Tx, userID string, pathID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enrollments[userID][pathID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.enrollments[userID], pathID)
	return nil
}

func (r *MockLearningRepo) ListEnrollments(ctx context.Context, tx repository.Tx, userID string) ([]*model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var out []*model.Enrollment
	for pid, e := range r.enrollments[userID] {
		cp := *e
		if p, ok := r.paths[pid]; ok {
			cp.PathName, cp.PathDescription, cp.TotalModules = p.Name, p.Description, p.ModuleCount
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PathID < out[j].PathID })
	return out, nil
}

func (r *MockLearningRepo) EnrollmentCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.enrollments[userID])
}

// ---- Projects ----

type MockProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*model.Project
	members  map[string]*model.ProjectMember
}

var _ repository.ProjectRepository = (*MockProjectRepo)(nil)

func NewMockProjectRepo() *MockProjectRepo {
	return &MockProjectRepo{projects: map[string]*model.Project{}, members: map[string]*model.ProjectMember{}}
}

func memberKey(projectID, userID string) string { return projectID + "/" + userID }

func (r *MockProjectRepo) Create(ctx context.Context, tx repository.Tx, p *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.projects[p.ID]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r *MockProjectRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockProjectRepo) ListOwned(ctx context.Context, tx repository.Tx, ownerID string) ([]*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Project
	for _, p := range r.projects {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockProjectRepo) ListMemberOf(ctx context.Context, tx repository.Tx, userID string) ([]*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Project
	for _, m := range r.members {
		p := r.projects[m.ProjectID]
		if m.UserID == userID && m.Status == model.MembershipActive && p != nil && p.OwnerID != userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockProjectRepo) FindMember(ctx context.Context, tx repository.Tx, projectID, userID string) (*model.ProjectMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberKey(projectID, userID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MockProjectRepo) UpsertMember(ctx context.Context, tx repository.Tx, m *model.ProjectMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.members[memberKey(m.ProjectID, m.UserID)] = &cp
	return nil
}

func (r *MockProjectRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.projects)
}

// ---- Community ----

type MockCommunityRepo struct {
	mu       sync.Mutex
	posts    map[int64]*model.Post
	hashtags map[string]*model.Hashtag
	postTags map[string]bool
	likes    map[string]bool
	comments []*model.Comment
	follows  map[string]*model.Follow
	nextID   int64
}

var _ repository.CommunityRepository = (*MockCommunityRepo)(nil)

func NewMockCommunityRepo() *MockCommunityRepo {
	return &MockCommunityRepo{
		posts:    map[int64]*model.Post{},
		hashtags: map[string]*model.Hashtag{},
		postTags: map[string]bool{},
		likes:    map[string]bool{},
		follows:  map[string]*model.Follow{},
	}
}

func (r *MockCommunityRepo) id() int64 { r.nextID++; return r.nextID }

func (r *MockCommunityRepo) CreatePost(ctx context.Context, tx repository.Tx, p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	p.CreatedAt = time.Now().UTC()
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

func (r *MockCommunityRepo) FindPost(ctx context.Context, tx repository.Tx, id int64) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockCommunityRepo) AttachHashtag(ctx context.Context, tx repository.Tx, postID int64, name string) (*model.Hashtag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hashtags[name]
	if !ok {
		h = &model.Hashtag{ID: r.id(), Name: name}
		r.hashtags[name] = h
	}
	key := fmt.Sprintf("%d/%s", postID, name)
	if !r.postTags[key] {
		r.postTags[key] = true
		h.UsageCount++
	}
	cp := *h
	return &cp, nil
}

func (r *MockCommunityRepo) AddLike(ctx context.Context, tx repository.Tx, postID int64, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%d/%s", postID, userID)
	if r.likes[key] {
		return 0, domain.ErrAlreadyExists
	}
	r.likes[key] = true
	r.posts[postID].LikesCount++
	return r.posts[postID].LikesCount, nil
}

func (r *MockCommunityRepo) CreateComment(ctx context.Context, tx repository.Tx, c *model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.id()
	c.CreatedAt = time.Now().UTC()
	cp := *c
	r.comments = append(r.comments, &cp)
	return nil
}

func followKey(a, b string) string { return a + "->" + b }

func (r *MockCommunityRepo) FindFollow(ctx context.Context, tx repository.Tx, followerID, followingID string) (*model.Follow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.follows[followKey(followerID, followingID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *MockCommunityRepo) UpsertFollow(ctx context.Context, tx repository.Tx, f *model.Follow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.follows[followKey(f.FollowerID, f.FollowingID)] = &cp
	return nil
}

func (r *MockCommunityRepo) DeleteFollow(ctx context.Context, tx repository.Tx, followerID, followingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := followKey(followerID, followingID)
	if _, ok := r.follows[k]; !ok {
		return domain.ErrNotFound
	}
	delete(r.follows, k)
	return nil
}

func (r *MockCommunityRepo) Hashtag(name string) *model.Hashtag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hashtags[name]
}

func (r *MockCommunityRepo) PostCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts)
}

// ---- Transactions ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn repository.TxFunc) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

// GenRule answers prompts whose last message contains Contains.
type GenRule struct {
	Contains string
	Reply    string
	Err      error
}

// FakeGen is a scripted TextGenerator. Rules are checked in order; without
// a match it answers Default, or fails with Err when set.
type FakeGen struct {
	mu    sync.Mutex
	Rules []GenRule
	Calls [][]adapter.Message
	Keys  []string

	Default  string
	Err      error
	Fallback bool
}

var _ adapter.TextGenerator = (*FakeGen)(nil)

func (g *FakeGen) On(contains, reply string) *FakeGen {
	g.Rules = append(g.Rules, GenRule{Contains: contains, Reply: reply})
	return g
}

func (g *FakeGen) Fail(contains string, err error) *FakeGen {
	g.Rules = append(g.Rules, GenRule{Contains: contains, Err: err})
	return g
}

// Classify scripts the classifier answer for one user message.
func (g *FakeGen) Classify(message, answer string) *FakeGen {
	return g.On(fmt.Sprintf("Current message: %q", message), answer)
}

func (g *FakeGen) Generate(ctx context.Context, modelKey string, msgs []adapter.Message) (adapter.Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, msgs)
	g.Keys = append(g.Keys, modelKey)
	last := msgs[len(msgs)-1].Content
	text, err := g.answer(last)
	if err != nil {
		return adapter.Completion{}, err
	}
	return adapter.Completion{
		Text:          text,
		ModelKey:      modelKey,
		Model:         "test/model",
		ModelName:     "Test Model",
		Usage:         adapter.Usage{TotalTokens: 12},
		Fallback:      g.Fallback,
		PreferredName: "Preferred Model",
	}, nil
}

func (g *FakeGen) answer(prompt string) (string, error) {
	for _, r := range g.Rules {
		if strings.Contains(prompt, r.Contains) {
			return r.Reply, r.Err
		}
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Default, nil
}

func (g *FakeGen) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// ---- Catalog ----

type MockCatalog struct {
	Options []adapter.ModelOption
	Aliases map[string]string
}

var _ adapter.ModelCatalog = (*MockCatalog)(nil)

func (c *MockCatalog) Models() []adapter.ModelOption { return c.Options }

func (c *MockCatalog) Lookup(key string) (adapter.ModelOption, bool) {
	if a, ok := c.Aliases[key]; ok {
		key = a
	}
	for _, o := range c.Options {
		if o.Key == key {
			return o, true
		}
	}
	return adapter.ModelOption{}, false
}

// ---- Lock and rate limit ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMockLocker() *MockLocker { return &MockLocker{held: map[string]string{}} }

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrSessionBusy
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return fmt.Errorf("unlock token mismatch")
}

// Hold takes the lock for key as if another turn were running.
func (l *MockLocker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "other"
}

type MockLimiter struct {
	Deny  bool
	Err   error
	Calls int
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.Calls++
	if m.Err != nil {
		return false, m.Err
	}
	return !m.Deny, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
