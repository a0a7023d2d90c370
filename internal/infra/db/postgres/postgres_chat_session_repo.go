// File: internal/infra/db/postgres/postgres_chat_session_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
)

var _ repository.ChatSessionRepository = (*ChatSessionRepo)(nil)

// ChatSessionRepo persists sessions, their conversation state and messages.
type ChatSessionRepo struct {
	pool *pgxpool.Pool
}

func NewChatSessionRepo(pool *pgxpool.Pool) *ChatSessionRepo {
	return &ChatSessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, session_type, status, title, state, pending_intent, pending_data, proposed_at, created_at, updated_at, ended_at`

func (r *ChatSessionRepo) Save(ctx context.Context, qx repository.Tx, s *model.ChatSession) error {
	const q = `
INSERT INTO chat_sessions (` + sessionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  session_type = EXCLUDED.session_type,
  status = EXCLUDED.status,
  title = EXCLUDED.title,
  state = EXCLUDED.state,
  pending_intent = EXCLUDED.pending_intent,
  pending_data = EXCLUDED.pending_data,
  proposed_at = EXCLUDED.proposed_at,
  updated_at = EXCLUDED.updated_at,
  ended_at = EXCLUDED.ended_at;`
	intent, data := stateArgs(s.State)
	_, err := execWith(ctx, r.pool, qx, q,
		s.ID, s.UserID, string(s.Type), string(s.Status), s.Title,
		string(phaseOrIdle(s.State.Phase)), intent, data, s.State.ProposedAt,
		s.CreatedAt, s.UpdatedAt, s.EndedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", mapErr(err))
	}
	return nil
}

func (r *ChatSessionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.ChatSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id=$1;`
	s, err := scanSession(pickRow(ctx, r.pool, qx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (r *ChatSessionRepo) FindAllByUser(ctx context.Context, qx repository.Tx, userID string) ([]*model.ChatSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, qx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ChatSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ChatSessionRepo) UpdateStatus(ctx context.Context, qx repository.Tx, sessionID string, status model.ChatSessionStatus) error {
	const q = `
UPDATE chat_sessions
   SET status=$2,
       updated_at=NOW(),
       ended_at=CASE WHEN $2 = 'active' THEN NULL ELSE COALESCE(ended_at, NOW()) END
 WHERE id=$1;`
	tag, err := execWith(ctx, r.pool, qx, q, sessionID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ChatSessionRepo) SetState(ctx context.Context, qx repository.Tx, sessionID string, st model.ConversationState) error {
	const q = `
UPDATE chat_sessions
   SET state=$2, pending_intent=$3, pending_data=$4, proposed_at=$5, updated_at=NOW()
 WHERE id=$1;`
	intent, data := stateArgs(st)
	tag, err := execWith(ctx, r.pool, qx, q, sessionID, string(phaseOrIdle(st.Phase)), intent, data, st.ProposedAt)
	if err != nil {
		return fmt.Errorf("set state: %w", mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimPending flips awaiting_confirmation to idle in one statement, so only
// one caller ever receives a given pending action.
func (r *ChatSessionRepo) ClaimPending(ctx context.Context, qx repository.Tx, sessionID string) (model.ConversationState, error) {
	const q = `
UPDATE chat_sessions AS s
   SET state='idle', pending_intent=NULL, pending_data=NULL, proposed_at=NULL, updated_at=NOW()
  FROM (SELECT id, pending_intent, pending_data, proposed_at
          FROM chat_sessions
         WHERE id=$1 AND state='awaiting_confirmation'
         FOR UPDATE) AS old
 WHERE s.id = old.id
RETURNING old.pending_intent, old.pending_data, old.proposed_at;`
	var (
		intent *string
		data   []byte
		at     *time.Time
	)
	if err := pickRow(ctx, r.pool, qx, q, sessionID).Scan(&intent, &data, &at); err != nil {
		return model.ConversationState{}, mapErr(err)
	}
	st := model.ConversationState{Phase: model.PhaseAwaitingConfirmation, Data: data, ProposedAt: at}
	if intent != nil {
		st.Intent = model.Intent(*intent)
	}
	return st, nil
}

func (r *ChatSessionRepo) ExpirePending(ctx context.Context, qx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `
UPDATE chat_sessions
   SET state='idle', pending_intent=NULL, pending_data=NULL, proposed_at=NULL, updated_at=NOW()
 WHERE state='awaiting_confirmation' AND proposed_at < $1;`
	tag, err := execWith(ctx, r.pool, qx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire pending: %w", mapErr(err))
	}
	return tag.RowsAffected(), nil
}

func (r *ChatSessionRepo) SaveMessage(ctx context.Context, qx repository.Tx, m *model.ChatMessage) error {
	meta, err := json.Marshal(m.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	const q = `
INSERT INTO chat_messages (id, session_id, sender, body, metadata, tokens, created_at)
VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7,NOW()));`
	var created *time.Time
	if !m.CreatedAt.IsZero() {
		created = &m.CreatedAt
	}
	if _, err := execWith(ctx, r.pool, qx, q, m.ID, m.SessionID, string(m.Sender), m.Body, meta, m.Tokens, created); err != nil {
		return fmt.Errorf("save message: %w", mapErr(err))
	}
	return nil
}

// ListMessages returns the newest `limit` messages in chronological order.
func (r *ChatSessionRepo) ListMessages(ctx context.Context, qx repository.Tx, sessionID string, limit int) ([]model.ChatMessage, error) {
	q := `
SELECT id, session_id, sender, body, metadata, tokens, created_at FROM (
  SELECT * FROM chat_messages WHERE session_id=$1
  ORDER BY created_at DESC, id DESC
  LIMIT NULLIF($2, 0)
) m ORDER BY created_at ASC, id ASC;`
	if limit < 0 {
		limit = 0
	}
	rows, err := queryRows(ctx, r.pool, qx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	var out []model.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *ChatSessionRepo) LastAssistantMessage(ctx context.Context, qx repository.Tx, sessionID string) (*model.ChatMessage, error) {
	const q = `
SELECT id, session_id, sender, body, metadata, tokens, created_at
  FROM chat_messages
 WHERE session_id=$1 AND sender='assistant'
 ORDER BY created_at DESC, id DESC
 LIMIT 1;`
	m, err := scanMessage(pickRow(ctx, r.pool, qx, q, sessionID))
	if err != nil {
		if mapErr(err) == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *ChatSessionRepo) FindMessage(ctx context.Context, qx repository.Tx, sessionID, messageID string) (*model.ChatMessage, error) {
	const q = `
SELECT id, session_id, sender, body, metadata, tokens, created_at
  FROM chat_messages
 WHERE session_id=$1 AND id=$2;`
	m, err := scanMessage(pickRow(ctx, r.pool, qx, q, sessionID, messageID))
	if err != nil {
		return nil, fmt.Errorf("find message: %w", mapErr(err))
	}
	return m, nil
}

// --- scanning ---

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*model.ChatSession, error) {
	var (
		s                  model.ChatSession
		typ, status, state string
		intent             *string
		data               []byte
	)
	if err := row.Scan(&s.ID, &s.UserID, &typ, &status, &s.Title, &state, &intent, &data,
		&s.State.ProposedAt, &s.CreatedAt, &s.UpdatedAt, &s.EndedAt); err != nil {
		return nil, err
	}
	s.Type = model.SessionType(typ)
	s.Status = model.ChatSessionStatus(status)
	s.State.Phase = model.ConversationPhase(state)
	if intent != nil {
		s.State.Intent = model.Intent(*intent)
	}
	if len(data) > 0 {
		s.State.Data = data
	}
	return &s, nil
}

func scanMessage(row scanner) (*model.ChatMessage, error) {
	var (
		m      model.ChatMessage
		sender string
		meta   []byte
	)
	if err := row.Scan(&m.ID, &m.SessionID, &sender, &m.Body, &meta, &m.Tokens, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Sender = model.Sender(sender)
	m.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &m, nil
}

func phaseOrIdle(p model.ConversationPhase) model.ConversationPhase {
	if p == "" {
		return model.PhaseIdle
	}
	return p
}

// stateArgs returns nullable pending columns; idle sessions store NULLs.
func stateArgs(st model.ConversationState) (*string, []byte) {
	if !st.Awaiting() {
		return nil, nil
	}
	intent := string(st.Intent)
	if len(st.Data) == 0 {
		return &intent, nil
	}
	return &intent, []byte(st.Data)
}
