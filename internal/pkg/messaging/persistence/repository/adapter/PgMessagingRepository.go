package adapter

import (
	"context"
	"errors"
	"time"

	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgMessagingRepository persists the messaging domain in the "messaging"
// schema: conversation, participant_state, message and user_block tables.
// conversation carries a unique constraint on (participant_lo,
// participant_hi); participant_state is keyed by (conversation_id, user_id).
type PgMessagingRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessagingRepository(pool *pgxpool.Pool) *PgMessagingRepository {
	return &PgMessagingRepository{pool: pool}
}

const selectConversationByPair = `
	SELECT id::text, participant_lo::text, participant_hi::text, created_at, last_activity_at
	FROM messaging.conversation
	WHERE participant_lo = $1::uuid AND participant_hi = $2::uuid
`

// GetOrCreateConversation implements the insert-then-reconcile pattern: look
// up by canonical pair, insert with ON CONFLICT DO NOTHING when absent, and
// re-read when a concurrent creator won the race. Both racers resolve to the
// same row without application-level locking.
func (r *PgMessagingRepository) GetOrCreateConversation(ctx context.Context, userA, userB string) (*messaging.Conversation, bool, error) {
	if r == nil || r.pool == nil {
		return nil, false, errors.New("PgMessagingRepository: nil pool")
	}
	lo, hi, err := messaging.CanonicalPair(userA, userB)
	if err != nil {
		return nil, false, err
	}

	if conv, err := r.scanConversation(r.pool.QueryRow(ctx, selectConversationByPair, lo, hi)); err == nil {
		return conv, false, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	conv, err := r.scanConversation(r.pool.QueryRow(ctx, `
		INSERT INTO messaging.conversation (participant_lo, participant_hi, created_at, last_activity_at)
		VALUES ($1::uuid, $2::uuid, now(), now())
		ON CONFLICT (participant_lo, participant_hi) DO NOTHING
		RETURNING id::text, participant_lo::text, participant_hi::text, created_at, last_activity_at
	`, lo, hi))
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// Lost the race: the conflicting row must exist now.
	conv, err = r.scanConversation(r.pool.QueryRow(ctx, selectConversationByPair, lo, hi))
	if err != nil {
		return nil, false, err
	}
	return conv, false, nil
}

func (r *PgMessagingRepository) GetConversation(ctx context.Context, id string) (*messaging.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	conv, err := r.scanConversation(r.pool.QueryRow(ctx, `
		SELECT id::text, participant_lo::text, participant_hi::text, created_at, last_activity_at
		FROM messaging.conversation
		WHERE id = $1::uuid
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, messaging.ErrConversationNotFound
	}
	return conv, err
}

func (r *PgMessagingRepository) ListConversations(ctx context.Context, viewerID string) ([]messaging.ConversationView, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id::text,
		       (CASE WHEN c.participant_lo = $1::uuid THEN c.participant_hi ELSE c.participant_lo END)::text,
		       c.last_activity_at,
		       lm.body,
		       COALESCE(u.unread, 0)
		FROM messaging.conversation c
		LEFT JOIN messaging.participant_state ps
		       ON ps.conversation_id = c.id AND ps.user_id = $1::uuid
		LEFT JOIN LATERAL (
			SELECT m.body
			FROM messaging.message m
			WHERE m.conversation_id = c.id
			  AND (ps.cleared_before IS NULL OR m.created_at >= ps.cleared_before)
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT 1
		) lm ON true
		LEFT JOIN LATERAL (
			SELECT COUNT(*)::int AS unread
			FROM messaging.message m
			WHERE m.conversation_id = c.id
			  AND m.sender_id <> $1::uuid
			  AND (ps.last_read_at IS NULL OR m.created_at > ps.last_read_at)
			  AND (ps.cleared_before IS NULL OR m.created_at >= ps.cleared_before)
		) u ON true
		WHERE (c.participant_lo = $1::uuid OR c.participant_hi = $1::uuid)
		  AND COALESCE(ps.hidden, false) = false
		ORDER BY c.last_activity_at DESC
	`, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []messaging.ConversationView
	for rows.Next() {
		var v messaging.ConversationView
		if err := rows.Scan(&v.ID, &v.PeerID, &v.LastActivityAt, &v.LastMessage, &v.Unread); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// AppendMessage inserts the message, bumps the conversation watermark and
// drops hidden flags for unhideUserIDs in one transaction. The store assigns
// both the id and the created-at timestamp.
func (r *PgMessagingRepository) AppendMessage(ctx context.Context, m messaging.Message, unhideUserIDs []string) (*messaging.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO messaging.message (conversation_id, sender_id, body, status, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4, now())
		RETURNING id::text, created_at
	`, m.ConversationID, m.SenderID, m.Body, m.Status).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE messaging.conversation
		SET last_activity_at = GREATEST(last_activity_at, $2)
		WHERE id = $1::uuid
	`, m.ConversationID, m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, messaging.ErrConversationNotFound
	}

	for _, uid := range unhideUserIDs {
		if uid == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO messaging.participant_state (conversation_id, user_id, hidden)
			VALUES ($1::uuid, $2::uuid, false)
			ON CONFLICT (conversation_id, user_id) DO UPDATE SET hidden = false
		`, m.ConversationID, uid); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgMessagingRepository) ListMessagesBefore(ctx context.Context, conversationID, viewerID string, before *messaging.MessageCursor, limit int) ([]messaging.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	if limit <= 0 {
		limit = 20
	}
	var beforeAt *time.Time
	var beforeID *string
	if before != nil {
		beforeAt = &before.CreatedAt
		if before.ID != "" {
			beforeID = &before.ID
		}
	}
	// The keyset matches the sort key (created_at, id) so a page boundary
	// between two same-timestamp messages never drops one.
	rows, err := r.pool.Query(ctx, `
		SELECT m.id::text, m.conversation_id::text, m.sender_id::text, m.body, m.status, m.created_at
		FROM messaging.message m
		LEFT JOIN messaging.participant_state ps
		       ON ps.conversation_id = m.conversation_id AND ps.user_id = $2::uuid
		WHERE m.conversation_id = $1::uuid
		  AND ($3::timestamptz IS NULL
		       OR m.created_at < $3
		       OR ($4::uuid IS NOT NULL AND m.created_at = $3 AND m.id < $4::uuid))
		  AND (ps.cleared_before IS NULL OR m.created_at >= ps.cleared_before)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $5
	`, conversationID, viewerID, beforeAt, beforeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []messaging.Message
	for rows.Next() {
		var m messaging.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query walks newest-first for the cursor; display order is ascending.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *PgMessagingRepository) ParticipantState(ctx context.Context, conversationID, viewerID string) (*messaging.ParticipantState, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	s := &messaging.ParticipantState{ConversationID: conversationID, UserID: viewerID}
	err := r.pool.QueryRow(ctx, `
		SELECT hidden, cleared_before, last_read_at
		FROM messaging.participant_state
		WHERE conversation_id = $1::uuid AND user_id = $2::uuid
	`, conversationID, viewerID).Scan(&s.Hidden, &s.ClearedBefore, &s.LastReadAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// No row yet means the default state: visible, nothing cleared.
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PgMessagingRepository) SetHidden(ctx context.Context, conversationID, viewerID string, hidden bool) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messaging.participant_state (conversation_id, user_id, hidden)
		VALUES ($1::uuid, $2::uuid, $3)
		ON CONFLICT (conversation_id, user_id) DO UPDATE SET hidden = EXCLUDED.hidden
	`, conversationID, viewerID, hidden)
	return err
}

func (r *PgMessagingRepository) SetClearedBefore(ctx context.Context, conversationID, viewerID string, t time.Time) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	// GREATEST keeps the cursor monotonic under concurrent clears.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messaging.participant_state (conversation_id, user_id, cleared_before)
		VALUES ($1::uuid, $2::uuid, $3)
		ON CONFLICT (conversation_id, user_id)
		DO UPDATE SET cleared_before = GREATEST(COALESCE(messaging.participant_state.cleared_before, '-infinity'::timestamptz), EXCLUDED.cleared_before)
	`, conversationID, viewerID, t)
	return err
}

func (r *PgMessagingRepository) SetLastReadAt(ctx context.Context, conversationID, viewerID string, t time.Time) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messaging.participant_state (conversation_id, user_id, last_read_at)
		VALUES ($1::uuid, $2::uuid, $3)
		ON CONFLICT (conversation_id, user_id)
		DO UPDATE SET last_read_at = GREATEST(COALESCE(messaging.participant_state.last_read_at, '-infinity'::timestamptz), EXCLUDED.last_read_at)
	`, conversationID, viewerID, t)
	return err
}

func (r *PgMessagingRepository) AddBlock(ctx context.Context, b messaging.Block) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessagingRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messaging.user_block (blocker_id, blocked_id, created_at)
		VALUES ($1::uuid, $2::uuid, now())
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`, b.BlockerID, b.BlockedID)
	return err
}

func (r *PgMessagingRepository) GetBlock(ctx context.Context, a, z string) (*messaging.Block, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessagingRepository: nil pool")
	}
	var b messaging.Block
	err := r.pool.QueryRow(ctx, `
		SELECT blocker_id::text, blocked_id::text, created_at
		FROM messaging.user_block
		WHERE (blocker_id = $1::uuid AND blocked_id = $2::uuid)
		   OR (blocker_id = $2::uuid AND blocked_id = $1::uuid)
		LIMIT 1
	`, a, z).Scan(&b.BlockerID, &b.BlockedID, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PgMessagingRepository) scanConversation(row pgx.Row) (*messaging.Conversation, error) {
	var c messaging.Conversation
	if err := row.Scan(&c.ID, &c.ParticipantLo, &c.ParticipantHi, &c.CreatedAt, &c.LastActivityAt); err != nil {
		return nil, err
	}
	return &c, nil
}
