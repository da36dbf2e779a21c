// Package messaging implements the conversation store and response cache:
// a batched read path for the conversation list, idempotent
// participant-scoped read marking, and a 30-second response cache
// invalidated on every send or read-mark.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/relaysocial/orchestrator/ent"
	entagent "github.com/relaysocial/orchestrator/ent/agent"
	entconversation "github.com/relaysocial/orchestrator/ent/directconversation"
	entmessage "github.com/relaysocial/orchestrator/ent/directmessage"
	entlegacy "github.com/relaysocial/orchestrator/ent/legacyconversationthread"
	entprofile "github.com/relaysocial/orchestrator/ent/profile"
	"github.com/relaysocial/orchestrator/pkg/database"
)

// listCacheTTL is the response cache's fixed lifetime.
const listCacheTTL = 30 * time.Second

// previewLength caps how much of a message's content is stored as the
// conversation's last_message_preview.
const previewLength = 140

// ChatType mirrors the DirectConversation chat_type enum, re-exported so
// callers outside ent don't import the generated subpackage directly.
type ChatType string

const (
	ChatTypeProfile ChatType = "profile"
	ChatTypeAgent   ChatType = "agent"
)

// SenderKind mirrors the DirectMessage sender_kind enum.
type SenderKind string

const (
	SenderKindUser   SenderKind = "user"
	SenderKindAgent  SenderKind = "agent"
	SenderKindSystem SenderKind = "system"
)

// Store is the conversation read/write surface used by pkg/orchestrator and
// the HTTP handlers.
type Store struct {
	db    *database.Client
	cache *redis.Client
}

// New builds a Store over the given database client and an optional cache
// client (nil disables caching, useful in tests).
func New(db *database.Client, cache *redis.Client) *Store {
	return &Store{db: db, cache: cache}
}

// ConversationItem is one row of the caller's conversation list, assembled
// from the conversation, its counterparty, and (for agent chats) the agent.
type ConversationItem struct {
	ID                      string
	ChatType                ChatType
	TargetAgentID           *string
	TargetAgentHandle       *string
	TargetAgentDisplayName  *string
	CounterpartyProfileID   string
	CounterpartyHandle      string
	CounterpartyDisplayName string
	CounterpartyAvatarURL   *string
	LastMessageAt           time.Time
	LastMessagePreview      string
	UnreadCount             int
	Legacy                  bool
}

// ListConversations returns the caller's conversations across both the
// current and legacy conversation tables, newest first, serving from the
// response cache when available.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]ConversationItem, error) {
	if s.cache != nil {
		if items, ok := s.readCache(ctx, userID); ok {
			return items, nil
		}
	}

	items, err := s.loadConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.writeCache(ctx, userID, items)
	}
	return items, nil
}

func (s *Store) loadConversations(ctx context.Context, userID string) ([]ConversationItem, error) {
	convRows, err := s.db.DirectConversation.Query().
		Where(
			entconversation.Or(
				entconversation.Participant1IDEQ(userID),
				entconversation.Participant2IDEQ(userID),
			),
			entconversation.DeletedAtIsNil(),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging: list conversations: %w", err)
	}

	legacyRows, err := s.db.LegacyConversationThread.Query().
		Where(
			entlegacy.Or(
				entlegacy.Participant1IDEQ(userID),
				entlegacy.Participant2IDEQ(userID),
			),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging: list legacy conversations: %w", err)
	}

	profileIDs := make(map[string]bool)
	agentIDs := make(map[string]bool)
	for _, c := range convRows {
		profileIDs[counterparty(c.Participant1ID, c.Participant2ID, userID)] = true
		if c.TargetAgentID != nil {
			agentIDs[*c.TargetAgentID] = true
		}
	}
	for _, l := range legacyRows {
		profileIDs[counterparty(l.Participant1ID, l.Participant2ID, userID)] = true
	}

	profiles, err := s.db.Profile.Query().
		Where(entprofile.IDIn(keys(profileIDs)...)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging: batch profiles: %w", err)
	}
	profileByID := make(map[string]*ent.Profile, len(profiles))
	for _, p := range profiles {
		profileByID[p.ID] = p
	}

	agents, err := s.db.Agent.Query().
		Where(entagent.IDIn(keys(agentIDs)...)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging: batch agents: %w", err)
	}
	agentByID := make(map[string]*ent.Agent, len(agents))
	for _, a := range agents {
		agentByID[a.ID] = a
	}

	unread, err := s.groupedUnreadCounts(ctx, userID, convRows)
	if err != nil {
		return nil, err
	}

	items := make([]ConversationItem, 0, len(convRows)+len(legacyRows))
	for _, c := range convRows {
		cp := profileByID[counterparty(c.Participant1ID, c.Participant2ID, userID)]
		item := ConversationItem{
			ID:                 c.ID,
			ChatType:           ChatType(c.ChatType),
			TargetAgentID:      c.TargetAgentID,
			LastMessageAt:      c.LastMessageAt,
			LastMessagePreview: c.LastMessagePreview,
			UnreadCount:        unread[c.ID],
		}
		if cp != nil {
			item.CounterpartyProfileID = cp.ID
			item.CounterpartyHandle = cp.Handle
			item.CounterpartyDisplayName = cp.DisplayName
			item.CounterpartyAvatarURL = cp.AvatarURL
		}
		if c.TargetAgentID != nil {
			if a := agentByID[*c.TargetAgentID]; a != nil {
				item.TargetAgentHandle = &a.Handle
				item.TargetAgentDisplayName = &a.DisplayName
			}
		}
		items = append(items, item)
	}

	for _, l := range legacyRows {
		cp := profileByID[counterparty(l.Participant1ID, l.Participant2ID, userID)]
		item := ConversationItem{
			ID:                 l.ID,
			ChatType:           ChatTypeProfile,
			LastMessageAt:      l.LastMessageAt,
			LastMessagePreview: l.LastMessagePreview,
			UnreadCount:        l.UnreadCountCached,
			Legacy:             true,
		}
		if cp != nil {
			item.CounterpartyProfileID = cp.ID
			item.CounterpartyHandle = cp.Handle
			item.CounterpartyDisplayName = cp.DisplayName
			item.CounterpartyAvatarURL = cp.AvatarURL
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].LastMessageAt.After(items[j].LastMessageAt) })
	return items, nil
}

// groupedUnreadCounts computes, for every conversation the caller
// participates in, the count of messages not sent by them and not yet
// flagged read on their side — one grouped aggregation query per read-flag
// column, since which column applies depends on which participant slot the
// caller occupies.
func (s *Store) groupedUnreadCounts(ctx context.Context, userID string, convRows []*ent.DirectConversation) (map[string]int, error) {
	var asP1, asP2 []string
	for _, c := range convRows {
		if c.Participant1ID == userID {
			asP1 = append(asP1, c.ID)
		} else {
			asP2 = append(asP2, c.ID)
		}
	}

	counts := make(map[string]int, len(convRows))
	if err := s.unreadCountsForColumn(ctx, "read_by_p1", userID, asP1, counts); err != nil {
		return nil, err
	}
	if err := s.unreadCountsForColumn(ctx, "read_by_p2", userID, asP2, counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Store) unreadCountsForColumn(ctx context.Context, column, userID string, conversationIDs []string, into map[string]int) error {
	if len(conversationIDs) == 0 {
		return nil
	}
	query := fmt.Sprintf(
		`SELECT conversation_id, count(*) FROM direct_messages
		 WHERE conversation_id = ANY($1) AND sender_profile_id != $2 AND %s = false
		 GROUP BY conversation_id`, column)
	rows, err := s.db.DB().QueryContext(ctx, query, conversationIDs, userID)
	if err != nil {
		return fmt.Errorf("messaging: unread counts (%s): %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return fmt.Errorf("messaging: scan unread count: %w", err)
		}
		into[id] = count
	}
	return rows.Err()
}

func counterparty(p1, p2, userID string) string {
	if p1 == userID {
		return p2
	}
	return p1
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// GetOrCreateConversation finds the conversation between two profiles of the
// given chat type (and, for agent chats, target agent), creating it if it
// doesn't exist. Participant ids are canonicalized into sorted order before
// lookup and insert, matching the uniqueness index's assumption
// (ent/schema/directconversation.go).
func (s *Store) GetOrCreateConversation(ctx context.Context, profileA, profileB string, chatType ChatType, targetAgentID *string) (*ent.DirectConversation, error) {
	p1, p2 := profileA, profileB
	if p2 < p1 {
		p1, p2 = p2, p1
	}

	query := s.db.DirectConversation.Query().
		Where(
			entconversation.Participant1IDEQ(p1),
			entconversation.Participant2IDEQ(p2),
			entconversation.ChatTypeEQ(entconversation.ChatType(chatType)),
		)
	if targetAgentID != nil {
		query = query.Where(entconversation.TargetAgentIDEQ(*targetAgentID))
	} else {
		query = query.Where(entconversation.TargetAgentIDIsNil())
	}

	existing, err := query.Only(ctx)
	if err == nil {
		return existing, nil
	}
	if !ent.IsNotFound(err) {
		return nil, fmt.Errorf("messaging: lookup conversation: %w", err)
	}

	create := s.db.DirectConversation.Create().
		SetID(uuid.NewString()).
		SetParticipant1ID(p1).
		SetParticipant2ID(p2).
		SetChatType(entconversation.ChatType(chatType)).
		SetLastMessageAt(time.Now())
	if targetAgentID != nil {
		create = create.SetTargetAgentID(*targetAgentID)
	}

	conv, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging: create conversation: %w", err)
	}
	return conv, nil
}

// SendMessage persists a message, updates the conversation's denormalized
// last-message fields, and invalidates both participants' response cache.
func (s *Store) SendMessage(ctx context.Context, conversationID, senderProfileID string, senderKind SenderKind, senderAgentID *string, content string, truncated bool) (*ent.DirectMessage, error) {
	create := s.db.DirectMessage.Create().
		SetID(uuid.NewString()).
		SetConversationID(conversationID).
		SetSenderProfileID(senderProfileID).
		SetSenderKind(entmessage.SenderKind(senderKind)).
		SetContent(content).
		SetTruncated(truncated)
	if senderAgentID != nil {
		create = create.SetSenderAgentID(*senderAgentID)
	}

	msg, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging: send message: %w", err)
	}

	conv, err := s.db.DirectConversation.UpdateOneID(conversationID).
		SetLastMessageAt(msg.CreatedAt).
		SetLastMessagePreview(preview(content)).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging: update conversation preview: %w", err)
	}

	if s.cache != nil {
		s.invalidate(ctx, conv.Participant1ID)
		s.invalidate(ctx, conv.Participant2ID)
	}
	return msg, nil
}

// MarkRead flips the read flag for userID's side of the conversation on every
// message not sent by them, idempotently: already-read messages are left
// alone: idempotent and participant-scoped.
func (s *Store) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := s.db.DirectConversation.Get(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("messaging: load conversation: %w", err)
	}

	var column string
	switch userID {
	case conv.Participant1ID:
		column = "read_by_p1"
	case conv.Participant2ID:
		column = "read_by_p2"
	default:
		return fmt.Errorf("messaging: %s is not a participant in conversation %s", userID, conversationID)
	}

	query := fmt.Sprintf(
		`UPDATE direct_messages SET %s = true WHERE conversation_id = $1 AND sender_profile_id != $2 AND %s = false`,
		column, column)
	if _, err := s.db.DB().ExecContext(ctx, query, conversationID, userID); err != nil {
		return fmt.Errorf("messaging: mark read: %w", err)
	}

	if s.cache != nil {
		s.invalidate(ctx, userID)
	}
	return nil
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLength {
		return content
	}
	return string(r[:previewLength])
}

func cacheKey(userID string) string {
	return fmt.Sprintf("conv:list:%s", userID)
}

func (s *Store) readCache(ctx context.Context, userID string) ([]ConversationItem, bool) {
	raw, err := s.cache.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var items []ConversationItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *Store) writeCache(ctx context.Context, userID string, items []ConversationItem) {
	b, err := json.Marshal(items)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, cacheKey(userID), b, listCacheTTL).Err()
}

func (s *Store) invalidate(ctx context.Context, userID string) {
	_ = s.cache.Del(ctx, cacheKey(userID)).Err()
}
