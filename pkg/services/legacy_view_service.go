package services

import (
	"context"
	"fmt"

	"github.com/relaysocial/orchestrator/ent"
	entconversation "github.com/relaysocial/orchestrator/ent/directconversation"
	entlegacy "github.com/relaysocial/orchestrator/ent/legacyconversationthread"
	"github.com/relaysocial/orchestrator/pkg/database"
)

// LegacyConversationViewService answers "what does this profile's inbox
// look like per counterparty" by collapsing the live DirectConversation
// table and the frozen LegacyConversationThread table into one row per
// counterparty, keeping whichever side is more recent. It is a read-only
// reporting view, distinct from pkg/messaging.Store.ListConversations:
// that method returns every thread a profile has (including legacy-only
// ones with no live successor); this one answers "what is the single
// latest thread per counterparty", the same first-per-group
// query-composition pattern applied a second time over a different grouping
// key (counterparty, not thread).
type LegacyConversationViewService struct {
	client *ent.Client
}

// NewLegacyConversationViewService builds a LegacyConversationViewService.
func NewLegacyConversationViewService(db *database.Client) *LegacyConversationViewService {
	return &LegacyConversationViewService{client: db.Client}
}

// CounterpartyThread is one collapsed row: the latest thread (live or
// legacy) a profile has with a given counterparty.
type CounterpartyThread struct {
	CounterpartyProfileID string
	ThreadID              string
	Legacy                bool
	LastMessagePreview    string
	LastMessageAt         int64 // unix seconds, stable across the two source tables' time.Time zones
}

// LatestPerCounterparty returns one row per distinct counterparty the
// profile has ever exchanged messages with, each the more recent of that
// counterparty's live conversation and legacy thread (a profile can have
// both if they exchanged messages before and after the legacy cutover).
func (s *LegacyConversationViewService) LatestPerCounterparty(ctx context.Context, profileID string) ([]CounterpartyThread, error) {
	liveRows, err := s.client.DirectConversation.Query().
		Where(
			entconversation.Or(
				entconversation.Participant1IDEQ(profileID),
				entconversation.Participant2IDEQ(profileID),
			),
			entconversation.DeletedAtIsNil(),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: query live conversations for legacy view: %w", err)
	}

	legacyRows, err := s.client.LegacyConversationThread.Query().
		Where(
			entlegacy.Or(
				entlegacy.Participant1IDEQ(profileID),
				entlegacy.Participant2IDEQ(profileID),
			),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: query legacy threads for legacy view: %w", err)
	}

	byCounterparty := make(map[string]CounterpartyThread, len(liveRows)+len(legacyRows))

	for _, c := range liveRows {
		cp := counterpartyOf(c.Participant1ID, c.Participant2ID, profileID)
		byCounterparty[cp] = CounterpartyThread{
			CounterpartyProfileID: cp,
			ThreadID:              c.ID,
			Legacy:                false,
			LastMessagePreview:    c.LastMessagePreview,
			LastMessageAt:         c.LastMessageAt.Unix(),
		}
	}

	for _, l := range legacyRows {
		cp := counterpartyOf(l.Participant1ID, l.Participant2ID, profileID)
		existing, ok := byCounterparty[cp]
		if ok && existing.LastMessageAt >= l.LastMessageAt.Unix() {
			continue
		}
		byCounterparty[cp] = CounterpartyThread{
			CounterpartyProfileID: cp,
			ThreadID:              l.ID,
			Legacy:                true,
			LastMessagePreview:    l.LastMessagePreview,
			LastMessageAt:         l.LastMessageAt.Unix(),
		}
	}

	out := make([]CounterpartyThread, 0, len(byCounterparty))
	for _, t := range byCounterparty {
		out = append(out, t)
	}
	return out, nil
}

func counterpartyOf(p1, p2, self string) string {
	if p1 == self {
		return p2
	}
	return p1
}
