// Package retention implements the recurring cleanup sweep referenced by
// config.RetentionConfig: purging both-participants-deleted conversations
// once they've sat soft-retained past ConversationRetentionDays, and
// trimming OrchestratorDecision rows past DecisionLogTTL. Neither table is
// ever cascaded on delete — both are swept on a timer instead, the same
// division pkg/escalation.SweepExpired draws between a request-time mutation
// and a periodic background one.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/relaysocial/orchestrator/ent"
	entconversation "github.com/relaysocial/orchestrator/ent/directconversation"
	entdecision "github.com/relaysocial/orchestrator/ent/orchestratordecision"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
)

// Sweeper purges rows past their configured retention window.
type Sweeper struct {
	db  *ent.Client
	cfg *config.RetentionConfig
}

// New builds a Sweeper.
func New(db *database.Client, cfg *config.RetentionConfig) *Sweeper {
	return &Sweeper{db: db.Client, cfg: cfg}
}

// Run purges both-deleted conversations whose deleted_at has aged past
// ConversationRetentionDays and decision-log rows older than DecisionLogTTL.
// Returns the number of rows removed in each bucket.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (purgedConversations, purgedDecisions int, err error) {
	conversationCutoff := now.Add(-time.Duration(s.cfg.ConversationRetentionDays) * 24 * time.Hour)
	purgedConversations, err = s.db.DirectConversation.Delete().
		Where(entconversation.DeletedAtLT(conversationCutoff)).
		Exec(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("retention: purge conversations: %w", err)
	}

	decisionCutoff := now.Add(-s.cfg.DecisionLogTTL)
	purgedDecisions, err = s.db.OrchestratorDecision.Delete().
		Where(entdecision.CreatedAtLT(decisionCutoff)).
		Exec(ctx)
	if err != nil {
		return purgedConversations, 0, fmt.Errorf("retention: purge decisions: %w", err)
	}

	return purgedConversations, purgedDecisions, nil
}
