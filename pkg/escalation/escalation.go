// Package escalation implements the escalation queue's state machine:
// pending -> accepted -> answered, with declined/expired as the other two
// terminal states. Every transition is a guarded UPDATE ... WHERE status = ?
// so two concurrent callers can never race the same row into two different
// next states.
package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relaysocial/orchestrator/ent"
	entescalation "github.com/relaysocial/orchestrator/ent/escalation"
	"github.com/relaysocial/orchestrator/pkg/canonical"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/policy"
)

// pendingExpiry and acceptedExpiry are the state machine's time-based
// transitions.
const (
	pendingExpiry  = 72 * time.Hour
	acceptedExpiry = 14 * 24 * time.Hour

	quotaDayWindow  = 24 * time.Hour
	quotaWeekWindow = 7 * 24 * time.Hour
)

// ErrNotInExpectedState is returned when a transition's guard clause matches
// zero rows — the escalation already moved on, or never existed.
var ErrNotInExpectedState = fmt.Errorf("escalation: not in expected state")

// ErrAlreadyAnswered is returned by Answer when the row has already moved
// past accepted into answered — a real conflict, distinct from Accept's
// already-accepted case, which is a no-op rather than an error.
var ErrAlreadyAnswered = fmt.Errorf("escalation: already answered")

// Store is the escalation queue's read/write surface.
type Store struct {
	db        *database.Client
	canonical *canonical.Store
}

// New builds a Store over the given database client and canonical-answer store.
func New(db *database.Client, canon *canonical.Store) *Store {
	return &Store{db: db, canonical: canon}
}

// Offer creates a new pending escalation (path D).
func (s *Store) Offer(ctx context.Context, conversationID, userID, agentID, originalMessage, contextSummary string, reason config.EscalationReason) (*ent.Escalation, error) {
	e, err := s.db.Escalation.Create().
		SetID(uuid.NewString()).
		SetConversationID(conversationID).
		SetUserID(userID).
		SetAgentID(agentID).
		SetOriginalMessage(originalMessage).
		SetContextSummary(contextSummary).
		SetReason(entescalation.Reason(reason)).
		SetStatus(entescalation.StatusPending).
		SetOfferedAt(time.Now()).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("escalation: offer: %w", err)
	}
	return e, nil
}

// Accept transitions a pending escalation to accepted (path E). Guarded: only
// succeeds if the row is still pending. Accepting an already-accepted
// escalation is a no-op returning success, not an error — only a status
// other than pending or accepted is treated as a real conflict.
func (s *Store) Accept(ctx context.Context, id string) error {
	n, err := s.db.Escalation.Update().
		Where(entescalation.IDEQ(id), entescalation.StatusEQ(entescalation.StatusPending)).
		SetStatus(entescalation.StatusAccepted).
		SetAcceptedAt(time.Now()).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("escalation: accept: %w", err)
	}
	if n == 0 {
		e, getErr := s.db.Escalation.Get(ctx, id)
		if getErr != nil {
			return fmt.Errorf("escalation: reload after accept: %w", getErr)
		}
		return acceptOutcome(e.Status)
	}
	return nil
}

// acceptOutcome decides what a zero-row Accept update means once the row's
// actual status is known: already accepted is a successful no-op, anything
// else (declined, answered, expired) is a real conflict.
func acceptOutcome(status entescalation.Status) error {
	if status == entescalation.StatusAccepted {
		return nil
	}
	return ErrNotInExpectedState
}

// Decline transitions a pending or accepted escalation to declined.
func (s *Store) Decline(ctx context.Context, id string) error {
	n, err := s.db.Escalation.Update().
		Where(entescalation.IDEQ(id), entescalation.StatusIn(entescalation.StatusPending, entescalation.StatusAccepted)).
		SetStatus(entescalation.StatusDeclined).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("escalation: decline: %w", err)
	}
	if n == 0 {
		return ErrNotInExpectedState
	}
	return nil
}

// Answer transitions an accepted escalation to answered and, exactly once,
// creates the resulting CanonicalAnswer. The caller has already computed
// answerEmbedding (pkg/embedding) — this keeps the embedding call, which is
// I/O, out of the state machine itself.
func (s *Store) Answer(ctx context.Context, id, creatorAnswer string, layer config.Layer, answerEmbedding []float32) (*ent.Escalation, *ent.CanonicalAnswer, error) {
	n, err := s.db.Escalation.Update().
		Where(entescalation.IDEQ(id), entescalation.StatusEQ(entescalation.StatusAccepted)).
		SetStatus(entescalation.StatusAnswered).
		SetAnsweredAt(time.Now()).
		SetCreatorAnswer(creatorAnswer).
		SetAnswerLayer(entescalation.AnswerLayer(layer)).
		Save(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("escalation: answer: %w", err)
	}
	if n == 0 {
		e, getErr := s.db.Escalation.Get(ctx, id)
		if getErr != nil {
			return nil, nil, fmt.Errorf("escalation: reload after answer: %w", getErr)
		}
		return nil, nil, answerOutcome(e.Status)
	}

	e, err := s.db.Escalation.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("escalation: reload after answer: %w", err)
	}

	ca, err := s.canonical.CreateFromEscalation(ctx, e.ID, e.AgentID, e.OriginalMessage, creatorAnswer, layer, answerEmbedding)
	if err != nil {
		return e, nil, fmt.Errorf("escalation: canonical creation: %w", err)
	}

	return e, ca, nil
}

// answerOutcome decides what a zero-row Answer update means once the row's
// actual status is known: already answered is a real conflict distinct from
// every other non-accepted status (pending, declined, expired), none of
// which a creator can ever legitimately answer into.
func answerOutcome(status entescalation.Status) error {
	if status == entescalation.StatusAnswered {
		return ErrAlreadyAnswered
	}
	return ErrNotInExpectedState
}

// SweepExpired expires pending escalations older than 72h and accepted
// escalations older than 14d. Intended to run as a recurring background task.
// Returns the number of rows transitioned in each bucket.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (expiredPending, expiredAccepted int, err error) {
	expiredPending, err = s.db.Escalation.Update().
		Where(entescalation.StatusEQ(entescalation.StatusPending), entescalation.OfferedAtLT(now.Add(-pendingExpiry))).
		SetStatus(entescalation.StatusExpired).
		Save(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("escalation: sweep pending: %w", err)
	}

	expiredAccepted, err = s.db.Escalation.Update().
		Where(entescalation.StatusEQ(entescalation.StatusAccepted), entescalation.AcceptedAtLT(now.Add(-acceptedExpiry))).
		SetStatus(entescalation.StatusExpired).
		Save(ctx)
	if err != nil {
		return expiredPending, 0, fmt.Errorf("escalation: sweep accepted: %w", err)
	}

	return expiredPending, expiredAccepted, nil
}

// Quota computes the day/week escalation counts the policy engine's rule 6
// checks against. All states except declined count (see DESIGN.md Open
// Question #4), so an expired offer still consumes quota.
func (s *Store) Quota(ctx context.Context, agentID string, now time.Time) (policy.QuotaState, error) {
	day, err := s.db.Escalation.Query().
		Where(
			entescalation.AgentIDEQ(agentID),
			entescalation.StatusNEQ(entescalation.StatusDeclined),
			entescalation.OfferedAtGTE(now.Add(-quotaDayWindow)),
		).
		Count(ctx)
	if err != nil {
		return policy.QuotaState{}, fmt.Errorf("escalation: quota day: %w", err)
	}

	week, err := s.db.Escalation.Query().
		Where(
			entescalation.AgentIDEQ(agentID),
			entescalation.StatusNEQ(entescalation.StatusDeclined),
			entescalation.OfferedAtGTE(now.Add(-quotaWeekWindow)),
		).
		Count(ctx)
	if err != nil {
		return policy.QuotaState{}, fmt.Errorf("escalation: quota week: %w", err)
	}

	return policy.QuotaState{Day: day, Week: week}, nil
}
