// Package orchestrator is the chat hot path's single entrypoint: given a
// caller's message to one agent, it computes signals, decides
// a path A-F (pkg/policy), and dispatches generation or a canned response
// accordingly, persisting exactly one OrchestratorDecision row per turn
// strictly before the resulting assistant message, and firing the
// fire-and-forget background jobs (memory extraction, quality scoring)
// only after that message is durably written.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relaysocial/orchestrator/ent"
	entsummary "github.com/relaysocial/orchestrator/ent/conversationsummary"
	entmessage "github.com/relaysocial/orchestrator/ent/directmessage"
	entorchconfig "github.com/relaysocial/orchestrator/ent/orchestratorconfig"
	entdecision "github.com/relaysocial/orchestrator/ent/orchestratordecision"
	"github.com/relaysocial/orchestrator/pkg/canonical"
	"github.com/relaysocial/orchestrator/pkg/composer"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/embedding"
	"github.com/relaysocial/orchestrator/pkg/escalation"
	"github.com/relaysocial/orchestrator/pkg/jobs"
	"github.com/relaysocial/orchestrator/pkg/llm"
	"github.com/relaysocial/orchestrator/pkg/memory"
	"github.com/relaysocial/orchestrator/pkg/messaging"
	"github.com/relaysocial/orchestrator/pkg/policy"
	"github.com/relaysocial/orchestrator/pkg/queue"
	"github.com/relaysocial/orchestrator/pkg/retrieval"
	"github.com/relaysocial/orchestrator/pkg/signals"
	"github.com/relaysocial/orchestrator/pkg/streaming"
	"github.com/relaysocial/orchestrator/pkg/vectorstore"
)

// historyWindow bounds how many of a conversation's most recent messages are
// loaded for the composer; composer itself further prunes to budget.
const historyWindow = 100

// maxMemoryHits is the vector-search breadth for the composer's memories
// block. It equals the composer's own inclusion cap of 5, so the composer's
// relevance sort orders these hits but drops none of them.
const maxMemoryHits = 5

// kFinal is the number of reranked RAG hits the composer receives.
const kFinal = 5

// finalizeTimeout bounds the detached write that persists a streamed
// response after the request context may already be canceled (client
// disconnect). Independent of the LLM call itself, which has already
// finished or been aborted by the time this runs.
const finalizeTimeout = 10 * time.Second

// Orchestrator wires together every C1-C13 component needed to decide and
// answer one turn.
type Orchestrator struct {
	db         *database.Client
	messaging  *messaging.Store
	retrieval  *retrieval.Service
	canonical  *canonical.Store
	escalation *escalation.Store
	embedding  *embedding.Service
	vector     vectorstore.Store
	llm        llm.Client
	streaming  *streaming.Producer
	jobs       *jobs.Client
	queue      *queue.Pool
	defaults   config.Defaults
}

// New builds an Orchestrator from its component dependencies. queuePool
// bounds how many path-A generations may run concurrently across this
// process — Handle sheds load (returns an error the API layer maps to 503)
// rather than queuing an unbounded backlog of streaming LLM calls.
func New(
	db *database.Client,
	messagingStore *messaging.Store,
	retrievalSvc *retrieval.Service,
	canonicalStore *canonical.Store,
	escalationStore *escalation.Store,
	embeddingSvc *embedding.Service,
	vector vectorstore.Store,
	llmClient llm.Client,
	streamingProducer *streaming.Producer,
	jobsClient *jobs.Client,
	queuePool *queue.Pool,
	defaults config.Defaults,
) *Orchestrator {
	return &Orchestrator{
		db:         db,
		messaging:  messagingStore,
		retrieval:  retrievalSvc,
		canonical:  canonicalStore,
		escalation: escalationStore,
		embedding:  embeddingSvc,
		vector:     vector,
		llm:        llmClient,
		streaming:  streamingProducer,
		jobs:       jobsClient,
		queue:      queuePool,
		defaults:   defaults,
	}
}

// TurnInput is everything one call to Handle needs. The caller's message is
// assumed already persisted as a DirectMessage by the API layer before
// Handle is invoked — this package owns deciding and answering, not
// recording the inbound side of the turn.
type TurnInput struct {
	ConversationID  string
	AgentID         string
	CallerProfileID string
	CallerTier      config.UserTier
	IsOwner         bool
	Message         string

	// AcceptEscalationID is set when this turn represents the caller's
	// explicit acceptance of a standing path-D offer (decision rule 7),
	// naming the escalation being accepted.
	AcceptEscalationID string
}

// TurnResult is what Handle returns. Events is always non-nil: for path A
// it streams live tokens; for every other path it is a closed, one-shot
// stream carrying the already-known system text (pkg/streaming.System).
type TurnResult struct {
	DecisionID string
	Path       config.DecisionPath
	Events     <-chan streaming.Event
}

// Handle runs signals -> policy -> dispatch for one turn.
func (o *Orchestrator) Handle(ctx context.Context, in TurnInput) (*TurnResult, error) {
	agent, err := o.db.Agent.Get(ctx, in.AgentID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load agent: %w", err)
	}

	agentCfg, err := o.db.OrchestratorConfig.Query().
		Where(entorchconfig.AgentIDEQ(in.AgentID)).
		Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load agent config: %w", err)
	}

	allowedLayers := config.AllowedLayersFor(in.CallerTier, in.IsOwner)

	vectors, err := o.embedding.Embed(ctx, []string{in.Message})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: embed message: %w", err)
	}
	queryVec := vectors[0]

	canonicalMatch, err := o.canonical.Lookup(ctx, in.AgentID, queryVec, allowedLayers)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: canonical lookup: %w", err)
	}

	retrievalResult, err := o.retrieval.Retrieve(ctx, in.AgentID, in.Message, allowedLayers, kFinal)
	if err != nil {
		// Degrade to a no-RAG prompt rather than failing the turn.
		slog.Warn("orchestrator: retrieval unavailable, degrading to no-RAG prompt", "agent_id", in.AgentID, "error", err)
		retrievalResult = &retrieval.Result{}
	}

	sig := signals.Compute(in.Message, maxSimilarity(canonicalMatch, retrievalResult.CandidateScores), retrievalResult.CandidateScores, retrieval.KCandidate)

	quota, err := o.escalation.Quota(ctx, in.AgentID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load escalation quota: %w", err)
	}

	decideInput := policy.Input{
		Signals:                 sig,
		Policy:                  agentPolicyFrom(agentCfg),
		Quota:                   quota,
		CallerTier:              in.CallerTier,
		Message:                 in.Message,
		Now:                     time.Now(),
		CanonicalMatch:          canonicalMatchFor(canonicalMatch),
		CanonicalReuseThreshold: o.defaults.CanonicalReuseThreshold,
		EscalationAccepted:      in.AcceptEscalationID != "",
	}
	decision := policy.Decide(decideInput)

	decisionRow, err := o.persistDecision(ctx, in, sig, decision)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: persist decision: %w", err)
	}

	switch decision.Path {
	case config.PathAutoAnswer:
		return o.dispatchAutoAnswer(ctx, in, agent, allowedLayers, retrievalResult, decisionRow.ID)
	case config.PathClarify:
		return o.dispatchClarify(ctx, in, agent, decisionRow.ID)
	case config.PathCanonicalReuse:
		return o.dispatchCanonicalReuse(ctx, in, agent, decision, decisionRow.ID)
	case config.PathEscalateOffer:
		return o.dispatchEscalateOffer(ctx, in, agent, decision, decisionRow.ID)
	case config.PathEscalateAccept:
		return o.dispatchEscalateAccept(ctx, in, agent, decisionRow.ID)
	case config.PathRefuse:
		return o.dispatchRefuse(ctx, in, agent, decision, decisionRow.ID)
	default:
		return nil, fmt.Errorf("orchestrator: unknown decision path %q", decision.Path)
	}
}

// maxSimilarity is the signals-package "similarity" input: the highest
// cosine score across the agent's canonical answers and its layer-filtered
// document chunks.
func maxSimilarity(canonicalMatch *canonical.Match, candidateScores []float64) float64 {
	best := 0.0
	if canonicalMatch != nil {
		best = canonicalMatch.Similarity
	}
	for _, s := range candidateScores {
		if s > best {
			best = s
		}
	}
	return best
}

func canonicalMatchFor(m *canonical.Match) *policy.CanonicalMatch {
	if m == nil {
		return nil
	}
	return &policy.CanonicalMatch{ID: m.ID, Content: m.Content, Similarity: m.Similarity, Layer: m.Layer}
}

func agentPolicyFrom(cfg *ent.OrchestratorConfig) policy.AgentPolicy {
	tiers := make([]config.UserTier, len(cfg.AllowedUserTiers))
	for i, t := range cfg.AllowedUserTiers {
		tiers[i] = config.UserTier(t)
	}
	return policy.AgentPolicy{
		AllowedUserTiers:              tiers,
		EscalationEnabled:             cfg.EscalationEnabled,
		BlockedTopics:                 cfg.BlockedTopics,
		AutoAnswerConfidenceThreshold: cfg.AutoAnswerConfidenceThreshold,
		ClarificationEnabled:          cfg.ClarificationEnabled,
		MaxEscalationsPerDay:          cfg.MaxEscalationsPerDay,
		MaxEscalationsPerWeek:         cfg.MaxEscalationsPerWeek,
	}
}

// persistDecision writes the OrchestratorDecision row. This is a single
// insert (trivially atomic on its own) committed before any assistant
// message is written for the same turn, satisfying the ordering
// guarantee (ii) without needing a transaction that spans the downstream
// generation call, which may run for up to 90s and which §5 explicitly
// forbids holding a transaction open across (see DESIGN.md).
func (o *Orchestrator) persistDecision(ctx context.Context, in TurnInput, sig signals.Signals, decision policy.Decision) (*ent.OrchestratorDecision, error) {
	create := o.db.OrchestratorDecision.Create().
		SetID(uuid.NewString()).
		SetConversationID(in.ConversationID).
		SetUserID(in.CallerProfileID).
		SetAgentID(in.AgentID).
		SetMessageContent(in.Message).
		SetPath(entdecision.Path(decision.Path)).
		SetConfidence(sig.Confidence).
		SetNovelty(sig.Novelty).
		SetComplexity(sig.Complexity)
	if decision.CanonicalAnswerID != "" {
		create = create.SetSimilarCanonicalID(decision.CanonicalAnswerID)
	}
	return create.Save(ctx)
}

// dispatchAutoAnswer runs path A: compose the bounded prompt and stream the
// LLM's response. The returned channel is a passthrough over the producer's
// own channel; once it closes, the accumulated response is persisted and
// the fire-and-forget jobs are enqueued, all in a goroutine the caller never
// has to wait on.
func (o *Orchestrator) dispatchAutoAnswer(ctx context.Context, in TurnInput, agent *ent.Agent, allowedLayers []config.Layer, retrievalResult *retrieval.Result, decisionID string) (*TurnResult, error) {
	history, messageCount, err := o.loadHistory(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load history: %w", err)
	}

	memories, err := o.searchMemories(ctx, in.AgentID, history)
	if err != nil {
		slog.Warn("orchestrator: memory search failed, continuing without memories", "agent_id", in.AgentID, "error", err)
	}

	summary, err := o.latestSummary(ctx, in.ConversationID)
	if err != nil {
		slog.Warn("orchestrator: summary lookup failed, continuing without summary", "conversation_id", in.ConversationID, "error", err)
	}

	callerLayer := config.LayerPublic
	if len(allowedLayers) > 0 {
		callerLayer = allowedLayers[len(allowedLayers)-1]
	}

	composed := composer.Compose(composer.Input{
		AgentHandle:              agent.Handle,
		AgentPersona:             agent.Persona,
		CallerLayer:              callerLayer,
		Summary:                  summary,
		Memories:                 memories,
		RAG:                      ragHitsFrom(retrievalResult),
		History:                  history,
		Query:                    in.Message,
		ConversationMessageCount: messageCount,
	})

	out := make(chan streaming.Event)

	err = o.queue.Submit(ctx, queue.Job{
		ID:  decisionID,
		Ctx: ctx,
		Run: func(jobCtx context.Context) error {
			ch, acc := o.streaming.StreamTokens(jobCtx, llm.ChatRequest{Messages: composed.Messages}, o.llm.ChatModel(), string(config.PathAutoAnswer))
			o.relayAndFinalize(jobCtx, in, agent, ch, out, acc, composed.NeedsSummary, messageCount, history)
			return nil
		},
	})
	if err != nil {
		close(out)
		return nil, fmt.Errorf("orchestrator: turn processing unavailable: %w", err)
	}

	return &TurnResult{DecisionID: decisionID, Path: config.PathAutoAnswer, Events: out}, nil
}

// relayAndFinalize forwards every event from the producer's channel to out,
// then persists the completed (or truncated) response and fires the
// post-turn background jobs. Runs with a detached context for the
// finalization step so a client disconnect (which cancels ctx) doesn't also
// abort the write that must still happen.
func (o *Orchestrator) relayAndFinalize(ctx context.Context, in TurnInput, agent *ent.Agent, ch <-chan streaming.Event, out chan<- streaming.Event, acc *streaming.Accumulator, needsSummary bool, messageCountBefore int, history []composer.HistoryTurn) {
	defer close(out)
	for ev := range ch {
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	fctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	msg, err := o.messaging.SendMessage(fctx, in.ConversationID, agent.OwnerProfileID, messaging.SenderKindAgent, &agent.ID, acc.Text(), acc.Truncated())
	if err != nil {
		slog.Error("orchestrator: persist streamed response failed", "conversation_id", in.ConversationID, "error", err)
		return
	}

	select {
	case out <- streaming.Complete(msg.ID, acc.TokensUsed()):
	case <-ctx.Done():
		// Caller already stopped relaying (client disconnected); the
		// message is durably persisted regardless.
	}

	if o.jobs != nil {
		if err := o.jobs.EnqueueMemoryExtract(fctx, jobs.MemoryExtractPayload{
			AgentID:         agent.ID,
			SourceMessageID: msg.ID,
			History:         memoryTurnsFrom(history),
			CurrentMessage:  in.Message,
		}); err != nil {
			slog.Warn("orchestrator: enqueue memory extraction failed", "message_id", msg.ID, "error", err)
		}

		if err := o.jobs.EnqueueQualityScore(fctx, jobs.QualityScorePayload{
			MessageID:      msg.ID,
			ConversationID: in.ConversationID,
			ExchangeCount:  (messageCountBefore + 2) / 2,
			UserMessage:    in.Message,
			Response:       acc.Text(),
		}); err != nil {
			slog.Warn("orchestrator: enqueue quality scoring failed", "message_id", msg.ID, "error", err)
		}
	}

	if needsSummary {
		slog.Info("orchestrator: conversation needs a new summary", "conversation_id", in.ConversationID)
	}
}

// memoryTurnsFrom converts composer history into the shape the memory
// extractor consumes; Extractor.Run bounds it to the last 10 turns itself.
func memoryTurnsFrom(history []composer.HistoryTurn) []memory.Turn {
	turns := make([]memory.Turn, len(history))
	for i, t := range history {
		turns[i] = memory.Turn{Role: t.Role, Content: t.Content}
	}
	return turns
}

// dispatchClarify runs path B: ask a short clarifying question instead of
// guessing. The question is generated by a single non-streamed LLM call,
// not canned text.
func (o *Orchestrator) dispatchClarify(ctx context.Context, in TurnInput, agent *ent.Agent, decisionID string) (*TurnResult, error) {
	question, err := o.generateClarifyingQuestion(ctx, agent, in.Message)
	if err != nil {
		slog.Warn("orchestrator: clarifying question generation failed, using fallback", "agent_id", in.AgentID, "error", err)
		question = "Could you say a bit more about what you're asking?"
	}

	if _, err := o.messaging.SendMessage(ctx, in.ConversationID, agent.OwnerProfileID, messaging.SenderKindAgent, &agent.ID, question, false); err != nil {
		return nil, fmt.Errorf("orchestrator: persist clarifying question: %w", err)
	}

	return &TurnResult{DecisionID: decisionID, Path: config.PathClarify, Events: streaming.System(o.llm.ChatModel(), string(config.PathClarify), question)}, nil
}

func (o *Orchestrator) generateClarifyingQuestion(ctx context.Context, agent *ent.Agent, message string) (string, error) {
	ch, err := o.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf("You are answering as @%s. The caller's message is too short or ambiguous to answer directly. Ask exactly one or two short clarifying questions, nothing else.", agent.Handle)},
			{Role: llm.RoleUser, Content: message},
		},
		Temperature: 0.5,
		MaxTokens:   64,
	})
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}

	var b strings.Builder
	for chunk := range ch {
		if text, ok := chunk.(*llm.TextChunk); ok {
			b.WriteString(text.Content)
		}
		if errChunk, ok := chunk.(*llm.ErrorChunk); ok {
			return "", fmt.Errorf("%s", errChunk.Message)
		}
	}
	question := strings.TrimSpace(b.String())
	if question == "" {
		return "", fmt.Errorf("empty clarifying question from llm")
	}
	return question, nil
}

// dispatchCanonicalReuse runs path C: serve an existing canonical answer and
// bump its reuse counter under the monotonic, lost-update-free guard.
// decision.CanonicalAnswerContent carries the matched question_pattern, not
// the answer text (canonical.Match.Content is the vector-indexed field used
// for similarity search) — the actual answer_content is loaded here by id.
func (o *Orchestrator) dispatchCanonicalReuse(ctx context.Context, in TurnInput, agent *ent.Agent, decision policy.Decision, decisionID string) (*TurnResult, error) {
	if _, err := o.canonical.IncrementReuse(ctx, decision.CanonicalAnswerID); err != nil {
		slog.Warn("orchestrator: increment canonical reuse failed", "canonical_answer_id", decision.CanonicalAnswerID, "error", err)
	}

	ca, err := o.db.CanonicalAnswer.Get(ctx, decision.CanonicalAnswerID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load canonical answer: %w", err)
	}

	if _, err := o.messaging.SendMessage(ctx, in.ConversationID, agent.OwnerProfileID, messaging.SenderKindAgent, &agent.ID, ca.AnswerContent, false); err != nil {
		return nil, fmt.Errorf("orchestrator: persist canonical reuse message: %w", err)
	}

	return &TurnResult{DecisionID: decisionID, Path: config.PathCanonicalReuse, Events: streaming.System(o.llm.ChatModel(), string(config.PathCanonicalReuse), ca.AnswerContent)}, nil
}

// dispatchEscalateOffer runs path D: tell the caller their question is being
// routed to the creator and open the pending escalation.
func (o *Orchestrator) dispatchEscalateOffer(ctx context.Context, in TurnInput, agent *ent.Agent, decision policy.Decision, decisionID string) (*TurnResult, error) {
	offerText := "That's a great question for the creator directly — I've flagged it for them. Reply here if you'd like me to send it their way."

	if _, err := o.messaging.SendMessage(ctx, in.ConversationID, agent.OwnerProfileID, messaging.SenderKindAgent, &agent.ID, offerText, false); err != nil {
		return nil, fmt.Errorf("orchestrator: persist escalation offer: %w", err)
	}

	contextSummary := summarizeForEscalation(in.Message)
	if _, err := o.escalation.Offer(ctx, in.ConversationID, in.CallerProfileID, in.AgentID, in.Message, contextSummary, decision.EscalationReason); err != nil {
		return nil, fmt.Errorf("orchestrator: create escalation offer: %w", err)
	}

	return &TurnResult{DecisionID: decisionID, Path: config.PathEscalateOffer, Events: streaming.System(o.llm.ChatModel(), string(config.PathEscalateOffer), offerText)}, nil
}

// dispatchEscalateAccept runs path E: the caller explicitly accepted a
// standing path-D offer.
func (o *Orchestrator) dispatchEscalateAccept(ctx context.Context, in TurnInput, agent *ent.Agent, decisionID string) (*TurnResult, error) {
	if err := o.escalation.Accept(ctx, in.AcceptEscalationID); err != nil {
		return nil, fmt.Errorf("orchestrator: accept escalation: %w", err)
	}

	text := "Thanks — I've let the creator know. They'll follow up here once they respond."
	if _, err := o.messaging.SendMessage(ctx, in.ConversationID, agent.OwnerProfileID, messaging.SenderKindAgent, &agent.ID, text, false); err != nil {
		return nil, fmt.Errorf("orchestrator: persist escalation accept message: %w", err)
	}

	return &TurnResult{DecisionID: decisionID, Path: config.PathEscalateAccept, Events: streaming.System(o.llm.ChatModel(), string(config.PathEscalateAccept), text)}, nil
}

// dispatchRefuse runs path F: a polite refusal, with no LLM generation.
func (o *Orchestrator) dispatchRefuse(ctx context.Context, in TurnInput, agent *ent.Agent, decision policy.Decision, decisionID string) (*TurnResult, error) {
	text := refusalText(decision.RefusalReason)

	if _, err := o.messaging.SendMessage(ctx, in.ConversationID, agent.OwnerProfileID, messaging.SenderKindAgent, &agent.ID, text, false); err != nil {
		return nil, fmt.Errorf("orchestrator: persist refusal message: %w", err)
	}

	return &TurnResult{DecisionID: decisionID, Path: config.PathRefuse, Events: streaming.System(o.llm.ChatModel(), string(config.PathRefuse), text)}, nil
}

func refusalText(reason string) string {
	if reason == "" {
		return "I'm not able to help with that."
	}
	return "I'm not able to help with that: " + reason + "."
}

// summarizeForEscalation gives the creator dashboard a one-line context
// string without a second LLM round-trip; a full transcript is already
// available to the creator via the conversation itself.
func summarizeForEscalation(message string) string {
	const maxLen = 280
	trimmed := strings.TrimSpace(message)
	r := []rune(trimmed)
	if len(r) <= maxLen {
		return trimmed
	}
	return string(r[:maxLen]) + "..."
}

// loadHistory returns the conversation's recent messages, oldest first, and
// the conversation's total message count (including the current turn).
func (o *Orchestrator) loadHistory(ctx context.Context, conversationID string) ([]composer.HistoryTurn, int, error) {
	count, err := o.db.DirectMessage.Query().
		Where(entmessage.ConversationIDEQ(conversationID)).
		Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	rows, err := o.db.DirectMessage.Query().
		Where(entmessage.ConversationIDEQ(conversationID)).
		Order(ent.Desc(entmessage.FieldCreatedAt)).
		Limit(historyWindow).
		All(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load messages: %w", err)
	}

	turns := make([]composer.HistoryTurn, len(rows))
	for i, m := range rows {
		role := llm.RoleUser
		if m.SenderKind == entmessage.SenderKindAgent {
			role = llm.RoleAssistant
		}
		turns[len(rows)-1-i] = composer.HistoryTurn{Role: role, Content: m.Content, CreatedAt: m.CreatedAt}
	}

	return turns, count, nil
}

// searchMemories embeds the last user turn and returns the agent's most
// similar memories for the composer's memories block.
func (o *Orchestrator) searchMemories(ctx context.Context, agentID string, history []composer.HistoryTurn) ([]composer.MemoryHit, error) {
	query := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleUser {
			query = history[i].Content
			break
		}
	}
	if query == "" {
		return nil, nil
	}

	vectors, err := o.embedding.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := o.vector.Search(ctx, vectorstore.CollectionAgentMemories, vectorstore.Query{
		Vector:  vectors[0],
		AgentID: agentID,
		TopK:    maxMemoryHits,
	})
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}

	hits := make([]composer.MemoryHit, len(matches))
	for i, m := range matches {
		hits[i] = composer.MemoryHit{Content: m.Record.Content, Similarity: m.Score}
	}
	return hits, nil
}

// latestSummary returns the conversation's most recent ConversationSummary, if any.
func (o *Orchestrator) latestSummary(ctx context.Context, conversationID string) (*composer.Summary, error) {
	row, err := o.db.ConversationSummary.Query().
		Where(entsummary.ConversationIDEQ(conversationID)).
		Order(ent.Desc(entsummary.FieldCreatedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &composer.Summary{Content: row.Content, MessageCountAtCreation: row.MessageCountAtCreation}, nil
}

func ragHitsFrom(result *retrieval.Result) []composer.RAGHit {
	if result == nil {
		return nil
	}
	hits := make([]composer.RAGHit, len(result.Hits))
	for i, h := range result.Hits {
		hits[i] = composer.RAGHit{Content: h.Content, Layer: h.Layer, Score: h.Score}
	}
	return hits
}
