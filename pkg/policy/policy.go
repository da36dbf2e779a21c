// Package policy is the orchestrator's decision core: a pure function from
// signals, per-agent policy, escalation quota, and caller tier to exactly one
// of the six routing paths (A-F). Evaluation order is fixed and the first
// matching rule wins, mirrored directly from the decision table this package
// implements — see Decide.
package policy

import (
	"regexp"
	"strings"
	"time"

	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/signals"
)

// AgentPolicy is the subset of a per-agent OrchestratorConfig the policy
// engine reads. Decoupled from the ent-generated type so this package can be
// tested without a database.
type AgentPolicy struct {
	AllowedUserTiers              []config.UserTier
	EscalationEnabled             bool
	BlockedTopics                 []string
	AutoAnswerConfidenceThreshold float64
	ClarificationEnabled          bool
	MaxEscalationsPerDay          int
	MaxEscalationsPerWeek         int
}

// allowsTier reports whether tier is present in AllowedUserTiers. Strict
// subset membership, not a tier hierarchy (see DESIGN.md Open Question #3).
func (p AgentPolicy) allowsTier(tier config.UserTier) bool {
	for _, t := range p.AllowedUserTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// QuotaState is the count of non-declined escalations already offered for an
// agent within the current day/week windows (computed by pkg/escalation).
type QuotaState struct {
	Day  int
	Week int
}

func (q QuotaState) exhausted(p AgentPolicy) bool {
	return q.Day >= p.MaxEscalationsPerDay || q.Week >= p.MaxEscalationsPerWeek
}

// CanonicalMatch is the best canonical answer found for the message, scoped
// to the agent and the caller's allowed layers, or nil if none was found.
type CanonicalMatch struct {
	ID         string
	Content    string
	Similarity float64
	Layer      config.Layer
}

// Input bundles everything Decide needs to reach exactly one decision.
type Input struct {
	Signals    signals.Signals
	Policy     AgentPolicy
	Quota      QuotaState
	CallerTier config.UserTier
	Message    string
	Now        time.Time

	// CanonicalMatch is the top canonical-answer hit, if the caller found one.
	CanonicalMatch *CanonicalMatch

	// CanonicalReuseThreshold is the fixed, system-wide cosine threshold for
	// path C (config.Defaults.CanonicalReuseThreshold), not per-agent.
	CanonicalReuseThreshold float64

	// EscalationAccepted is true when this call represents the user's
	// explicit accept of a standing path-D offer (rule 7).
	EscalationAccepted bool
}

// Decision is the outcome of a single policy evaluation.
type Decision struct {
	Path config.DecisionPath

	// RefusalReason is set on path F.
	RefusalReason string

	// CanonicalAnswerID/Content are set on path C.
	CanonicalAnswerID      string
	CanonicalAnswerContent string

	// EscalationReason is set on paths D and E.
	EscalationReason config.EscalationReason

	// RuleOrder is the 1-based index of the rule that fired, kept for
	// logging and for test assertions about which rule matched.
	RuleOrder int
}

// suggestsEscalation is the novelty/complexity test shared by rule 1 (via
// escalation_enabled=false) and rule 6 (the escalation offer itself).
func suggestsEscalation(s signals.Signals) bool {
	return s.Novelty >= 0.7 || s.Complexity >= 0.6
}

// escalationReasonFor classifies why a message escalated, for the
// Escalation.reason column.
func escalationReasonFor(s signals.Signals) config.EscalationReason {
	switch {
	case s.Novelty >= 0.7 && s.Complexity >= 0.6:
		return config.EscalationReasonStrategic
	case s.Novelty >= 0.7:
		return config.EscalationReasonNovel
	default:
		return config.EscalationReasonComplex
	}
}

type rule func(in Input) (*Decision, bool)

// rules is the decision table in fixed evaluation order. The first rule
// whose condition holds wins; later rules are never consulted.
var rules = []rule{
	ruleGateOut,
	ruleBlockedTopic,
	ruleCanonicalReuse,
	ruleAutoAnswer,
	ruleClarify,
	ruleEscalateOffer,
	ruleEscalateAccept,
}

// Decide evaluates the fixed rule order against in and returns exactly one
// decision. If nothing else fires, rule 8's fallback (path A) applies.
func Decide(in Input) Decision {
	for i, r := range rules {
		if d, ok := r(in); ok {
			d.RuleOrder = i + 1
			return *d
		}
	}
	return Decision{Path: config.PathAutoAnswer, RuleOrder: 8}
}

// rule 1: caller tier not allowed, or escalation is disabled and the signals
// would otherwise have suggested one.
func ruleGateOut(in Input) (*Decision, bool) {
	if !in.Policy.allowsTier(in.CallerTier) {
		return &Decision{Path: config.PathRefuse, RefusalReason: "caller tier not permitted"}, true
	}
	if !in.Policy.EscalationEnabled && suggestsEscalation(in.Signals) {
		return &Decision{Path: config.PathRefuse, RefusalReason: "escalation disabled for this agent"}, true
	}
	return nil, false
}

// rule 2: message matches a blocked topic keyword, case-insensitive and
// word-boundary delimited.
func ruleBlockedTopic(in Input) (*Decision, bool) {
	if matchesBlockedTopic(in.Message, in.Policy.BlockedTopics) {
		return &Decision{Path: config.PathRefuse, RefusalReason: "topic unavailable"}, true
	}
	return nil, false
}

func matchesBlockedTopic(message string, topics []string) bool {
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		pattern := `(?i)\b` + regexp.QuoteMeta(topic) + `\b`
		if matched, _ := regexp.MatchString(pattern, message); matched {
			return true
		}
	}
	return false
}

// rule 3: a canonical answer already covers this message closely enough to
// reuse rather than regenerate.
func ruleCanonicalReuse(in Input) (*Decision, bool) {
	m := in.CanonicalMatch
	if m != nil && m.Similarity >= in.CanonicalReuseThreshold {
		return &Decision{
			Path:                   config.PathCanonicalReuse,
			CanonicalAnswerID:      m.ID,
			CanonicalAnswerContent: m.Content,
		}, true
	}
	return nil, false
}

// rule 4: confidence clears the agent's threshold and the message isn't too
// complex to answer directly.
func ruleAutoAnswer(in Input) (*Decision, bool) {
	if in.Signals.Confidence >= in.Policy.AutoAnswerConfidenceThreshold && in.Signals.Complexity <= 0.6 {
		return &Decision{Path: config.PathAutoAnswer}, true
	}
	return nil, false
}

// rule 5: short, simple messages get a clarifying question instead of a
// guess, when the agent allows it.
func ruleClarify(in Input) (*Decision, bool) {
	if in.Policy.ClarificationEnabled && in.Signals.TokenCount <= 8 && in.Signals.Complexity <= 0.4 {
		return &Decision{Path: config.PathClarify}, true
	}
	return nil, false
}

// rule 6: the message looks novel or complex enough to warrant escalating to
// the creator, provided the agent hasn't exhausted its quota.
func ruleEscalateOffer(in Input) (*Decision, bool) {
	if suggestsEscalation(in.Signals) && !in.Quota.exhausted(in.Policy) {
		return &Decision{Path: config.PathEscalateOffer, EscalationReason: escalationReasonFor(in.Signals)}, true
	}
	return nil, false
}

// rule 7: the user explicitly accepted a standing escalation offer.
func ruleEscalateAccept(in Input) (*Decision, bool) {
	if in.EscalationAccepted {
		return &Decision{Path: config.PathEscalateAccept, EscalationReason: escalationReasonFor(in.Signals)}, true
	}
	return nil, false
}
