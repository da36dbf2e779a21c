// Package streaming implements the streaming responder: a single
// cooperative producer per request that relays LLM tokens (or a single
// system message for paths that do not stream from the LLM) as a strict,
// ordered sequence of SSE events, cooperatively canceled on client
// disconnect.
package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/relaysocial/orchestrator/pkg/llm"
)

// EventType identifies one of the five event shapes this package emits.
type EventType string

const (
	EventStart    EventType = "start"
	EventToken    EventType = "token"
	EventSystem   EventType = "system"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is the single wire shape for every SSE frame this package emits,
// with unused fields omitted from the JSON payload per event type.
type Event struct {
	Type         EventType `json:"type"`
	Model        string    `json:"model,omitempty"`
	DecisionPath string    `json:"decision_path,omitempty"`
	Text         string    `json:"text,omitempty"`
	MessageID    string    `json:"message_id,omitempty"`
	TokensUsed   int       `json:"tokens_used,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	Retryable    bool      `json:"retryable,omitempty"`
}

// Complete builds the terminal event a caller emits once it has persisted
// the assistant's message and knows its id — message_id isn't known until
// persistence runs.
func Complete(messageID string, tokensUsed int) Event {
	return Event{Type: EventComplete, MessageID: messageID, TokensUsed: tokensUsed}
}

// System returns a one-shot, already-closed stream carrying a single system
// message: used for paths B through F, none of which stream from the LLM
// (path B's clarifying question comes from one non-streamed call made
// before this).
func System(model string, decisionPath string, text string) <-chan Event {
	ch := make(chan Event, 2)
	ch <- Event{Type: EventStart, Model: model, DecisionPath: decisionPath}
	ch <- Event{Type: EventSystem, Text: text}
	close(ch)
	return ch
}

// Accumulator collects the text and usage of a StreamTokens run. It must
// only be read after the channel StreamTokens returned has been fully
// drained (or abandoned on cancellation) — it is written to by the
// producer goroutine and is not safe for concurrent reads mid-stream.
type Accumulator struct {
	text       strings.Builder
	tokensUsed int
	truncated  bool
}

func (a *Accumulator) Text() string    { return a.text.String() }
func (a *Accumulator) TokensUsed() int { return a.tokensUsed }

// Truncated reports whether the stream ended early (client disconnect or
// upstream error) rather than running to natural completion. Callers persist
// whatever text was accumulated with this as the message's truncated flag
// so it can be persisted with a truncation flag.
func (a *Accumulator) Truncated() bool { return a.truncated }

// Producer drives LLM chat completions for path A: a single cooperative
// task per request.
type Producer struct {
	llm llm.Client
}

// New builds a Producer over the given chat client.
func New(llmClient llm.Client) *Producer {
	return &Producer{llm: llmClient}
}

// StreamTokens starts a chat completion and relays a start event followed by
// one token event per text fragment, in strict generation order. The
// returned channel closes when the stream ends, whether by natural
// completion, upstream error, or ctx cancellation (client disconnect); the
// returned Accumulator reflects the final outcome once that happens.
func (p *Producer) StreamTokens(ctx context.Context, req llm.ChatRequest, model, decisionPath string) (<-chan Event, *Accumulator) {
	acc := &Accumulator{}
	out := make(chan Event)

	go func() {
		defer close(out)

		select {
		case out <- Event{Type: EventStart, Model: model, DecisionPath: decisionPath}:
		case <-ctx.Done():
			acc.truncated = true
			return
		}

		chunks, err := p.llm.Chat(ctx, req)
		if err != nil {
			acc.truncated = true
			emit(ctx, out, Event{Type: EventError, Kind: "upstream_unavailable", Retryable: true})
			return
		}

		for chunk := range chunks {
			switch c := chunk.(type) {
			case *llm.TextChunk:
				acc.text.WriteString(c.Content)
				if !emit(ctx, out, Event{Type: EventToken, Text: c.Content}) {
					acc.truncated = true
					return
				}
			case *llm.UsageChunk:
				acc.tokensUsed = c.TotalTokens
			case *llm.ErrorChunk:
				acc.truncated = acc.text.Len() > 0
				emit(ctx, out, Event{Type: EventError, Kind: "upstream_unavailable", Retryable: c.Retryable})
				return
			}
		}

		if ctx.Err() != nil {
			acc.truncated = true
		}
	}()

	return out, acc
}

// emit sends ev on out unless ctx is canceled first, reporting whether the
// send succeeded — the cooperative-cancellation point on every relay.
func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// WriteSSE writes one event as a single `data: <json>\n\n` frame and flushes
// it immediately. SSE framing is three lines of stdlib; no available
// dependency adds value over writing it directly (see DESIGN.md).
func WriteSSE(w http.ResponseWriter, flusher http.Flusher, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("streaming: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return fmt.Errorf("streaming: write frame: %w", err)
	}
	flusher.Flush()
	return nil
}

// Relay drains events onto w as SSE frames until the channel closes or ctx
// is canceled, whichever comes first — the pull-driven consumer side of the
// producer/consumer split this package implements.
func Relay(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, events <-chan Event) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := WriteSSE(w, flusher, ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
