// Package autopost implements the scheduled autoposter: once per run it
// walks every agent with auto_post_enabled=true, skips agents whose last
// auto-post was less than minPostInterval (20h) ago, and otherwise generates a topic, an image
// prompt, and an image, persisting the result as an AgentPost. Image
// generation is an opaque external call — this package only ever sees the
// resulting URL, never pixel data.
package autopost

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relaysocial/orchestrator/ent/agent"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/llm"
)

// minPostInterval is how long after last_auto_post_at an agent is eligible
// again. A calendar-day check would re-trigger right after midnight for an
// agent that just posted; a rolling interval doesn't.
const minPostInterval = 20 * time.Hour

// ImageGenerator produces an image from a prompt, returning only a URL the
// caller can persist. Implementations talk to whatever external provider is
// configured; this package never inspects the image itself.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (url string, err error)
}

// Poster runs one autopost sweep over eligible agents.
type Poster struct {
	db    *database.Client
	llm   llm.Client
	image ImageGenerator
	cfg   *config.AutoPostConfig
}

// New builds a Poster. cfg supplies the global kill switch and the
// inter-agent delay applied between successive posts in a single sweep.
func New(db *database.Client, llmClient llm.Client, image ImageGenerator, cfg *config.AutoPostConfig) *Poster {
	return &Poster{db: db, llm: llmClient, image: image, cfg: cfg}
}

// Result summarizes one sweep.
type Result struct {
	Eligible int
	Posted   int
	Skipped  int
	Failed   int
}

// Run walks all auto_post_enabled agents and posts for each eligible one,
// sleeping cfg.InterAgentDelay between agents. Returns early, doing nothing,
// if the global kill switch is off.
func (p *Poster) Run(ctx context.Context) (Result, error) {
	var res Result

	if !p.cfg.Enabled {
		slog.Info("autopost: sweep skipped, AUTO_POST_ENABLED is off")
		return res, nil
	}

	agents, err := p.db.Agent.Query().
		Where(agent.AutoPostEnabled(true)).
		All(ctx)
	if err != nil {
		return res, fmt.Errorf("autopost: list agents: %w", err)
	}
	res.Eligible = len(agents)

	for i, a := range agents {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		if a.LastAutoPostAt != nil && time.Since(*a.LastAutoPostAt) < minPostInterval {
			res.Skipped++
			continue
		}

		if err := p.postFor(ctx, a.ID, a.Persona); err != nil {
			slog.Warn("autopost: post failed, skipping agent", "agent_id", a.ID, "error", err)
			res.Failed++
			continue
		}
		res.Posted++

		if i < len(agents)-1 && p.cfg.InterAgentDelay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(p.cfg.InterAgentDelay):
			}
		}
	}

	return res, nil
}

// postFor generates and persists a single post for one agent, then stamps
// last_auto_post_at so a concurrent or subsequent sweep won't double-post.
func (p *Poster) postFor(ctx context.Context, agentID, persona string) error {
	topic, err := p.chooseTopic(ctx, persona)
	if err != nil {
		return fmt.Errorf("choose topic: %w", err)
	}

	prompt, caption, err := p.describeImage(ctx, persona, topic)
	if err != nil {
		return fmt.Errorf("describe image: %w", err)
	}

	url, err := p.image.GenerateImage(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate image: %w", err)
	}
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("image generator returned empty url")
	}

	_, err = p.db.AgentPost.Create().
		SetID(uuid.NewString()).
		SetAgentID(agentID).
		SetTopic(topic).
		SetImagePrompt(prompt).
		SetImageURL(url).
		SetNillableCaption(nonEmpty(caption)).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("create agent post: %w", err)
	}

	now := time.Now()
	if _, err := p.db.Agent.UpdateOneID(agentID).SetLastAutoPostAt(now).Save(ctx); err != nil {
		return fmt.Errorf("stamp last_auto_post_at: %w", err)
	}

	return nil
}

// chooseTopic asks the LLM for a single short topic in character for the
// agent's persona.
func (p *Poster) chooseTopic(ctx context.Context, persona string) (string, error) {
	text, err := p.complete(ctx,
		"You pick a single short topic (3-8 words) that this persona would post about today. Respond with the topic only, nothing else.",
		fmt.Sprintf("Persona:\n%s", persona),
		0.9, 32,
	)
	if err != nil {
		return "", err
	}
	topic := strings.TrimSpace(strings.Trim(text, "\"\n "))
	if topic == "" {
		return "", fmt.Errorf("empty topic from llm")
	}
	return topic, nil
}

// describeImage asks the LLM for an image-generation prompt and a short
// caption to go with the chosen topic.
func (p *Poster) describeImage(ctx context.Context, persona, topic string) (prompt, caption string, err error) {
	text, err := p.complete(ctx,
		"You write a vivid, concrete image-generation prompt (one sentence) and a short social caption (one sentence) for the given persona and topic. "+
			"Respond in exactly two lines: the image prompt, then the caption. No labels, no extra text.",
		fmt.Sprintf("Persona:\n%s\n\nTopic: %s", persona, topic),
		0.8, 160,
	)
	if err != nil {
		return "", "", err
	}

	lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
	prompt = strings.TrimSpace(lines[0])
	if prompt == "" {
		return "", "", fmt.Errorf("empty image prompt from llm")
	}
	if len(lines) > 1 {
		caption = strings.TrimSpace(lines[1])
	}
	return prompt, caption, nil
}

// complete runs a single non-streamed chat call and returns the concatenated
// text, failing fast on an upstream error chunk.
func (p *Poster) complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	ch, err := p.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
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
	return b.String(), nil
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
