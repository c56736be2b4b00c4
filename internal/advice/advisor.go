// Package advice asks a chat model for negotiation guidance on behalf of a
// human participant. The advisor is best-effort and entirely outside the
// consistency core: it reads a snapshot, never writes one.
package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/caravangame/caravan-server/internal/game"
)

// ErrUnavailable means no API key is configured on the server.
var ErrUnavailable = errors.New("advice: no API key configured")

const systemPrompt = "You are a negotiation assistant for a resource trading " +
	"board game. Given the game situation, suggest which trades the requesting " +
	"player should offer or accept, and why, in a few short sentences."

type Advisor struct {
	client   openai.Client
	model    string
	fallback string
	enabled  bool
	log      *zap.Logger
}

func New(apiKey, model, fallback string, log *zap.Logger) *Advisor {
	a := &Advisor{model: model, fallback: fallback, log: log}
	if apiKey != "" {
		a.client = openai.NewClient(option.WithAPIKey(apiKey))
		a.enabled = true
	}
	return a
}

func (a *Advisor) Enabled() bool { return a.enabled }

// Advise produces advice for requester (or the current actor when nil).
func (a *Advisor) Advise(ctx context.Context, g *game.Game, requester *game.Color) (string, error) {
	if !a.enabled {
		return "", ErrUnavailable
	}
	prompt := buildPrompt(g, requester)

	out, err := a.complete(ctx, a.model, prompt)
	if err != nil && a.fallback != "" && a.fallback != a.model {
		a.log.Warn("advice model failed, retrying with fallback",
			zap.String("model", a.model),
			zap.String("fallback", a.fallback),
			zap.Error(err))
		out, err = a.complete(ctx, a.fallback, prompt)
	}
	if err != nil {
		return "", fmt.Errorf("advice request: %w", err)
	}
	return out, nil
}

func (a *Advisor) complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("response contained no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("response contained no text")
	}
	return content, nil
}

func buildPrompt(g *game.Game, requester *game.Color) string {
	s := g.State
	var b strings.Builder
	current := s.CurrentColor()
	if requester == nil {
		requester = &current
	}
	fmt.Fprintf(&b, "Requesting player: %s\n", *requester)
	fmt.Fprintf(&b, "Current turn: %s\n\n", current)
	for i, c := range s.Colors {
		fmt.Fprintf(&b, "%s: %d points, hand %s\n", c, s.Points[i], formatHand(s.Hands[i]))
	}
	if t := s.Trade; t != nil {
		fmt.Fprintf(&b, "\nOpen trade offer from %s: gives %s, requests %s\n",
			s.Colors[t.OffererSeat], formatHand(t.Offer), formatHand(t.Request))
	}
	return b.String()
}

func formatHand(h game.Hand) string {
	if h.Total() == 0 {
		return "nothing"
	}
	parts := make([]string, 0, len(h))
	for _, r := range game.ResourceOrder {
		if n := h[r]; n > 0 {
			parts = append(parts, fmt.Sprintf("%dx %s", n, strings.ToLower(string(r))))
		}
	}
	return strings.Join(parts, ", ")
}
