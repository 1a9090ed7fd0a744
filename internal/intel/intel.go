// Package intel generates targeting intelligence reports from stored
// ad creatives using the Anthropic API.
package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/model"
	"github.com/marketingos/adsurv-cli/internal/store"
	"github.com/marketingos/adsurv-cli/pkg/anthropic"
)

const (
	defaultModel       = "claude-haiku-4-5-20251001"
	defaultSampleLimit = 50
	maxTokens          = 2048
)

const systemPrompt = `You are a marketing intelligence analyst. You receive a JSON
array of competitor ad creatives scraped from public ad libraries, each
with the competitor name, platform, date, and estimated daily spend.

Analyze them and respond with a single JSON object, no prose and no
markdown fences, with these keys:
  "audience_segments": array of audience segments the competitors appear to target
  "messaging_themes": array of recurring messaging themes with short descriptions
  "platform_strategy": object mapping platform to the apparent strategy on it
  "recommendations": array of concrete counter-positioning recommendations

Base every claim on the creatives provided. Do not invent competitors.`

// Generator produces and persists targeting intelligence for a user.
type Generator struct {
	client anthropic.Client
	store  store.Store
	model  string
	limit  int
}

// New creates a Generator. An empty model selects the default.
func New(client anthropic.Client, st store.Store, model string) *Generator {
	if model == "" {
		model = defaultModel
	}
	return &Generator{client: client, store: st, model: model, limit: defaultSampleLimit}
}

// Generate builds a report from the user's most recent creatives and
// stores it. Returns nil without error when no creatives exist yet.
func (g *Generator) Generate(ctx context.Context, userID string) (*model.TargetingIntel, error) {
	samples, err := g.store.ListRecentCreatives(ctx, userID, g.limit)
	if err != nil {
		return nil, eris.Wrap(err, "intel: load creatives")
	}
	if len(samples) == 0 {
		zap.L().Info("no creatives stored yet, skipping intelligence report",
			zap.String("user_id", userID))
		return nil, nil
	}

	payload, err := json.Marshal(samples)
	if err != nil {
		return nil, eris.Wrap(err, "intel: marshal creatives")
	}

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: maxTokens,
		System: []anthropic.SystemBlock{{
			Text:         systemPrompt,
			CacheControl: &anthropic.CacheControl{TTL: "5m"},
		}},
		Messages: []anthropic.Message{{
			Role: "user",
			Content: fmt.Sprintf("Here are %d recent competitor ad creatives:\n%s",
				len(samples), payload),
		}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "intel: create message")
	}
	resp.Usage.LogCost(g.model, "targeting_intel")

	insights, err := extractJSON(resp.Text())
	if err != nil {
		return nil, eris.Wrap(err, "intel: parse model output")
	}

	report := &model.TargetingIntel{
		UserID:   userID,
		Model:    g.model,
		Insights: insights,
	}
	if err := g.store.InsertTargetingIntel(ctx, report); err != nil {
		return nil, eris.Wrap(err, "intel: persist report")
	}
	zap.L().Info("targeting intelligence stored",
		zap.String("user_id", userID),
		zap.String("intel_id", report.ID),
		zap.Int("creatives_analyzed", len(samples)))
	return report, nil
}

// extractJSON pulls the JSON object out of a model response, tolerating
// markdown fences and surrounding prose, and verifies it parses.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if fenced, ok := stripFence(text); ok {
		text = fenced
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", eris.New("intel: no JSON object in response")
	}
	candidate := text[start : end+1]

	var check map[string]any
	if err := json.Unmarshal([]byte(candidate), &check); err != nil {
		return "", eris.Wrap(err, "intel: response is not valid JSON")
	}
	return candidate, nil
}

func stripFence(text string) (string, bool) {
	if !strings.HasPrefix(text, "```") {
		return "", false
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text), true
}
