package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Ongao1/Poker-assistant/server/advice"
)

const advisorSystem = `You are a Texas Hold'em coach. Follow these rules strictly:
1) Base your advice only on the JSON fields provided. Never compute or invent any numbers.
2) Reply with a single JSON object with keys action, sizing, summary, opponent_compare, tips.
3) action is one of bet, check, raise, call, fold, need_more_info. sizing is one of check, 33%, 50%, 66%, 100%, overbet.
4) tips is a list of at most four short qualitative tips and must not contain digits.
5) When writing Chinese, never put separators between characters.
6) If information is missing, answer action=need_more_info and explain in tips.`

// Advisor asks a chat model for a structured recommendation. It satisfies
// advice.Generator.
type Advisor struct {
	Provider    Provider
	Temperature float64
	// Strict sends a JSON schema with the action and sizing enums instead of
	// plain JSON mode. Not every provider accepts it.
	Strict    bool
	MaxTokens int          // 0 uses defaultMaxTokens
	Client    *http.Client // nil uses a 45s-timeout client
}

const defaultMaxTokens = 600

func (a *Advisor) Generate(ctx context.Context, c advice.Context, feedback string) (string, error) {
	state, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	msgs := []message{{Role: "system", Content: advisorSystem}}
	if feedback != "" {
		msgs = append(msgs, message{Role: "system", Content: "The previous answer was rejected: " + feedback})
	}
	msgs = append(msgs, message{Role: "user", Content: "Current hand JSON:\n" + string(state)})

	body := chatRequest{
		Model:          a.Provider.Model,
		Messages:       msgs,
		Temperature:    a.Temperature,
		MaxTokens:      a.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if a.Strict {
		body.ResponseFormat = responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: "poker_advice", Strict: true, Schema: adviceSchema()},
		}
	}
	text, err := a.Provider.complete(ctx, a.Client, body)
	if err != nil {
		return "", err
	}
	raw := strings.TrimSpace(text)
	if raw == "" {
		return "", errors.New("empty response")
	}
	if !json.Valid([]byte(raw)) {
		if cleaned := extractJSONObject(raw); cleaned != "" {
			raw = cleaned
		}
	}
	return raw, nil
}

func adviceSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"action":           map[string]any{"type": "string", "enum": advice.Actions},
			"sizing":           map[string]any{"type": "string", "enum": advice.Sizings},
			"summary":          map[string]any{"type": "string"},
			"opponent_compare": map[string]any{"type": "string"},
			"tips": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": advice.MaxTips,
			},
		},
		"required": []string{"action", "sizing", "summary", "opponent_compare", "tips"},
	}
}
