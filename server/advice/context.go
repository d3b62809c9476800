package advice

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Ongao1/Poker-assistant/server/engine"
)

// Context is everything the advice path may look at for one street. It is
// what gets serialized to the generator, so the JSON names are part of the
// prompt.
type Context struct {
	Street     string               `json:"street"`
	Hero       []string             `json:"hero_hand"`
	Board      []string             `json:"board"`
	Villains   int                  `json:"villains"`
	Equity     float64              `json:"equity"`
	HandClass  string               `json:"hand_class"`
	Score      int                  `json:"score"`
	Features   engine.BoardFeatures `json:"features"`
	Position   string               `json:"position,omitempty"`
	StackBB    *float64             `json:"stack_bb"`
	PotBB      *float64             `json:"pot_bb"`
	SPR        *float64             `json:"spr"`
	FacingBet  bool                 `json:"facing_bet"`
	CallBB     *float64             `json:"call_bb"`
	PotOdds    *float64             `json:"pot_odds"`
	PrevEquity *float64             `json:"prev_equity"`
	Delta      *float64             `json:"delta"`
}

// PotOdds is call/(pot+call), or nil unless both amounts are positive.
func PotOdds(call, pot *float64) *float64 {
	if call == nil || pot == nil || *call <= 0 || *pot <= 0 {
		return nil
	}
	v := *call / (*pot + *call)
	return &v
}

// StackToPot is stack/pot, or nil without a positive pot and a stack.
func StackToPot(stack, pot *float64) *float64 {
	if stack == nil || pot == nil || *pot <= 0 {
		return nil
	}
	v := *stack / *pot
	return &v
}

// Recommendation is the structured answer expected from the generator.
type Recommendation struct {
	Action          string   `json:"action"`
	Sizing          string   `json:"sizing"`
	Summary         string   `json:"summary"`
	OpponentCompare string   `json:"opponent_compare"`
	Tips            []string `json:"tips"`
	Line            string   `json:"line,omitempty"`
}

// MaxTips bounds the tips carried into rendered advice.
const MaxTips = 4

var requiredFields = []string{"action", "sizing", "summary", "opponent_compare", "tips"}

var ErrMalformed = errors.New("malformed recommendation")

// ParseRecommendation decodes a generator reply and checks that every
// required field is present.
func ParseRecommendation(raw string) (Recommendation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err != nil {
		return Recommendation{}, fmt.Errorf("%w: json: %v", ErrMalformed, err)
	}
	for _, k := range requiredFields {
		if _, ok := fields[k]; !ok {
			return Recommendation{}, fmt.Errorf("%w: missing field %s", ErrMalformed, k)
		}
	}
	var rec Recommendation
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Recommendation{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	rec.Action = strings.ToLower(strings.TrimSpace(rec.Action))
	rec.Sizing = strings.ToLower(strings.TrimSpace(rec.Sizing))
	return rec, nil
}

// Render lays a recommendation out as display text.
func Render(rec Recommendation) string {
	lines := []string{
		"Advice: " + rec.Summary,
		fmt.Sprintf("Action: %s / Sizing: %s", rec.Action, rec.Sizing),
	}
	if rec.Line != "" {
		lines = append(lines, rec.Line)
	}
	lines = append(lines, "Opponent: "+rec.OpponentCompare)
	tips := rec.Tips
	if len(tips) > MaxTips {
		tips = tips[:MaxTips]
	}
	if len(tips) > 0 {
		lines = append(lines, "Tips: "+strings.Join(tips, "; "))
	}
	return strings.Join(lines, "\n")
}
