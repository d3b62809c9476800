package advice

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

var (
	Actions = []string{"bet", "check", "raise", "call", "fold", "need_more_info"}
	Sizings = []string{"check", "33%", "50%", "66%", "100%", "overbet"}
)

// Violation is a guardrail rejection. Reason is fed back to the generator.
type Violation struct {
	Rule   string
	Reason string
}

func (v *Violation) Error() string { return fmt.Sprintf("%s: %s", v.Rule, v.Reason) }

type Thresholds struct {
	CallSlack      float64 // call/raise needs equity+CallSlack >= pot odds
	FoldEdge       float64 // fold rejected when equity > pot odds+FoldEdge
	MultiwayEquity float64
	MonoEquity     float64
	DeepSPR        float64
	DeepEquity     float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CallSlack:      0.02,
		FoldEdge:       0.08,
		MultiwayEquity: 0.45,
		MonoEquity:     0.55,
		DeepSPR:        6,
		DeepEquity:     0.55,
	}
}

// Validate runs the guardrails in order and returns the first *Violation.
func Validate(c Context, r Recommendation, th Thresholds) error {
	if !slices.Contains(Actions, r.Action) || !slices.Contains(Sizings, r.Sizing) {
		return &Violation{"vocabulary", fmt.Sprintf("action %q / sizing %q not in the allowed sets %v / %v", r.Action, r.Sizing, Actions, Sizings)}
	}
	aggressive := r.Action == "bet" || r.Action == "raise"
	big := r.Sizing == "66%" || r.Sizing == "100%" || r.Sizing == "overbet"
	huge := r.Sizing == "100%" || r.Sizing == "overbet"

	if c.FacingBet && c.PotOdds != nil {
		odds := *c.PotOdds
		if (r.Action == "call" || r.Action == "raise") && c.Equity+th.CallSlack < odds {
			return &Violation{"pot-odds", fmt.Sprintf("equity %.3f is below the %.3f needed to continue", c.Equity, odds)}
		}
		if r.Action == "fold" && c.Equity > odds+th.FoldEdge {
			return &Violation{"pot-odds", fmt.Sprintf("folding gives up a clear edge: equity %.3f vs pot odds %.3f", c.Equity, odds)}
		}
	}
	if c.Villains >= 3 && c.Equity < th.MultiwayEquity && aggressive && big {
		return &Violation{"multiway", "large sizing with low equity against three or more opponents"}
	}
	if c.Features.Mono && c.Equity < th.MonoEquity && aggressive && huge {
		return &Violation{"mono-board", "pot-sized or larger bets on a monotone board need more equity"}
	}
	if c.SPR != nil && *c.SPR >= th.DeepSPR && c.Equity < th.DeepEquity && aggressive && big {
		return &Violation{"deep-spr", "marginal hand should not grow the pot at a deep stack-to-pot ratio"}
	}
	for _, tip := range r.Tips {
		if strings.IndexFunc(tip, unicode.IsDigit) >= 0 {
			return &Violation{"tip-digits", fmt.Sprintf("tips must not contain numbers: %q", tip)}
		}
	}
	return nil
}

// Describe lists the guardrails in evaluation order.
func (th Thresholds) Describe() []string {
	return []string{
		"vocabulary: action and sizing must come from the fixed sets",
		fmt.Sprintf("pot-odds: no call or raise when equity+%.2f < pot odds, no fold when equity > pot odds+%.2f", th.CallSlack, th.FoldEdge),
		fmt.Sprintf("multiway: no 66%%+ bet or raise below %.2f equity against three or more opponents", th.MultiwayEquity),
		fmt.Sprintf("mono-board: no pot-sized or overbet below %.2f equity on a monotone board", th.MonoEquity),
		fmt.Sprintf("deep-spr: no 66%%+ bet or raise below %.2f equity when SPR >= %.1f", th.DeepEquity, th.DeepSPR),
		"tip-digits: tips contain no numbers",
	}
}
