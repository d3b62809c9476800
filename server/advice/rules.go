package advice

import "strings"

// RuleBased derives a recommendation from equity, opponent count, texture
// and pot odds alone. It is the fallback whenever generation is off or fails.
func RuleBased(c Context) Recommendation {
	tight := min(0.10+0.03*float64(c.Villains), 0.25)
	strong := 0.65 - tight
	medium := 0.45 - tight
	f := c.Features
	if f.Mono {
		strong += 0.03
		medium += 0.02
	}
	if f.Paired {
		strong -= 0.02
	}
	if f.StraightDraw {
		medium += 0.01
	}

	rec := Recommendation{Sizing: "check", Action: "check"}
	summary := "Mostly check or fold"
	switch {
	case c.Equity >= strong:
		rec.Action, rec.Sizing = "bet", "66%"
		if f.Mono {
			rec.Sizing = "50%"
		}
		summary = "Bet mainly for value"
	case c.Equity >= medium:
		rec.Action, rec.Sizing = "bet", "33%"
		summary = "Control the pot with a small bet or a check"
	}

	if c.FacingBet && c.PotOdds != nil {
		need := *c.PotOdds
		switch {
		case c.Equity >= need+0.05:
			rec.Action, summary = "call", "Calling is fine"
		case c.Equity >= need-0.02 && c.Equity >= medium:
			rec.Action, summary = "call", "Marginal call, see the next card"
		default:
			rec.Action, summary = "fold", "Fold to the bet"
		}
		rec.Line = "Facing a bet: " + rec.Action
	} else if rec.Sizing != "check" {
		rec.Line = "Suggested line: bet"
	} else {
		rec.Line = "Suggested line: check"
	}
	rec.Summary = summary + "; sizing: " + rec.Sizing

	switch {
	case c.Equity > 0.6:
		rec.OpponentCompare = "you are ahead more often"
	case c.Equity >= 0.40:
		rec.OpponentCompare = "roughly even"
	default:
		rec.OpponentCompare = "opponents are ahead more often"
	}

	var tips []string
	if c.SPR != nil && *c.SPR <= 3 && c.Equity >= medium {
		tips = append(tips, "Low SPR: push value or apply pressure")
	}
	if c.SPR != nil && *c.SPR >= 6 && c.Equity < medium {
		tips = append(tips, "High SPR: keep the pot small with marginal hands")
	}
	if f.TwoTone {
		tips = append(tips, "Two-tone board: watch for flush draws")
	}
	if f.Mono {
		tips = append(tips, "Monotone board: be careful without a flush")
	}
	if f.Paired {
		tips = append(tips, "Paired board: beware of full houses and trips")
	}
	if f.StraightDraw {
		tips = append(tips, "Connected board: medium sizings work better")
	}
	if len(tips) > MaxTips {
		tips = tips[:MaxTips]
	}
	rec.Tips = tips
	return rec
}

// FallbackText renders the rule-based recommendation for display.
func FallbackText(c Context) string {
	rec := RuleBased(c)
	lines := []string{rec.Summary, rec.Line, "Opponent: " + rec.OpponentCompare}
	if len(rec.Tips) > 0 {
		lines = append(lines, "Tips: "+strings.Join(rec.Tips, "; "))
	}
	return strings.Join(lines, "\n")
}
