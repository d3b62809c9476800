package advice

import (
	"context"
	"errors"
	"log/slog"
)

// Generator produces a raw JSON recommendation. feedback carries the reason
// the previous attempt was rejected, empty on the first attempt.
type Generator interface {
	Generate(ctx context.Context, c Context, feedback string) (string, error)
}

type Source string

const (
	SourceGenerated Source = "generated"
	SourceRuleBased Source = "rule-based"
)

// DisabledReason is reported when no generator is configured.
const DisabledReason = "advice generator disabled: no API key configured"

// Caller-facing fallback reasons. Raw generator errors only reach the log
// and the next attempt's feedback.
const (
	ReasonUnavailable = "generator unavailable"
	ReasonMalformed   = "response malformed"
	reasonGuardrail   = "rejected by guardrail: "
)

// failureReason maps an attempt error to its caller-facing category.
func failureReason(err error, fromGenerator bool) string {
	var v *Violation
	switch {
	case fromGenerator:
		return ReasonUnavailable
	case errors.As(err, &v):
		return reasonGuardrail + v.Rule
	default:
		return ReasonMalformed
	}
}

type Outcome struct {
	Text           string         `json:"text"`
	Source         Source         `json:"source"`
	Reason         string         `json:"reason,omitempty"`
	Attempts       int            `json:"attempts"`
	Recommendation Recommendation `json:"recommendation"`
}

// Resolver turns a Context into displayable advice. A nil Gen goes straight
// to the rule-based fallback.
type Resolver struct {
	Gen        Generator
	Attempts   int
	Thresholds Thresholds
	Logger     *slog.Logger
}

type step int

const (
	stepAttempt step = iota
	stepValidate
	stepRetry
	stepAccept
	stepFallback
)

func (r *Resolver) Resolve(ctx context.Context, c Context) Outcome {
	if r == nil || r.Gen == nil {
		return fallback(c, DisabledReason, 0)
	}
	limit := r.Attempts
	if limit <= 0 {
		limit = 2
	}
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	var (
		raw      string
		rec      Recommendation
		err      error
		feedback string
		reason   string
		n        int
	)
	st := stepAttempt
	for {
		switch st {
		case stepAttempt:
			n++
			raw, err = r.Gen.Generate(ctx, c, feedback)
			if err != nil {
				reason = failureReason(err, true)
				st = stepRetry
				continue
			}
			st = stepValidate
		case stepValidate:
			rec, err = ParseRecommendation(raw)
			if err == nil {
				err = Validate(c, rec, r.Thresholds)
			}
			if err != nil {
				reason = failureReason(err, false)
				st = stepRetry
				continue
			}
			st = stepAccept
		case stepRetry:
			var v *Violation
			if errors.As(err, &v) {
				log.Info("advice rejected by guardrail", "street", c.Street, "attempt", n, "rule", v.Rule)
			} else {
				log.Warn("advice attempt failed", "street", c.Street, "attempt", n, "err", err)
			}
			feedback = err.Error()
			if n >= limit || ctx.Err() != nil {
				st = stepFallback
				continue
			}
			st = stepAttempt
		case stepAccept:
			if len(rec.Tips) > MaxTips {
				rec.Tips = rec.Tips[:MaxTips]
			}
			return Outcome{
				Text:           CleanText(Render(rec)),
				Source:         SourceGenerated,
				Attempts:       n,
				Recommendation: rec,
			}
		case stepFallback:
			return fallback(c, reason, n)
		}
	}
}

func fallback(c Context, reason string, attempts int) Outcome {
	return Outcome{
		Text:           FallbackText(c),
		Source:         SourceRuleBased,
		Reason:         reason,
		Attempts:       attempts,
		Recommendation: RuleBased(c),
	}
}
