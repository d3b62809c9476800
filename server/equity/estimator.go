package equity

import (
	"context"
	"math/rand"
	"time"

	poker "github.com/paulhankin/poker"

	"github.com/Ongao1/Poker-assistant/server/engine"
)

// DefaultBatch is the number of trials run between stopping checks.
const DefaultBatch = 400

type StopReason string

const (
	StopBudget     StopReason = "budget"     // trial budget exhausted
	StopEarly      StopReason = "early"      // confidence half-width under epsilon
	StopDeadline   StopReason = "deadline"   // wall-clock budget exceeded
	StopCancelled  StopReason = "cancelled"  // context done
	StopInfeasible StopReason = "infeasible" // deck cannot supply one trial
)

type Params struct {
	Hero     []engine.Card
	Board    []engine.Card
	Villains int
	Trials   int
	Epsilon  float64       // 0 disables early stopping
	Budget   time.Duration // 0 disables the deadline
	Seed     int64
	Batch    int
}

type Result struct {
	Equity    float64       `json:"equity"`
	Trials    int           `json:"trials"`
	Stop      StopReason    `json:"stop"`
	HalfWidth float64       `json:"half_width"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Interval is the Wilson 95% interval around Equity.
func (r Result) Interval() (lo, hi float64) { return Wilson95(r.Equity, r.Trials) }

// Observer receives estimator progress in percent after every batch.
type Observer interface {
	Progress(pct int)
}

type ObserverFunc func(pct int)

func (f ObserverFunc) Progress(pct int) { f(pct) }

// Estimate runs a Monte Carlo showdown of hero against p.Villains random
// hands, completing the board each trial. It never returns an error: an
// impossible deal yields zero trials and equity 0.
func Estimate(ctx context.Context, p Params, obs Observer) Result {
	start := time.Now()
	batch := p.Batch
	if batch <= 0 {
		batch = DefaultBatch
	}
	deck := engine.Remaining(p.Hero, p.Board)
	need := DrawCount(p.Villains, len(p.Board))
	if len(p.Hero) != 2 || len(p.Board) > 5 || p.Villains < 1 || need > len(deck) {
		return Result{Stop: StopInfeasible, Elapsed: time.Since(start)}
	}
	if p.Trials <= 0 {
		return Result{Stop: StopBudget, Elapsed: time.Since(start)}
	}

	s := newSampler(deck, p.Seed)
	var hero [2]poker.Card
	hero[0], hero[1] = engine.ToPH(p.Hero[0]), engine.ToPH(p.Hero[1])
	board := make([]poker.Card, len(p.Board))
	for i, c := range p.Board {
		board[i] = engine.ToPH(c)
	}

	var wins float64
	n := 0
	stop := StopBudget
	half := 0.0
	for n < p.Trials {
		if ctx.Err() != nil {
			stop = StopCancelled
			break
		}
		k := min(batch, p.Trials-n)
		for i := 0; i < k; i++ {
			wins += s.trial(hero, board, p.Villains)
		}
		n += k

		half = HalfWidth(wins/float64(n), n)
		if obs != nil {
			obs.Progress(min(100, n*100/max(p.Trials, 1)))
		}
		if n >= p.Trials {
			break
		}
		if p.Epsilon > 0 && half < p.Epsilon {
			stop = StopEarly
			break
		}
		if p.Budget > 0 && time.Since(start) > p.Budget {
			stop = StopDeadline
			break
		}
	}
	return Result{
		Equity:    wins / float64(max(n, 1)),
		Trials:    n,
		Stop:      stop,
		HalfWidth: half,
		Elapsed:   time.Since(start),
	}
}

// DrawCount is the number of undealt cards one trial consumes.
func DrawCount(villains, boardLen int) int { return 2*villains + (5 - boardLen) }

// sampler keeps the undealt deck in both representations, permuted in step.
type sampler struct {
	rng  *rand.Rand
	deck []engine.Card
	ph   []poker.Card
}

func newSampler(deck []engine.Card, seed int64) *sampler {
	ph := make([]poker.Card, len(deck))
	for i, c := range deck {
		ph[i] = engine.ToPH(c)
	}
	return &sampler{rng: rand.New(rand.NewSource(seed)), deck: deck, ph: ph}
}

// draw moves n uniformly chosen cards to the front of the deck (partial
// Fisher-Yates) and returns them.
func (s *sampler) draw(n int) []poker.Card {
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(s.deck)-i)
		s.deck[i], s.deck[j] = s.deck[j], s.deck[i]
		s.ph[i], s.ph[j] = s.ph[j], s.ph[i]
	}
	return s.ph[:n]
}

// trial returns hero's win-equivalents for one random deal: 1 for an
// outright win, 1/(k+1) when tied with k villains for best, else 0.
func (s *sampler) trial(hero [2]poker.Card, board []poker.Card, villains int) float64 {
	drawn := s.draw(DrawCount(villains, len(board)))
	var seven [7]poker.Card
	copy(seven[2:], board)
	copy(seven[2+len(board):], drawn[2*villains:])

	seven[0], seven[1] = hero[0], hero[1]
	mine := engine.Rank7(&seven)
	ties := 0
	for v := 0; v < villains; v++ {
		seven[0], seven[1] = drawn[2*v], drawn[2*v+1]
		score := engine.Rank7(&seven)
		if score < mine {
			return 0
		}
		if score == mine {
			ties++
		}
	}
	return 1 / float64(ties+1)
}
