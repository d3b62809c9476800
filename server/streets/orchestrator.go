package streets

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Ongao1/Poker-assistant/server/advice"
	"github.com/Ongao1/Poker-assistant/server/engine"
	"github.com/Ongao1/Poker-assistant/server/equity"
	"github.com/Ongao1/Poker-assistant/server/metrics"
	"github.com/Ongao1/Poker-assistant/server/tasks"
)

// Advisor resolves advice for one street. *advice.Resolver implements it.
type Advisor interface {
	Resolve(ctx context.Context, c advice.Context) advice.Outcome
}

// Archive receives a copy of every analysis. Failures are logged and never
// affect the task.
type Archive interface {
	StartAnalysis(ctx context.Context, id string, req Request) error
	RecordStreet(ctx context.Context, id string, idx int, res tasks.StreetResult) error
	FinishAnalysis(ctx context.Context, id, status string) error
}

type Estimator func(ctx context.Context, p equity.Params, obs equity.Observer) equity.Result

// Orchestrator runs the streets of a task and reports through the registry.
type Orchestrator struct {
	Registry  *tasks.Registry
	Advisor   Advisor
	Metrics   *metrics.Metrics
	Archive   Archive
	Logger    *slog.Logger
	Epsilon   float64
	Budget    time.Duration
	SimWeight float64   // share of each street spent simulating, default 0.85
	Estimate  Estimator // defaults to equity.Estimate
}

const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"

	archiveTimeout = 5 * time.Second
)

// Start registers a task and runs it on its own goroutine. base should
// outlive the request that created the task.
func (o *Orchestrator) Start(base context.Context, req Request) string {
	id, ctx := o.Registry.Create(base)
	go o.Run(ctx, id, req)
	return id
}

// Run drives every street of req for task id and returns the final status.
func (o *Orchestrator) Run(ctx context.Context, id string, req Request) (status string) {
	log := o.logger().With("task_id", id)
	o.Metrics.TaskStarted()
	o.archive(ctx, log, func(actx context.Context) error { return o.Archive.StartAnalysis(actx, id, req) })
	defer func() {
		if p := recover(); p != nil {
			status = StatusFailed
			log.Error("street panicked", "panic", p)
			o.fail(id, fmt.Errorf("%v", p))
		}
		o.Metrics.TaskFinished(status)
		o.archive(ctx, log, func(actx context.Context) error { return o.Archive.FinishAnalysis(actx, id, status) })
		log.Info("task finished", "status", status)
	}()

	var prev *float64
	for i, street := range req.Streets {
		if o.Registry.Cancelled(id) {
			return StatusCancelled
		}
		res, eq, err := o.runStreet(ctx, log.With("street", street.Name), id, i, req, prev)
		if err != nil {
			log.Error("street failed", "street", street.Name, "err", err)
			o.fail(id, err)
			return StatusFailed
		}
		if res == nil {
			return StatusCancelled
		}
		o.archive(ctx, log, func(actx context.Context) error { return o.Archive.RecordStreet(actx, id, i, *res) })
		prev = &eq
	}
	last := ""
	if n := len(req.Streets); n > 0 {
		last = req.Streets[n-1].Name
	}
	_ = o.Registry.Update(id, func(s *tasks.State) {
		s.Stage = StatusCompleted
		s.Percent = 100
		s.ETA = nil
		s.Done = true
		s.Detail["street"] = last
	})
	return StatusCompleted
}

// runStreet simulates and advises street i. A nil result without error
// means the task was cancelled after simulation.
func (o *Orchestrator) runStreet(ctx context.Context, log *slog.Logger, id string, i int, req Request, prev *float64) (*tasks.StreetResult, float64, error) {
	street := req.Streets[i]
	n := float64(len(req.Streets))
	lo := 100 * float64(i) / n
	hi := 100 * float64(i+1) / n
	simEnd := lo + (hi-lo)*o.simWeight()
	started := time.Now()

	if err := o.Registry.Update(id, func(s *tasks.State) {
		s.Stage = street.Name + ": simulating"
		s.Percent = int(lo)
		s.ETA = nil
		s.Detail["street"] = street.Name
	}); err != nil {
		return nil, 0, err
	}

	lastPct := -1
	obs := equity.ObserverFunc(func(pct int) {
		mapped := int(lo + (simEnd-lo)*float64(pct)/100)
		if mapped == lastPct {
			return
		}
		lastPct = mapped
		ratio := math.Max(float64(pct)/100, 1e-6)
		eta := int(time.Since(started).Seconds() / ratio * (1 - ratio))
		_ = o.Registry.Update(id, func(s *tasks.State) {
			s.Percent = mapped
			s.ETA = &eta
		})
	})
	est := o.estimate()(ctx, equity.Params{
		Hero:     req.Hero,
		Board:    street.Board,
		Villains: req.Villains,
		Trials:   street.Trials,
		Epsilon:  o.Epsilon,
		Budget:   o.Budget,
		Seed:     int64(123 + i),
	}, obs)
	o.Metrics.ObserveEquity(est.Trials, string(est.Stop))
	lo95, hi95 := est.Interval()
	log.Debug("equity estimated", "equity", est.Equity, "trials", est.Trials, "stop", est.Stop,
		"ci_low", lo95, "ci_high", hi95)

	if o.Registry.Cancelled(id) {
		return nil, 0, nil
	}

	score, class, err := engine.Evaluate(req.Hero, street.Board)
	if err != nil {
		return nil, 0, fmt.Errorf("evaluate %s: %w", street.Name, err)
	}
	log.Debug("hand evaluated", "hand", engine.Describe(req.Hero, street.Board), "score", score)
	actx := advice.Context{
		Street:     street.Name,
		Hero:       engine.Strings(req.Hero),
		Board:      engine.Strings(street.Board),
		Villains:   req.Villains,
		Equity:     est.Equity,
		HandClass:  string(class),
		Score:      score,
		Features:   engine.Features(street.Board),
		Position:   req.Position,
		StackBB:    req.StackBB,
		PotBB:      req.PotBB,
		SPR:        advice.StackToPot(req.StackBB, req.PotBB),
		CallBB:     street.Call,
		PotOdds:    advice.PotOdds(street.Call, req.PotBB),
		PrevEquity: prev,
	}
	actx.FacingBet = actx.PotOdds != nil
	if prev != nil {
		d := est.Equity - *prev
		actx.Delta = &d
	}

	if err := o.Registry.Update(id, func(s *tasks.State) {
		s.Stage = street.Name + ": advising"
		s.Percent = int(simEnd)
		s.ETA = nil
	}); err != nil {
		return nil, 0, err
	}
	out := o.advisor().Resolve(ctx, actx)
	o.Metrics.ObserveAdvice(string(out.Source), out.Attempts)

	res := tasks.StreetResult{
		Title:        street.Name,
		Hero:         engine.Join(req.Hero),
		Board:        engine.Join(street.Board),
		HandName:     string(class),
		Score:        score,
		Equity:       est.Equity,
		Delta:        actx.Delta,
		Trials:       est.Trials,
		Stop:         string(est.Stop),
		AdviceText:   out.Text,
		AdviceSource: string(out.Source),
		AdviceReason: out.Reason,
	}
	if err := o.Registry.Update(id, func(s *tasks.State) {
		s.Results = append(s.Results, res)
		s.Percent = int(hi)
	}); err != nil {
		return nil, 0, err
	}
	o.Metrics.ObserveStreet(street.Name, time.Since(started))
	return &res, est.Equity, nil
}

func (o *Orchestrator) fail(id string, err error) {
	_ = o.Registry.Update(id, func(s *tasks.State) {
		s.Stage = "error: " + err.Error()
		s.ETA = nil
		s.Done = true
	})
}

// archive runs fn against the optional archive on a context that survives
// task cancellation.
func (o *Orchestrator) archive(ctx context.Context, log *slog.Logger, fn func(context.Context) error) {
	if o.Archive == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := fn(actx); err != nil {
		log.Warn("archive write failed", "err", err)
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Orchestrator) simWeight() float64 {
	if o.SimWeight <= 0 || o.SimWeight > 1 {
		return 0.85
	}
	return o.SimWeight
}

func (o *Orchestrator) estimate() Estimator {
	if o.Estimate == nil {
		return equity.Estimate
	}
	return o.Estimate
}

func (o *Orchestrator) advisor() Advisor {
	if o.Advisor == nil {
		return (*advice.Resolver)(nil)
	}
	return o.Advisor
}
