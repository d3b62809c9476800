package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Ongao1/Poker-assistant/server/streets"
	"github.com/Ongao1/Poker-assistant/server/tasks"
)

func newAnalyzeCmd() *cobra.Command {
	var f streets.Form
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one hand in the terminal",
		Long: `Run one analysis in-process and print a block per street.

Examples:
  poker-assistant analyze --hero "As Ks" --flop "Ah 7d 2c" --villains 1
  poker-assistant analyze --hero "黑桃A 红桃K" --flop "Ah 7d 2c" --turn 9h --pot 10 --call-turn 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), f, asJSON)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Hero, "hero", "", "hero hole cards, e.g. \"As Ks\"")
	fl.StringVar(&f.Position, "pos", "", "hero position")
	fl.StringVar(&f.Flop, "flop", "", "three flop cards")
	fl.StringVar(&f.Turn, "turn", "", "turn card")
	fl.StringVar(&f.River, "river", "", "river card (needs --turn)")
	fl.StringVar(&f.Villains, "villains", "", "number of opponents")
	fl.StringVar(&f.StackBB, "stack", "", "effective stack in big blinds")
	fl.StringVar(&f.PotBB, "pot", "", "pot in big blinds")
	fl.StringVar(&f.CallFlop, "call-flop", "", "amount to call on the flop, in big blinds")
	fl.StringVar(&f.CallTurn, "call-turn", "", "amount to call on the turn, in big blinds")
	fl.StringVar(&f.CallRiver, "call-river", "", "amount to call on the river, in big blinds")
	fl.BoolVar(&asJSON, "json", false, "print the final task state as JSON")
	_ = cmd.MarkFlagRequired("hero")
	_ = cmd.MarkFlagRequired("flop")
	return cmd
}

func runAnalyze(parent context.Context, f streets.Form, asJSON bool) error {
	cfg, log := setup()
	req, err := streets.ParseForm(f, streets.Defaults{Villains: cfg.DefaultVillains, Trials: cfg.Trials})
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := tasks.NewRegistry(0)
	resolver, _, _ := newResolver(cfg, log)
	orch := &streets.Orchestrator{
		Registry:  reg,
		Advisor:   resolver,
		Logger:    log,
		Epsilon:   cfg.EarlyStopEps,
		Budget:    cfg.TimeBudget,
		SimWeight: cfg.SimWeight,
	}
	if db := openArchive(ctx, cfg, log); db != nil {
		defer db.Close(context.Background())
		orch.Archive = db
	}

	id, tctx := reg.Create(context.WithoutCancel(ctx))
	finished := make(chan string, 1)
	go func() { finished <- orch.Run(tctx, id, req) }()
	go func() {
		<-ctx.Done()
		_ = reg.Cancel(id)
	}()

	st, err := follow(reg, id, finished, !asJSON)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	renderResults(st)
	return nil
}

// follow mirrors the task's progress until Run returns.
func follow(reg *tasks.Registry, id string, finished <-chan string, show bool) (tasks.State, error) {
	var bar *pterm.ProgressbarPrinter
	if show {
		var err error
		bar, err = pterm.DefaultProgressbar.WithTotal(100).WithTitle("starting").Start()
		if err != nil {
			return tasks.State{}, err
		}
	}
	shown := 0
	for {
		st, changed, err := reg.Watch(id)
		if err != nil {
			return tasks.State{}, err
		}
		if bar != nil {
			if st.Percent > shown {
				bar.Add(st.Percent - shown)
				shown = st.Percent
			}
			bar.UpdateTitle(st.Stage)
		}
		select {
		case <-changed:
		case status := <-finished:
			if bar != nil {
				_, _ = bar.Stop()
			}
			st, err := reg.Get(id)
			if err == nil && status == streets.StatusFailed {
				pterm.Error.Println(st.Stage)
			}
			return st, err
		}
	}
}

func renderResults(st tasks.State) {
	if st.Cancel {
		pterm.Warning.Println("analysis cancelled")
	}
	for _, r := range st.Results {
		pterm.DefaultSection.Println(r.Title)
		delta := "-"
		if r.Delta != nil {
			delta = fmt.Sprintf("%+.1f%%", *r.Delta*100)
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"Hero", "Board", "Hand", "Equity", "Change", "Trials", "Stop"},
			{r.Hero, r.Board, r.HandName, fmt.Sprintf("%.1f%%", r.Equity*100), delta, fmt.Sprint(r.Trials), r.Stop},
		}).Render()

		title := pterm.LightGreen("|ADVICE|")
		if r.AdviceSource != "generated" {
			title = pterm.LightYellow("|ADVICE: " + r.AdviceSource + "|")
		}
		pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2).WithTitle(title).WithTitleTopCenter().Println(r.AdviceText)
		if r.AdviceReason != "" {
			pterm.Info.Println(r.AdviceReason)
		}
	}
}
