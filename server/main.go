package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ongao1/Poker-assistant/server/advice"
	"github.com/Ongao1/Poker-assistant/server/config"
	"github.com/Ongao1/Poker-assistant/server/llm"
	"github.com/Ongao1/Poker-assistant/server/metrics"
	"github.com/Ongao1/Poker-assistant/server/store"
	"github.com/Ongao1/Poker-assistant/server/streets"
	"github.com/Ongao1/Poker-assistant/server/tasks"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "poker-assistant",
		Short: "Street-by-street Texas Hold'em equity and advice",
		Long: `poker-assistant estimates hero equity on the flop, turn and river by
Monte Carlo simulation and pairs each street with checked, qualitative advice.

Without a subcommand it runs the HTTP server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the archive schema to DATABASE_URL",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd.Context())
			},
		},
		newAnalyzeCmd(),
	)
	return root
}

// setup loads configuration and installs the process logger.
func setup() (config.Config, *slog.Logger) {
	cfg := config.Load()
	log := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	return cfg, log
}

// newResolver wires the chat-model generator when a key and model resolve.
func newResolver(cfg config.Config, log *slog.Logger) (*advice.Resolver, bool, string) {
	res := &advice.Resolver{Attempts: cfg.AdviceAttempts, Thresholds: cfg.Guard, Logger: log}
	p, err := llm.ResolveProvider(cfg.Model)
	if err != nil {
		log.Info("advice generator disabled", "model", cfg.Model, "reason", err)
		return res, false, advice.DisabledReason + " (" + err.Error() + ")"
	}
	log.Info("advice generator enabled", "model", p.Model, "openrouter", p.OpenRouter)
	res.Gen = &llm.Advisor{Provider: p, Temperature: cfg.Temperature, Strict: cfg.StrictSchema}
	return res, true, ""
}

// openArchive returns nil when DATABASE_URL is unset or unusable; the
// server runs without history in that case.
func openArchive(ctx context.Context, cfg config.Config, log *slog.Logger) *store.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Warn("archive disabled (open failed)", "err", err)
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pctx); err != nil {
		log.Warn("archive disabled (ping failed)", "err", err)
		db.Close(ctx)
		return nil
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(pctx, db); err != nil {
			log.Warn("migrate failed (continuing without archive)", "err", err)
			db.Close(ctx)
			return nil
		}
		log.Info("migrated")
	}
	return db
}

func runServe(parent context.Context) error {
	cfg, log := setup()
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := tasks.NewRegistry(cfg.TaskTTL)
	go reg.RunSweeper(ctx, cfg.SweepInterval)

	promReg, m := metrics.NewRegistry()
	resolver, enabled, reason := newResolver(cfg, log)
	orch := &streets.Orchestrator{
		Registry:  reg,
		Advisor:   resolver,
		Metrics:   m,
		Logger:    log,
		Epsilon:   cfg.EarlyStopEps,
		Budget:    cfg.TimeBudget,
		SimWeight: cfg.SimWeight,
	}
	app := &App{
		Cfg:              cfg,
		Tasks:            reg,
		Orch:             orch,
		Metrics:          metrics.HandlerFor(promReg),
		Logger:           log,
		Base:             ctx,
		GeneratorEnabled: enabled,
		GeneratorReason:  reason,
	}
	if db := openArchive(ctx, cfg, log); db != nil {
		defer db.Close(context.Background())
		orch.Archive = db
		app.History = db
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           Router(app),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("listening", "addr", "http://localhost:"+cfg.Port, "generator", enabled)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func runMigrate(ctx context.Context) error {
	cfg, log := setup()
	if cfg.DatabaseURL == "" {
		return errNoDatabase
	}
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close(ctx)
	if err := store.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("migrated")
	return nil
}
