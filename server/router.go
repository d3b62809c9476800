package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Ongao1/Poker-assistant/server/config"
	"github.com/Ongao1/Poker-assistant/server/store"
	"github.com/Ongao1/Poker-assistant/server/streets"
	"github.com/Ongao1/Poker-assistant/server/tasks"
)

// embed the /web directory so index.html ships in the binary
//
//go:embed web/*
var webFS embed.FS

// History is the read side of the archive.
type History interface {
	RecentResults(ctx context.Context, limit int) ([]store.HistoryRow, error)
}

// App bundles what the handlers need.
type App struct {
	Cfg     config.Config
	Tasks   *tasks.Registry
	Orch    *streets.Orchestrator
	History History // nil without a database
	Metrics http.Handler
	Logger  *slog.Logger

	// Base outlives every request; tasks are started under it.
	Base context.Context

	GeneratorEnabled bool
	GeneratorReason  string
}

func Router(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(app.cors)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		b, err := webFS.ReadFile("web/index.html")
		if err != nil {
			http.Error(w, "index missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	})

	api := func(r chi.Router) {
		r.Use(app.sweep)
		r.Use(noStore)
		r.Post("/start", app.start)
		r.Post("/cancel/{id}", app.cancel)
		r.Get("/stream/{id}", app.stream)
		r.Get("/tasks/{id}", app.snapshot)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"ok": true, "ts": time.Now().Unix()})
		})
		r.Get("/config", app.showConfig)
		r.Get("/history", app.history)
		if app.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", app.Metrics)
		}
	}
	r.Group(api)
	r.Route("/api", api)
	return r
}

func (app *App) start(w http.ResponseWriter, r *http.Request) {
	f := streets.Form{
		Hero:      r.FormValue("hero"),
		Position:  r.FormValue("pos"),
		Flop:      r.FormValue("flop"),
		Turn:      r.FormValue("turn"),
		River:     r.FormValue("river"),
		Villains:  r.FormValue("villains"),
		StackBB:   r.FormValue("stack_bb"),
		PotBB:     r.FormValue("pot_bb"),
		CallFlop:  r.FormValue("call_flop"),
		CallTurn:  r.FormValue("call_turn"),
		CallRiver: r.FormValue("call_river"),
	}
	req, err := streets.ParseForm(f, streets.Defaults{Villains: app.Cfg.DefaultVillains, Trials: app.Cfg.Trials})
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	id := app.Orch.Start(app.base(), req)
	app.logger().Info("task started", "task_id", id, "streets", len(req.Streets), "villains", req.Villains,
		"request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, map[string]any{"task_id": id})
}

func (app *App) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := app.Tasks.Cancel(id); err != nil {
		writeJSONStatus(w, http.StatusNotFound, map[string]any{"ok": false})
		return
	}
	app.logger().Info("task cancel requested", "task_id", id)
	writeJSON(w, map[string]any{"ok": true})
}

func (app *App) snapshot(w http.ResponseWriter, r *http.Request) {
	st, err := app.Tasks.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONStatus(w, http.StatusNotFound, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, st)
}

// Live SSE stream of one task's state. A snapshot is sent whenever it
// differs from the last one sent; the stream ends with the done or
// cancelled state as its final frame.
func (app *App) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	st, changed, err := app.Tasks.Watch(id)
	if err != nil {
		sendEvent(w, "error", map[string]any{"error": "unknown task", "task_id": id})
		flusher.Flush()
		return
	}

	keepalive := time.NewTicker(durationOr(app.Cfg.Keepalive, 15*time.Second))
	defer keepalive.Stop()
	poll := durationOr(app.Cfg.StreamPoll, 200*time.Millisecond)

	last := ""
	for {
		// Key ignores the cancel flag, so a cancelled state is always sent.
		terminal := st.Done || st.Cancel
		if key := st.Key(); key != last || terminal {
			sendEvent(w, "", st)
			flusher.Flush()
			last = key
		}
		if terminal {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-changed:
		case <-keepalive.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-time.After(poll):
		}
		if st, changed, err = app.Tasks.Watch(id); err != nil {
			sendEvent(w, "error", map[string]any{"error": "task expired", "task_id": id})
			flusher.Flush()
			return
		}
	}
}

func (app *App) showConfig(w http.ResponseWriter, r *http.Request) {
	c := app.Cfg
	writeJSON(w, map[string]any{
		"generator_enabled": app.GeneratorEnabled,
		"generator_reason":  app.GeneratorReason,
		"model":             c.Model,
		"temperature":       c.Temperature,
		"attempts":          c.AdviceAttempts,
		"guardrails":        c.Guard.Describe(),
		"trials":            map[string]int{"flop": c.Trials[0], "turn": c.Trials[1], "river": c.Trials[2]},
		"early_stop_eps":    c.EarlyStopEps,
		"time_budget_ms":    c.TimeBudget.Milliseconds(),
		"default_villains":  c.DefaultVillains,
		"task_ttl_seconds":  int(c.TaskTTL.Seconds()),
		"history_enabled":   app.History != nil,
	})
}

func (app *App) history(w http.ResponseWriter, r *http.Request) {
	if app.History == nil {
		writeJSONStatus(w, http.StatusNotFound, map[string]any{"error": "history requires DATABASE_URL"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	rows, err := app.History.RecentResults(ctx, limit)
	if err != nil {
		app.logger().Error("history query failed", "err", err)
		writeJSONStatus(w, http.StatusInternalServerError, map[string]any{"error": "history unavailable"})
		return
	}
	writeJSON(w, map[string]any{"rows": rows})
}

/* -----------------------------
   middleware
------------------------------*/

func (app *App) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o := app.Cfg.CORSOrigins; o != "" {
			w.Header().Set("Access-Control-Allow-Origin", o)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sweep evicts expired tasks on every API request, alongside the
// background sweeper.
func (app *App) sweep(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n := app.Tasks.Sweep(); n > 0 {
			app.logger().Debug("swept expired tasks", "count", n)
		}
		next.ServeHTTP(w, r)
	})
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

/* -----------------------------
   helpers
------------------------------*/

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// sendEvent writes one SSE message; an empty event name is the default
// "message" event.
func sendEvent(w http.ResponseWriter, event string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (app *App) base() context.Context {
	if app.Base == nil {
		return context.Background()
	}
	return app.Base
}

func (app *App) logger() *slog.Logger {
	if app.Logger == nil {
		return slog.Default()
	}
	return app.Logger
}
