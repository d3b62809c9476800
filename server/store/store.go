package store

import (
	"context"
	"embed"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ongao1/Poker-assistant/server/engine"
	"github.com/Ongao1/Poker-assistant/server/streets"
	"github.com/Ongao1/Poker-assistant/server/tasks"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   Archive writes
------------------------------*/

// StartAnalysis records a new task and its inputs.
func (db *DB) StartAnalysis(ctx context.Context, id string, req streets.Request) error {
	var board []engine.Card
	if n := len(req.Streets); n > 0 {
		board = req.Streets[n-1].Board
	}
	var pos any
	if v := strings.TrimSpace(req.Position); v != "" {
		pos = v
	}
	_, err := db.Exec(ctx, `
        INSERT INTO analyses(task_id, hero, board, villains, position, stack_bb, pot_bb, streets)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (task_id) DO NOTHING
    `, id, engine.Strings(req.Hero), engine.Strings(board), req.Villains, pos,
		req.StackBB, req.PotBB, len(req.Streets))
	return err
}

// RecordStreet stores one finished street block.
func (db *DB) RecordStreet(ctx context.Context, id string, idx int, res tasks.StreetResult) error {
	var reason any
	if res.AdviceReason != "" {
		reason = res.AdviceReason
	}
	_, err := db.Exec(ctx, `
        INSERT INTO street_results(
            task_id, street_index, street, hero, board,
            hand_class, score, equity, delta, trials, stop_reason,
            advice_source, advice_reason, advice_text
        ) VALUES (
            $1,$2,$3,$4,$5,
            $6,$7,$8,$9,$10,$11,
            $12,$13,$14
        )
        ON CONFLICT (task_id, street_index) DO NOTHING
    `,
		id, idx, res.Title, res.Hero, res.Board,
		res.HandName, res.Score, res.Equity, res.Delta, res.Trials, res.Stop,
		res.AdviceSource, reason, res.AdviceText,
	)
	return err
}

func (db *DB) FinishAnalysis(ctx context.Context, id, status string) error {
	_, err := db.Exec(ctx, `UPDATE analyses SET status = $2, finished_at = now() WHERE task_id = $1`, id, status)
	return err
}

/* -----------------------------
   Reads
------------------------------*/

type HistoryRow struct {
	TaskID       string    `json:"task_id"`
	Status       string    `json:"status"`
	Villains     int       `json:"villains"`
	Street       string    `json:"street"`
	Hero         string    `json:"hero"`
	Board        string    `json:"board"`
	HandClass    string    `json:"hand_class"`
	Equity       float64   `json:"equity"`
	Delta        *float64  `json:"delta"`
	Trials       int       `json:"trials"`
	StopReason   string    `json:"stop_reason"`
	AdviceSource string    `json:"advice_source"`
	AdviceText   string    `json:"advice_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecentResults returns the newest street blocks, newest first.
func (db *DB) RecentResults(ctx context.Context, limit int) ([]HistoryRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
        SELECT r.task_id, a.status, a.villains, r.street, r.hero, r.board,
               r.hand_class, r.equity, r.delta, r.trials, r.stop_reason,
               r.advice_source, r.advice_text, r.created_at
          FROM street_results r
          JOIN analyses a ON a.task_id = r.task_id
         ORDER BY r.created_at DESC, r.id DESC
         LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (HistoryRow, error) {
		var h HistoryRow
		err := row.Scan(&h.TaskID, &h.Status, &h.Villains, &h.Street, &h.Hero, &h.Board,
			&h.HandClass, &h.Equity, &h.Delta, &h.Trials, &h.StopReason,
			&h.AdviceSource, &h.AdviceText, &h.CreatedAt)
		return h, err
	})
}
