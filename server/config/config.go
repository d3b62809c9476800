package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Ongao1/Poker-assistant/server/advice"
)

// Config is everything the server and CLI read from the environment.
type Config struct {
	Port          string
	DatabaseURL   string
	AutoMigrate   bool
	CORSOrigins   string
	TaskTTL       time.Duration
	SweepInterval time.Duration
	Keepalive     time.Duration
	StreamPoll    time.Duration

	Trials          [3]int // flop, turn, river
	EarlyStopEps    float64
	TimeBudget      time.Duration
	DefaultVillains int
	SimWeight       float64

	Model          string
	Temperature    float64
	StrictSchema   bool
	AdviceAttempts int
	Guard          advice.Thresholds

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	_ = godotenv.Load()
	LoadAPIKeyFromSecret()

	def := advice.DefaultThresholds()
	return Config{
		Port:          getenv("PORT", "8080"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		AutoMigrate:   asBool(os.Getenv("AUTO_MIGRATE")),
		CORSOrigins:   getenv("CORS_ORIGINS", "*"),
		TaskTTL:       seconds("TASK_TTL_SECONDS", 900),
		SweepInterval: seconds("SWEEP_INTERVAL_SECONDS", 60),
		Keepalive:     seconds("KEEPALIVE_SECONDS", 15),
		StreamPoll:    time.Duration(atoiDef(os.Getenv("STREAM_POLL_MS"), 200)) * time.Millisecond,

		Trials: [3]int{
			atoiDef(os.Getenv("TRIALS_FLOP"), 8000),
			atoiDef(os.Getenv("TRIALS_TURN"), 12000),
			atoiDef(os.Getenv("TRIALS_RIVER"), 16000),
		},
		EarlyStopEps:    floatDef(os.Getenv("EARLYSTOP_EPS"), 0.012),
		TimeBudget:      time.Duration(atoiDef(os.Getenv("TIME_BUDGET_MS"), 250)) * time.Millisecond,
		DefaultVillains: atoiDef(os.Getenv("DEFAULT_VILLAINS"), 3),
		SimWeight:       floatDef(os.Getenv("SIM_WEIGHT"), 0.85),

		Model:          getenv("LLM_MODEL", getenv("OPENAI_MODEL", "gpt-4o-mini")),
		Temperature:    floatDef(os.Getenv("LLM_TEMPERATURE"), 0.2),
		StrictSchema:   asBool(os.Getenv("LLM_STRICT_SCHEMA")),
		AdviceAttempts: atoiDef(os.Getenv("ADVICE_ATTEMPTS"), 2),
		Guard: advice.Thresholds{
			CallSlack:      floatDef(os.Getenv("GUARD_CALL_SLACK"), def.CallSlack),
			FoldEdge:       floatDef(os.Getenv("GUARD_FOLD_EDGE"), def.FoldEdge),
			MultiwayEquity: floatDef(os.Getenv("GUARD_MULTIWAY_EQUITY"), def.MultiwayEquity),
			MonoEquity:     floatDef(os.Getenv("GUARD_MONO_EQUITY"), def.MonoEquity),
			DeepSPR:        floatDef(os.Getenv("GUARD_DEEP_SPR"), def.DeepSPR),
			DeepEquity:     floatDef(os.Getenv("GUARD_DEEP_EQUITY"), def.DeepEquity),
		},

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
	}
}

// Tries: env var file, ./secrets/openai_api_key.txt, ./server/openai_api_key.txt,
// ./openai_api_key.txt, /app/server/openai_api_key.txt (in container), and /run/secrets/openai_api_key.
func LoadAPIKeyFromSecret() {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return
	}
	var candidates []string
	if p := os.Getenv("OPENAI_API_KEY_FILE"); strings.TrimSpace(p) != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates,
		"./secrets/openai_api_key.txt",
		"./server/openai_api_key.txt",
		"./openai_api_key.txt",
		"/app/server/openai_api_key.txt",
		"/run/secrets/openai_api_key",
	)
	for _, path := range candidates {
		if b, err := os.ReadFile(path); err == nil {
			key := strings.TrimSpace(string(b))
			if key != "" {
				os.Setenv("OPENAI_API_KEY", key)
				return
			}
		}
	}
}

// NewLogger builds a slog logger. format is "json" or "text"; unknown
// levels fall back to info.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
func floatDef(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
func seconds(k string, def int) time.Duration {
	return time.Duration(atoiDef(os.Getenv(k), def)) * time.Second
}
