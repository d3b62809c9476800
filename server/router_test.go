package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Ongao1/Poker-assistant/server/advice"
	"github.com/Ongao1/Poker-assistant/server/config"
	"github.com/Ongao1/Poker-assistant/server/equity"
	"github.com/Ongao1/Poker-assistant/server/metrics"
	"github.com/Ongao1/Poker-assistant/server/streets"
	"github.com/Ongao1/Poker-assistant/server/tasks"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Config{
		CORSOrigins:     "*",
		Keepalive:       15 * time.Second,
		StreamPoll:      50 * time.Millisecond,
		Trials:          [3]int{400, 400, 400},
		EarlyStopEps:    0.05,
		DefaultVillains: 1,
		Model:           "gpt-4o-mini",
		Guard:           advice.DefaultThresholds(),
	}
	reg := tasks.NewRegistry(time.Minute)
	promReg, m := metrics.NewRegistry()
	return &App{
		Cfg:     cfg,
		Tasks:   reg,
		Orch:    &streets.Orchestrator{Registry: reg, Metrics: m, Epsilon: cfg.EarlyStopEps},
		Metrics: metrics.HandlerFor(promReg),
	}
}

func do(t *testing.T, h http.Handler, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

// sseData returns every data payload in an event stream body.
func sseData(t *testing.T, body string) []tasks.State {
	t.Helper()
	var out []tasks.State
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var st tasks.State
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st); err != nil {
			t.Fatalf("bad data line %q: %v", line, err)
		}
		out = append(out, st)
	}
	return out
}

func TestHealthOnBothPrefixes(t *testing.T) {
	h := Router(newTestApp(t))
	for _, p := range []string{"/health", "/api/health"} {
		rec := do(t, h, http.MethodGet, p, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", p, rec.Code)
		}
		if got := decode(t, rec); got["ok"] != true {
			t.Fatalf("%s body = %v", p, got)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
			t.Fatalf("%s cache-control = %q", p, cc)
		}
		if o := rec.Header().Get("Access-Control-Allow-Origin"); o != "*" {
			t.Fatalf("%s cors = %q", p, o)
		}
	}
}

func TestIndexServed(t *testing.T) {
	rec := do(t, Router(newTestApp(t)), http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "EventSource") {
		t.Fatalf("index: %d", rec.Code)
	}
}

func TestStartRejectsBadInput(t *testing.T) {
	app := newTestApp(t)
	h := Router(app)
	for _, form := range []url.Values{
		{"hero": {"As Ks"}},
		{"hero": {"As Ks"}, "flop": {"As 7d 2c"}},
		{"hero": {"As Ks"}, "flop": {"Ah 7d 2c"}, "river": {"3s"}},
		{"hero": {"Zz Ks"}, "flop": {"Ah 7d 2c"}},
	} {
		rec := do(t, h, http.MethodPost, "/api/start", form)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: status = %d", form, rec.Code)
		}
		if msg, _ := decode(t, rec)["error"].(string); msg == "" {
			t.Fatalf("%v: missing error message", form)
		}
	}
	if n := app.Tasks.Len(); n != 0 {
		t.Fatalf("rejected input must not create tasks, have %d", n)
	}
}

func TestStartAndStreamToCompletion(t *testing.T) {
	app := newTestApp(t)
	h := Router(app)
	rec := do(t, h, http.MethodPost, "/start", url.Values{
		"hero": {"As Ks"}, "flop": {"Ah 7d 2c"}, "turn": {"9h"}, "villains": {"1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d body=%s", rec.Code, rec.Body.String())
	}
	id, _ := decode(t, rec)["task_id"].(string)
	if id == "" {
		t.Fatal("missing task_id")
	}

	stream := do(t, h, http.MethodGet, "/api/stream/"+id, nil)
	if ct := stream.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}
	if cc := stream.Header().Get("Cache-Control"); cc != "no-cache, no-transform" {
		t.Fatalf("cache-control = %q", cc)
	}
	if xb := stream.Header().Get("X-Accel-Buffering"); xb != "no" {
		t.Fatalf("x-accel-buffering = %q", xb)
	}
	states := sseData(t, stream.Body.String())
	if len(states) == 0 {
		t.Fatal("no events")
	}
	for i := 1; i < len(states); i++ {
		if states[i].Percent < states[i-1].Percent {
			t.Fatalf("percent went backwards: %d -> %d", states[i-1].Percent, states[i].Percent)
		}
		if states[i].Key() == states[i-1].Key() {
			t.Fatalf("duplicate snapshot sent at %d", i)
		}
	}
	last := states[len(states)-1]
	if !last.Done || last.Percent != 100 || len(last.Results) != 2 {
		t.Fatalf("final state = %+v", last)
	}
	if last.Results[0].AdviceSource != string(advice.SourceRuleBased) {
		t.Fatalf("advice source = %q", last.Results[0].AdviceSource)
	}

	snap := do(t, h, http.MethodGet, "/api/tasks/"+id, nil)
	if snap.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", snap.Code)
	}
}

func TestStreamUnknownTask(t *testing.T) {
	rec := do(t, Router(newTestApp(t)), http.MethodGet, "/api/stream/nope", nil)
	body := rec.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Fatalf("expected error event, got %q", body)
	}
}

func TestCancelUnknownTask(t *testing.T) {
	rec := do(t, Router(newTestApp(t)), http.MethodPost, "/api/cancel/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode(t, rec); got["ok"] != false {
		t.Fatalf("body = %v", got)
	}
}

func TestCancelRunningTask(t *testing.T) {
	app := newTestApp(t)
	entered := make(chan struct{})
	app.Orch.Estimate = func(ctx context.Context, p equity.Params, _ equity.Observer) equity.Result {
		close(entered)
		<-ctx.Done()
		return equity.Result{Stop: equity.StopCancelled}
	}
	h := Router(app)
	rec := do(t, h, http.MethodPost, "/api/start", url.Values{"hero": {"Qh Qd"}, "flop": {"2c 7s 9d"}})
	id, _ := decode(t, rec)["task_id"].(string)

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation never started")
	}
	rec = do(t, h, http.MethodPost, "/api/cancel/"+id, nil)
	if rec.Code != http.StatusOK || decode(t, rec)["ok"] != true {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}

	states := sseData(t, do(t, h, http.MethodGet, "/api/stream/"+id, nil).Body.String())
	last := states[len(states)-1]
	if !last.Cancel {
		t.Fatalf("stream should end on a cancelled state: %+v", last)
	}
}

func TestOpenStreamEndsWithCancelFrame(t *testing.T) {
	app := newTestApp(t)
	entered := make(chan struct{})
	app.Orch.Estimate = func(ctx context.Context, p equity.Params, _ equity.Observer) equity.Result {
		close(entered)
		<-ctx.Done()
		return equity.Result{Stop: equity.StopCancelled}
	}
	srv := httptest.NewServer(Router(app))
	defer srv.Close()

	resp, err := http.PostForm(srv.URL+"/api/start", url.Values{"hero": {"Qh Qd"}, "flop": {"2c 7s 9d"}})
	if err != nil {
		t.Fatal(err)
	}
	var started map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	id, _ := started["task_id"].(string)

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/"+id, nil)
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Body.Close()

	rd := bufio.NewReader(stream.Body)
	var frames []tasks.State
	readFrame := func() bool {
		for {
			line, err := rd.ReadString('\n')
			if strings.HasPrefix(line, "data: ") {
				var st tasks.State
				if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data: "))), &st); err != nil {
					t.Fatalf("bad data line %q: %v", line, err)
				}
				frames = append(frames, st)
				return true
			}
			if err != nil {
				return false
			}
		}
	}
	if !readFrame() {
		t.Fatal("no initial frame")
	}
	if frames[0].Cancel || frames[0].Done {
		t.Fatalf("initial frame already terminal: %+v", frames[0])
	}

	cresp, err := http.Post(srv.URL+"/api/cancel/"+id, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	cresp.Body.Close()

	for readFrame() {
	}
	last := frames[len(frames)-1]
	if !last.Cancel {
		t.Fatalf("open stream should close on a cancelled frame, got %d frames, last %+v", len(frames), last)
	}
}

func TestConfigAndHistory(t *testing.T) {
	h := Router(newTestApp(t))
	cfg := decode(t, do(t, h, http.MethodGet, "/api/config", nil))
	if cfg["generator_enabled"] != false {
		t.Fatalf("generator_enabled = %v", cfg["generator_enabled"])
	}
	if rules, _ := cfg["guardrails"].([]any); len(rules) != 6 {
		t.Fatalf("guardrails = %v", cfg["guardrails"])
	}

	rec := do(t, h, http.MethodGet, "/api/history", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("history without database = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, Router(newTestApp(t)), http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "poker_assistant_active_tasks") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}
