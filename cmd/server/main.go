package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"matchsim.ai/internal/decision"
	persistlog "matchsim.ai/internal/persistence/log"
	"matchsim.ai/internal/sim/match"
	"matchsim.ai/internal/sim/tuning"
	"matchsim.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		matchID    = flag.String("match", "", "match id (default: random)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the planning-cycle index")
		noTrace    = flag.Bool("disable_trace", false, "disable cycle trace files")

		plannerKind = flag.String("planner", "heuristic", "planner backend: heuristic|scripted|llm|ws")
		scriptPath  = flag.String("script", "", "scripted planner JSONL (with -planner=scripted)")
		scriptLoop  = flag.Bool("script_loop", true, "restart the script when exhausted")
		botToken    = flag.String("bot_token", "", "token required from remote planner bots (or set MATCHSIM_BOT_TOKEN)")
		sendPrompt  = flag.Bool("send_prompt", false, "include the rendered prompt in CONTEXT messages")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	id := strings.TrimSpace(*matchID)
	if id == "" {
		id = "match_" + uuid.NewString()[:8]
	}
	matchDir := filepath.Join(*dataDir, "matches", id)
	_ = os.MkdirAll(matchDir, 0o755)

	m, err := match.NewFiveASide(match.Config{ID: id, Tuning: tune}, logger)
	if err != nil {
		logger.Fatalf("match: %v", err)
	}

	token := strings.TrimSpace(*botToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("MATCHSIM_BOT_TOKEN"))
	}
	remote := ws.NewServer(ws.Config{
		MatchID:            id,
		TickRateHz:         tune.TickRateHz,
		DecisionIntervalMs: tune.DecisionIntervalMs,
		TimeoutMs:          tune.PlannerTimeoutMs,
		Token:              token,
		SendPrompt:         *sendPrompt,
	}, logger)

	planner, err := selectPlanner(plannerOptions{
		Kind:       *plannerKind,
		ScriptPath: *scriptPath,
		ScriptLoop: *scriptLoop,
		Field:      tune.Field,
		Remote:     remote,
	})
	if err != nil {
		logger.Fatalf("planner: %v", err)
	}
	logger.Printf("match=%s planner=%s tick_rate=%dHz decision_interval=%dms", id, *plannerKind, tune.TickRateHz, tune.DecisionIntervalMs)

	var recorders decision.MultiRecorder
	if !*noTrace {
		trace := persistlog.NewCycleTrace(filepath.Join(matchDir, "cycles"), logger)
		defer trace.Close()
		recorders = append(recorders, trace)
	}
	idx, err := openRuntimeIndex(matchDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		recorders = append(recorders, idx)
	}

	orch := decision.NewOrchestrator(planner, decision.OrchestratorConfig{
		IntervalMS: uint64(tune.DecisionIntervalMs),
		Timeout:    time.Duration(tune.PlannerTimeoutMs) * time.Millisecond,
		Recorder:   recorders,
		Logger:     logger,
	})
	defer orch.Close()
	m.SetDecider(orch)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := m.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("match stopped: %v", err)
		}
	}()

	rt := &runtime{
		match:       m,
		orch:        orch,
		remote:      remote,
		index:       idx,
		enableAdmin: envBool("MATCHSIM_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		logger:      logger,
	}
	if !rt.enableAdmin {
		logger.Printf("admin endpoints disabled (MATCHSIM_ENABLE_ADMIN_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           rt.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
