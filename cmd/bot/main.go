package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/planner/heuristic"
	"matchsim.ai/internal/protocol"
	"matchsim.ai/internal/sim/tuning"
	"matchsim.ai/internal/transport/ws"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/planner", "planner ws url")
		name       = flag.String("name", "bot", "bot name")
		token      = flag.String("token", "", "auth token (or set MATCHSIM_BOT_TOKEN)")
		tuningPath = flag.String("tuning", "", "tuning.yaml for field dimensions (optional)")
		duration   = flag.Uint64("intent_ms", 0, "duration_ms stamped on every intent (0 = no expiry)")
		retry      = flag.Duration("retry", 2*time.Second, "reconnect delay; 0 disables reconnecting")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	field := tuning.Defaults().Field
	if p := strings.TrimSpace(*tuningPath); p != "" {
		tune, err := tuning.Load(p)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		field = tune.Field
	}
	tok := strings.TrimSpace(*token)
	if tok == "" {
		tok = strings.TrimSpace(os.Getenv("MATCHSIM_BOT_TOKEN"))
	}

	planner := heuristic.New(heuristic.Config{Field: field, DurationMS: *duration})
	bot := &ws.Bot{
		Name:  *name,
		Token: tok,
		Log:   logger,
		Plan: func(ctx context.Context, c decision.Context) ([]byte, error) {
			plan, err := planner.Plan(c)
			if err != nil {
				return nil, err
			}
			return protocol.EncodePlan(plan)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		err := runOnce(ctx, *url, bot)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Printf("session ended: %v", err)
		}
		if *retry <= 0 {
			if err != nil {
				os.Exit(1)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*retry):
		}
	}
}

func runOnce(ctx context.Context, url string, bot *ws.Bot) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	return bot.Run(ctx, conn)
}
