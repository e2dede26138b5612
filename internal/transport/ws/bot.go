package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/gorilla/websocket"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/protocol"
)

// PlanFunc answers one CONTEXT with a wire plan document.
type PlanFunc func(ctx context.Context, c decision.Context) ([]byte, error)

// Bot is the client side of the planner websocket.
type Bot struct {
	Name  string
	Token string
	Plan  PlanFunc
	Log   *log.Logger
}

// Run performs the HELLO/WELCOME handshake on conn and answers CONTEXT
// messages until ctx is done or the connection drops.
func (b *Bot) Run(ctx context.Context, conn *websocket.Conn) error {
	if b.Plan == nil {
		return errors.New("bot: nil Plan")
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		BotName:         b.Name,
	}
	if b.Token != "" {
		hello.Auth = &protocol.HelloAuth{Token: b.Token}
	}
	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("send HELLO: %w", err)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			b.logf("WELCOME session=%s match=%s interval=%dms timeout=%dms", w.SessionID, w.MatchID, w.DecisionIntervalMs, w.TimeoutMs)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			if e.ReqID == "" {
				return fmt.Errorf("server error %s: %s", e.Code, e.Message)
			}
			b.logf("server error for %s: %s %s", e.ReqID, e.Code, e.Message)

		case protocol.TypeContext:
			var cm protocol.ContextMsg
			if err := json.Unmarshal(msg, &cm); err != nil {
				continue
			}
			if err := conn.WriteJSON(b.answer(ctx, cm)); err != nil {
				return err
			}
		}
	}
}

func (b *Bot) answer(ctx context.Context, cm protocol.ContextMsg) any {
	raw, err := b.Plan(ctx, cm.Context)
	if err != nil {
		return protocol.ErrorMsg{
			Type:            protocol.TypeError,
			ProtocolVersion: protocol.Version,
			ReqID:           cm.ReqID,
			Code:            protocol.ErrInference,
			Message:         err.Error(),
		}
	}
	return protocol.PlanMsg{
		Type:            protocol.TypePlan,
		ProtocolVersion: protocol.Version,
		ReqID:           cm.ReqID,
		Plan:            raw,
	}
}

func (b *Bot) logf(format string, args ...any) {
	if b.Log != nil {
		b.Log.Printf(format, args...)
	}
}
