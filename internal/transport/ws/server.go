package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/protocol"
	"matchsim.ai/internal/sim/intent"
)

type Config struct {
	MatchID            string
	TickRateHz         int
	DecisionIntervalMs int
	TimeoutMs          int
	// Token, when set, must match HELLO auth.token.
	Token string
	// SendPrompt includes the rendered text prompt in every CONTEXT.
	SendPrompt bool
}

// Server accepts one planner bot at a time and exposes it as a
// decision.Planner. It is not ready while no bot is connected.
type Server struct {
	cfg Config
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu   sync.Mutex
	sess *session
}

type reply struct {
	plan json.RawMessage
	err  *protocol.ErrorMsg
}

type session struct {
	id   string
	name string
	out  chan []byte
	done chan struct{}

	mu      sync.Mutex
	pending map[string]chan reply
}

func NewServer(cfg Config, logger *log.Logger) *Server {
	return &Server{
		cfg: cfg,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

var _ decision.Planner = (*Server)(nil)

func (s *Server) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess != nil
}

// BotName is the connected bot's name, or "" when none is connected.
func (s *Server) BotName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return ""
	}
	return s.sess.name
}

func (s *Server) Generate(ctx context.Context, c decision.Context) (intent.ActionPlan, error) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess == nil {
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrUnavailable, errors.New("no planner bot connected"))
	}

	reqID := uuid.NewString()
	msg := protocol.ContextMsg{
		Type:            protocol.TypeContext,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Context:         c,
	}
	if s.cfg.SendPrompt {
		msg.Prompt = protocol.RenderPrompt(c)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrInference, err)
	}

	ch := make(chan reply, 1)
	sess.mu.Lock()
	sess.pending[reqID] = ch
	sess.mu.Unlock()
	defer func() {
		sess.mu.Lock()
		delete(sess.pending, reqID)
		sess.mu.Unlock()
	}()

	start := time.Now()
	select {
	case sess.out <- b:
	case <-sess.done:
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrUnavailable, errors.New("planner bot disconnected"))
	case <-ctx.Done():
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrTimeout, ctx.Err())
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrInference, fmt.Errorf("%s: %s", r.err.Code, r.err.Message))
		}
		plan, err := protocol.ParsePlan(r.plan, c.TimeMS, uint64(time.Since(start).Milliseconds()))
		if err != nil {
			return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrMalformed, err)
		}
		return plan, nil
	case <-sess.done:
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrUnavailable, errors.New("planner bot disconnected"))
	case <-ctx.Done():
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrTimeout, ctx.Err())
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		s.logf("planner bot %q connected as %s", sess.name, sess.id)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.handleMessage(sess, msg)
		}

		// Cleanup.
		s.mu.Lock()
		if s.sess == sess {
			s.sess = nil
		}
		s.mu.Unlock()
		close(sess.done)
		s.logf("planner bot %s disconnected", sess.id)
	}
}

func (s *Server) handleMessage(sess *session, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return
	}
	var reqID string
	var r reply
	switch base.Type {
	case protocol.TypePlan:
		var pm protocol.PlanMsg
		if err := json.Unmarshal(msg, &pm); err != nil {
			s.sendError(sess, "", protocol.ErrProtoBadRequest, "bad PLAN")
			return
		}
		reqID, r.plan = pm.ReqID, pm.Plan
	case protocol.TypeError:
		var em protocol.ErrorMsg
		if err := json.Unmarshal(msg, &em); err != nil {
			return
		}
		reqID, r.err = em.ReqID, &em
	default:
		return
	}

	sess.mu.Lock()
	ch, ok := sess.pending[reqID]
	sess.mu.Unlock()
	if !ok {
		// Late reply to a timed-out request.
		s.sendError(sess, reqID, protocol.ErrUnknownReq, "no pending request")
		return
	}
	select {
	case ch <- r:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: protocol.ErrProtoVersion, Message: "bad protocol_version"})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}
	if s.cfg.Token != "" {
		token := ""
		if hello.Auth != nil {
			token = strings.TrimSpace(hello.Auth.Token)
		}
		if token != s.cfg.Token {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad token"), time.Now().Add(time.Second))
			return nil
		}
	}
	if hello.BotName == "" {
		hello.BotName = "bot"
	}

	sess := &session{
		id:      fmt.Sprintf("P%d", s.nextID.Add(1)),
		name:    hello.BotName,
		out:     make(chan []byte, 4),
		done:    make(chan struct{}),
		pending: map[string]chan reply{},
	}
	s.mu.Lock()
	busy := s.sess != nil
	if !busy {
		s.sess = sess
	}
	s.mu.Unlock()
	if busy {
		_ = writeJSON(conn, protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: protocol.ErrPlannerBusy, Message: "another planner is connected"})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "planner busy"), time.Now().Add(time.Second))
		return nil
	}

	welcome := protocol.WelcomeMsg{
		Type:               protocol.TypeWelcome,
		ProtocolVersion:    protocol.Version,
		SessionID:          sess.id,
		MatchID:            s.cfg.MatchID,
		TickRateHz:         s.cfg.TickRateHz,
		DecisionIntervalMs: s.cfg.DecisionIntervalMs,
		TimeoutMs:          s.cfg.TimeoutMs,
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.mu.Lock()
		s.sess = nil
		s.mu.Unlock()
		return nil
	}
	return sess
}

func (s *Server) sendError(sess *session, reqID, code, message string) {
	b, err := json.Marshal(protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, ReqID: reqID, Code: code, Message: message})
	if err != nil {
		return
	}
	select {
	case sess.out <- b:
	default:
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
