package protocol

import (
	"encoding/json"

	"matchsim.ai/internal/decision"
)

// HELLO (bot -> server)
type HelloMsg struct {
	Type              string     `json:"type"`
	ProtocolVersion   string     `json:"protocol_version"`
	SupportedVersions []string   `json:"supported_versions,omitempty"`
	BotName           string     `json:"bot_name"`
	Auth              *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> bot)
type WelcomeMsg struct {
	Type               string `json:"type"`
	ProtocolVersion    string `json:"protocol_version"`
	SessionID          string `json:"session_id"`
	MatchID            string `json:"match_id,omitempty"`
	TickRateHz         int    `json:"tick_rate_hz"`
	DecisionIntervalMs int    `json:"decision_interval_ms"`
	TimeoutMs          int    `json:"timeout_ms"`
}

// CONTEXT (server -> bot): one planning request.
type ContextMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	ReqID           string           `json:"req_id"`
	Context         decision.Context `json:"context"`
	Prompt          string           `json:"prompt,omitempty"`
}

// PLAN (bot -> server). Plan holds the wire plan document verbatim so it goes
// through the same lenient parser as any other planner output.
type PlanMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ReqID           string          `json:"req_id"`
	Plan            json.RawMessage `json:"plan"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
