package observerproto

// Version is the observer protocol version (separate from the planner WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string        `json:"protocol_version"`
	MatchID         string        `json:"match_id"`
	Tick            uint64        `json:"tick"`
	MatchParams     MatchParams   `json:"match_params"`
	Roster          []RosterEntry `json:"roster"`
}

type MatchParams struct {
	TickRateHz         int     `json:"tick_rate_hz"`
	DecisionIntervalMs int     `json:"decision_interval_ms"`
	MatchLengthMs      int     `json:"match_length_ms"`
	FieldWidth         float32 `json:"field_width"`
	FieldHeight        float32 `json:"field_height"`
	GoalWidth          float32 `json:"goal_width"`
}

type RosterEntry struct {
	ID     uint32 `json:"id"`
	TeamID uint8  `json:"team_id"`
	Role   string `json:"role"`
}
