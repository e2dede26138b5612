package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Planner session state.
	ErrPlannerBusy = "E_PLANNER_BUSY"
	ErrUnknownReq  = "E_UNKNOWN_REQ"

	// Plan content.
	ErrBadPlan   = "E_BAD_PLAN"
	ErrInference = "E_INFERENCE"
	ErrInternal  = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrPlannerBusy:     {},
	ErrUnknownReq:      {},
	ErrBadPlan:         {},
	ErrInference:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
