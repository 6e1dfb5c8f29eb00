package observability

// EventEnvelope is the wire shape of every event published to the bus.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// WSPayload describes a websocket lifecycle event.
type WSPayload struct {
	Kind           string `json:"kind"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	Event          string `json:"event"`
	ConnID         string `json:"conn_id"`
	DurationMS     int64  `json:"duration_ms"`
	Reason         string `json:"reason,omitempty"`
}

// IdentityPayload describes the actor attached to an event.
type IdentityPayload struct {
	UserID   int64  `json:"user_id"`
	DeviceID string `json:"device_id,omitempty"`
	IP       string `json:"ip,omitempty"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
