package observerproto

import "pigflow.ai/internal/sim/playback"

// Version is the observer protocol version (separate from the HTTP API).
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeState     = "STATE"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	IncludeFarms bool `json:"include_farms,omitempty"`
	// MaxLogs caps the narration entries per frame; 0 uses the server default.
	MaxLogs int `json:"max_logs,omitempty"`
}

// HTTP response for GET /v1/observe/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string                  `json:"protocol_version"`
	SessionID       string                  `json:"session_id,omitempty"`
	Day             int                     `json:"day"`
	Days            int                     `json:"days"`
	Phase           playback.Phase          `json:"phase"`
	Slaughterhouse  playback.Slaughterhouse `json:"slaughterhouse"`
	FarmIDs         []string                `json:"farm_ids"`
}

// Server -> Client. Sent on subscribe and after every state change.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Kind    playback.UpdateKind `json:"kind,omitempty"`
	Day     int                 `json:"day"`
	Days    int                 `json:"days"`
	Phase   playback.Phase      `json:"phase"`
	Running bool                `json:"running"`
	Loading bool                `json:"loading"`
	Digest  string              `json:"digest,omitempty"`

	Totals playback.Totals     `json:"totals"`
	Routes []playback.Route    `json:"routes"`
	Farms  []playback.Farm     `json:"farms,omitempty"`
	Logs   []playback.LogEntry `json:"logs,omitempty"`
}
