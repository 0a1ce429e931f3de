package protocol

import "encoding/json"

const Version = "1.0"

const TypeError = "ERROR"

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// ErrorMsg is the JSON body of every non-2xx HTTP API response.
type ErrorMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Code            string   `json:"code"`
	Message         string   `json:"message"`
	Hints           []string `json:"hints,omitempty"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		Code:            code,
		Message:         msg,
	}
}
