package proto

import (
	"encoding/json"
	"strings"
)

// Payload is the single wire shape for room traffic. The same object is used
// for live messages, history replay, and system notices, inbound and outbound.
type Payload struct {
	Message   string `json:"message"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Fixed notice phrases. Join and leave announcements reuse Payload with
// Message set to one of these and Name set to the actor's display name.
const (
	NoticeJoined = "joined the chat"
	NoticeLeft   = "Disconnected"
)

// ParseSubmission extracts the message body from a raw client frame.
// It returns false when the frame is not a JSON object carrying a string
// "message" field, or when the body is empty after trimming whitespace.
// Callers treat false as a silent drop, never as an error.
func ParseSubmission(raw []byte) (string, bool) {
	var in struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return "", false
	}
	body := strings.TrimSpace(in.Message)
	if body == "" {
		return "", false
	}
	return body, true
}
