package proto

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseSubmission(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		body string
		ok   bool
	}{
		{name: "plain message", raw: `{"message":"hi"}`, body: "hi", ok: true},
		{name: "surrounding whitespace trimmed", raw: `{"message":"  hi there \n"}`, body: "hi there", ok: true},
		{name: "extra fields ignored", raw: `{"message":"hi","name":"spoofed"}`, body: "hi", ok: true},
		{name: "empty body", raw: `{"message":""}`, ok: false},
		{name: "whitespace only", raw: `{"message":"   "}`, ok: false},
		{name: "missing field", raw: `{}`, ok: false},
		{name: "non-string body", raw: `{"message":42}`, ok: false},
		{name: "array payload", raw: `["message","hi"]`, ok: false},
		{name: "bare string", raw: `"hi"`, ok: false},
		{name: "null payload", raw: `null`, ok: false},
		{name: "truncated json", raw: `{"message":"hi`, ok: false},
		{name: "empty frame", raw: ``, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ok := ParseSubmission([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("ParseSubmission(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if body != tt.body {
				t.Fatalf("ParseSubmission(%q) body = %q, want %q", tt.raw, body, tt.body)
			}
		})
	}
}

func TestNoticePayloadOmitsTimestamp(t *testing.T) {
	data, err := json.Marshal(Payload{Message: NoticeJoined, Name: "bob"})
	if err != nil {
		t.Fatalf("marshal notice: %v", err)
	}
	if strings.Contains(string(data), "timestamp") {
		t.Fatalf("notice payload should omit timestamp, got %s", data)
	}

	var decoded Payload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal notice: %v", err)
	}
	if decoded.Message != NoticeJoined || decoded.Name != "bob" {
		t.Fatalf("unexpected round-trip: %+v", decoded)
	}
}

func TestChatPayloadKeepsTimestamp(t *testing.T) {
	data, err := json.Marshal(Payload{Message: "hi", Name: "alice", Timestamp: 100})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if !strings.Contains(string(data), `"timestamp":100`) {
		t.Fatalf("expected timestamp in payload, got %s", data)
	}
}
