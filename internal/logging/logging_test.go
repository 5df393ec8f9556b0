package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInfoWritesJSONEntry(t *testing.T) {
	var buf bytes.Buffer
	l := New("session", INFO, &buf)
	l.Info("handshake established", Fields{"peer": "alice"})

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, buf.String())
	}
	if decoded["level"] != "INFO" {
		t.Fatalf("level = %v, want INFO", decoded["level"])
	}
	if decoded["component"] != "session" {
		t.Fatalf("component = %v, want session", decoded["component"])
	}
	fields, ok := decoded["fields"].(map[string]interface{})
	if !ok || fields["peer"] != "alice" {
		t.Fatalf("fields = %v, want peer=alice", decoded["fields"])
	}
}

func TestDebugSuppressedBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("session", WARN, &buf)
	l.Debug("too quiet to matter")
	l.Info("also below threshold")

	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	base := New("session", INFO, &buf)
	child := base.WithFields(Fields{"session_id": "abc123"})

	child.Info("child event")
	base.Info("parent event")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var childEntry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &childEntry); err != nil {
		t.Fatalf("decode child entry: %v", err)
	}
	if fields, _ := childEntry["fields"].(map[string]interface{}); fields["session_id"] != "abc123" {
		t.Fatalf("child entry missing session_id field: %v", childEntry["fields"])
	}

	var parentEntry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &parentEntry); err != nil {
		t.Fatalf("decode parent entry: %v", err)
	}
	if fields, ok := parentEntry["fields"].(map[string]interface{}); ok {
		if _, present := fields["session_id"]; present {
			t.Fatalf("parent entry leaked child field: %v", parentEntry["fields"])
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DEBUG,
		"warn":    WARN,
		"error":   ERROR,
		"info":    INFO,
		"bogus":   INFO,
		"":        INFO,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
