package relay

import (
	"errors"
	"strings"
	"testing"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		text string
		want Status
	}{
		{"✅ done", StatusSuccess},
		{"plain text", StatusSuccess},
		{"⚠️ degraded", StatusWarning},
		{"❌ Error: boom", StatusError},
		{"", StatusSuccess},
	}
	for _, tc := range cases {
		if got := StatusOf(tc.text); got != tc.want {
			t.Errorf("StatusOf(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestFormatError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{Validationf("Node is required"), "❌ Error: Node is required"},
		{Network("Could not connect to pve:8006", errors.New("refused")), "❌ Network Error: Could not connect to pve:8006: refused"},
		{Timeoutf("waiting for pid %d", 42), "❌ Timeout: waiting for pid 42"},
		{Internal("boom", errors.New("cause")), "❌ Error: boom: cause"},
		{errors.New("plain"), "❌ Error: plain"},
	}
	for _, tc := range cases {
		if got := FormatError(tc.err); got != tc.want {
			t.Errorf("FormatError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	wrapped := Internal("outer", Validationf("inner"))
	if KindOf(wrapped) != KindInternal {
		t.Errorf("outermost kind should win, got %v", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("plain errors should default to internal")
	}
	if KindOf(Timeoutf("t")) != KindTimeout {
		t.Error("timeout kind lost")
	}
}

func TestRedactArguments(t *testing.T) {
	args := map[string]any{
		"node":         "pve1",
		"password":     "hunter2",
		"ssh_password": "hunter3",
		"api_token":    "tok",
		"command":      "ls",
	}
	safe := RedactArguments(args)

	if safe["node"] != "pve1" || safe["command"] != "ls" {
		t.Error("non-sensitive values must pass through")
	}
	for _, key := range []string{"password", "ssh_password", "api_token"} {
		if safe[key] != redactedValue {
			t.Errorf("%s not redacted: %v", key, safe[key])
		}
	}
	if args["password"] != "hunter2" {
		t.Error("input map must not be mutated")
	}

	for _, v := range safe {
		if s, ok := v.(string); ok && strings.Contains(s, "hunter") {
			t.Errorf("secret leaked into redacted map: %q", s)
		}
	}

	if RedactArguments(nil) != nil {
		t.Error("nil args should stay nil")
	}
}
