package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "json", Service: "checkout", Version: "1.0", Environment: "test"}, &buf)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l.Info().Str("cycle_id", "abc").Msg("wallet.mounted")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{
		"service":     "checkout",
		"version":     "1.0",
		"environment": "test",
		"message":     "wallet.mounted",
		"cycle_id":    "abc",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithCycleID(context.Background(), "cycle-1")
	if got := GetCycleID(ctx); got != "cycle-1" {
		t.Errorf("GetCycleID() = %q", got)
	}
	if got := GetCycleID(context.Background()); got != "" {
		t.Errorf("GetCycleID(empty) = %q", got)
	}

	var buf bytes.Buffer
	l := zerolog.New(&buf)
	got := FromContext(WithContext(ctx, l))
	got.Info().Msg("x")
	if buf.Len() == 0 {
		t.Error("FromContext should return the stored logger")
	}
}

func TestRedaction(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ana@x.com", "an***@x.com"},
		{"jo@x.com", "***@x.com"},
		{"bad-email", "[redacted]"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := TruncateID("1234567890-abcdefghij"); got != "12345678...ghij" {
		t.Errorf("TruncateID() = %q", got)
	}
	if got := TruncateID("short"); got != "short" {
		t.Errorf("TruncateID(short) = %q", got)
	}
}
