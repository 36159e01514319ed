package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry %q: %v", buf.String(), err)
	}
	return entry
}

func TestErrorCarriesContextAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Format: FormatJSON, Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-9")
	ctx = log.WithActorRole(ctx, "admin")

	log.Error(ctx, "mark paid failed", errors.New("boom"))

	entry := decode(t, buf)
	if entry["request_id"] != "req-123" || entry["order_id"] != "order-9" || entry["actor_role"] != "admin" {
		t.Fatalf("context fields lost: %v", entry)
	}
	if entry["service"] != "api" || entry["error"] != "boom" {
		t.Fatalf("unexpected entry %v", entry)
	}
	stack, ok := entry["stack"].([]any)
	if !ok || len(stack) == 0 {
		t.Fatalf("expected caller frames, got %v", entry["stack"])
	}
	if first, _ := stack[0].(string); !strings.Contains(first, "TestErrorCarriesContextAndStack") {
		t.Fatalf("stack should start at the caller, got %q", first)
	}
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, WarnStack: true}).Warn(context.Background(), "retrying")
	if _, ok := decode(t, buf)["stack"]; !ok {
		t.Fatal("expected stack when warn stack enabled")
	}

	buf.Reset()
	New(Options{ServiceName: "test", Output: buf}).Warn(context.Background(), "retrying")
	if _, ok := decode(t, buf)["stack"]; ok {
		t.Fatal("stack should be omitted when warn stack disabled")
	}
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := log.WithUserID(context.Background(), "buyer-1")
	child := log.WithFields(parent, map[string]any{"cart_id": "c-1", "quantity": 50})

	log.Info(child, "cart item added")
	entry := decode(t, buf)
	if entry["cart_id"] != "c-1" || entry["quantity"] != float64(50) || entry["user_id"] != "buyer-1" {
		t.Fatalf("unexpected child entry %v", entry)
	}

	buf.Reset()
	log.Info(parent, "cart viewed")
	if _, ok := decode(t, buf)["cart_id"]; ok {
		t.Fatal("child fields leaked into the parent context")
	}
}

func TestLevelAndFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: buf}).Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug entry should be filtered at info level: %s", buf.String())
	}

	New(Options{ServiceName: "test", Format: FormatConsole, Output: buf}).Info(context.Background(), "order created")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("console format should not emit JSON: %s", buf.String())
	}

	Nop().Error(context.Background(), "ignored", errors.New("x"))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"invalid": zerolog.InfoLevel,
		" WARN ":  zerolog.WarnLevel,
		"debug":   zerolog.DebugLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
