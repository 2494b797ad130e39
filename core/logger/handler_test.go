package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func renderLine(t *testing.T, format logFormat, ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: w, format: format}))
	emit(ctx, log, level, component, event, attrs)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	return line
}

func TestKVLineKeyOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithEventMeta(ctx, EventMeta{EventID: "01HX", Channel: "line", UserID: "U42", ChatID: "C9", SourceType: "group"})

	line := renderLine(t, formatKV, ctx, CompLeads, slog.LevelInfo, "client.created",
		slog.String("status", "OK"),
		slog.String("zeta", "last"),
		slog.Int64("client_id", 7),
	)
	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=service.leads", "event=client.created", "status=ok", "rid=rid-123",
		"event_id=01HX", "channel=line", "user_id=U42", "chat_id=C9", "source_type=group", "client_id=7", "zeta=last"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens %q", tokens)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestJSONLineIsValidAndOrdered(t *testing.T) {
	ctx := WithHandler(WithRID(context.Background(), "rid-json"), "postback.setStatus")
	line := renderLine(t, formatJSON, ctx, "service.test", slog.LevelError+4, "service.failed",
		slog.String("status", "fail"),
		slog.Any("err", errors.New("boom")),
	)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("invalid JSON %s: %v", line, err)
	}
	if decoded["level"] != "FATAL" || decoded["err"] != "boom" || decoded["ts_unix_nano"] == nil {
		t.Fatalf("unexpected fields %v", decoded)
	}
	pos := -1
	for _, key := range []string{`"ts":`, `"level":`, `"component":`, `"event":`, `"status":`, `"rid":`, `"handler":`, `"err":`} {
		idx := strings.Index(line, key)
		if idx < pos {
			t.Fatalf("%s out of order in %s", key, line)
		}
		pos = idx
	}
}

func TestRecordAttrsWinOverContext(t *testing.T) {
	ctx := WithEventMeta(context.Background(), EventMeta{Channel: "line"})
	line := renderLine(t, formatKV, ctx, CompAPI, slog.LevelInfo, "x", slog.String("channel", "telegram"))
	if !strings.Contains(line, "channel=telegram") || strings.Contains(line, "channel=line") {
		t.Fatalf("record attr must win: %s", line)
	}
}

func TestDurationsGroupsAndEmptyValues(t *testing.T) {
	line := renderLine(t, formatKV, context.Background(), CompApp, slog.LevelInfo, "dur.test",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("backoff", 2*time.Second),
		slog.Group("db", slog.String("host", "pg"), slog.String("name", "")),
		slog.String("note", "two words"),
	)
	for _, want := range []string{"duration_ms=2", "backoff_ms=2000", "db.host=pg", `note="two words"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %s", want, line)
		}
	}
	if strings.Contains(line, "db.name") {
		t.Fatalf("empty value must be pruned: %s", line)
	}
}

func TestErrorsSinkGetsOnlyErrors(t *testing.T) {
	var all, errs bytes.Buffer
	main := newAsyncWriter([]io.Writer{&all}, 256)
	errw := newAsyncWriter([]io.Writer{&errs}, 256)
	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: main, errors: errw, format: formatKV}))

	emit(context.Background(), log, slog.LevelInfo, CompApp, "fine", nil)
	emit(context.Background(), log, slog.LevelError, CompApp, "broken", nil)
	_ = main.Close()
	_ = errw.Close()

	if strings.Count(all.String(), "\n") != 2 {
		t.Fatalf("main sink: %q", all.String())
	}
	if !strings.Contains(errs.String(), "event=broken") || strings.Contains(errs.String(), "event=fine") {
		t.Fatalf("errors sink: %q", errs.String())
	}
}

func TestSanitizeLimitAndBuildRID(t *testing.T) {
	if got := SanitizeLimit("สวัสดี\x00ครับ​", 7); got != "สวัสดีค" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := BuildRID("a", "", " b "); got != "a:b" {
		t.Fatalf("BuildRID = %q", got)
	}
}

func TestEventHelpersWithoutLogger(t *testing.T) {
	// must not panic before InitLogger
	Info(context.Background(), CompLeads, "noop", slog.String("k", "v"))
}
