package logger

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level  slog.Leveler
	writer *asyncWriter
	// errors, when set, also receives every ERROR line.
	errors   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders each record as one flat line. Groups become
// dotted key prefixes, durations become integer milliseconds, empty values
// are dropped and context identifiers fill the keys a record leaves unset.
type structuredHandler struct {
	cfg    handlerConfig
	rank   map[string]int
	preset map[string]any
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if len(cfg.keyOrder) == 0 {
		cfg.keyOrder = defaultKeyOrder
	}
	rank := make(map[string]int, len(cfg.keyOrder))
	for i, k := range cfg.keyOrder {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return &structuredHandler{cfg: cfg, rank: rank}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = make(map[string]any, len(h.preset)+len(attrs))
	for k, v := range h.preset {
		clone.preset[k] = v
	}
	for _, a := range attrs {
		collect(clone.preset, h.prefix, a)
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	fields := make(map[string]any, len(h.preset)+r.NumAttrs()+12)
	for k, v := range h.preset {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(fields, h.prefix, a)
		return true
	})
	fillFromContext(ctx, fields)

	fields["ts"] = ts.Format(timeFormatMillis)
	fields["level"] = levelName(r.Level)
	if h.cfg.format == formatJSON {
		fields["ts_unix_nano"] = ts.UnixNano()
	}
	if s, _ := fields["event"].(string); s == "" {
		fields["event"] = cmp.Or(r.Message, "unknown")
	}
	if s, _ := fields["component"].(string); s == "" {
		fields["component"] = CompApp
	}
	if s, ok := fields["status"].(string); ok {
		fields["status"] = strings.ToLower(s)
	}
	for k, v := range fields {
		if v == nil || v == "" {
			delete(fields, k)
		}
	}

	line, err := h.render(fields)
	if err != nil {
		return err
	}
	if err := h.cfg.writer.Write(line); err != nil {
		return err
	}
	if h.cfg.errors != nil && r.Level >= slog.LevelError {
		return h.cfg.errors.Write(line)
	}
	return nil
}

// orderedKeys puts ranked keys first in rank order, then the rest by name.
func (h *structuredHandler) orderedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		ra, oka := h.rank[a]
		rb, okb := h.rank[b]
		switch {
		case oka && okb:
			return cmp.Compare(ra, rb)
		case oka:
			return -1
		case okb:
			return 1
		}
		return strings.Compare(a, b)
	})
	return keys
}

func (h *structuredHandler) render(fields map[string]any) ([]byte, error) {
	var b bytes.Buffer
	keys := h.orderedKeys(fields)
	if h.cfg.format == formatJSON {
		b.WriteByte('{')
		for i, k := range keys {
			v, err := json.Marshal(fields[k])
			if err != nil {
				return nil, fmt.Errorf("logger: encode %s: %w", k, err)
			}
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			b.Write(v)
		}
		b.WriteString("}\n")
		return b.Bytes(), nil
	}
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(fields[k]))
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// collect flattens a into fields under prefix.
func collect(fields map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			collect(fields, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	switch v := a.Value; v.Kind() {
	case slog.KindString:
		fields[key] = strings.TrimSpace(v.String())
	case slog.KindBool:
		fields[key] = v.Bool()
	case slog.KindInt64:
		fields[key] = v.Int64()
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			fields[key] = int64(u)
		} else {
			fields[key] = u
		}
	case slog.KindFloat64:
		fields[key] = v.Float64()
	case slog.KindDuration:
		fields[durationKey(key)] = RoundMS(v.Duration()).Milliseconds()
	case slog.KindTime:
		fields[key] = v.Time().UTC().Format(time.RFC3339Nano)
	default:
		switch x := v.Any().(type) {
		case nil:
		case error:
			fields[key] = x.Error()
		case fmt.Stringer:
			fields[key] = x.String()
		default:
			fields[key] = fmt.Sprint(x)
		}
	}
}

// fillFromContext adds correlation keys the record did not set itself.
func fillFromContext(ctx context.Context, fields map[string]any) {
	if ctx == nil {
		return
	}
	set := func(k, v string) {
		if _, ok := fields[k]; !ok && v != "" {
			fields[k] = v
		}
	}
	set("rid", RIDFrom(ctx))
	if meta, ok := EventMetaFrom(ctx); ok {
		set("event_id", meta.EventID)
		set("channel", meta.Channel)
		set("user_id", meta.UserID)
		set("chat_id", meta.ChatID)
		set("source_type", meta.SourceType)
	}
	set("handler", HandlerFrom(ctx))
}

func kvValue(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
