package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
)

// ChannelName labels events produced by this transport.
const ChannelName = "line"

const (
	signatureHeader = "X-Line-Signature"
	maxBodyBytes    = 1 << 20
)

// ErrInvalidSignature is returned when X-Line-Signature does not match the body.
var ErrInvalidSignature = errors.New("line webhook: invalid signature")

type webhookRequest struct {
	Destination string     `json:"destination"`
	Events      []rawEvent `json:"events"`
}

type rawEvent struct {
	Type           string `json:"type"`
	WebhookEventID string `json:"webhookEventId"`
	Timestamp      int64  `json:"timestamp"`
	ReplyToken     string `json:"replyToken"`
	Source         struct {
		Type    string `json:"type"`
		UserID  string `json:"userId"`
		GroupID string `json:"groupId"`
		RoomID  string `json:"roomId"`
	} `json:"source"`
	Message *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
	Postback *struct {
		Data string `json:"data"`
	} `json:"postback"`
}

// WebhookHandler receives LINE webhook deliveries and feeds each event to a handler.
type WebhookHandler struct {
	secret     []byte
	skipVerify bool
	handle     chat.HandlerFunc
}

// NewWebhookHandler returns an http.Handler for the LINE webhook endpoint.
func NewWebhookHandler(channelSecret string, skipVerify bool, handle chat.HandlerFunc) *WebhookHandler {
	return &WebhookHandler{secret: []byte(channelSecret), skipVerify: skipVerify, handle: handle}
}

// ServeHTTP verifies and decodes the delivery, then processes its events one
// at a time in arrival order. A failing event never aborts the rest of the batch.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if !h.skipVerify {
		if err := VerifySignature(h.secret, body, r.Header.Get(signatureHeader)); err != nil {
			logger.Warn(r.Context(), logger.CompLine, "webhook.rejected",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	events, err := ParseEvents(body)
	if err != nil {
		logger.Warn(r.Context(), logger.CompLine, "webhook.malformed", slog.String("err", err.Error()))
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	// LINE may drop the connection before processing ends; events still run to completion.
	ctx := logger.WithRID(context.WithoutCancel(r.Context()), uuid.NewString())
	logger.Debug(ctx, logger.CompLine, "webhook.received", slog.Int("count", len(events)))
	for _, ev := range events {
		h.dispatch(ctx, ev)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *WebhookHandler) dispatch(ctx context.Context, ev chat.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, logger.CompLine, "event.panic",
				slog.String("event_id", ev.ID),
				slog.String("err", fmt.Sprint(rec)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	if err := h.handle(ctx, ev); err != nil {
		logger.Debug(ctx, logger.CompLine, "event.error",
			slog.String("event_id", ev.ID),
			slog.String("err", err.Error()),
		)
	}
}

// VerifySignature checks the base64 HMAC-SHA256 of body against signature.
func VerifySignature(secret, body []byte, signature string) error {
	if signature == "" {
		return ErrInvalidSignature
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the X-Line-Signature value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ParseEvents decodes a webhook body into chat events. Event types other than
// message, postback, join and leave, and non-text messages, are skipped.
func ParseEvents(body []byte) ([]chat.Event, error) {
	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	events := make([]chat.Event, 0, len(req.Events))
	for i, raw := range req.Events {
		ev, ok := convert(raw)
		if !ok {
			continue
		}
		if ev.ID == "" {
			ev.ID = strconv.Itoa(i)
		}
		events = append(events, ev)
	}
	return events, nil
}

func convert(raw rawEvent) (chat.Event, bool) {
	ev := chat.Event{
		ID:         raw.WebhookEventID,
		Channel:    ChannelName,
		ReplyToken: raw.ReplyToken,
		Source: chat.Source{
			UserID:  raw.Source.UserID,
			GroupID: raw.Source.GroupID,
			RoomID:  raw.Source.RoomID,
		},
	}
	if raw.Timestamp > 0 {
		ev.Timestamp = time.UnixMilli(raw.Timestamp)
	}
	switch raw.Source.Type {
	case "group":
		ev.Source.Kind = chat.SourceGroup
	case "room":
		ev.Source.Kind = chat.SourceRoom
	default:
		ev.Source.Kind = chat.SourceUser
	}

	switch raw.Type {
	case "message":
		if raw.Message == nil || raw.Message.Type != "text" {
			return chat.Event{}, false
		}
		ev.Kind = chat.EventMessage
		ev.Text = raw.Message.Text
	case "postback":
		if raw.Postback == nil {
			return chat.Event{}, false
		}
		ev.Kind = chat.EventPostback
		ev.PostbackData = raw.Postback.Data
	case "join":
		ev.Kind = chat.EventJoin
	case "leave":
		ev.Kind = chat.EventLeave
	default:
		return chat.Event{}, false
	}
	return ev, true
}
