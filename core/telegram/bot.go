package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/chat"
	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/netutil"
)

// Bot adapts a telebot instance to the chat gateway and event model.
type Bot struct {
	bot    *tele.Bot
	poller tele.Poller
}

// NewBot builds the Telegram client from cfg. The bot is not started.
func NewBot(cfg *coreconfig.Config) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	poller, mode := pollerFor(cfg.Telegram, cfg.Webhook)

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: netutil.BuildHTTPClient(netutil.ClientOptions{}),
		OnError: func(err error, c tele.Context) {
			logger.Error(context.Background(), logger.CompTelegram, "handler.error",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	logger.Info(context.Background(), logger.CompTelegram, "mode",
		slog.String("status", "ok"),
		slog.String("mode", mode),
		slog.Duration("duration", logger.RoundMS(time.Since(buildStart))),
	)
	return &Bot{bot: bot, poller: poller}, nil
}

// Run dispatches updates to handle until ctx is done.
func (b *Bot) Run(ctx context.Context, handle chat.HandlerFunc) error {
	if handle == nil {
		return errors.New("telegram: nil handler")
	}
	dispatch := func(build func(tele.Update) (chat.Event, bool)) tele.HandlerFunc {
		return func(c tele.Context) error {
			ev, ok := build(c.Update())
			if !ok {
				return nil
			}
			return handle(context.WithoutCancel(ctx), ev)
		}
	}

	b.bot.Handle(tele.OnText, dispatch(messageEvent))
	b.bot.Handle(tele.OnAddedToGroup, dispatch(joinEvent))
	callback := dispatch(callbackEvent)
	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		_ = c.Respond()
		return callback(c)
	})

	done := make(chan struct{})
	go func() {
		b.bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		b.bot.Stop()
		<-done
		return nil
	case <-done:
		return errors.New("telegram: bot stopped unexpectedly")
	}
}

func parseID(op, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, chat.Unavailable(op, fmt.Errorf("invalid id %q", raw))
	}
	return id, nil
}

// Profile resolves the display name of a user from their private chat.
func (b *Bot) Profile(_ context.Context, userID string) (chat.Profile, error) {
	id, err := parseID("telegram.profile", userID)
	if err != nil {
		return chat.Profile{}, err
	}
	c, err := b.bot.ChatByID(id)
	if err != nil {
		return chat.Profile{}, chat.Unavailable("telegram.profile", err)
	}
	return chat.Profile{UserID: userID, DisplayName: chatDisplayName(c)}, nil
}

// GroupMemberProfile resolves a user as seen by a group.
func (b *Bot) GroupMemberProfile(_ context.Context, groupID, userID string) (chat.Profile, error) {
	gid, err := parseID("telegram.member", groupID)
	if err != nil {
		return chat.Profile{}, err
	}
	uid, err := parseID("telegram.member", userID)
	if err != nil {
		return chat.Profile{}, err
	}
	m, err := b.bot.ChatMemberOf(&tele.Chat{ID: gid}, &tele.User{ID: uid})
	if err != nil {
		return chat.Profile{}, chat.Unavailable("telegram.member", err)
	}
	return chat.Profile{UserID: userID, DisplayName: displayName(m.User)}, nil
}

// GroupSummary returns the title and size of a group. A failed member count
// leaves MemberCount at zero.
func (b *Bot) GroupSummary(ctx context.Context, groupID string) (chat.GroupSummary, error) {
	gid, err := parseID("telegram.group", groupID)
	if err != nil {
		return chat.GroupSummary{}, err
	}
	c, err := b.bot.ChatByID(gid)
	if err != nil {
		return chat.GroupSummary{}, chat.Unavailable("telegram.group", err)
	}
	summary := chat.GroupSummary{GroupID: groupID, Name: c.Title}
	if n, err := b.bot.Len(c); err == nil {
		summary.MemberCount = n
	} else {
		logger.Debug(ctx, logger.CompTelegram, "group.count",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	return summary, nil
}

// Reply sends msgs to the chat identified by replyToken.
func (b *Bot) Reply(ctx context.Context, replyToken string, msgs ...chat.Message) error {
	id, err := strconv.ParseInt(replyToken, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid reply token %q", replyToken)
	}
	to := tele.ChatID(id)
	for _, m := range msgs {
		text, opts := renderMessage(m)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if opts != nil {
			_, err = b.bot.Send(to, text, opts)
		} else {
			_, err = b.bot.Send(to, text)
		}
		if err != nil {
			var te *tele.Error
			if errors.As(err, &te) {
				return apiStatus{err: te}
			}
			return fmt.Errorf("telegram: send: %w", err)
		}
		logger.Debug(ctx, logger.CompTelegram, "reply.sent", slog.String("status", "ok"))
	}
	return nil
}

// apiStatus exposes the Bot API error code to the sender's error classifier.
type apiStatus struct{ err *tele.Error }

func (a apiStatus) Error() string   { return "telegram: send: " + a.err.Error() }
func (a apiStatus) Unwrap() error   { return a.err }
func (a apiStatus) HTTPStatus() int { return a.err.Code }
