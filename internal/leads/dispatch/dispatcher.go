// Package dispatch routes chat events to the lead flows and sends the replies.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/middleware"
	"github.com/m3rciful/leadbot/core/router"
	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/compose"
	"github.com/m3rciful/leadbot/internal/leads/domain"
	"github.com/m3rciful/leadbot/internal/leads/fsm"
	"github.com/m3rciful/leadbot/internal/leads/parser"
	"github.com/m3rciful/leadbot/internal/leads/pending"
)

// DefaultSearchLimit caps search results when Options.SearchLimit is zero.
const DefaultSearchLimit = 20

// Options wires a Dispatcher.
type Options struct {
	Repo    leads.ClientRepository
	Machine *fsm.Machine
	// Lookup resolves profile and group names.
	Lookup chat.ProfileLookup
	// Replier sends the reply sequence. It may queue.
	Replier chat.Replier
	// Locks serialises events per user. Share one instance across channels.
	Locks       *pending.KeyedMutex
	SearchLimit int
	PhoneRegion string
	Now         func() time.Time
}

// Dispatcher handles the events of one chat channel.
type Dispatcher struct {
	repo        leads.ClientRepository
	machine     *fsm.Machine
	lookup      chat.ProfileLookup
	replier     chat.Replier
	locks       *pending.KeyedMutex
	commands    *router.Registry
	searchLimit int
	phoneRegion string
	now         func() time.Time
}

// New creates a Dispatcher and registers its keyword commands.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		repo:        opts.Repo,
		machine:     opts.Machine,
		lookup:      opts.Lookup,
		replier:     opts.Replier,
		locks:       opts.Locks,
		searchLimit: opts.SearchLimit,
		phoneRegion: opts.PhoneRegion,
		now:         opts.Now,
	}
	if d.locks == nil {
		d.locks = pending.NewKeyedMutex()
	}
	if d.searchLimit <= 0 {
		d.searchLimit = DefaultSearchLimit
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.commands = d.buildCommands()
	return d
}

// Commands exposes the keyword registry.
func (d *Dispatcher) Commands() *router.Registry { return d.commands }

// turn is the state of one event being handled.
type turn struct {
	ev    chat.Event
	actor fsm.Actor

	mu      sync.Mutex
	replied bool
	src     *domain.SourceContext
}

type turnKey struct{}

func turnFrom(ctx context.Context) *turn {
	t, _ := ctx.Value(turnKey{}).(*turn)
	return t
}

func actorOf(ev chat.Event) fsm.Actor {
	return fsm.Actor{Channel: ev.Channel, UserID: ev.Source.UserID}
}

// Handle processes one event. Failures are answered with a reply; only
// dependency failures are returned, for logging and metrics.
func (d *Dispatcher) Handle(ctx context.Context, ev chat.Event) error {
	t := &turn{ev: ev, actor: actorOf(ev)}
	ctx = context.WithValue(ctx, turnKey{}, t)

	if ev.Source.UserID != "" {
		unlock := d.locks.Lock(t.actor.Key())
		defer unlock()
	}

	var err error
	switch ev.Kind {
	case chat.EventPostback:
		err = d.handlePostback(ctx, t)
	case chat.EventMessage:
		err = d.handleText(ctx, t)
	case chat.EventJoin:
		err = router.HandleWithSummary(ctx, "join", func(ctx context.Context) error {
			if ev.Source.Kind != chat.SourceGroup {
				return nil
			}
			d.reply(ctx, compose.WelcomeText())
			return nil
		})
	default:
		logger.Debug(ctx, logger.CompLeads, "event.skip",
			slog.String("kind", string(ev.Kind)),
		)
		return nil
	}

	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindNotFound, domain.KindProtocol:
		return nil
	}
	return err
}

// reply sends msgs once per event. Later calls are logged and dropped.
// Send failures are logged and never retried.
func (d *Dispatcher) reply(ctx context.Context, msgs ...chat.Message) {
	t := turnFrom(ctx)
	if t == nil || len(msgs) == 0 {
		return
	}
	t.mu.Lock()
	if t.replied {
		t.mu.Unlock()
		logger.Warn(ctx, logger.CompLeads, "reply.duplicate",
			slog.String("status", "skip"),
		)
		return
	}
	t.replied = true
	t.mu.Unlock()

	if t.ev.ReplyToken == "" {
		logger.Warn(ctx, logger.CompLeads, "reply.no_token", slog.String("status", "skip"))
		return
	}
	middleware.CountReply(ctx, t.ev.Channel, msgs...)
	if err := d.replier.Reply(ctx, t.ev.ReplyToken, msgs...); err != nil {
		logger.Error(ctx, logger.CompLeads, "reply.send",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

// fail answers err for op and returns it for the handler summary.
func (d *Dispatcher) fail(ctx context.Context, op compose.Operation, err error) error {
	d.reply(ctx, compose.Error(op, err))
	return err
}

func (d *Dispatcher) handlePostback(ctx context.Context, t *turn) error {
	a, err := domain.DecodeAction(t.ev.PostbackData)
	if err != nil {
		return router.HandleWithSummary(ctx, "postback.invalid", func(ctx context.Context) error {
			return d.fail(ctx, compose.OpPostback, err)
		})
	}
	return router.HandleWithSummary(ctx, "postback."+a.Name(), func(ctx context.Context) error {
		out, err := d.machine.Apply(ctx, a, t.actor)
		if err != nil {
			return d.fail(ctx, compose.OperationOf(a), err)
		}
		switch out.Effect {
		case fsm.ShowTransitions:
			d.reply(ctx, compose.StatusPromptCard(out.Record, d.ownerName(ctx, out.Record.OwnerID)))
		case fsm.AssignOwner:
			src := d.source(ctx)
			name := d.displayName(ctx, src, t.actor.UserID)
			if name == "" {
				name = d.ownerName(ctx, out.Record.OwnerID)
			}
			d.reply(ctx, compose.AssignedCard(out.Record, name, src))
		case fsm.ApplyStatus:
			d.reply(ctx, compose.StatusUpdatedCard(out.Record, d.ownerName(ctx, out.Record.OwnerID)))
		case fsm.AwaitReason:
			d.reply(ctx, compose.ReasonPrompt())
		}
		return nil
	}, slog.Int64("client_id", a.Client()))
}

func (d *Dispatcher) handleText(ctx context.Context, t *turn) error {
	text := strings.TrimSpace(t.ev.Text)

	// Any text completes a pending reason, even a blank one.
	if it, ok := d.pendingFor(ctx, t); ok {
		return router.HandleWithSummary(ctx, "message.lost_reason", func(ctx context.Context) error {
			return d.completeLost(ctx, t, it, text)
		}, slog.Int64("client_id", it.ClientID))
	}
	if text == "" {
		return nil
	}

	if term, ok := parser.SearchTerm(text); ok {
		return router.HandleWithSummary(ctx, "message.search", func(ctx context.Context) error {
			return d.search(ctx, term)
		})
	}

	if parser.LooksLikeClientInput(text) {
		return router.HandleWithSummary(ctx, "message.register", func(ctx context.Context) error {
			return d.register(ctx, t, text)
		})
	}

	if name, cmd, ok := d.commands.Lookup(text); ok {
		return router.HandleWithSummary(ctx, "command."+name, func(ctx context.Context) error {
			return cmd.Handler(ctx, t.ev)
		})
	}

	return router.HandleWithSummary(ctx, "message.fallback", func(ctx context.Context) error {
		d.reply(ctx, compose.Fallback(d.source(ctx)))
		return nil
	})
}

// pendingFor reports the sender's pending interaction. A store failure is
// treated as no pending entry so the message is still routed.
func (d *Dispatcher) pendingFor(ctx context.Context, t *turn) (pending.Interaction, bool) {
	it, ok, err := d.machine.Pending(ctx, t.actor)
	if err != nil {
		logger.Warn(ctx, logger.CompPending, "pending.get",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return pending.Interaction{}, false
	}
	if !ok || it.Kind != pending.KindLostReason {
		return pending.Interaction{}, false
	}
	return it, true
}

func (d *Dispatcher) completeLost(ctx context.Context, t *turn, it pending.Interaction, reason string) error {
	out, err := d.machine.CompleteLost(ctx, t.actor, it, reason)
	if err != nil {
		return d.fail(ctx, compose.OpLostReason, err)
	}
	d.reply(ctx, compose.StatusUpdatedCard(out.Record, d.ownerName(ctx, out.Record.OwnerID)))
	return nil
}
