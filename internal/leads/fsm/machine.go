package fsm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/domain"
	"github.com/m3rciful/leadbot/internal/leads/pending"
)

// Actor is the chat user an action is performed for.
type Actor struct {
	Channel string
	UserID  string
}

// Key identifies the actor in the pending store and the per-user lock.
func (a Actor) Key() string {
	if a.Channel == "" {
		return a.UserID
	}
	return a.Channel + ":" + a.UserID
}

// Outcome reports what Apply or CompleteLost did.
type Outcome struct {
	Effect Effect
	// Record is the client after the change, or as read for ShowTransitions.
	Record domain.ClientRecord
	// Deferred is set when a lost status waits for its reason.
	Deferred bool
	// Mutated is set when the repository was written.
	Mutated bool
}

// Options wires a Machine.
type Options struct {
	Repo      leads.ClientRepository
	Pending   pending.Store
	Publisher leads.EventPublisher
	Now       func() time.Time
}

// Machine applies decisions against the repository and the pending store.
type Machine struct {
	repo      leads.ClientRepository
	pending   pending.Store
	publisher leads.EventPublisher
	now       func() time.Time
}

// New creates a Machine.
func New(opts Options) *Machine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Machine{
		repo:      opts.Repo,
		pending:   opts.Pending,
		publisher: opts.Publisher,
		now:       now,
	}
}

// external keeps domain errors as they are and wraps everything else.
func external(op string, err error) error {
	if domain.KindOf(err) != domain.KindUnknown {
		return err
	}
	return domain.External(op, err)
}

func notFound(op string) error {
	return domain.NotFound("client not found").WithOp(op)
}

// Apply runs the decision for a postback action.
func (m *Machine) Apply(ctx context.Context, a domain.Action, actor Actor) (Outcome, error) {
	if a == nil {
		return Outcome{}, domain.Protocol(domain.MsgIncompleteData).WithOp("apply")
	}
	op := "fsm." + a.Name()
	id := a.Client()

	rec, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return Outcome{}, external(op, err)
	}

	d, err := Decide(rec.LeadStatus, a)
	if err != nil {
		return Outcome{}, err
	}

	out, err := m.run(ctx, op, d, rec, actor)
	observe(d.Effect, err)
	return out, err
}

func (m *Machine) run(ctx context.Context, op string, d Decision, rec domain.ClientRecord, actor Actor) (Outcome, error) {
	out := Outcome{Effect: d.Effect, Record: rec}

	switch d.Effect {
	case ShowTransitions:
		return out, nil

	case AssignOwner:
		ownerID, err := m.repo.ResolveInternalUserID(ctx, actor.UserID)
		if err != nil {
			return Outcome{}, external(op, err)
		}
		n, err := m.repo.UpdateOwner(ctx, rec.ID, ownerID)
		if err != nil {
			return Outcome{}, external(op, err)
		}
		if n == 0 {
			return Outcome{}, notFound(op)
		}
		out.Record.OwnerID = ownerID
		out.Mutated = true
		m.publish(ctx, leads.EventLeadOwnerAssigned, out.Record, actor, "")
		return out, nil

	case ApplyStatus:
		n, err := m.repo.UpdateStatus(ctx, rec.ID, d.Next)
		if err != nil {
			return Outcome{}, external(op, err)
		}
		if n == 0 {
			return Outcome{}, notFound(op)
		}
		out.Mutated = true
		out.Record.LeadStatus = d.Next
		if fresh, err := m.repo.FindByID(ctx, rec.ID); err == nil {
			out.Record = fresh
		} else {
			logger.Warn(ctx, logger.CompLeads, "client.reload",
				slog.String("status", "fail"),
				slog.Int64("client_id", rec.ID),
				slog.String("err", err.Error()),
			)
		}
		m.publish(ctx, leads.EventLeadStatusChanged, out.Record, actor, "")
		return out, nil

	case AwaitReason:
		it := pending.Interaction{Kind: pending.KindLostReason, ClientID: rec.ID, CreatedAt: m.now()}
		if err := m.pending.Set(ctx, actor.Key(), it); err != nil {
			return Outcome{}, external(op, err)
		}
		out.Deferred = true
		logger.Debug(ctx, logger.CompLeads, "pending.set",
			slog.String("status", "ok"),
			slog.Int64("client_id", rec.ID),
		)
		return out, nil
	}

	return Outcome{}, domain.Protocol(domain.MsgIncompleteData).WithOp(op)
}

// Pending returns the interaction the actor is in the middle of.
func (m *Machine) Pending(ctx context.Context, actor Actor) (pending.Interaction, bool, error) {
	it, ok, err := m.pending.Get(ctx, actor.Key())
	if err != nil {
		return pending.Interaction{}, false, external("fsm.pending", err)
	}
	return it, ok, nil
}

// CompleteLost records reason for the pending lost status of it.ClientID and
// marks the client lost. The pending entry is cleared whatever the outcome.
func (m *Machine) CompleteLost(ctx context.Context, actor Actor, it pending.Interaction, reason string) (out Outcome, err error) {
	const op = "fsm.lost_reason"
	defer func() {
		clearCtx := context.WithoutCancel(ctx)
		if cerr := m.pending.Clear(clearCtx, actor.Key()); cerr != nil {
			logger.Warn(ctx, logger.CompLeads, "pending.clear",
				slog.String("status", "fail"),
				slog.String("err", cerr.Error()),
			)
		}
		observe(RecordReason, err)
	}()

	rec, err := m.repo.FindByID(ctx, it.ClientID)
	if err != nil {
		return Outcome{}, external(op, err)
	}

	d := DecideReason(rec.LeadStatus)
	reason = strings.TrimSpace(reason)
	address, _ := domain.SplitReason(rec.Address)
	merged := domain.MergeReason(address, reason)

	err = m.repo.WithinTx(ctx, func(tx leads.ClientRepository) error {
		n, err := tx.UpdateAddress(ctx, rec.ID, merged)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(op)
		}
		n, err = tx.UpdateStatus(ctx, rec.ID, d.Next)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(op)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, external(op, err)
	}

	rec.Address = merged
	rec.LeadStatus = d.Next
	m.publish(ctx, leads.EventLeadStatusChanged, rec, actor, reason)
	return Outcome{Effect: d.Effect, Record: rec, Mutated: true}, nil
}

// PublishCreated announces a newly registered client.
func (m *Machine) PublishCreated(ctx context.Context, rec domain.ClientRecord, actor Actor) {
	m.publish(ctx, leads.EventLeadCreated, rec, actor, "")
}

func (m *Machine) publish(ctx context.Context, typ string, rec domain.ClientRecord, actor Actor, reason string) {
	if m.publisher == nil {
		return
	}
	ev := leads.LeadEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		ClientID:   rec.ID,
		Status:     rec.LeadStatus.Key(),
		OwnerID:    rec.OwnerID,
		Reason:     reason,
		Channel:    actor.Channel,
		ActorID:    actor.UserID,
		OccurredAt: m.now().UTC(),
	}
	if err := m.publisher.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, logger.CompNotify, "publish",
			slog.String("status", "fail"),
			slog.String("type", typ),
			slog.Int64("client_id", rec.ID),
			slog.String("err", err.Error()),
		)
	}
}
