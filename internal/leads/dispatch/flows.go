package dispatch

import (
	"context"
	"log/slog"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/compose"
	"github.com/m3rciful/leadbot/internal/leads/domain"
	"github.com/m3rciful/leadbot/internal/leads/fsm"
	"github.com/m3rciful/leadbot/internal/leads/parser"
)

func (d *Dispatcher) register(ctx context.Context, t *turn, text string) error {
	_, msg, err := d.createClient(ctx, t.actor, d.source(ctx), text)
	if err != nil {
		return d.fail(ctx, compose.OpRegister, err)
	}
	d.reply(ctx, msg)
	return nil
}

// Register runs the registration flow for userID outside a chat event, as in a
// private chat. It returns the created record and the card that would be sent.
func (d *Dispatcher) Register(ctx context.Context, channel, userID, text string) (domain.ClientRecord, chat.Message, error) {
	actor := fsm.Actor{Channel: channel, UserID: userID}
	unlock := d.locks.Lock(actor.Key())
	defer unlock()
	return d.createClient(ctx, actor, domain.SourceContext{Kind: chat.SourceUser}, text)
}

func (d *Dispatcher) createClient(ctx context.Context, actor fsm.Actor, src domain.SourceContext, text string) (domain.ClientRecord, chat.Message, error) {
	in, err := parser.Parse(text)
	if err != nil {
		return domain.ClientRecord{}, chat.Message{}, err
	}

	if in.Phone != "" {
		d.warnDuplicatePhone(ctx, in.Phone)
	}

	ownerID, err := d.repo.ResolveInternalUserID(ctx, actor.UserID)
	if err != nil {
		return domain.ClientRecord{}, chat.Message{}, domain.External("register.resolve_owner", err)
	}
	id, err := d.repo.Insert(ctx, domain.NewClient{Input: in, OwnerID: ownerID, CreatedBy: ownerID})
	if err != nil {
		return domain.ClientRecord{}, chat.Message{}, domain.External("register.insert", err)
	}

	rec := domain.ClientRecord{
		ID:          id,
		Name:        in.Name,
		Phone:       in.Phone,
		Address:     in.Address,
		ClientType:  "person",
		LeadStatus:  domain.StatusNew,
		OwnerID:     ownerID,
		CreatedBy:   ownerID,
		CreatedDate: d.now(),
		IsLead:      true,
	}
	logger.Info(ctx, logger.CompLeads, "client.created",
		slog.String("status", "ok"),
		slog.Int64("client_id", id),
		slog.Int64("owner_id", ownerID),
	)
	d.machine.PublishCreated(ctx, rec, actor)

	creator := d.displayName(ctx, src, actor.UserID)
	if creator == "" {
		creator = compose.MsgUnknown
	}
	return rec, compose.NewClientCard(rec, creator, src), nil
}

// warnDuplicatePhone logs existing clients with the same phone. Duplicates
// are still registered.
func (d *Dispatcher) warnDuplicatePhone(ctx context.Context, phone string) {
	existing, err := d.repo.FindByPhone(ctx, phone)
	if err != nil {
		logger.Warn(ctx, logger.CompLeads, "client.find_by_phone",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	if len(existing) == 0 {
		return
	}
	logger.Warn(ctx, logger.CompLeads, "client.duplicate_phone",
		slog.Int("existing", len(existing)),
		slog.Int64("existing_id", existing[0].ID),
	)
}

func (d *Dispatcher) search(ctx context.Context, term string) error {
	if term == "" {
		d.reply(ctx, compose.SearchUsage())
		return nil
	}
	recs, err := d.repo.Search(ctx, leads.SearchQuery{
		Term:  term,
		Phone: parser.PhoneQueryIn(term, d.phoneRegion),
		Limit: d.searchLimit,
	})
	if err != nil {
		return d.fail(ctx, compose.OpSearch, domain.External("search", err))
	}
	d.reply(ctx, compose.SearchResults(recs))
	return nil
}

// source resolves the event's source context once. The group name is best effort.
func (d *Dispatcher) source(ctx context.Context) domain.SourceContext {
	t := turnFrom(ctx)
	if t == nil {
		return domain.SourceContext{Kind: chat.SourceUser}
	}
	t.mu.Lock()
	if t.src != nil {
		src := *t.src
		t.mu.Unlock()
		return src
	}
	t.mu.Unlock()

	s := t.ev.Source
	src := domain.SourceContext{Kind: s.Kind, GroupID: s.GroupID, RoomID: s.RoomID}
	if s.IsGroup() {
		if g, err := d.lookup.GroupSummary(ctx, s.GroupID); err == nil {
			src.GroupName = g.Name
		} else {
			logger.Debug(ctx, logger.CompLeads, "group.summary",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}

	t.mu.Lock()
	t.src = &src
	t.mu.Unlock()
	return src
}

// displayName returns the chat profile name of userID, using the group member
// profile inside groups. It returns "" when the profile is unavailable.
func (d *Dispatcher) displayName(ctx context.Context, src domain.SourceContext, userID string) string {
	if userID == "" {
		return ""
	}
	var (
		p   chat.Profile
		err error
	)
	if src.IsGroup() {
		p, err = d.lookup.GroupMemberProfile(ctx, src.GroupID, userID)
	} else {
		p, err = d.lookup.Profile(ctx, userID)
	}
	if err != nil {
		logger.Debug(ctx, logger.CompLeads, "profile.lookup",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return ""
	}
	return p.DisplayName
}

// ownerName resolves the display name of a staff user: the chat profile of
// its linked user id, then its full name, then "Unknown".
func (d *Dispatcher) ownerName(ctx context.Context, ownerID int64) string {
	u, err := d.repo.StaffUser(ctx, ownerID)
	if err != nil {
		if !domain.IsNotFound(err) {
			logger.Warn(ctx, logger.CompLeads, "staff.lookup",
				slog.String("status", "fail"),
				slog.Int64("owner_id", ownerID),
				slog.String("err", err.Error()),
			)
		}
		return compose.MsgUnknown
	}
	if u.ExternalUserID != "" {
		if name := d.displayName(ctx, d.source(ctx), u.ExternalUserID); name != "" {
			return name
		}
	}
	if name := u.FullName(); name != "" {
		return name
	}
	return compose.MsgUnknown
}
