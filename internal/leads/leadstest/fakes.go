package leadstest

import (
	"context"
	"sync"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/pending"
)

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []leads.LeadEvent
	Err    error
}

func (p *Publisher) Publish(_ context.Context, ev leads.LeadEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []leads.LeadEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]leads.LeadEvent(nil), p.events...)
}

// CountingStore wraps a pending.Store and counts calls.
type CountingStore struct {
	pending.Store

	mu                 sync.Mutex
	sets, gets, clears int
	FailSet, FailGet   error
}

// NewCountingStore wraps an in-memory store.
func NewCountingStore() *CountingStore {
	return &CountingStore{Store: pending.NewMemoryStore(0)}
}

func (s *CountingStore) Set(ctx context.Context, userID string, it pending.Interaction) error {
	s.mu.Lock()
	s.sets++
	fail := s.FailSet
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	return s.Store.Set(ctx, userID, it)
}

func (s *CountingStore) Get(ctx context.Context, userID string) (pending.Interaction, bool, error) {
	s.mu.Lock()
	s.gets++
	fail := s.FailGet
	s.mu.Unlock()
	if fail != nil {
		return pending.Interaction{}, false, fail
	}
	return s.Store.Get(ctx, userID)
}

func (s *CountingStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	return s.Store.Clear(ctx, userID)
}

// Counts returns the number of Set, Get and Clear calls.
func (s *CountingStore) Counts() (sets, gets, clears int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets, s.gets, s.clears
}

// Reply is one recorded reply sequence.
type Reply struct {
	Token    string
	Messages []chat.Message
}

// Gateway is a scripted chat.Gateway.
type Gateway struct {
	mu       sync.Mutex
	Profiles map[string]string
	// Members maps groupID+"/"+userID to a display name.
	Members  map[string]string
	Groups   map[string]chat.GroupSummary
	ReplyErr error
	replies  []Reply
}

// NewGateway creates a gateway that knows nobody.
func NewGateway() *Gateway {
	return &Gateway{
		Profiles: make(map[string]string),
		Members:  make(map[string]string),
		Groups:   make(map[string]chat.GroupSummary),
	}
}

func (g *Gateway) Profile(_ context.Context, userID string) (chat.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, ok := g.Profiles[userID]
	if !ok {
		return chat.Profile{}, chat.Unavailable("fake.profile", nil)
	}
	return chat.Profile{UserID: userID, DisplayName: name}, nil
}

func (g *Gateway) GroupMemberProfile(_ context.Context, groupID, userID string) (chat.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, ok := g.Members[groupID+"/"+userID]
	if !ok {
		return chat.Profile{}, chat.Unavailable("fake.member", nil)
	}
	return chat.Profile{UserID: userID, DisplayName: name}, nil
}

func (g *Gateway) GroupSummary(_ context.Context, groupID string) (chat.GroupSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.Groups[groupID]
	if !ok {
		return chat.GroupSummary{}, chat.Unavailable("fake.group", nil)
	}
	return s, nil
}

func (g *Gateway) Reply(_ context.Context, token string, msgs ...chat.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, Reply{Token: token, Messages: append([]chat.Message(nil), msgs...)})
	return g.ReplyErr
}

// Replies returns the recorded reply sequences.
func (g *Gateway) Replies() []Reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Reply(nil), g.replies...)
}

// Last returns the most recent reply sequence.
func (g *Gateway) Last() (Reply, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.replies) == 0 {
		return Reply{}, false
	}
	return g.replies[len(g.replies)-1], true
}

var (
	_ leads.EventPublisher = (*Publisher)(nil)
	_ pending.Store        = (*CountingStore)(nil)
	_ chat.Gateway         = (*Gateway)(nil)
)
