// Package leads defines the ports of the lead manager: client storage and
// lead event publishing.
package leads

import (
	"context"
	"time"

	"github.com/m3rciful/leadbot/internal/leads/domain"
)

// ClientRepository persists client records. Every operation sees only
// non-deleted rows. Update methods report the number of affected rows;
// zero means the record is missing or deleted.
type ClientRepository interface {
	FindByPhone(ctx context.Context, phone string) ([]domain.ClientRecord, error)
	Insert(ctx context.Context, c domain.NewClient) (int64, error)
	// FindByID returns a domain.KindNotFound error when the record is absent.
	FindByID(ctx context.Context, id int64) (domain.ClientRecord, error)
	UpdateStatus(ctx context.Context, id int64, status domain.LeadStatus) (int64, error)
	UpdateOwner(ctx context.Context, id int64, ownerID int64) (int64, error)
	UpdateAddress(ctx context.Context, id int64, address string) (int64, error)
	// ResolveInternalUserID maps a chat user to a staff user id, falling back
	// to the default owner.
	ResolveInternalUserID(ctx context.Context, externalUserID string) (int64, error)
	// WithinTx runs fn against a repository bound to one transaction.
	WithinTx(ctx context.Context, fn func(tx ClientRepository) error) error

	Search(ctx context.Context, q SearchQuery) ([]domain.ClientRecord, error)
	Stats(ctx context.Context) (domain.Stats, error)
	List(ctx context.Context, limit int) ([]domain.ClientRecord, error)
	UpdateDetails(ctx context.Context, id int64, u domain.ClientUpdate) (int64, error)
	SoftDelete(ctx context.Context, id int64) (int64, error)
	// StaffUser returns a domain.KindNotFound error when the user is absent.
	StaffUser(ctx context.Context, id int64) (domain.StaffUser, error)
}

// SearchQuery matches Term case-insensitively against name, phone and
// address, or Phone exactly when set.
type SearchQuery struct {
	Term  string
	Phone string
	Limit int
}

// Lead event types.
const (
	EventLeadCreated       = "lead.created"
	EventLeadOwnerAssigned = "lead.owner_assigned"
	EventLeadStatusChanged = "lead.status_changed"
)

// LeadEvent notifies downstream systems about a lead change.
type LeadEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ClientID   int64     `json:"client_id"`
	Status     string    `json:"status"`
	OwnerID    int64     `json:"owner_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Channel    string    `json:"channel,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers lead events. Failures never change chat replies.
type EventPublisher interface {
	Publish(ctx context.Context, ev LeadEvent) error
}
