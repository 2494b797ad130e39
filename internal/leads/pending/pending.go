// Package pending keeps per-user multi-turn interaction state, such as a lost
// status that waits for its reason.
package pending

import (
	"context"
	"time"
)

// Kind names the interaction a user is in the middle of.
type Kind string

// KindLostReason waits for the reason of a lost status.
const KindLostReason Kind = "lost_reason"

// DefaultTTL bounds how long an abandoned interaction survives.
const DefaultTTL = 10 * time.Minute

// Interaction is the pending state of one user.
type Interaction struct {
	Kind      Kind      `json:"kind"`
	ClientID  int64     `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store holds at most one interaction per user. Set overwrites.
type Store interface {
	Set(ctx context.Context, userID string, it Interaction) error
	Get(ctx context.Context, userID string) (Interaction, bool, error)
	Clear(ctx context.Context, userID string) error
}
