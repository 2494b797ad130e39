// Package fsm decides and applies lead status transitions.
package fsm

import "github.com/m3rciful/leadbot/internal/leads/domain"

// Effect is the side effect a decision asks for.
type Effect int

const (
	// ShowTransitions presents the status prompt; nothing changes.
	ShowTransitions Effect = iota + 1
	// AssignOwner makes the actor the owner.
	AssignOwner
	// ApplyStatus writes Next as the new status.
	ApplyStatus
	// AwaitReason stores a pending interaction and asks for a reason.
	AwaitReason
	// RecordReason stores the reason and marks the lead lost.
	RecordReason
)

var effectNames = map[Effect]string{
	ShowTransitions: "show_transitions",
	AssignOwner:     "assign_owner",
	ApplyStatus:     "apply_status",
	AwaitReason:     "await_reason",
	RecordReason:    "record_reason",
}

func (e Effect) String() string {
	if s, ok := effectNames[e]; ok {
		return s
	}
	return "none"
}

// Decision is the outcome of Decide.
type Decision struct {
	Next   domain.LeadStatus
	Effect Effect
}

// Decide maps the current status and a postback action to a decision.
// Status writes are unconditional: any current status may move to any
// selectable target.
func Decide(current domain.LeadStatus, a domain.Action) (Decision, error) {
	switch act := a.(type) {
	case domain.Update:
		return Decision{Next: current, Effect: ShowTransitions}, nil
	case domain.Assign:
		return Decision{Next: current, Effect: AssignOwner}, nil
	case domain.SetStatus:
		if !domain.IsSelectable(act.Target) {
			return Decision{}, domain.Protocol(domain.MsgInvalidStatus).WithOp("decide")
		}
		if act.Target == domain.StatusLost {
			return Decision{Next: current, Effect: AwaitReason}, nil
		}
		return Decision{Next: act.Target, Effect: ApplyStatus}, nil
	default:
		return Decision{}, domain.Protocol(domain.MsgIncompleteData).WithOp("decide")
	}
}

// DecideReason is the decision for a reason received while a lost status is pending.
func DecideReason(domain.LeadStatus) Decision {
	return Decision{Next: domain.StatusLost, Effect: RecordReason}
}
