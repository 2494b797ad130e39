package domain

import "github.com/m3rciful/leadbot/core/chat"

// UnknownGroup is shown when a group name cannot be resolved.
const UnknownGroup = "Unknown Group"

// SourceContext describes where an event came from, with the group name
// resolved best-effort.
type SourceContext struct {
	Kind      chat.SourceKind
	GroupID   string
	GroupName string
	RoomID    string
}

// IsGroup reports whether the context is a group chat.
func (s SourceContext) IsGroup() bool { return s.Kind == chat.SourceGroup && s.GroupID != "" }

// DisplayGroupName returns the group name or UnknownGroup.
func (s SourceContext) DisplayGroupName() string {
	if s.GroupName == "" {
		return UnknownGroup
	}
	return s.GroupName
}
