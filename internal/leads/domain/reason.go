package domain

import "strings"

// ReasonMarker separates the descriptive address from an embedded lost reason.
const ReasonMarker = " reason: "

// SplitReason separates an embedded lost reason from the address text.
// Only the first marker counts. Typed addresses are stored trimmed, so text
// that merely starts with "reason: " is never read as a reason.
func SplitReason(address string) (string, string) {
	if i := strings.Index(address, ReasonMarker); i >= 0 {
		return strings.TrimSpace(address[:i]), strings.TrimSpace(address[i+len(ReasonMarker):])
	}
	return address, ""
}

// MergeReason embeds reason into address. Any previous reason must be split
// off first; SplitReason(MergeReason(a, r)) returns (a, r) for trimmed input.
// With an empty address the value keeps the marker's leading space.
func MergeReason(address, reason string) string {
	reason = strings.TrimSpace(reason)
	if address == "" {
		return ReasonMarker + reason
	}
	return address + ReasonMarker + reason
}
