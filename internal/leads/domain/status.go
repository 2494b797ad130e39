package domain

// LeadStatus is the lifecycle position of a lead. Values match the
// lead_status_id column.
type LeadStatus int16

const (
	StatusNew         LeadStatus = 1
	StatusQualified   LeadStatus = 2
	StatusDiscussion  LeadStatus = 3
	StatusNegotiation LeadStatus = 4
	StatusWon         LeadStatus = 5
	StatusLost        LeadStatus = 6
)

type statusInfo struct {
	key   string
	label string
}

var statuses = map[LeadStatus]statusInfo{
	StatusNew:         {"new", "ลูกค้าใหม่"},
	StatusQualified:   {"qualified", "Qualified"},
	StatusDiscussion:  {"discussion", "Discussion"},
	StatusNegotiation: {"negotiation", "คุยแล้วกำลังตัดสินใจ"},
	StatusWon:         {"won", "ซื้อแล้ว"},
	StatusLost:        {"lost", "ไม่ซื้อ"},
}

// selectable lists the statuses an operator may pick, in button order.
var selectable = []LeadStatus{StatusNegotiation, StatusWon, StatusLost}

// Valid reports whether s is a known status id.
func (s LeadStatus) Valid() bool {
	_, ok := statuses[s]
	return ok
}

// Key returns the wire key ("new", "won", ...). Unknown ids report "new".
func (s LeadStatus) Key() string {
	if info, ok := statuses[s]; ok {
		return info.key
	}
	return statuses[StatusNew].key
}

// Label returns the display label. Unknown ids display as new; the stored
// value is never rewritten.
func (s LeadStatus) Label() string {
	if info, ok := statuses[s]; ok {
		return info.label
	}
	return statuses[StatusNew].label
}

func (s LeadStatus) String() string { return s.Key() }

// ParseStatus maps a wire key to its status.
func ParseStatus(key string) (LeadStatus, bool) {
	for s, info := range statuses {
		if info.key == key {
			return s, true
		}
	}
	return 0, false
}

// SelectableStatuses returns the statuses offered on the status prompt.
func SelectableStatuses() []LeadStatus {
	return append([]LeadStatus(nil), selectable...)
}

// IsSelectable reports whether s may be chosen through a setStatus postback.
func IsSelectable(s LeadStatus) bool {
	for _, v := range selectable {
		if v == s {
			return true
		}
	}
	return false
}
