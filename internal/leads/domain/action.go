package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// Postback action names.
const (
	ActionAssign    = "assign"
	ActionUpdate    = "update"
	ActionSetStatus = "setStatus"
)

// Messages for malformed postbacks.
const (
	MsgIncompleteData = "ข้อมูลไม่ครบถ้วน"
	MsgInvalidStatus  = "สถานะไม่ถูกต้อง"
)

// Action is a decoded postback. The set of variants is closed.
type Action interface {
	Client() int64
	Name() string
	action()
}

// Assign makes the pressing user the owner of the client.
type Assign struct{ ClientID int64 }

// Update asks for the status prompt of the client.
type Update struct{ ClientID int64 }

// SetStatus moves the client to Target.
type SetStatus struct {
	ClientID int64
	Target   LeadStatus
}

func (a Assign) Client() int64    { return a.ClientID }
func (a Update) Client() int64    { return a.ClientID }
func (a SetStatus) Client() int64 { return a.ClientID }

func (Assign) Name() string    { return ActionAssign }
func (Update) Name() string    { return ActionUpdate }
func (SetStatus) Name() string { return ActionSetStatus }

func (Assign) action()    {}
func (Update) action()    {}
func (SetStatus) action() {}

// DecodeAction parses urlencoded postback data. Missing or unknown actions and
// missing or non-numeric client ids are protocol errors with
// MsgIncompleteData; a status outside the selectable set gives MsgInvalidStatus.
func DecodeAction(data string) (Action, error) {
	values, err := url.ParseQuery(strings.TrimSpace(data))
	if err != nil {
		return nil, Protocol(MsgIncompleteData).WithOp("decode_action")
	}
	name := values.Get("action")
	rawID := values.Get("clientId")
	if name == "" || rawID == "" {
		return nil, Protocol(MsgIncompleteData).WithOp("decode_action")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil, Protocol(MsgIncompleteData).WithOp("decode_action")
	}

	switch name {
	case ActionAssign:
		return Assign{ClientID: id}, nil
	case ActionUpdate:
		return Update{ClientID: id}, nil
	case ActionSetStatus:
		target, ok := ParseStatus(values.Get("status"))
		if !ok || !IsSelectable(target) {
			return nil, Protocol(MsgInvalidStatus).WithOp("decode_action")
		}
		return SetStatus{ClientID: id, Target: target}, nil
	default:
		return nil, Protocol(MsgIncompleteData).WithOp("decode_action")
	}
}

// EncodeAction renders the postback data for a button.
// Keys are written in the order action, clientId, status.
func EncodeAction(a Action) string {
	var b strings.Builder
	b.WriteString("action=")
	b.WriteString(a.Name())
	b.WriteString("&clientId=")
	b.WriteString(strconv.FormatInt(a.Client(), 10))
	if s, ok := a.(SetStatus); ok {
		b.WriteString("&status=")
		b.WriteString(url.QueryEscape(s.Target.Key()))
	}
	return b.String()
}
