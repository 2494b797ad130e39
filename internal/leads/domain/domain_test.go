package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "ลูกค้าใหม่", StatusNew.Label())
	assert.Equal(t, "คุยแล้วกำลังตัดสินใจ", StatusNegotiation.Label())
	assert.Equal(t, "ซื้อแล้ว", StatusWon.Label())
	assert.Equal(t, "ไม่ซื้อ", StatusLost.Label())
	assert.Equal(t, "ลูกค้าใหม่", LeadStatus(42).Label(), "unknown ids display as new")
	assert.False(t, LeadStatus(42).Valid())

	s, ok := ParseStatus("won")
	require.True(t, ok)
	assert.Equal(t, StatusWon, s)
	_, ok = ParseStatus("archived")
	assert.False(t, ok)
}

func TestSelectableStatuses(t *testing.T) {
	assert.Equal(t, []LeadStatus{StatusNegotiation, StatusWon, StatusLost}, SelectableStatuses())
	assert.False(t, IsSelectable(StatusQualified))
}

func TestReasonRoundTrip(t *testing.T) {
	cases := []struct{ address, reason string }{
		{"", "too expensive"},
		{"สนใจสินค้าค่ะ", "ราคาแพง"},
		{"call after 5pm", "bought elsewhere"},
	}
	for _, tc := range cases {
		merged := MergeReason(tc.address, tc.reason)
		addr, reason := SplitReason(merged)
		assert.Equal(t, tc.address, addr, "address of %q", merged)
		assert.Equal(t, tc.reason, reason, "reason of %q", merged)
	}
}

func TestSplitReasonUsesFirstMarker(t *testing.T) {
	addr, reason := SplitReason("a reason: b reason: c")
	assert.Equal(t, "a", addr)
	assert.Equal(t, "b reason: c", reason)

	addr, reason = SplitReason("plain")
	assert.Equal(t, "plain", addr)
	assert.Empty(t, reason)
}

func TestTypedReasonPrefixIsPlainAddress(t *testing.T) {
	addr, reason := SplitReason("reason: ใกล้บ้าน")
	assert.Equal(t, "reason: ใกล้บ้าน", addr)
	assert.Empty(t, reason)

	addr, reason = SplitReason(MergeReason("", "แพง"))
	assert.Empty(t, addr)
	assert.Equal(t, "แพง", reason)
}

func TestMergeAfterSplitReplacesReason(t *testing.T) {
	addr, _ := SplitReason(MergeReason("details", "old"))
	assert.Equal(t, "details reason: new", MergeReason(addr, "new"))
}

func TestDecodeAction(t *testing.T) {
	a, err := DecodeAction("action=assign&clientId=42")
	require.NoError(t, err)
	assert.Equal(t, Assign{ClientID: 42}, a)

	a, err = DecodeAction("action=update&clientId=7")
	require.NoError(t, err)
	assert.Equal(t, Update{ClientID: 7}, a)

	a, err = DecodeAction("action=setStatus&clientId=42&status=lost")
	require.NoError(t, err)
	assert.Equal(t, SetStatus{ClientID: 42, Target: StatusLost}, a)
}

func TestDecodeActionErrors(t *testing.T) {
	incomplete := []string{"", "action=assign", "clientId=1", "action=assign&clientId=abc", "action=archive&clientId=1", "action=assign&clientId=-3"}
	for _, data := range incomplete {
		_, err := DecodeAction(data)
		require.Error(t, err, data)
		assert.Equal(t, KindProtocol, KindOf(err), data)
		assert.Equal(t, MsgIncompleteData, MessageOf(err), data)
	}

	for _, data := range []string{"action=setStatus&clientId=1", "action=setStatus&clientId=1&status=archived", "action=setStatus&clientId=1&status=qualified"} {
		_, err := DecodeAction(data)
		require.Error(t, err, data)
		assert.Equal(t, MsgInvalidStatus, MessageOf(err), data)
	}
}

func TestEncodeActionRoundTrip(t *testing.T) {
	for _, a := range []Action{Assign{ClientID: 1}, Update{ClientID: 2}, SetStatus{ClientID: 3, Target: StatusWon}} {
		decoded, err := DecodeAction(EncodeAction(a))
		require.NoError(t, err)
		assert.Equal(t, a, decoded)
	}
	assert.Equal(t, "action=setStatus&clientId=3&status=negotiation", EncodeAction(SetStatus{ClientID: 3, Target: StatusNegotiation}))
}

func TestErrorKinds(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("insert: %w", External("client.insert", base))
	assert.Equal(t, KindExternal, KindOf(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, KindUnknown, KindOf(base))
	assert.True(t, IsNotFound(NotFound("missing")))
	assert.Equal(t, 409, Conflict("dup").HTTPStatus())
	assert.Equal(t, "client.insert: connection refused", External("client.insert", base).Error())
}
