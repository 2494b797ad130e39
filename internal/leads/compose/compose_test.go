package compose

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

func sampleRecord() domain.ClientRecord {
	return domain.ClientRecord{
		ID:         42,
		Name:       "กรณี",
		Phone:      "0641989925",
		Address:    "สนใจสินค้าค่ะ",
		LeadStatus: domain.StatusNew,
	}
}

func group() domain.SourceContext {
	return domain.SourceContext{Kind: chat.SourceGroup, GroupID: "C1", GroupName: "Sales"}
}

func TestNewClientCard(t *testing.T) {
	msg := NewClientCard(sampleRecord(), "Alice", group())
	require.NotNil(t, msg.Card)
	card := *msg.Card

	assert.Equal(t, TitleNewClient, card.Title)
	for label, want := range map[string]string{
		LabelName:      "กรณี",
		LabelPhone:     "0641989925",
		LabelDetails:   "สนใจสินค้าค่ะ",
		LabelClientID:  "42",
		LabelCreatedBy: "Alice",
		LabelOwner:     "Alice",
		LabelGroup:     "Sales",
		LabelStatus:    "ลูกค้าใหม่",
	} {
		got, ok := card.Value(label)
		assert.True(t, ok, label)
		assert.Equal(t, want, got, label)
	}
	require.Len(t, card.Buttons, 2)
	assert.Equal(t, "action=assign&clientId=42", card.Buttons[0].Data)
	assert.Equal(t, chat.ButtonPrimary, card.Buttons[0].Style)
	assert.Equal(t, "action=update&clientId=42", card.Buttons[1].Data)
}

func TestNewClientCardPrivateChatHasNoGroup(t *testing.T) {
	rec := sampleRecord()
	rec.Address = ""
	msg := NewClientCard(rec, "Alice", domain.SourceContext{Kind: chat.SourceUser})

	_, ok := msg.Card.Value(LabelGroup)
	assert.False(t, ok)
	details, _ := msg.Card.Value(LabelDetails)
	assert.Equal(t, NoDetails, details)
}

func TestNewClientCardKeepsTypedReasonText(t *testing.T) {
	rec := sampleRecord()
	rec.Address = "reason: ใกล้บ้าน"
	msg := NewClientCard(rec, "Alice", group())

	details, _ := msg.Card.Value(LabelDetails)
	assert.Equal(t, "reason: ใกล้บ้าน", details)
	_, ok := msg.Card.Value(LabelReason)
	assert.False(t, ok)
}

func TestNewClientCardUnknownGroupName(t *testing.T) {
	src := domain.SourceContext{Kind: chat.SourceGroup, GroupID: "C1"}
	msg := NewClientCard(sampleRecord(), "Alice", src)
	got, _ := msg.Card.Value(LabelGroup)
	assert.Equal(t, domain.UnknownGroup, got)
}

func TestStatusPromptCardButtons(t *testing.T) {
	msg := StatusPromptCard(sampleRecord(), "Bob")
	require.NotNil(t, msg.Card)

	var data []string
	for _, b := range msg.Card.Buttons {
		data = append(data, b.Data)
	}
	assert.Equal(t, []string{
		"action=setStatus&clientId=42&status=negotiation",
		"action=setStatus&clientId=42&status=won",
		"action=setStatus&clientId=42&status=lost",
	}, data)
	assert.Equal(t, "คุยแล้วกำลังตัดสินใจ", msg.Card.Buttons[0].Label)
	owner, _ := msg.Card.Value(LabelOwner)
	assert.Equal(t, "Bob", owner)
}

func TestStatusUpdatedCardShowsReason(t *testing.T) {
	rec := sampleRecord()
	rec.LeadStatus = domain.StatusLost
	rec.Address = domain.MergeReason("สนใจสินค้าค่ะ", "แพงเกินไป")

	msg := StatusUpdatedCard(rec, "Bob")
	details, _ := msg.Card.Value(LabelDetails)
	reason, ok := msg.Card.Value(LabelReason)
	status, _ := msg.Card.Value(LabelStatus)

	assert.Equal(t, "สนใจสินค้าค่ะ", details)
	assert.True(t, ok)
	assert.Equal(t, "แพงเกินไป", reason)
	assert.Equal(t, "ไม่ซื้อ", status)
	assert.Empty(t, msg.Card.Buttons)
}

func TestAssignedCard(t *testing.T) {
	msg := AssignedCard(sampleRecord(), "Bob", group())
	require.NotNil(t, msg.Card)
	assert.Equal(t, AssignedNote, msg.Card.Note)
	require.Len(t, msg.Card.Buttons, 1)
	assert.Equal(t, "action=update&clientId=42", msg.Card.Buttons[0].Data)
	owner, _ := msg.Card.Value(LabelOwner)
	assert.Equal(t, "Bob", owner)
}

func TestHelpAndFallbackMentionGroupCommandsOnlyInGroups(t *testing.T) {
	private := domain.SourceContext{Kind: chat.SourceUser}
	assert.NotContains(t, Help(private).Text, "คำสั่งเฉพาะกลุ่ม")
	assert.Contains(t, Help(group()).Text, "คำสั่งเฉพาะกลุ่ม")
	assert.True(t, strings.HasPrefix(Fallback(private).Text, "ไม่เข้าใจคำสั่ง"))
	assert.Contains(t, Fallback(group()).Text, "group")
}

func TestStatsText(t *testing.T) {
	s := domain.Stats{Total: 10, Today: 1, ThisWeek: 3, ThisMonth: 7, Won: 2, Lost: 4}
	text := StatsText(s, group()).Text
	assert.Contains(t, text, "ลูกค้าทั้งหมด: 10 คน")
	assert.Contains(t, text, "วันนี้: 1 คน")
	assert.Contains(t, text, "สัปดาห์นี้: 3 คน")
	assert.Contains(t, text, "เดือนนี้: 7 คน")
	assert.Contains(t, text, "กลุ่ม: Sales")

	private := StatsText(s, domain.SourceContext{Kind: chat.SourceUser}).Text
	assert.NotContains(t, private, "กลุ่ม:")
}

func TestGroupInfo(t *testing.T) {
	text := GroupInfo("C1", chat.GroupSummary{Name: "Sales", MemberCount: 5}).Text
	assert.Contains(t, text, "ชื่อกลุ่ม: Sales")
	assert.Contains(t, text, "Group ID: C1")
	assert.Contains(t, text, "จำนวนสมาชิก: 5 คน")

	text = GroupInfo("C1", chat.GroupSummary{}).Text
	assert.Contains(t, text, "ชื่อกลุ่ม: "+MsgUnknownName)
	assert.Contains(t, text, "จำนวนสมาชิก: "+MsgUnknownCount+" คน")
}

func TestSearchResults(t *testing.T) {
	assert.Equal(t, MsgNoResults, SearchResults(nil).Text)

	rec := sampleRecord()
	rec.CreatedDate = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	text := SearchResults([]domain.ClientRecord{rec}).Text
	assert.True(t, strings.HasPrefix(text, "ผลการค้นหาลูกค้า (1 รายการ):"))
	assert.Contains(t, text, "1. กรณี")
	assert.Contains(t, text, "เบอร์: 0641989925")
	assert.Contains(t, text, "ID: 42")
	assert.Contains(t, text, "วันที่สร้าง: 2026-03-01")
}

func TestErrorText(t *testing.T) {
	cases := []struct {
		name string
		op   Operation
		err  error
		want string
	}{
		{"validation message", OpRegister, domain.Validation("กรุณาระบุชื่อลูกค้า"), "กรุณาระบุชื่อลูกค้า"},
		{"protocol message", OpPostback, domain.Protocol(domain.MsgInvalidStatus), domain.MsgInvalidStatus},
		{"assign missing", OpAssign, domain.NotFound(""), msgNotFoundUpdate},
		{"status missing", OpSetStatus, domain.NotFound(""), msgNotFoundStatus},
		{"lost missing", OpLostReason, domain.NotFound(""), msgNotFoundStatus},
		{"store down on register", OpRegister, domain.External("insert", errors.New("down")), "เกิดข้อผิดพลาดในการบันทึกข้อมูล"},
		{"store down on search", OpSearch, errors.New("down"), "เกิดข้อผิดพลาดในการค้นหา"},
		{"unknown op", Operation("other"), errors.New("x"), msgGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorText(tc.op, tc.err))
		})
	}
}

func TestOperationOf(t *testing.T) {
	assert.Equal(t, OpAssign, OperationOf(domain.Assign{ClientID: 1}))
	assert.Equal(t, OpUpdate, OperationOf(domain.Update{ClientID: 1}))
	assert.Equal(t, OpSetStatus, OperationOf(domain.SetStatus{ClientID: 1}))
}
