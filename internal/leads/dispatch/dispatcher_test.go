package dispatch

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/compose"
	"github.com/m3rciful/leadbot/internal/leads/domain"
	"github.com/m3rciful/leadbot/internal/leads/fsm"
	"github.com/m3rciful/leadbot/internal/leads/leadstest"
)

type harness struct {
	repo  *leadstest.Repo
	store *leadstest.CountingStore
	gw    *leadstest.Gateway
	pub   *leadstest.Publisher
	d     *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:  leadstest.NewRepo(),
		store: leadstest.NewCountingStore(),
		gw:    leadstest.NewGateway(),
		pub:   &leadstest.Publisher{},
	}
	now := func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	m := fsm.New(fsm.Options{Repo: h.repo, Pending: h.store, Publisher: h.pub, Now: now})
	h.d = New(Options{
		Repo:    h.repo,
		Machine: m,
		Lookup:  h.gw,
		Replier: h.gw,
		Now:     now,
	})
	h.repo.AddStaff(domain.StaffUser{ID: 1, FirstName: "Default", LastName: "Owner"}, "")
	return h
}

func privateText(user, text string) chat.Event {
	return chat.Event{
		ID:         "ev-" + user,
		Channel:    "line",
		Kind:       chat.EventMessage,
		Source:     chat.Source{Kind: chat.SourceUser, UserID: user},
		ReplyToken: "tok",
		Text:       text,
	}
}

func groupText(group, user, text string) chat.Event {
	ev := privateText(user, text)
	ev.Source = chat.Source{Kind: chat.SourceGroup, UserID: user, GroupID: group}
	return ev
}

func postback(user, data string) chat.Event {
	return chat.Event{
		ID:           "pb-" + user,
		Channel:      "line",
		Kind:         chat.EventPostback,
		Source:       chat.Source{Kind: chat.SourceUser, UserID: user},
		ReplyToken:   "tok",
		PostbackData: data,
	}
}

func (h *harness) handle(t *testing.T, ev chat.Event) leadstest.Reply {
	t.Helper()
	before := len(h.gw.Replies())
	_ = h.d.Handle(context.Background(), ev)
	replies := h.gw.Replies()
	require.Len(t, replies, before+1, "expected exactly one reply sequence")
	return replies[len(replies)-1]
}

func onlyMessage(t *testing.T, r leadstest.Reply) chat.Message {
	t.Helper()
	require.Len(t, r.Messages, 1)
	return r.Messages[0]
}

func TestRegisterCreatesClientAndRepliesWithCard(t *testing.T) {
	h := newHarness(t)
	h.repo.AddStaff(domain.StaffUser{ID: 7, FirstName: "Som", LastName: "Chai"}, "U1")
	h.gw.Members["C1/U1"] = "Somchai"
	h.gw.Groups["C1"] = chat.GroupSummary{GroupID: "C1", Name: "Sales"}

	msg := onlyMessage(t, h.handle(t, groupText("C1", "U1", "คุณกรณี 0641989925 สนใจสินค้าค่ะ")))

	require.NotNil(t, msg.Card)
	assert.Equal(t, compose.TitleNewClient, msg.Card.Title)
	name, _ := msg.Card.Value(compose.LabelName)
	creator, _ := msg.Card.Value(compose.LabelCreatedBy)
	group, _ := msg.Card.Value(compose.LabelGroup)
	assert.Equal(t, "คุณกรณี", name)
	assert.Equal(t, "Somchai", creator)
	assert.Equal(t, "Sales", group)

	rec, ok := h.repo.Get(1)
	require.True(t, ok)
	assert.Equal(t, "0641989925", rec.Phone)
	assert.Equal(t, "สนใจสินค้าค่ะ", rec.Address)
	assert.Equal(t, int64(7), rec.OwnerID)
	assert.Equal(t, 1, h.repo.Mutations())

	events := h.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, leads.EventLeadCreated, events[0].Type)
}

func TestRegisterAllowsDuplicatePhone(t *testing.T) {
	h := newHarness(t)
	h.repo.Put(domain.ClientRecord{Name: "เก่า", Phone: "0641989925"})

	h.handle(t, privateText("U1", "คุณกรณี 0641989925"))

	assert.Equal(t, 1, h.repo.Calls("FindByPhone"))
	assert.Equal(t, 1, h.repo.Calls("Insert"))
	_, ok := h.repo.Get(2)
	assert.True(t, ok)
}

func TestRegisterUnknownProfileFallsBack(t *testing.T) {
	h := newHarness(t)
	msg := onlyMessage(t, h.handle(t, groupText("C9", "U1", "คุณกรณี 0641989925")))

	creator, _ := msg.Card.Value(compose.LabelCreatedBy)
	group, _ := msg.Card.Value(compose.LabelGroup)
	assert.Equal(t, compose.MsgUnknown, creator)
	assert.Equal(t, domain.UnknownGroup, group)
}

func TestRegisterWithoutNameIsRejected(t *testing.T) {
	h := newHarness(t)
	msg := onlyMessage(t, h.handle(t, privateText("U1", "0641989925 สนใจ")))
	assert.Equal(t, "กรุณาระบุชื่อลูกค้า", msg.Text)
	assert.Zero(t, h.repo.Calls("Insert"))
}

func TestRegisterStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.repo.Fail["Insert"] = true

	err := h.d.Handle(context.Background(), privateText("U1", "คุณกรณี 0641989925"))
	require.Error(t, err)
	last, ok := h.gw.Last()
	require.True(t, ok)
	assert.Equal(t, "เกิดข้อผิดพลาดในการบันทึกข้อมูล", onlyMessage(t, last).Text)
	assert.Empty(t, h.pub.Events())
}

func TestSetStatusWon(t *testing.T) {
	h := newHarness(t)
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี", Phone: "0641989925", OwnerID: 1})

	msg := onlyMessage(t, h.handle(t, postback("U1", "action=setStatus&clientId=42&status=won")))

	rec, _ := h.repo.Get(42)
	assert.Equal(t, domain.StatusWon, rec.LeadStatus)
	assert.Equal(t, 1, h.repo.Mutations())
	require.NotNil(t, msg.Card)
	status, _ := msg.Card.Value(compose.LabelStatus)
	owner, _ := msg.Card.Value(compose.LabelOwner)
	assert.Equal(t, "ซื้อแล้ว", status)
	assert.Equal(t, "Default Owner", owner)
}

func TestLostFlow(t *testing.T) {
	h := newHarness(t)
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี", Address: "สนใจสินค้าค่ะ", OwnerID: 1})

	msg := onlyMessage(t, h.handle(t, postback("U1", "action=setStatus&clientId=42&status=lost")))
	assert.Equal(t, compose.MsgReasonRequired, msg.Text)
	assert.Zero(t, h.repo.Mutations())

	it, ok, err := h.store.Store.Get(context.Background(), "line:U1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(42), it.ClientID)

	msg = onlyMessage(t, h.handle(t, privateText("U1", "ไม่สนใจราคา")))
	require.NotNil(t, msg.Card)
	reason, _ := msg.Card.Value(compose.LabelReason)
	assert.Equal(t, "ไม่สนใจราคา", reason)

	rec, _ := h.repo.Get(42)
	assert.Equal(t, domain.StatusLost, rec.LeadStatus)
	assert.Contains(t, rec.Address, "ไม่สนใจราคา")
	assert.True(t, strings.HasPrefix(rec.Address, "สนใจสินค้าค่ะ"))
	assert.Equal(t, 1, h.repo.Mutations())
	assert.Equal(t, 1, h.repo.Calls("UpdateStatus"))

	_, _, clears := h.store.Counts()
	assert.Equal(t, 1, clears)
	_, ok, _ = h.store.Store.Get(context.Background(), "line:U1")
	assert.False(t, ok)

	// the next text is routed normally again
	msg = onlyMessage(t, h.handle(t, privateText("U1", "help")))
	assert.Contains(t, msg.Text, "คำสั่งที่ใช้ได้")
}

func TestBlankTextCompletesPendingReason(t *testing.T) {
	h := newHarness(t)
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี", Address: "สนใจสินค้าค่ะ", OwnerID: 1})
	h.handle(t, postback("U1", "action=setStatus&clientId=42&status=lost"))

	msg := onlyMessage(t, h.handle(t, privateText("U1", "   ")))
	require.NotNil(t, msg.Card)

	rec, _ := h.repo.Get(42)
	assert.Equal(t, domain.StatusLost, rec.LeadStatus)
	assert.Equal(t, 1, h.repo.Mutations())
	_, ok, _ := h.store.Store.Get(context.Background(), "line:U1")
	assert.False(t, ok)
}

func TestBlankTextWithoutPendingIsIgnored(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.d.Handle(context.Background(), privateText("U1", " ")))
	assert.Empty(t, h.gw.Replies())
}

func TestLostReasonForDeletedClient(t *testing.T) {
	h := newHarness(t)
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี"})
	h.handle(t, postback("U1", "action=setStatus&clientId=42&status=lost"))
	_, err := h.repo.SoftDelete(context.Background(), 42)
	require.NoError(t, err)
	before := h.repo.Mutations()

	msg := onlyMessage(t, h.handle(t, privateText("U1", "แพง")))
	assert.Equal(t, "ไม่พบลูกค้าที่ต้องการอัพเดทสถานะ", msg.Text)
	assert.Equal(t, before, h.repo.Mutations())
	_, ok, _ := h.store.Store.Get(context.Background(), "line:U1")
	assert.False(t, ok)
}

func TestPendingIsPerChannel(t *testing.T) {
	h := newHarness(t)
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี"})
	h.handle(t, postback("U1", "action=setStatus&clientId=42&status=lost"))

	ev := privateText("U1", "help")
	ev.Channel = "telegram"
	msg := onlyMessage(t, h.handle(t, ev))
	assert.Contains(t, msg.Text, "คำสั่งที่ใช้ได้")
	rec, _ := h.repo.Get(42)
	assert.Equal(t, domain.StatusNew, rec.LeadStatus)
}

func TestPostbackMissingClientID(t *testing.T) {
	h := newHarness(t)
	msg := onlyMessage(t, h.handle(t, postback("U1", "action=setStatus&status=won")))
	assert.Equal(t, domain.MsgIncompleteData, msg.Text)
	assert.Zero(t, h.repo.Mutations())
	assert.Zero(t, h.repo.Calls("FindByID"))
}

func TestPostbackInvalidStatus(t *testing.T) {
	h := newHarness(t)
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี"})
	msg := onlyMessage(t, h.handle(t, postback("U1", "action=setStatus&clientId=42&status=new")))
	assert.Equal(t, domain.MsgInvalidStatus, msg.Text)
	assert.Zero(t, h.repo.Mutations())
}

func TestAssignIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.repo.AddStaff(domain.StaffUser{ID: 7, FirstName: "Som"}, "U1")
	h.gw.Profiles["U1"] = "Somchai"
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี", OwnerID: 1})

	first := onlyMessage(t, h.handle(t, postback("U1", "action=assign&clientId=42")))
	second := onlyMessage(t, h.handle(t, postback("U1", "action=assign&clientId=42")))

	rec, _ := h.repo.Get(42)
	assert.Equal(t, int64(7), rec.OwnerID)
	assert.Equal(t, first, second)
	owner, _ := first.Card.Value(compose.LabelOwner)
	assert.Equal(t, "Somchai", owner)
	assert.Equal(t, compose.AssignedNote, first.Card.Note)
}

func TestAssignMissingClient(t *testing.T) {
	h := newHarness(t)
	msg := onlyMessage(t, h.handle(t, postback("U1", "action=assign&clientId=99")))
	assert.Equal(t, "ไม่พบลูกค้าที่ต้องการอัพเดท", msg.Text)
}

func TestUpdateShowsPromptWithoutMutation(t *testing.T) {
	h := newHarness(t)
	h.repo.AddStaff(domain.StaffUser{ID: 3, FirstName: "Nok", ExternalUserID: "U3"}, "U3")
	h.gw.Profiles["U3"] = "Nok LINE"
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี", OwnerID: 3})

	msg := onlyMessage(t, h.handle(t, postback("U1", "action=update&clientId=42")))
	require.NotNil(t, msg.Card)
	assert.Equal(t, compose.TitleStatusPrompt, msg.Card.Title)
	assert.Len(t, msg.Card.Buttons, 3)
	owner, _ := msg.Card.Value(compose.LabelOwner)
	assert.Equal(t, "Nok LINE", owner)
	assert.Zero(t, h.repo.Mutations())
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	h.repo.Put(domain.ClientRecord{Name: "กรณี", Phone: "0641989925", Address: "สนใจสินค้า"})
	h.repo.Put(domain.ClientRecord{Name: "สมชาย", Phone: "0812345678"})

	msg := onlyMessage(t, h.handle(t, privateText("U1", "#ลูกค้า กรณี")))
	assert.Contains(t, msg.Text, "ผลการค้นหาลูกค้า (1 รายการ)")
	assert.Zero(t, h.repo.Calls("Insert"))

	msg = onlyMessage(t, h.handle(t, privateText("U1", "#ลูกค้า +66 81 234 5678")))
	assert.Contains(t, msg.Text, "สมชาย")

	msg = onlyMessage(t, h.handle(t, privateText("U1", "#ลูกค้า")))
	assert.Equal(t, compose.MsgSearchUsage, msg.Text)

	msg = onlyMessage(t, h.handle(t, privateText("U1", "#ลูกค้า ไม่มีใคร")))
	assert.Equal(t, compose.MsgNoResults, msg.Text)
}

func TestKeywordCommands(t *testing.T) {
	h := newHarness(t)
	h.gw.Groups["C1"] = chat.GroupSummary{GroupID: "C1", Name: "Sales", MemberCount: 4}

	msg := onlyMessage(t, h.handle(t, privateText("U1", "HELP")))
	assert.Contains(t, msg.Text, "คำสั่งที่ใช้ได้")

	msg = onlyMessage(t, h.handle(t, privateText("U1", "สถิติ")))
	assert.Contains(t, msg.Text, "สถิติลูกค้า")

	msg = onlyMessage(t, h.handle(t, groupText("C1", "U1", "group")))
	assert.Contains(t, msg.Text, "จำนวนสมาชิก: 4 คน")

	msg = onlyMessage(t, h.handle(t, privateText("U1", "กลุ่ม")))
	assert.True(t, strings.HasPrefix(msg.Text, "ไม่เข้าใจคำสั่ง"))
}

func TestFallback(t *testing.T) {
	h := newHarness(t)
	msg := onlyMessage(t, h.handle(t, privateText("U1", "สวัสดี")))
	assert.True(t, strings.HasPrefix(msg.Text, "ไม่เข้าใจคำสั่ง"))
}

func TestJoinWelcomesGroupsOnly(t *testing.T) {
	h := newHarness(t)
	ev := chat.Event{Channel: "line", Kind: chat.EventJoin, ReplyToken: "tok",
		Source: chat.Source{Kind: chat.SourceGroup, GroupID: "C1"}}
	msg := onlyMessage(t, h.handle(t, ev))
	assert.Equal(t, compose.Welcome, msg.Text)

	leave := chat.Event{Channel: "line", Kind: chat.EventLeave, Source: chat.Source{Kind: chat.SourceGroup, GroupID: "C1"}}
	require.NoError(t, h.d.Handle(context.Background(), leave))
	assert.Len(t, h.gw.Replies(), 1)
}

func TestReplyFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.gw.ReplyErr = leadstest.ErrInjected
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี"})

	err := h.d.Handle(context.Background(), postback("U1", "action=setStatus&clientId=42&status=won"))
	require.NoError(t, err)
	rec, _ := h.repo.Get(42)
	assert.Equal(t, domain.StatusWon, rec.LeadStatus)
}

func TestConcurrentEventsForOneUserSerialise(t *testing.T) {
	h := newHarness(t)
	h.repo.Put(domain.ClientRecord{ID: 42, Name: "กรณี"})
	h.handle(t, postback("U1", "action=setStatus&clientId=42&status=lost"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.d.Handle(context.Background(), privateText("U1", "ไม่สนใจราคา"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.repo.Calls("UpdateStatus"))
	rec, _ := h.repo.Get(42)
	assert.Equal(t, domain.StatusLost, rec.LeadStatus)
}

func TestRegisterOutsideChatEvent(t *testing.T) {
	h := newHarness(t)
	h.gw.Profiles["U9"] = "Nok"

	rec, msg, err := h.d.Register(context.Background(), "line", "U9", "คุณเอ 0812345678 ขอใบเสนอราคา")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, int64(1), rec.OwnerID)
	require.NotNil(t, msg.Card)
	creator, _ := msg.Card.Value(compose.LabelCreatedBy)
	assert.Equal(t, "Nok", creator)
	assert.Empty(t, h.gw.Replies(), "registration outside an event sends nothing")

	_, _, err = h.d.Register(context.Background(), "line", "U9", "0812345678")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, 1, h.repo.Mutations())
}
