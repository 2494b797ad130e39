// Package compose builds the chat replies of the lead manager. Builders are
// pure; transports decide how cards look.
package compose

import (
	"strconv"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

// Card titles.
const (
	TitleNewClient     = "บันทึกลูกค้าใหม่สำเร็จ"
	TitleStatusPrompt  = "อัพเดทสถานะลูกค้า"
	TitleStatusUpdated = "อัพเดทสถานะลูกค้าแล้ว"
	TitleAssigned      = "เปลี่ยนผู้รับผิดชอบแล้ว"
)

// Field labels.
const (
	LabelName      = "ชื่อ"
	LabelPhone     = "เบอร์โทร"
	LabelDetails   = "รายละเอียด"
	LabelReason    = "เหตุผล"
	LabelClientID  = "Client ID"
	LabelCreatedBy = "บันทึกโดย"
	LabelOwner     = "ผู้รับผิดชอบ"
	LabelGroup     = "จากกลุ่ม"
	LabelStatus    = "สถานะ"
)

// Button labels.
const (
	ButtonContact = "ติดต่อ"
	ButtonUpdate  = "อัพเดท"
)

// NoDetails is shown for an empty address.
const NoDetails = "ไม่มี"

// AssignedNote reminds the new owner what to do next.
const AssignedNote = "หมายเหตุ: กรุณาติดต่อลูกค้า และอัพเดทสถานะลูกค้า"

func field(label, value string) chat.Field {
	if value == "" {
		value = "-"
	}
	return chat.Field{Label: label, Value: value}
}

// detailFields renders the address with any embedded reason in its own field.
func detailFields(address string) []chat.Field {
	details, reason := domain.SplitReason(address)
	if details == "" {
		details = NoDetails
	}
	fields := []chat.Field{field(LabelDetails, details)}
	if reason != "" {
		fields = append(fields, field(LabelReason, reason))
	}
	return fields
}

func clientID(id int64) string { return strconv.FormatInt(id, 10) }

// NewClientCard confirms a registration. The creator is also the initial owner.
func NewClientCard(rec domain.ClientRecord, creatorName string, src domain.SourceContext) chat.Message {
	fields := []chat.Field{
		field(LabelName, rec.Name),
		field(LabelPhone, rec.Phone),
	}
	fields = append(fields, detailFields(rec.Address)...)
	fields = append(fields,
		field(LabelClientID, clientID(rec.ID)),
		field(LabelCreatedBy, creatorName),
		field(LabelOwner, creatorName),
	)
	if src.IsGroup() {
		fields = append(fields, field(LabelGroup, src.DisplayGroupName()))
	}
	fields = append(fields, field(LabelStatus, rec.LeadStatus.Label()))

	return chat.CardMessage(chat.Card{
		AltText: TitleNewClient,
		Title:   TitleNewClient,
		Fields:  fields,
		Buttons: []chat.Button{
			{Label: ButtonContact, Data: domain.EncodeAction(domain.Assign{ClientID: rec.ID}), Style: chat.ButtonPrimary},
			{Label: ButtonUpdate, Data: domain.EncodeAction(domain.Update{ClientID: rec.ID}), Style: chat.ButtonSecondary},
		},
	})
}

// StatusPromptCard offers one button per selectable status.
func StatusPromptCard(rec domain.ClientRecord, ownerName string) chat.Message {
	fields := []chat.Field{
		field(LabelName, rec.Name),
		field(LabelPhone, rec.Phone),
	}
	fields = append(fields, detailFields(rec.Address)...)
	fields = append(fields,
		field(LabelOwner, ownerName),
		field(LabelStatus, rec.LeadStatus.Label()),
	)

	targets := domain.SelectableStatuses()
	buttons := make([]chat.Button, 0, len(targets))
	for _, s := range targets {
		buttons = append(buttons, chat.Button{
			Label: s.Label(),
			Data:  domain.EncodeAction(domain.SetStatus{ClientID: rec.ID, Target: s}),
			Style: chat.ButtonSecondary,
		})
	}

	return chat.CardMessage(chat.Card{
		AltText: TitleStatusPrompt,
		Title:   TitleStatusPrompt,
		Fields:  fields,
		Buttons: buttons,
	})
}

// StatusUpdatedCard confirms a status change.
func StatusUpdatedCard(rec domain.ClientRecord, ownerName string) chat.Message {
	fields := []chat.Field{
		field(LabelName, rec.Name),
		field(LabelPhone, rec.Phone),
	}
	fields = append(fields, detailFields(rec.Address)...)
	fields = append(fields,
		field(LabelClientID, clientID(rec.ID)),
		field(LabelOwner, ownerName),
		field(LabelStatus, rec.LeadStatus.Label()),
	)
	return chat.CardMessage(chat.Card{
		AltText: TitleStatusUpdated,
		Title:   TitleStatusUpdated,
		Fields:  fields,
	})
}

// AssignedCard confirms an owner change and links back to the status prompt.
func AssignedCard(rec domain.ClientRecord, ownerName string, src domain.SourceContext) chat.Message {
	fields := []chat.Field{
		field(LabelName, rec.Name),
		field(LabelPhone, rec.Phone),
	}
	fields = append(fields, detailFields(rec.Address)...)
	fields = append(fields,
		field(LabelClientID, clientID(rec.ID)),
		field(LabelOwner, ownerName),
		field(LabelStatus, rec.LeadStatus.Label()),
	)
	if src.IsGroup() {
		fields = append(fields, field(LabelGroup, src.DisplayGroupName()))
	}
	return chat.CardMessage(chat.Card{
		AltText: TitleAssigned,
		Title:   TitleAssigned,
		Fields:  fields,
		Note:    AssignedNote,
		Buttons: []chat.Button{
			{Label: ButtonUpdate, Data: domain.EncodeAction(domain.Update{ClientID: rec.ID}), Style: chat.ButtonSecondary},
		},
	})
}
