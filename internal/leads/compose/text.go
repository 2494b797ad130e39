package compose

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

// Static replies.
const (
	MsgReasonRequired = "กรุณาระบุเหตุผล"
	MsgNoResults      = "ไม่พบลูกค้าที่ค้นหา"
	MsgSearchUsage    = "กรุณาระบุคำค้นหา\n\nตัวอย่าง:\n• #ลูกค้า คุณกรณี\n• #ลูกค้า 0641989925\n• #ลูกค้า สนใจสินค้า"
	MsgUnknown        = "Unknown"
	MsgUnknownCount   = "ไม่ทราบ"
	MsgUnknownName    = "ไม่ทราบชื่อ"
)

const groupUsage = "\n\nใช้งานได้ในกลุ่มและแชทส่วนตัว"

// Welcome is sent when the bot joins a group.
const Welcome = `สวัสดีครับ! ขอบคุณที่เชิญเข้ากลุ่ม

ฉันเป็นบอทจัดการลูกค้า สามารถช่วยคุณ:
• บันทึกข้อมูลลูกค้าใหม่
• ค้นหาข้อมูลลูกค้า
• ดูสถิติลูกค้า

พิมพ์ "help" เพื่อดูคำสั่งทั้งหมด`

// Help lists the supported commands.
func Help(src domain.SourceContext) chat.Message {
	text := `คำสั่งที่ใช้ได้:

บันทึกลูกค้าใหม่:
• คุณกรณี 0641989925 สนใจสินค้าค่ะ ติดต่อกลับด่วน
• คุณกรณี 0641989925
• -คุณกรณี-0641989925-สนใจสินค้าค่ะ ติดต่อกลับด่วน

ค้นหาลูกค้า:
• #ลูกค้า คุณกรณี
• #ลูกค้า 0641989925
• #ลูกค้า สนใจสินค้า

ช่วยเหลือ:
• help, ช่วยเหลือ หรือ คำสั่ง

สถิติ:
• สถิติ หรือ stats`
	if src.IsGroup() {
		text += "\n\nคำสั่งเฉพาะกลุ่ม:\n• กลุ่ม หรือ group - ดูข้อมูลกลุ่ม" + groupUsage
	}
	return chat.Text(text)
}

// Fallback answers text that matched no command.
func Fallback(src domain.SourceContext) chat.Message {
	text := `ไม่เข้าใจคำสั่ง

รูปแบบการใช้งาน:

เพิ่มลูกค้าใหม่:
• คุณกรณี 0641989925 สนใจสินค้าค่ะ
• -คุณสมชาย-0812345678-ต้องการสินค้าด่วน

ค้นหาลูกค้า:
• #ลูกค้า คุณกรณี
• #ลูกค้า 0641989925

พิมพ์ "help" เพื่อดูคำสั่งทั้งหมด`
	if src.IsGroup() {
		text += "\n\nคำสั่งเฉพาะกลุ่ม:\n• กลุ่ม หรือ group - ดูข้อมูลกลุ่ม" + groupUsage
	}
	return chat.Text(text)
}

// StatsText summarises client counts.
func StatsText(s domain.Stats, src domain.SourceContext) chat.Message {
	var b strings.Builder
	b.WriteString("สถิติลูกค้า:\n\n")
	fmt.Fprintf(&b, "ลูกค้าทั้งหมด: %d คน\n", s.Total)
	fmt.Fprintf(&b, "วันนี้: %d คน\n", s.Today)
	fmt.Fprintf(&b, "สัปดาห์นี้: %d คน\n", s.ThisWeek)
	fmt.Fprintf(&b, "เดือนนี้: %d คน\n", s.ThisMonth)
	fmt.Fprintf(&b, "%s: %d คน\n", domain.StatusWon.Label(), s.Won)
	fmt.Fprintf(&b, "%s: %d คน", domain.StatusLost.Label(), s.Lost)
	if src.IsGroup() {
		name := src.GroupName
		if name == "" {
			name = MsgUnknown
		}
		fmt.Fprintf(&b, "\nกลุ่ม: %s", name)
	}
	return chat.Text(b.String())
}

// GroupInfo describes a group. A zero member count is shown as unknown.
func GroupInfo(groupID string, g chat.GroupSummary) chat.Message {
	name := g.Name
	if name == "" {
		name = MsgUnknownName
	}
	count := MsgUnknownCount
	if g.MemberCount > 0 {
		count = strconv.Itoa(g.MemberCount)
	}
	return chat.Text(fmt.Sprintf("ข้อมูลกลุ่ม:\n\nชื่อกลุ่ม: %s\nGroup ID: %s\nจำนวนสมาชิก: %s คน", name, groupID, count))
}

// SearchResults lists matching clients, newest first as given.
func SearchResults(recs []domain.ClientRecord) chat.Message {
	if len(recs) == 0 {
		return chat.Text(MsgNoResults)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ผลการค้นหาลูกค้า (%d รายการ):\n\n", len(recs))
	for i, rec := range recs {
		details, reason := domain.SplitReason(rec.Address)
		phone := rec.Phone
		if phone == "" {
			phone = NoDetails
		}
		if details == "" {
			details = NoDetails
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec.Name)
		fmt.Fprintf(&b, "   เบอร์: %s\n", phone)
		fmt.Fprintf(&b, "   รายละเอียด: %s\n", details)
		if reason != "" {
			fmt.Fprintf(&b, "   เหตุผล: %s\n", reason)
		}
		fmt.Fprintf(&b, "   สถานะ: %s\n", rec.LeadStatus.Label())
		fmt.Fprintf(&b, "   ID: %d\n", rec.ID)
		if !rec.CreatedDate.IsZero() {
			fmt.Fprintf(&b, "   วันที่สร้าง: %s\n", rec.CreatedDate.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	return chat.Text(strings.TrimRight(b.String(), "\n"))
}

// SearchUsage explains the search command.
func SearchUsage() chat.Message { return chat.Text(MsgSearchUsage) }

// ReasonPrompt asks for the lost reason.
func ReasonPrompt() chat.Message { return chat.Text(MsgReasonRequired) }

// WelcomeText greets a group.
func WelcomeText() chat.Message { return chat.Text(Welcome) }
