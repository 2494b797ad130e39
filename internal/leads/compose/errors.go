package compose

import (
	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

// Operation names the user-visible flow an error belongs to.
type Operation string

const (
	OpAssign     Operation = "assign"
	OpUpdate     Operation = "update"
	OpSetStatus  Operation = "setStatus"
	OpLostReason Operation = "lostReason"
	OpRegister   Operation = "register"
	OpSearch     Operation = "search"
	OpStats      Operation = "stats"
	OpGroup      Operation = "group"
	OpPostback   Operation = "postback"
)

const (
	msgNotFoundUpdate = "ไม่พบลูกค้าที่ต้องการอัพเดท"
	msgNotFoundStatus = "ไม่พบลูกค้าที่ต้องการอัพเดทสถานะ"
	msgGeneric        = "เกิดข้อผิดพลาด กรุณาลองใหม่อีกครั้ง"
)

var externalMessages = map[Operation]string{
	OpAssign:     "เกิดข้อผิดพลาดในการอัพเดทผู้รับผิดชอบ",
	OpUpdate:     "เกิดข้อผิดพลาดในการโหลดข้อมูลลูกค้า",
	OpSetStatus:  "เกิดข้อผิดพลาดในการอัพเดทสถานะลูกค้า",
	OpLostReason: "เกิดข้อผิดพลาดในการบันทึกเหตุผล",
	OpRegister:   "เกิดข้อผิดพลาดในการบันทึกข้อมูล",
	OpSearch:     "เกิดข้อผิดพลาดในการค้นหา",
	OpStats:      "เกิดข้อผิดพลาดในการดึงสถิติ",
	OpGroup:      "ไม่สามารถดึงข้อมูลกลุ่มได้",
}

// ErrorText maps an operation failure to its reply text. Validation and
// protocol errors carry their own message.
func ErrorText(op Operation, err error) string {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindProtocol:
		if msg := domain.MessageOf(err); msg != "" {
			return msg
		}
	case domain.KindNotFound:
		switch op {
		case OpSetStatus, OpLostReason:
			return msgNotFoundStatus
		case OpAssign, OpUpdate:
			return msgNotFoundUpdate
		}
	}
	if msg, ok := externalMessages[op]; ok {
		return msg
	}
	return msgGeneric
}

// Error is ErrorText as a message.
func Error(op Operation, err error) chat.Message {
	return chat.Text(ErrorText(op, err))
}

// OperationOf maps a postback action to its operation.
func OperationOf(a domain.Action) Operation {
	switch a.(type) {
	case domain.Assign:
		return OpAssign
	case domain.Update:
		return OpUpdate
	case domain.SetStatus:
		return OpSetStatus
	default:
		return OpPostback
	}
}
