package domain

import (
	"strings"
	"time"
)

// ClientInput is the structured result of parsing a free-text message.
type ClientInput struct {
	Name    string
	Phone   string
	Address string
}

// ClientRecord is a persisted client as seen by one event.
type ClientRecord struct {
	ID          int64      `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Phone       string     `db:"phone" json:"phone"`
	Address     string     `db:"address" json:"address"`
	ClientType  string     `db:"client_type" json:"type"`
	LeadStatus  LeadStatus `db:"lead_status_id" json:"lead_status_id"`
	OwnerID     int64      `db:"owner_id" json:"owner_id"`
	CreatedBy   int64      `db:"created_by" json:"created_by"`
	CreatedDate time.Time  `db:"created_date" json:"created_date"`
	IsLead      bool       `db:"is_lead" json:"is_lead"`
	Deleted     bool       `db:"deleted" json:"-"`
}

// NewClient carries the columns written by Insert.
type NewClient struct {
	Input     ClientInput
	OwnerID   int64
	CreatedBy int64
}

// ClientUpdate replaces the editable columns of a record.
type ClientUpdate struct {
	Name    string
	Phone   string
	Address string
}

// StaffUser is an internal user that can own leads.
type StaffUser struct {
	ID             int64  `db:"id"`
	FirstName      string `db:"first_name"`
	LastName       string `db:"last_name"`
	ExternalUserID string `db:"line_user_id"`
}

// FullName joins first and last name.
func (u StaffUser) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Stats aggregates client counts over non-deleted records.
type Stats struct {
	Total         int `db:"total" json:"total"`
	Today         int `db:"today" json:"today"`
	ThisWeek      int `db:"this_week" json:"this_week"`
	ThisMonth     int `db:"this_month" json:"this_month"`
	Leads         int `db:"leads" json:"leads"`
	Persons       int `db:"persons" json:"persons"`
	Organizations int `db:"organizations" json:"organizations"`
	Won           int `db:"won" json:"won"`
	Lost          int `db:"lost" json:"lost"`
}
