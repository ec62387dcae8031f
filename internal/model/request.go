package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestStatus enum constants covering the full request lifecycle.
const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusCompleted = "completed"
)

// RequestPriority enum constants
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidStatus reports whether s is one of the closed status values.
func ValidStatus(s string) bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCompleted:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the closed priority values.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// CanTransition reports whether a request may move from one status to another.
// pending -> approved|rejected, approved -> completed; rejected and completed
// are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case RequestStatusPending:
		return to == RequestStatusApproved || to == RequestStatusRejected
	case RequestStatusApproved:
		return to == RequestStatusCompleted
	}
	return false
}

// TerminalStatus reports whether no transition exists out of s.
func TerminalStatus(s string) bool {
	return s == RequestStatusRejected || s == RequestStatusCompleted
}

// ResourceRequest is a procurement ask raised by school staff: supplies or
// equipment requested for a school, moving through an approval lifecycle.
type ResourceRequest struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SchoolID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"school_id"`
	SchoolGroupID uuid.UUID       `gorm:"type:uuid;not null;index" json:"school_group_id"`
	RequesterID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester     *User           `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	School        *School         `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
	Title         string          `gorm:"type:varchar(255);not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Priority      string          `gorm:"type:varchar(10);not null;default:'normal'" json:"priority"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_amount"`
	Items         []RequestItem   `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"items"`
	ApprovedBy    *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	Approver      *User           `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Display-only fields filled from preloaded relations at read time;
	// never written back to the database.
	RequesterName string `gorm:"-" json:"requester_name,omitempty"`
	RequesterRole string `gorm:"-" json:"requester_role,omitempty"`
	SchoolName    string `gorm:"-" json:"school_name,omitempty"`
}

// RequestItem is one line entry within a request. Items are owned exclusively
// by their parent and are replaced wholesale on edit.
type RequestItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"request_id"`
	ResourceName  string          `gorm:"type:varchar(255);not null" json:"resource_name"`
	Category      string          `gorm:"type:varchar(100)" json:"category"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	Unit          string          `gorm:"type:varchar(50)" json:"unit"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"unit_price"`
	TotalPrice    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_price"`
	Justification string          `gorm:"type:text" json:"justification"`
}

// Normalize fills the display-only fields from preloaded relations and
// coalesces optional data, so every consumer stores the same shape.
func (r *ResourceRequest) Normalize() {
	if r.Requester != nil {
		r.RequesterName = r.Requester.FullName
		r.RequesterRole = r.Requester.Role
	}
	if r.School != nil {
		r.SchoolName = r.School.Name
	}
	if r.Items == nil {
		r.Items = []RequestItem{}
	}
	if !ValidPriority(r.Priority) {
		r.Priority = PriorityNormal
	}
	if r.TotalAmount.IsNegative() {
		r.TotalAmount = decimal.Zero
	}
}
