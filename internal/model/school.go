package model

import (
	"time"

	"github.com/google/uuid"
)

// SchoolGroup is the top-level organization a set of schools belongs to.
// Group-level roles see every request raised anywhere in the group.
type SchoolGroup struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// School is a single school inside a group. School-level roles only see
// their own school's requests.
type School struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SchoolGroupID uuid.UUID    `gorm:"type:uuid;not null;index" json:"school_group_id"`
	SchoolGroup   *SchoolGroup `gorm:"foreignKey:SchoolGroupID" json:"school_group,omitempty"`
	Name          string       `gorm:"type:varchar(255);not null" json:"name"`
	Address       string       `gorm:"type:text" json:"address"`
	Phone         string       `gorm:"type:varchar(20)" json:"phone"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
