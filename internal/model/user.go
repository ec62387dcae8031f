package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants. group_admin has authority over every school in its
// group, school_admin only over its own school, staff can raise requests.
const (
	RoleGroupAdmin  = "group_admin"
	RoleSchoolAdmin = "school_admin"
	RoleStaff       = "staff"
)

// ValidRole reports whether role is one of the closed role values.
func ValidRole(role string) bool {
	return role == RoleGroupAdmin || role == RoleSchoolAdmin || role == RoleStaff
}

// AdminRole reports whether role carries administrative authority
// (school- or group-level).
func AdminRole(role string) bool {
	return role == RoleGroupAdmin || role == RoleSchoolAdmin
}

// User is a staff account affiliated with a school inside a school group.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email         string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName      string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Password      string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Role          string         `gorm:"type:varchar(20);not null" json:"role"`
	SchoolID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"school_id"`
	SchoolGroupID uuid.UUID      `gorm:"type:uuid;not null;index" json:"school_group_id"`
	School        *School        `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Actor is the identity attached to every lifecycle operation: who is acting,
// in what role, and which school/group they belong to.
type Actor struct {
	ID            uuid.UUID `json:"id"`
	Role          string    `json:"role"`
	SchoolID      uuid.UUID `json:"school_id"`
	SchoolGroupID uuid.UUID `json:"school_group_id"`
}
