package models

import (
	"time"
)

type Role string

const (
	RoleStudent    Role = "Student"
	RoleTeacher    Role = "Teacher"
	RoleStaff      Role = "Staff"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "SuperAdmin"
)

type Presence string

const (
	PresenceOnline  Presence = "Online"
	PresenceOffline Presence = "Offline"
)

// User is a tagged union over Role. StudentNumber is only meaningful for students,
// Department for teachers, staff and admins.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;size:255;not null" json:"username"`
	FullName string `gorm:"size:255;not null" json:"fullName"`
	Role     Role   `gorm:"size:20;not null" json:"role"`

	StudentNumber string `gorm:"size:40" json:"studentNumber,omitempty"`
	Department    string `gorm:"size:120" json:"department,omitempty"`

	Presence   Presence   `gorm:"size:10;not null;default:'Offline'" json:"presence"`
	LastSeenAt *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "lsb_users"
}
