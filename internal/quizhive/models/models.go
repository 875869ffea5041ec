// Package models contains the domain models for the application,
// configured to work using GORM as the ORM.
package models

import (
	"time"
)

// Role represents a user's role inside a company.
type Role string

const (
	// RoleOwner is the single owning member of a company.
	RoleOwner Role = "Owner"
	// RoleAdmin is a promoted member with authoring rights.
	RoleAdmin Role = "Admin"
	// RoleMember is an accepted, active member.
	RoleMember Role = "Member"
	// RoleCandidate means the relationship is pending, not yet active.
	RoleCandidate Role = "Candidate"
	// RoleEmployee is an unused placeholder kept for schema compatibility.
	RoleEmployee Role = "Employee"
	// RoleGuest is never persisted; it is reported for users with no
	// membership row at all.
	RoleGuest Role = "Guest"
)

// Active reports whether the role denotes an accepted company member.
func (r Role) Active() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// TrackStatus is the state of one membership workflow track.
type TrackStatus string

const (
	StatusPending TrackStatus = "pending"
	StatusAccept  TrackStatus = "accept"
	StatusReject  TrackStatus = "reject"
)

// User is a registered account. PasswordHash is empty for users provisioned
// from a third-party identity token.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	Username     string `gorm:"size:100"`
	FirstName    string `gorm:"size:100"`
	LastName     string `gorm:"size:100"`
	PhoneNumber  string `gorm:"size:30"`
	Age          int
	City         string `gorm:"size:100"`
	PasswordHash string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Company is owned by the user holding its single Owner employee row.
type Company struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255;uniqueIndex;not null"`
	Email     string `gorm:"size:255"`
	Phone     string `gorm:"size:30"`
	Status    bool   `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Employee is the membership-ledger row linking a User to a Company. The two
// status tracks are independent: company-initiated invitations use
// InvitationStatus, user-initiated requests use RequestStatus. The composite
// unique index is what closes the duplicate invite/request race: concurrent
// inserts for the same pair yield exactly one success.
type Employee struct {
	ID               uint `gorm:"primaryKey"`
	UserID           uint `gorm:"not null;uniqueIndex:idx_employee_pair"`
	CompanyID        uint `gorm:"not null;uniqueIndex:idx_employee_pair"`
	Role             Role `gorm:"size:20;not null"`
	InvitationStatus *TrackStatus `gorm:"size:20"`
	RequestStatus    *TrackStatus `gorm:"size:20"`
	// LastTransitionAt is overwritten on every status transition; the
	// original creation time is not tracked.
	LastTransitionAt time.Time

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Company Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
}

// Notification is an unread-by-default message created for every eligible
// company member when a quiz is published.
type Notification struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	QuizID    uint   `gorm:"not null"`
	Message   string `gorm:"size:500"`
	IsRead    bool   `gorm:"default:false"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
