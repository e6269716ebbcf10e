package model

import "time"

type FamilyRole string

const (
	FamilyRoleOwner  FamilyRole = "owner"
	FamilyRoleMember FamilyRole = "member"
)

type Family struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	OwnerID         string          `json:"owner_id"`
	InviteCode      string          `json:"invite_code"`
	InviteExpiresAt time.Time       `json:"invite_expires_at"`
	Members         []*FamilyMember `json:"members,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type FamilyMember struct {
	UserID   string     `json:"user_id"`
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Role     FamilyRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}
