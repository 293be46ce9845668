package models

import (
	"time"
)

// InviteStatus values.
type InviteStatus string

const (
	InviteActive  InviteStatus = "active"
	InviteUsed    InviteStatus = "used"
	InviteExpired InviteStatus = "expired"
)

// Invite is a single-use token gating registration.
type Invite struct {
	ID        string       `json:"id" validate:"required"`
	Token     string       `json:"token" validate:"required"`
	Status    InviteStatus `json:"status" validate:"oneof=active used expired"`
	Created   time.Time    `json:"created"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
	CreatedBy string       `json:"createdBy,omitempty"`
	UsedBy    string       `json:"usedBy,omitempty"`
}

// EffectiveStatus reports expired for an active invite past its expiry.
func (i Invite) EffectiveStatus(now time.Time) InviteStatus {
	if i.Status == InviteActive && i.ExpiresAt != nil && now.After(*i.ExpiresAt) {
		return InviteExpired
	}
	return i.Status
}
