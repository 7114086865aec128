package models

import (
	"time"

	"gorm.io/datatypes"
)

// Invite is a pending capability grant. The token itself is the redemption
// key; once Used flips to true the row is terminal and never mutated again.
type Invite struct {
	BaseModel

	Token     string                      `gorm:"uniqueIndex;not null;size:64" json:"-"`
	Email     string                      `gorm:"index" json:"email"`
	TenantIDs datatypes.JSONSlice[string] `gorm:"not null" json:"tenant_ids"`
	InvitedBy string                      `gorm:"type:uuid" json:"invited_by"`
	ExpiresAt time.Time                   `gorm:"index" json:"expires_at"`
	Used      bool                        `gorm:"not null;default:false" json:"used"`
	UsedAt    *time.Time                  `json:"used_at,omitempty"`
}

// ExpiredAt reports whether the invite is past its expiry at the given instant.
func (i *Invite) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
