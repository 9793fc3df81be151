package models

import "time"

// JoinToken is a redeemable invitation into an organization. The primary key
// is the opaque token string handed to prospective members.
//
// A token stops being redeemable when it is disabled, past ExpiresAt, or when
// CurrentUses has reached MaxUses. Redemption only ever increments
// CurrentUses; disabling is the soft-delete path and tokens are never removed
// by the join flow.
type JoinToken struct {
	BaseModel

	OrgID       string     `gorm:"type:uuid;not null;index" json:"org_id"`
	Role        string     `gorm:"not null" json:"role"`
	MaxUses     int        `gorm:"not null" json:"max_uses"`
	CurrentUses int        `gorm:"not null;default:0" json:"current_uses"`
	Disabled    bool       `gorm:"not null;default:false" json:"disabled"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	Description string     `json:"description"`
	CreatedBy   string     `gorm:"type:uuid" json:"created_by"`

	Organization *Organization `gorm:"foreignKey:OrgID" json:"organization,omitempty"`
}

// Exhausted reports whether every allowed redemption has been consumed.
func (t *JoinToken) Exhausted() bool {
	return t.CurrentUses >= t.MaxUses
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *JoinToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
