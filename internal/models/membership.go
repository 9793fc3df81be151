package models

// Membership is the durable link between an identity and an organization.
//
// The composite unique index on (user_id, org_id) backs the idempotency
// guarantee: the join flow queries before creating, and a concurrent loser of
// that race is caught by the constraint instead of producing a duplicate row.
type Membership struct {
	BaseModel

	UserID    string `gorm:"not null;uniqueIndex:idx_memberships_user_org" json:"user_id"`
	OrgID     string `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_org" json:"org_id"`
	Role      string `gorm:"not null" json:"role"`
	JoinedVia string `gorm:"not null;default:token" json:"joined_via"`
	TokenID   string `gorm:"index" json:"token_id"`

	Organization *Organization `gorm:"foreignKey:OrgID" json:"organization,omitempty"`
}
