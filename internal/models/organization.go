package models

import "gorm.io/datatypes"

// Organization is a tenant. Memberships link identities to it; MemberCount is
// a cached aggregate maintained asynchronously, never written by the join flow.
type Organization struct {
	BaseModel

	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Settings    datatypes.JSON `json:"settings"`
	MemberCount int            `gorm:"default:0" json:"member_count"`

	Memberships []Membership `gorm:"foreignKey:OrgID" json:"memberships,omitempty"`
	JoinTokens  []JoinToken  `gorm:"foreignKey:OrgID" json:"join_tokens,omitempty"`
}
