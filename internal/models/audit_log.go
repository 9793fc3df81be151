package models

// AuditLog records notable actions for operator review.
type AuditLog struct {
	BaseModel

	UserID    *string `gorm:"index" json:"user_id,omitempty"`
	Action    string  `gorm:"not null;index" json:"action"`
	Resource  string  `gorm:"index" json:"resource"`
	Result    string  `gorm:"not null" json:"result"`
	IPAddress string  `json:"ip_address"`
	Metadata  string  `json:"metadata"`
}
