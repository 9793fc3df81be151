package models

import "time"

// UserProfile mirrors an identity-provider account inside the record store.
// Created alongside the first membership for a newly provisioned identity;
// the identity provider stays the source of truth for credentials.
type UserProfile struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Email       string `gorm:"not null;index" json:"email"`
	DisplayName string `json:"display_name"`

	OnboardingComplete bool `gorm:"default:false" json:"onboarding_complete"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
