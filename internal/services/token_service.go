package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rosterhq/roster/internal/models"
	"github.com/rosterhq/roster/pkg/crypto"
	apperrors "github.com/rosterhq/roster/pkg/errors"
)

const (
	defaultTokenMaxUses = 1
	defaultTokenBytes   = 24
)

// TokenOption customises TokenService behaviour.
type TokenOption func(*TokenService)

// WithTokenClock injects a custom clock primarily for testing.
func WithTokenClock(clock func() time.Time) TokenOption {
	return func(s *TokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithTokenSize adjusts the random token length in bytes.
func WithTokenSize(size int) TokenOption {
	return func(s *TokenService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// CreateTokenInput describes the fields accepted when issuing a join token.
type CreateTokenInput struct {
	OrgID       string
	Role        string
	MaxUses     int
	ExpiresAt   *time.Time
	Description string
	CreatedBy   string
}

// TokenFilters narrows token listings by derived status.
type TokenFilters struct {
	Status string // active|disabled|expired|exhausted
}

// TokenService manages the administrative lifecycle of join tokens: issuance,
// listing, and disabling. Redemption belongs to JoinService.
type TokenService struct {
	db           *gorm.DB
	auditService *AuditService
	tokenLength  int
	now          func() time.Time
}

// NewTokenService constructs a TokenService with the provided dependencies.
func NewTokenService(db *gorm.DB, auditService *AuditService, opts ...TokenOption) (*TokenService, error) {
	if db == nil {
		return nil, errors.New("token service: db is required")
	}

	service := &TokenService{
		db:           db,
		auditService: auditService,
		tokenLength:  defaultTokenBytes,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Create issues a new join token for an organization.
func (s *TokenService) Create(ctx context.Context, input CreateTokenInput) (*models.JoinToken, error) {
	ctx = ensureContext(ctx)

	orgID := strings.TrimSpace(input.OrgID)
	role := strings.TrimSpace(input.Role)
	if orgID == "" {
		return nil, apperrors.NewBadRequest("organization id is required")
	}
	if role == "" {
		return nil, apperrors.NewBadRequest("role is required")
	}

	maxUses := input.MaxUses
	if maxUses == 0 {
		maxUses = defaultTokenMaxUses
	}
	if maxUses < 0 {
		return nil, apperrors.NewBadRequest("max uses must be a positive integer")
	}

	if input.ExpiresAt != nil && input.ExpiresAt.Before(s.now()) {
		return nil, apperrors.NewBadRequest("expiry must be in the future")
	}

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewBadRequest("organization does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("token service: load organization: %w", err)
	}

	id, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, fmt.Errorf("token service: generate token: %w", err)
	}

	token := &models.JoinToken{
		BaseModel:   models.BaseModel{ID: id},
		OrgID:       orgID,
		Role:        role,
		MaxUses:     maxUses,
		ExpiresAt:   input.ExpiresAt,
		Description: strings.TrimSpace(input.Description),
		CreatedBy:   strings.TrimSpace(input.CreatedBy),
	}

	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, fmt.Errorf("token service: create token: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "join_token.create",
		Resource: token.ID,
		Result:   "success",
		Metadata: map[string]any{
			"org_id":   orgID,
			"role":     role,
			"max_uses": maxUses,
		},
	})

	return token, nil
}

// Get loads a token by identifier.
func (s *TokenService) Get(ctx context.Context, id string) (*models.JoinToken, error) {
	ctx = ensureContext(ctx)

	var token models.JoinToken
	err := s.db.WithContext(ctx).First(&token, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("token service: get token: %w", err)
	}
	return &token, nil
}

// List returns tokens for an organization, optionally filtered by status.
func (s *TokenService) List(ctx context.Context, orgID string, filters TokenFilters) ([]models.JoinToken, error) {
	ctx = ensureContext(ctx)

	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, apperrors.NewBadRequest("organization id is required")
	}

	query := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC")

	now := s.now()
	switch strings.ToLower(strings.TrimSpace(filters.Status)) {
	case "", "all":
	case "active":
		query = query.Where("disabled = ?", false).
			Where("current_uses < max_uses").
			Where("expires_at IS NULL OR expires_at > ?", now)
	case "disabled":
		query = query.Where("disabled = ?", true)
	case "expired":
		query = query.Where("expires_at IS NOT NULL AND expires_at <= ?", now)
	case "exhausted":
		query = query.Where("current_uses >= max_uses")
	default:
		return nil, apperrors.NewBadRequest("unknown status filter")
	}

	var tokens []models.JoinToken
	if err := query.Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("token service: list tokens: %w", err)
	}
	return tokens, nil
}

// Disable revokes a token. Disabling is terminal: the join flow never clears
// the flag and redemption rejects disabled tokens unconditionally.
func (s *TokenService) Disable(ctx context.Context, id string) (*models.JoinToken, error) {
	ctx = ensureContext(ctx)

	token, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if token.Disabled {
		return token, nil
	}

	if err := s.db.WithContext(ctx).
		Model(token).
		Update("disabled", true).Error; err != nil {
		return nil, fmt.Errorf("token service: disable token: %w", err)
	}
	token.Disabled = true

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "join_token.disable",
		Resource: token.ID,
		Result:   "success",
		Metadata: map[string]any{"org_id": token.OrgID},
	})

	return token, nil
}
