package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rosterhq/roster/internal/identity"
	"github.com/rosterhq/roster/internal/models"
	apperrors "github.com/rosterhq/roster/pkg/errors"
	"github.com/rosterhq/roster/pkg/logger"
	"github.com/rosterhq/roster/pkg/metrics"
)

const (
	defaultJoinTimeout   = 5 * time.Second
	compensationDeadline = 3 * time.Second
	joinedViaToken       = "token"
)

// JoinOption customises JoinService behaviour.
type JoinOption func(*JoinService)

// WithJoinClock injects a custom clock primarily for testing.
func WithJoinClock(clock func() time.Time) JoinOption {
	return func(s *JoinService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithJoinTimeout bounds a single redemption end to end, covering identity
// creation and the membership transaction.
func WithJoinTimeout(d time.Duration) JoinOption {
	return func(s *JoinService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// RedeemInput carries a single redemption request.
type RedeemInput struct {
	TokenID     string
	Email       string
	Password    string
	DisplayName string
}

// RedeemResult reports a successful redemption. Reused is set when the
// idempotency check short-circuited to an existing membership.
type RedeemResult struct {
	UserID       string `json:"user_id"`
	OrgID        string `json:"org_id"`
	MembershipID string `json:"membership_id"`
	Role         string `json:"role"`
	Reused       bool   `json:"reused"`
}

// JoinService coordinates join-token redemption across the identity provider
// and the record store. The provider's side effects are not transactional, so
// the service runs a saga: pre-check, provision identity, then a single
// atomic transaction that re-validates the token, consumes one use and writes
// the membership. A transaction failure after a fresh identity creation
// triggers exactly one compensating delete.
type JoinService struct {
	db           *gorm.DB
	provider     identity.Provider
	auditService *AuditService
	timeout      time.Duration
	now          func() time.Time
	log          *zap.Logger
}

// NewJoinService constructs a JoinService with the provided dependencies.
func NewJoinService(db *gorm.DB, provider identity.Provider, auditService *AuditService, opts ...JoinOption) (*JoinService, error) {
	if db == nil {
		return nil, errors.New("join service: db is required")
	}
	if provider == nil {
		return nil, errors.New("join service: identity provider is required")
	}

	service := &JoinService{
		db:           db,
		provider:     provider,
		auditService: auditService,
		timeout:      defaultJoinTimeout,
		now:          time.Now,
		log:          logger.WithModule("join"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Redeem exchanges a join token plus credentials for a membership.
//
// Flow: load token → idempotency check → pre-validate (cheap fail-fast, saves
// an identity create) → lookup-or-create identity → membership transaction.
// The pre-validate result is advisory only; the authoritative decision is the
// identical check re-run inside the transaction against a fresh read.
func (s *JoinService) Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error) {
	ctx, cancel := context.WithTimeout(ensureContext(ctx), s.timeout)
	defer cancel()

	tokenID := strings.TrimSpace(input.TokenID)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if tokenID == "" {
		return nil, s.reject(apperrors.NewBadRequest("token is required"))
	}
	if email == "" {
		return nil, s.reject(apperrors.NewBadRequest("email is required"))
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, s.reject(apperrors.NewBadRequest("password is required"))
	}

	token, err := s.loadToken(ctx, tokenID)
	if err != nil {
		return nil, s.reject(err)
	}

	// Idempotency: an email that already holds a membership in this org gets
	// its existing membership back without consuming a token use. Checked
	// before validation so a retried redemption of a now-exhausted token
	// still resolves to the original success.
	existing, resolved, err := s.resolveExisting(ctx, email, token.OrgID)
	if err != nil {
		return nil, s.reject(err)
	}
	if existing != nil {
		metrics.JoinAttempts.WithLabelValues("success").Inc()
		return existing, nil
	}

	if err := validateJoinToken(token, s.now()); err != nil {
		return nil, s.reject(err)
	}

	ident, created, err := s.provisionIdentity(ctx, resolved, email, input.Password, input.DisplayName)
	if err != nil {
		return nil, s.reject(err)
	}

	membershipID, err := s.writeMembership(ctx, token.ID, ident, created)
	if err != nil {
		reconciled, recoverErr := s.recoverFailedTransaction(token, ident, created, err)
		if recoverErr != nil {
			return nil, recoverErr
		}
		metrics.JoinAttempts.WithLabelValues("success").Inc()
		return reconciled, nil
	}

	metrics.JoinAttempts.WithLabelValues("success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &ident.ID,
		Action:   "membership.create",
		Resource: membershipID,
		Result:   "success",
		Metadata: map[string]any{
			"org_id": token.OrgID,
			"role":   token.Role,
			"via":    joinedViaToken,
			"token":  token.ID,
		},
	})

	return &RedeemResult{
		UserID:       ident.ID,
		OrgID:        token.OrgID,
		MembershipID: membershipID,
		Role:         token.Role,
	}, nil
}

func (s *JoinService) loadToken(ctx context.Context, tokenID string) (*models.JoinToken, error) {
	var token models.JoinToken
	err := s.db.WithContext(ctx).First(&token, "id = ?", tokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("join service: load token: %w", err)
	}
	return &token, nil
}

// resolveExisting looks up the email with the identity provider and, when the
// identity exists, checks for a membership in the target organization. The
// resolved identity is returned either way so the caller can reuse it instead
// of re-creating.
func (s *JoinService) resolveExisting(ctx context.Context, email, orgID string) (*RedeemResult, *identity.Identity, error) {
	ident, err := s.provider.LookupByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, ErrProviderUnavailable.WithInternal(err)
	}

	membership, err := s.findMembership(ctx, ident.ID, orgID)
	if err != nil {
		return nil, nil, err
	}
	if membership == nil {
		return nil, ident, nil
	}

	return &RedeemResult{
		UserID:       ident.ID,
		OrgID:        membership.OrgID,
		MembershipID: membership.ID,
		Role:         membership.Role,
		Reused:       true,
	}, ident, nil
}

func (s *JoinService) findMembership(ctx context.Context, userID, orgID string) (*models.Membership, error) {
	var membership models.Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND org_id = ?", userID, orgID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("join service: find membership: %w", err)
	}
	return &membership, nil
}

// provisionIdentity reuses the resolved identity when present, otherwise
// creates one. A create that loses an email race is settled with one follow-up
// lookup. The boolean reports whether this call created the identity — only a
// created identity is ever compensated.
func (s *JoinService) provisionIdentity(ctx context.Context, resolved *identity.Identity, email, password, displayName string) (*identity.Identity, bool, error) {
	if resolved != nil {
		return resolved, false, nil
	}

	ident, err := s.provider.Create(ctx, identity.CreateInput{
		Email:       email,
		Password:    password,
		DisplayName: strings.TrimSpace(displayName),
	})
	if err == nil {
		return ident, true, nil
	}

	if errors.Is(err, identity.ErrEmailExists) {
		ident, lookupErr := s.provider.LookupByEmail(ctx, email)
		if lookupErr != nil {
			return nil, false, ErrEmailInUse.WithInternal(lookupErr)
		}
		return ident, false, nil
	}

	return nil, false, ErrProviderUnavailable.WithInternal(err)
}

// writeMembership is the transactional core. Inside a single transaction it
// re-reads the token, re-runs the exact validation rules, consumes one use
// via a guarded increment and creates the membership row. Either all of that
// is visible to concurrent transactions or none of it is.
func (s *JoinService) writeMembership(ctx context.Context, tokenID string, ident *identity.Identity, createdIdentity bool) (string, error) {
	var membershipID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fresh models.JoinToken
		err := tx.First(&fresh, "id = ?", tokenID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("join service: reload token: %w", err)
		}

		if err := validateJoinToken(&fresh, s.now()); err != nil {
			return err
		}

		now := s.now()

		// Guarded increment: the predicate repeats the exhaustion rule so two
		// racing transactions can never push current_uses past max_uses.
		result := tx.Model(&models.JoinToken{}).
			Where("id = ? AND current_uses < max_uses", tokenID).
			Updates(map[string]any{
				"current_uses": gorm.Expr("current_uses + 1"),
				"last_used_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("join service: consume token use: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrTokenExhausted
		}

		membership := models.Membership{
			UserID:    ident.ID,
			OrgID:     fresh.OrgID,
			Role:      fresh.Role,
			JoinedVia: joinedViaToken,
			TokenID:   tokenID,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}
		membershipID = membership.ID

		if createdIdentity {
			profile := models.UserProfile{
				ID:          ident.ID,
				Email:       ident.Email,
				DisplayName: ident.DisplayName,
			}
			if err := tx.Create(&profile).Error; err != nil {
				return fmt.Errorf("join service: create profile: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return membershipID, nil
}

// recoverFailedTransaction resolves a failed membership transaction. Before
// compensating it re-reads membership state: an ambiguous outcome (timeout,
// duplicate-key from a concurrent winner of the uniqueness constraint) may
// mean a membership exists, in which case deleting the identity would orphan
// a live member. A found membership is returned as an idempotent success.
func (s *JoinService) recoverFailedTransaction(token *models.JoinToken, ident *identity.Identity, createdIdentity bool, txErr error) (*RedeemResult, error) {
	// The request context may already be past its deadline; reconciliation
	// and compensation run on their own clock.
	ctx, cancel := context.WithTimeout(context.Background(), compensationDeadline)
	defer cancel()

	membership, readErr := s.findMembership(ctx, ident.ID, token.OrgID)
	if readErr != nil {
		// Cannot tell whether the write landed. Deleting the identity now
		// could orphan a live member, so surface instead of compensating.
		s.log.Error("reconciliation read failed, compensation skipped",
			zap.String("identity_id", ident.ID),
			zap.String("org_id", token.OrgID),
			zap.NamedError("tx_error", txErr),
			zap.Error(readErr))
		if createdIdentity {
			metrics.Compensations.WithLabelValues("failure").Inc()
			recordAudit(s.auditService, ctx, AuditEntry{
				UserID:   &ident.ID,
				Action:   "join.compensate",
				Resource: token.ID,
				Result:   "failure",
				Metadata: map[string]any{"identity_id": ident.ID},
			})
			return nil, ErrCompensationFailed.WithInternal(multierr.Append(txErr, readErr))
		}
		return nil, s.reject(txErr)
	}

	if membership != nil {
		s.log.Warn("membership present after failed transaction, skipping compensation",
			zap.String("user_id", ident.ID),
			zap.String("org_id", token.OrgID),
			zap.NamedError("tx_error", txErr))
		if isUniqueConstraintError(txErr) {
			// Lost the create race; the rolled-back transaction consumed no
			// token use, so the winner's membership answers this request.
			return &RedeemResult{
				UserID:       ident.ID,
				OrgID:        membership.OrgID,
				MembershipID: membership.ID,
				Role:         membership.Role,
				Reused:       true,
			}, nil
		}
		// Ambiguous commit: the write landed even though the transaction
		// reported failure. Return the membership rather than compensating.
		return &RedeemResult{
			UserID:       ident.ID,
			OrgID:        membership.OrgID,
			MembershipID: membership.ID,
			Role:         membership.Role,
		}, nil
	}

	if !createdIdentity {
		return nil, s.reject(txErr)
	}

	if err := s.provider.Delete(ctx, ident.ID); err != nil {
		metrics.Compensations.WithLabelValues("failure").Inc()
		s.log.Error("compensation failed, identity orphaned",
			zap.String("identity_id", ident.ID),
			zap.String("token_id", token.ID),
			zap.Error(err))
		recordAudit(s.auditService, ctx, AuditEntry{
			UserID:   &ident.ID,
			Action:   "join.compensate",
			Resource: token.ID,
			Result:   "failure",
			Metadata: map[string]any{"identity_id": ident.ID},
		})
		return nil, ErrCompensationFailed.WithInternal(multierr.Append(txErr, err))
	}

	metrics.Compensations.WithLabelValues("success").Inc()
	s.log.Warn("membership transaction failed, identity rolled back",
		zap.String("identity_id", ident.ID),
		zap.String("token_id", token.ID),
		zap.Error(txErr))
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &ident.ID,
		Action:   "join.compensate",
		Resource: token.ID,
		Result:   "success",
	})

	return nil, s.reject(txErr)
}

// reject normalises an error into a typed rejection and records metrics.
func (s *JoinService) reject(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		metrics.JoinAttempts.WithLabelValues("rejected").Inc()
		metrics.JoinRejections.WithLabelValues(appErr.Code).Inc()
		return appErr
	}

	metrics.JoinAttempts.WithLabelValues("error").Inc()
	return apperrors.ErrInternalServer.WithInternal(err)
}
