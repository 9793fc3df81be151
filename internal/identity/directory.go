package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rosterhq/roster/pkg/crypto"
)

// Account is the persistent record backing DirectoryProvider. It lives in the
// provider's own database, deliberately separate from the record store so the
// two systems fail independently.
type Account struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DirectoryConfig defines tunable behaviour for the directory provider.
type DirectoryConfig struct {
	Clock func() time.Time
}

// DirectoryProvider is a self-hosted identity backend storing bcrypt-hashed
// credentials in its own database handle.
type DirectoryProvider struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewDirectoryProvider builds a provider and migrates its account table.
func NewDirectoryProvider(db *gorm.DB, cfg DirectoryConfig) (*DirectoryProvider, error) {
	if db == nil {
		return nil, errors.New("directory provider: db is required")
	}

	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, fmt.Errorf("directory provider: migrate accounts: %w", err)
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &DirectoryProvider{db: db, clock: clock}, nil
}

// LookupByEmail resolves an account by its normalised email address.
func (p *DirectoryProvider) LookupByEmail(ctx context.Context, email string) (*Identity, error) {
	email = normaliseEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}

	var account Account
	err := p.db.WithContext(ctx).First(&account, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return account.identity(), nil
}

// Create provisions a new account with a hashed credential.
func (p *DirectoryProvider) Create(ctx context.Context, input CreateInput) (*Identity, error) {
	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, errors.New("directory provider: email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, errors.New("directory provider: password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("directory provider: hash password: %w", err)
	}

	account := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashed,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		CreatedAt:    p.clock(),
		UpdatedAt:    p.clock(),
	}

	if err := p.db.WithContext(ctx).Create(&account).Error; err != nil {
		if isDuplicateEmail(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return account.identity(), nil
}

// Delete removes an account by id. Missing accounts are not an error so that
// a retried compensation stays idempotent.
func (p *DirectoryProvider) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("directory provider: id is required")
	}

	result := p.db.WithContext(ctx).Delete(&Account{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}
	return nil
}

// Authenticate verifies an email/password pair, used by the sign-in surface.
func (p *DirectoryProvider) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	var account Account
	err := p.db.WithContext(ctx).First(&account, "email = ?", normaliseEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if !crypto.VerifyPassword(account.PasswordHash, password) {
		return nil, ErrNotFound
	}

	return account.identity(), nil
}

func (a *Account) identity() *Identity {
	return &Identity{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isDuplicateEmail(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}
