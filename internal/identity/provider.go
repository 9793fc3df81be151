package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates no identity exists for the supplied lookup key.
	ErrNotFound = errors.New("identity: not found")
	// ErrEmailExists signals a create collided with an existing account.
	ErrEmailExists = errors.New("identity: email already registered")
	// ErrUnavailable wraps transport or backend failures of the provider.
	ErrUnavailable = errors.New("identity: provider unavailable")
)

// Identity is an authentication-provider-owned account, independent of any
// organization.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}

// CreateInput carries the fields required to provision a new identity.
type CreateInput struct {
	Email       string
	Password    string
	DisplayName string
}

// Provider abstracts the external identity system. Create has committed by the
// time it returns; Delete exists so a caller can compensate for an identity it
// just created. Implementations must never delete accounts they did not create
// on behalf of the caller — that discipline lives with the caller.
type Provider interface {
	// LookupByEmail resolves an existing identity, returning ErrNotFound when
	// no account matches.
	LookupByEmail(ctx context.Context, email string) (*Identity, error)

	// Create provisions a new identity. Returns ErrEmailExists when the email
	// is already registered.
	Create(ctx context.Context, input CreateInput) (*Identity, error)

	// Delete removes an identity by id. Used only as a compensating action.
	Delete(ctx context.Context, id string) error
}
