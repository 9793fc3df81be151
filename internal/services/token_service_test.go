package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rosterhq/roster/internal/database/testutil"
	"github.com/rosterhq/roster/internal/models"
)

func TestTokenServiceCreateDefaults(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	org := seedOrg(t, db)

	svc, err := NewTokenService(db, nil)
	require.NoError(t, err)

	token, err := svc.Create(context.Background(), CreateTokenInput{
		OrgID: org.ID,
		Role:  "member",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token.ID)
	require.Equal(t, 1, token.MaxUses)
	require.Equal(t, 0, token.CurrentUses)
	require.False(t, token.Disabled)
	require.Nil(t, token.ExpiresAt)
}

func TestTokenServiceCreateValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	org := seedOrg(t, db)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewTokenService(db, nil, WithTokenClock(func() time.Time { return current }))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateTokenInput{Role: "member"})
	requireRejection(t, err, "BAD_REQUEST")

	_, err = svc.Create(context.Background(), CreateTokenInput{OrgID: org.ID})
	requireRejection(t, err, "BAD_REQUEST")

	_, err = svc.Create(context.Background(), CreateTokenInput{OrgID: org.ID, Role: "member", MaxUses: -1})
	requireRejection(t, err, "BAD_REQUEST")

	past := current.Add(-time.Hour)
	_, err = svc.Create(context.Background(), CreateTokenInput{OrgID: org.ID, Role: "member", ExpiresAt: &past})
	requireRejection(t, err, "BAD_REQUEST")

	_, err = svc.Create(context.Background(), CreateTokenInput{OrgID: "missing-org", Role: "member"})
	requireRejection(t, err, "BAD_REQUEST")
}

func TestTokenServiceGet(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	org := seedOrg(t, db)

	svc, err := NewTokenService(db, nil)
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), CreateTokenInput{OrgID: org.ID, Role: "editor", MaxUses: 4})
	require.NoError(t, err)

	loaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, loaded.ID)
	require.Equal(t, "editor", loaded.Role)
	require.Equal(t, 4, loaded.MaxUses)

	_, err = svc.Get(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenServiceListStatusFilters(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	org := seedOrg(t, db)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewTokenService(db, nil, WithTokenClock(func() time.Time { return current }))
	require.NoError(t, err)

	past := current.Add(-time.Hour)
	active := seedToken(t, db, &models.JoinToken{OrgID: org.ID, Role: "member", MaxUses: 2})
	disabled := seedToken(t, db, &models.JoinToken{OrgID: org.ID, Role: "member", MaxUses: 2, Disabled: true})
	expired := seedToken(t, db, &models.JoinToken{OrgID: org.ID, Role: "member", MaxUses: 2, ExpiresAt: &past})
	exhausted := seedToken(t, db, &models.JoinToken{OrgID: org.ID, Role: "member", MaxUses: 2, CurrentUses: 2})

	all, err := svc.List(context.Background(), org.ID, TokenFilters{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	ids := func(tokens []models.JoinToken) []string {
		out := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			out = append(out, tok.ID)
		}
		return out
	}

	activeList, err := svc.List(context.Background(), org.ID, TokenFilters{Status: "active"})
	require.NoError(t, err)
	require.Equal(t, []string{active.ID}, ids(activeList))

	disabledList, err := svc.List(context.Background(), org.ID, TokenFilters{Status: "disabled"})
	require.NoError(t, err)
	require.Equal(t, []string{disabled.ID}, ids(disabledList))

	expiredList, err := svc.List(context.Background(), org.ID, TokenFilters{Status: "expired"})
	require.NoError(t, err)
	require.Equal(t, []string{expired.ID}, ids(expiredList))

	exhaustedList, err := svc.List(context.Background(), org.ID, TokenFilters{Status: "exhausted"})
	require.NoError(t, err)
	require.Equal(t, []string{exhausted.ID}, ids(exhaustedList))

	_, err = svc.List(context.Background(), org.ID, TokenFilters{Status: "bogus"})
	requireRejection(t, err, "BAD_REQUEST")

	_, err = svc.List(context.Background(), "", TokenFilters{})
	requireRejection(t, err, "BAD_REQUEST")
}

func TestTokenServiceDisableIsTerminalAndIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	org := seedOrg(t, db)

	svc, err := NewTokenService(db, nil)
	require.NoError(t, err)

	token, err := svc.Create(context.Background(), CreateTokenInput{OrgID: org.ID, Role: "member"})
	require.NoError(t, err)

	disabledTok, err := svc.Disable(context.Background(), token.ID)
	require.NoError(t, err)
	require.True(t, disabledTok.Disabled)

	// Disabling twice is a no-op, not an error.
	again, err := svc.Disable(context.Background(), token.ID)
	require.NoError(t, err)
	require.True(t, again.Disabled)

	var stored models.JoinToken
	require.NoError(t, db.First(&stored, "id = ?", token.ID).Error)
	require.True(t, stored.Disabled)

	_, err = svc.Disable(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, ErrTokenNotFound)
}
