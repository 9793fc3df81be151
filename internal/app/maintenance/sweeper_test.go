package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rosterhq/roster/internal/database/testutil"
	"github.com/rosterhq/roster/internal/models"
	"github.com/rosterhq/roster/internal/services"
)

func seedSweepToken(t *testing.T, db *gorm.DB, orgID string, expiresAt *time.Time) *models.JoinToken {
	t.Helper()

	token := &models.JoinToken{OrgID: orgID, Role: "member", MaxUses: 1, ExpiresAt: expiresAt}
	token.ID = uuid.NewString()
	require.NoError(t, db.Create(token).Error)
	return token
}

func TestPurgeExpiredTokensRespectsGraceWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	org := &models.Organization{Name: "Acme"}
	require.NoError(t, db.Create(org).Error)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -30)

	longDead := cutoff.Add(-time.Hour)
	recentlyExpired := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	purgeable := seedSweepToken(t, db, org.ID, &longDead)
	kept := seedSweepToken(t, db, org.ID, &recentlyExpired)
	active := seedSweepToken(t, db, org.ID, &future)
	eternal := seedSweepToken(t, db, org.ID, nil)

	removed, err := PurgeExpiredTokens(context.Background(), db, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining []models.JoinToken
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 3)

	ids := map[string]bool{}
	for _, tok := range remaining {
		ids[tok.ID] = true
	}
	require.False(t, ids[purgeable.ID])
	require.True(t, ids[kept.ID])
	require.True(t, ids[active.ID])
	require.True(t, ids[eternal.ID])
}

func TestSweeperRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	org := &models.Organization{Name: "Acme"}
	require.NoError(t, db.Create(org).Error)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	longDead := now.AddDate(0, 0, -40)
	seedSweepToken(t, db, org.ID, &longDead)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	sweeper := NewSweeper(db, audit,
		WithNow(func() time.Time { return now }),
		WithTokenGraceDays(30),
	)

	require.NoError(t, sweeper.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.JoinToken{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSweeperStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	sweeper := NewSweeper(db, nil)
	require.NoError(t, sweeper.Start())

	stopCtx := sweeper.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
