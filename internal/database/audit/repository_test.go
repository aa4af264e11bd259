package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/passage/internal/database"
	"github.com/mrlokans/passage/internal/entities"
)

func setupTestRepo(t *testing.T) *Repository {
	db, err := database.NewDatabaseWithLogLevel(filepath.Join(t.TempDir(), "audit.db"), "silent")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db.DB)
}

func TestRepository_Record(t *testing.T) {
	repo := setupTestRepo(t)

	event := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventAuth,
		Action:    entities.AuditActionLogin,
		Email:     "alice@x.com",
		Status:    entities.AuditStatusSuccess,
	}

	require.NoError(t, repo.Record(context.Background(), event))
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_ListForUser(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 15; i++ {
		userID := uint(1)
		if i%3 == 0 {
			userID = 2
		}
		require.NoError(t, repo.Record(ctx, &entities.AuditEvent{
			UserID:    userID,
			EventType: entities.AuditEventAuth,
			Action:    entities.AuditActionLogin,
			Status:    entities.AuditStatusSuccess,
			CreatedAt: base.Add(time.Duration(-i) * time.Hour),
		}))
	}
	// Anonymous failure, visible to nobody
	require.NoError(t, repo.Record(ctx, &entities.AuditEvent{Action: entities.AuditActionLoginFailed}))

	t.Run("first page", func(t *testing.T) {
		page, err := repo.ListForUser(ctx, 1, 4, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(10), page.Total)
		require.Len(t, page.Events, 4)
		assert.True(t, page.Events[0].CreatedAt.After(page.Events[1].CreatedAt), "most recent first")
		for _, e := range page.Events {
			assert.Equal(t, uint(1), e.UserID)
		}
	})

	t.Run("last partial page", func(t *testing.T) {
		page, err := repo.ListForUser(ctx, 1, 4, 8)
		require.NoError(t, err)
		assert.Len(t, page.Events, 2)
	})

	t.Run("past the end", func(t *testing.T) {
		page, err := repo.ListForUser(ctx, 2, 10, 50)
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		assert.Empty(t, page.Events)
	})

	t.Run("no user", func(t *testing.T) {
		page, err := repo.ListForUser(ctx, 0, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, page.Total)
		assert.Empty(t, page.Events)
	})

	t.Run("limit is capped", func(t *testing.T) {
		page, err := repo.ListForUser(ctx, 1, 0, 0)
		require.NoError(t, err)
		assert.Len(t, page.Events, 10)
	})
}

func TestRepository_PruneBefore(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, &entities.AuditEvent{UserID: 1, Action: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, repo.Record(ctx, &entities.AuditEvent{UserID: 1, Action: "recent"}))

	deleted, err := repo.PruneBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	page, err := repo.ListForUser(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "recent", page.Events[0].Action)
}
