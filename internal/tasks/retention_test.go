package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/passage/internal/audit"
	"github.com/mrlokans/passage/internal/database"
	auditRepo "github.com/mrlokans/passage/internal/database/audit"
	"github.com/mrlokans/passage/internal/entities"
)

type fakePruner struct {
	retention time.Duration
	deleted   int64
	err       error
}

func (f *fakePruner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retention = retention
	return f.deleted, f.err
}

func TestPruneAuditEventsTaskConfig(t *testing.T) {
	cfg := PruneAuditEventsTask{}.Config()

	assert.Equal(t, "prune_audit_events", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestPruneAuditEventsTask_Retention(t *testing.T) {
	assert.Equal(t, 30*24*time.Hour, PruneAuditEventsTask{}.Retention())
	assert.Equal(t, 7*24*time.Hour, PruneAuditEventsTask{RetentionDays: 7}.Retention())
}

func TestPruneAuditEvents(t *testing.T) {
	t.Run("passes retention to pruner", func(t *testing.T) {
		pruner := &fakePruner{deleted: 4}
		deleted, err := PruneAuditEvents(pruner, PruneAuditEventsTask{RetentionDays: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(4), deleted)
		assert.Equal(t, 10*24*time.Hour, pruner.retention)
	})

	t.Run("propagates errors", func(t *testing.T) {
		_, err := PruneAuditEvents(&fakePruner{err: errors.New("locked")}, PruneAuditEventsTask{})
		assert.Error(t, err)
	})

	t.Run("nil pruner", func(t *testing.T) {
		_, err := PruneAuditEvents(nil, PruneAuditEventsTask{})
		assert.Error(t, err)
	})
}

func TestPruneAuditEventsQueue_DeletesOldEvents(t *testing.T) {
	dir := t.TempDir()
	db, err := database.NewDatabaseWithLogLevel(filepath.Join(dir, "passage.db"), "silent")
	require.NoError(t, err)
	defer db.Close()

	svc := audit.NewService(auditRepo.NewRepository(db.DB))
	require.NoError(t, svc.Log(context.Background(), &entities.AuditEvent{UserID: 1, Action: entities.AuditActionLogin, CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}))
	require.NoError(t, svc.Log(context.Background(), &entities.AuditEvent{UserID: 1, Action: entities.AuditActionLogout}))

	client, err := NewClient(filepath.Join(dir, "passage.db"), DefaultConfig())
	require.NoError(t, err)
	defer client.Close()
	client.Register(NewPruneAuditEventsQueue(svc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	_, err = client.Enqueue(ctx, PruneAuditEventsTask{RetentionDays: 30, RequestedAt: time.Now()})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		page, err := svc.UserActivity(context.Background(), 1, 10, 0)
		return err == nil && page.Total == 1
	}, 5*time.Second, 50*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	client.Stop(stopCtx)
}
