package audit

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/passage/internal/database"
	auditRepo "github.com/mrlokans/passage/internal/database/audit"
	"github.com/mrlokans/passage/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := database.NewDatabaseWithLogLevel(filepath.Join(t.TempDir(), "audit.db"), "silent")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(auditRepo.NewRepository(db.DB))
	return svc, db.DB
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventAuth,
		Action:    entities.AuditActionLogout,
		Status:    entities.AuditStatusSuccess,
	}

	require.NoError(t, svc.Log(context.Background(), event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, entities.AuditActionLogout, saved.Action)
}

func TestService_LogAuth(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful login", func(t *testing.T) {
		svc.LogAuth(entities.AuditActionLogin, AuthEvent{
			UserID:    7,
			Email:     "alice@x.com",
			IPAddress: "10.0.0.1",
			UserAgent: "test-agent",
			RequestID: "req-1",
		}, true)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", entities.AuditActionLogin).First(&event).Error)
		assert.Equal(t, uint(7), event.UserID)
		assert.Equal(t, entities.AuditEventAuth, event.EventType)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.Equal(t, "10.0.0.1", event.IPAddress)
		assert.Equal(t, "req-1", event.RequestID)
	})

	t.Run("failed login", func(t *testing.T) {
		svc.LogAuth(entities.AuditActionLoginFailed, AuthEvent{Email: "nobody@x.com"}, false)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", entities.AuditActionLoginFailed).First(&event).Error)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Zero(t, event.UserID)
	})
}

func TestService_LogRegistration(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogRegistration(AuthEvent{Email: "dup@x.com"}, errors.New("email is already registered"))
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", entities.AuditActionRegister).First(&event).Error)
	assert.Equal(t, entities.AuditEventRegistration, event.EventType)
	assert.Equal(t, entities.AuditStatusFailed, event.Status)
	assert.Equal(t, "email is already registered", event.ErrorMsg)
}

func TestService_LogAuth_TruncatesUserAgent(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogAuth(entities.AuditActionLogin, AuthEvent{UserAgent: strings.Repeat("a", 800)}, true)
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.First(&event).Error)
	assert.Len(t, event.UserAgent, 500)
	assert.True(t, strings.HasSuffix(event.UserAgent, "..."))
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, _ := setupTestService(t)

	ctx := context.Background()
	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{UserID: 1, Action: "old", CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}))
	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{UserID: 1, Action: "new"}))

	deleted, err := svc.DeleteOldEvents(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	page, err := svc.UserActivity(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "new", page.Events[0].Action)
}

func TestService_UserActivity_OnlyOwnEvents(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	svc.LogAuth(entities.AuditActionLogin, AuthEvent{UserID: 1, Email: "alice@x.com"}, true)
	svc.LogAuth(entities.AuditActionLogin, AuthEvent{UserID: 2, Email: "bob@x.com"}, true)
	svc.LogAuth(entities.AuditActionLoginFailed, AuthEvent{Email: "alice@x.com"}, false)
	svc.Wait()

	page, err := svc.UserActivity(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "alice@x.com", page.Events[0].Email)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	// "é" is two bytes; the cut must not land inside it
	got := truncate(strings.Repeat("é", 10), 10)
	assert.True(t, utf8.ValidString(got), "truncated string must stay valid UTF-8: %q", got)
	assert.Equal(t, "ééé...", got)
	assert.LessOrEqual(t, len(got), 10)
}
