package audit

import (
	"context"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/passage/internal/database/audit"
	"github.com/mrlokans/passage/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// AuthEvent describes the request an authentication event came from.
type AuthEvent struct {
	UserID    uint
	Email     string
	IPAddress string
	UserAgent string
	RequestID string
}

// Log records an audit event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.Record(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.Record(context.Background(), event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until all pending async writes have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogAuth records an authentication event (login, login_failed, logout).
func (s *Service) LogAuth(action string, ev AuthEvent, success bool) {
	s.LogAsync(newEvent(entities.AuditEventAuth, action, ev, success))
}

// LogRegistration records a registration attempt.
func (s *Service) LogRegistration(ev AuthEvent, err error) {
	event := newEvent(entities.AuditEventRegistration, entities.AuditActionRegister, ev, err == nil)
	if err != nil {
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

func newEvent(eventType entities.AuditEventType, action string, ev AuthEvent, success bool) *entities.AuditEvent {
	event := &entities.AuditEvent{
		UserID:    ev.UserID,
		EventType: eventType,
		Action:    action,
		Email:     truncate(ev.Email, 255),
		IPAddress: ev.IPAddress,
		UserAgent: truncate(ev.UserAgent, 500),
		RequestID: ev.RequestID,
		Status:    entities.AuditStatusSuccess,
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	return event
}

// UserActivity returns one page of the user's own events, newest first.
func (s *Service) UserActivity(ctx context.Context, userID uint, limit, offset int) (audit.Page, error) {
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

// DeleteOldEvents removes events older than the retention period.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	return s.repo.PruneBefore(context.Background(), time.Now().Add(-retention))
}

// truncate shortens s to at most maxLen bytes, ending in "..." when cut,
// without splitting a UTF-8 sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
