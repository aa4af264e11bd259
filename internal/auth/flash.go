package auth

import (
	"context"
	"time"

	"github.com/mrlokans/passage/internal/entities"
)

// Session is the per-request view of a client's session. Flash messages and
// the post-login redirect target live here instead of on the transport.
// A nil *Session behaves as an empty session that discards writes.
type Session struct {
	sm  *SessionManager
	ctx context.Context
}

// Session returns the session loaded into ctx by SessionLoadSave.
func (sm *SessionManager) Session(ctx context.Context) *Session {
	return &Session{sm: sm, ctx: ctx}
}

// UserID returns the authenticated user id, or 0 when anonymous.
func (s *Session) UserID() uint {
	if s == nil {
		return 0
	}
	return s.sm.UserID(s.ctx)
}

// LoginAt returns when the session was authenticated, or the zero time.
func (s *Session) LoginAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.sm.LoginAt(s.ctx)
}

// Push appends a one-shot message to the session.
func (s *Session) Push(category entities.FlashCategory, text string) {
	if s == nil {
		return
	}
	pending, _ := s.sm.Get(s.ctx, SessionKeyFlash).([]entities.FlashMessage)
	pending = append(pending, entities.FlashMessage{Category: category, Text: text})
	s.sm.Put(s.ctx, SessionKeyFlash, pending)
}

// Drain returns all pending messages grouped by category in push order and
// removes them from the session.
func (s *Session) Drain() Flashes {
	flashes := Flashes{}
	if s == nil {
		return flashes
	}
	pending, _ := s.sm.Pop(s.ctx, SessionKeyFlash).([]entities.FlashMessage)
	for _, msg := range pending {
		flashes[msg.Category] = append(flashes[msg.Category], msg.Text)
	}
	return flashes
}

// SetReturnTo remembers the page a guarded request wanted.
func (s *Session) SetReturnTo(path string) {
	if s == nil {
		return
	}
	s.sm.Put(s.ctx, SessionKeyReturnTo, path)
}

// PopReturnTo returns and forgets the remembered page.
func (s *Session) PopReturnTo() string {
	if s == nil {
		return ""
	}
	return s.sm.PopString(s.ctx, SessionKeyReturnTo)
}

// Flashes maps a category to its messages in the order they were pushed.
type Flashes map[entities.FlashCategory][]string

// TemplateData exposes every category under its template key, with empty
// slices for categories that have no messages.
func (f Flashes) TemplateData() map[string][]string {
	data := map[string][]string{
		entities.FlashSuccess.TemplateKey():      {},
		entities.FlashError.TemplateKey():        {},
		entities.FlashGenericError.TemplateKey(): {},
	}
	for category, texts := range f {
		data[category.TemplateKey()] = texts
	}
	return data
}
