package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/passage/internal/entities"
)

// MaxPageSize caps how many events one ListForUser call returns.
const MaxPageSize = 100

// Repository stores the authentication audit trail.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Page is one page of a user's events, newest first, with the user's total.
type Page struct {
	Events []entities.AuditEvent
	Total  int64
}

// Record appends an event, stamping CreatedAt when the caller left it zero.
func (r *Repository) Record(ctx context.Context, event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to record %s event: %w", event.Action, err)
	}
	return nil
}

// ListForUser returns one page of the user's own events. Events of other
// users, and anonymous failures without a user id, are never included.
func (r *Repository) ListForUser(ctx context.Context, userID uint, limit, offset int) (Page, error) {
	if userID == 0 {
		return Page{}, nil
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	scoped := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&entities.AuditEvent{}).Where("user_id = ?", userID)
	}

	var page Page
	if err := scoped().Count(&page.Total).Error; err != nil {
		return Page{}, fmt.Errorf("failed to count events for user %d: %w", userID, err)
	}
	if page.Total == 0 || int64(offset) >= page.Total {
		return page, nil
	}

	err := scoped().
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&page.Events).Error
	if err != nil {
		return Page{}, fmt.Errorf("failed to list events for user %d: %w", userID, err)
	}
	return page, nil
}

// PruneBefore deletes every event recorded before cutoff and reports how
// many were removed.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&entities.AuditEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune audit events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
