package tasks

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// DefaultAuditRetentionDays applies when a prune task carries no retention.
const DefaultAuditRetentionDays = 30

// AuditPruner deletes audit events older than a retention period.
// *audit.Service implements it.
type AuditPruner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// PruneAuditEventsTask removes authentication audit events past retention.
type PruneAuditEventsTask struct {
	RetentionDays int       `json:"retention_days"`
	RequestedAt   time.Time `json:"requested_at"`
}

// Config returns the queue configuration for audit prune tasks.
func (t PruneAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prune_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// Retention returns the task's retention as a duration.
func (t PruneAuditEventsTask) Retention() time.Duration {
	days := t.RetentionDays
	if days <= 0 {
		days = DefaultAuditRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// PruneAuditEvents deletes events older than the task's retention and
// returns how many were removed.
func PruneAuditEvents(pruner AuditPruner, task PruneAuditEventsTask) (int64, error) {
	if pruner == nil {
		return 0, errors.New("audit pruner not configured")
	}

	deleted, err := pruner.DeleteOldEvents(task.Retention())
	if err != nil {
		return 0, err
	}

	log.Printf("[TASK] Pruned %d audit events older than %s", deleted, task.Retention())
	return deleted, nil
}

// NewPruneAuditEventsQueue creates a backlite queue for audit prune tasks.
func NewPruneAuditEventsQueue(pruner AuditPruner) backlite.Queue {
	return backlite.NewQueue(func(ctx context.Context, task PruneAuditEventsTask) error {
		_, err := PruneAuditEvents(pruner, task)
		return err
	})
}
