package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/customer-wishlist/internal/identity"
	"github.com/angelmondragon/customer-wishlist/pkg/logger"
)

const (
	guestRetentionJobName = "guest-retention"

	// minGuestRetention matches the longest possible guest cookie lifetime.
	minGuestRetention = identity.MaxGuestDays * 24 * time.Hour
)

type guestPurger interface {
	PurgeGuestsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RowRecorder counts rows removed by a job.
type RowRecorder interface {
	RowsDeleted(job string, n int64)
}

type GuestRetentionJobParams struct {
	Logger    *logger.Logger
	Store     guestPurger
	Metrics   RowRecorder
	Retention time.Duration
}

// NewGuestRetentionJob deletes guest wishlist rows whose cookie can no longer
// exist. A guest row is never younger than its token, so a row older than the
// longest cookie lifetime is unreachable.
func NewGuestRetentionJob(params GuestRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("wishlist store required")
	}
	retention := params.Retention
	if retention < minGuestRetention {
		retention = minGuestRetention
	}
	return &guestRetentionJob{
		logg:      params.Logger,
		store:     params.Store,
		metrics:   params.Metrics,
		retention: retention,
		now:       time.Now,
	}, nil
}

type guestRetentionJob struct {
	logg      *logger.Logger
	store     guestPurger
	metrics   RowRecorder
	retention time.Duration
	now       func() time.Time
}

func (j *guestRetentionJob) Name() string { return guestRetentionJobName }

func (j *guestRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.store.PurgeGuestsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge guest rows: %w", err)
	}
	if j.metrics != nil {
		j.metrics.RowsDeleted(guestRetentionJobName, deleted)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "guest wishlist rows purged")
	return nil
}
