package cursor

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/models"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/internal/utils"
)

// SyncCursor is a per-pipeline day watermark. Dates are kept as UTC midnights that carry
// the calendar day of the configured location, so a DATE column round-trips unchanged.
type SyncCursor struct {
	repo     interfaces.SyncCursorRepository
	log      logger.Logger
	location *time.Location
	now      func() time.Time
}

type Option func(*SyncCursor)

func WithClock(now func() time.Time) Option {
	return func(c *SyncCursor) {
		c.now = now
	}
}

func NewSyncCursor(repo interfaces.SyncCursorRepository, log logger.Logger, location *time.Location, opts ...Option) *SyncCursor {
	if location == nil {
		location = time.Local
	}
	c := &SyncCursor{
		repo:     repo,
		log:      log,
		location: location,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadLocation resolves SYNC_TIMEZONE; "Local" and "" mean the process zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// SearchCriteria returns SINCE the stored day, or ALL when there is no usable cursor.
func (c *SyncCursor) SearchCriteria(ctx context.Context, pipeline enum.Pipeline) dto.SearchCriteria {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncCursor.SearchCriteria")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	stored, err := c.repo.Get(ctx, pipeline.String())
	if err != nil {
		tracing.TraceErr(span, err)
		c.log.Warnf("[%s] Failed to read sync cursor, scanning all messages: %v", pipeline, err)
		return dto.SearchCriteria{}
	}
	if stored == nil || stored.LastSyncDate.IsZero() {
		c.log.Infof("[%s] No sync cursor, scanning all messages", pipeline)
		span.SetTag("search", "ALL")
		return dto.SearchCriteria{}
	}

	d := stored.LastSyncDate
	since := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	c.log.Infof("[%s] Searching since %s", pipeline, utils.FormatIMAPDate(since))
	span.SetTag("search", "SINCE "+utils.FormatIMAPDate(since))
	return dto.SearchCriteria{Since: &since}
}

// Advance records today as the last successful sync day.
func (c *SyncCursor) Advance(ctx context.Context, pipeline enum.Pipeline, folders []string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncCursor.Advance")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	now := c.now()
	today := c.Today()
	err := c.repo.Save(ctx, &models.SyncCursor{
		Pipeline:     pipeline.String(),
		LastSyncDate: today,
		Folders:      pq.StringArray(folders),
		UpdatedAt:    now.UTC(),
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to advance %s cursor", pipeline)
	}

	c.log.Infof("[%s] Sync cursor advanced to %s", pipeline, utils.FormatIMAPDate(today))
	return nil
}

func (c *SyncCursor) Today() time.Time {
	local := utils.StartOfDay(c.now(), c.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
