package ingestion

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/services/classifier"
	"github.com/kotsworld/mailsync/services/dedup"
)

// Backfill imports historical contract documents for a list of bookings by full-text search.
// It does not touch the sync cursor.
type Backfill struct {
	deps *Dependencies
}

func NewBackfill(deps *Dependencies) *Backfill {
	return &Backfill{deps: deps}
}

// ReadBookingIDs reads one booking id per line, ignoring blanks, comments, duplicates and
// anything that is not a booking id.
func ReadBookingIDs(r io.Reader) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)

	lines := bufio.NewScanner(r)
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !classifier.IsBookingID(line) || seen[line] {
			continue
		}
		seen[line] = true
		ids = append(ids, line)
	}
	return ids, lines.Err()
}

// Run processes bookingIDs in order, committing after each one. folders overrides the
// configured folder list when non-empty.
func (b *Backfill) Run(ctx context.Context, bookingIDs []string, folders []string) *dto.BackfillResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Backfill.Run")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("bookings.count", len(bookingIDs))

	pipeline := enum.PipelineBackfill
	result := &dto.BackfillResult{
		StartedAt: b.deps.now(),
		Bookings:  make(map[string]dto.SyncCounters),
	}
	fail := func(err error) *dto.BackfillResult {
		tracing.TraceErr(span, err)
		result.Error = err.Error()
		result.FinishedAt = b.deps.now()
		b.deps.Log.Errorf("[%s] Run failed: %v", pipeline, err)
		return result
	}

	if len(folders) == 0 {
		folders = b.deps.Folders
	}

	mailbox, err := connect(ctx, b.deps, pipeline)
	if err != nil {
		return fail(err)
	}
	defer mailbox.Disconnect(ctx)

	index := dedup.New()
	if err := index.HydrateDocuments(ctx, b.deps.Documents); err != nil {
		return fail(err)
	}

	folderScanner := newScanner(mailbox, folders, b.deps.Log, pipeline.String())
	batch := newDocumentBatch(b.deps, index, pipeline.String())

	for i, bookingID := range bookingIDs {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		b.deps.Log.Infof("[%s] %d/%d searching for %s", pipeline, i+1, len(bookingIDs), bookingID)

		var counters dto.SyncCounters
		target := bookingID
		_, err := folderScanner.scan(ctx, dto.SearchCriteria{Text: bookingID}, &counters, func(ctx context.Context, folder string, msg *dto.RawMessage) {
			batch.handle(ctx, folder, msg, &counters, target)
		}, batch.commit)

		result.Bookings[bookingID] = counters
		result.Total.Fetched += counters.Fetched
		result.Total.New += counters.New
		result.Total.Skipped += counters.Skipped
		result.Total.Errors += counters.Errors
		result.Total.FolderErrors += counters.FolderErrors
		if err != nil {
			return fail(err)
		}
	}

	result.FinishedAt = b.deps.now()
	b.deps.Log.Infof("[%s] Finished %d bookings - fetched: %d, new: %d, skipped: %d, errors: %d",
		pipeline, len(bookingIDs), result.Total.Fetched, result.Total.New, result.Total.Skipped, result.Total.Errors)
	return result
}
