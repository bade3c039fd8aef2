package tracing

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/kotsworld/mailsync/internal/utils"
)

func TestSetDefaultServiceSpanTags(t *testing.T) {
	tracer := mocktracer.New()
	span := tracer.StartSpan("DocumentPipeline.Run")
	ctx := utils.WithCustomContext(context.Background(), &utils.CustomContext{Pipeline: "documents", RunID: "run_abc"})

	SetDefaultServiceSpanTags(ctx, span)
	span.Finish()

	finished := tracer.FinishedSpans()
	assert.Len(t, finished, 1)
	assert.Equal(t, "documents", finished[0].Tag(SpanTagPipeline))
	assert.Equal(t, "run_abc", finished[0].Tag(SpanTagRunId))
	assert.Equal(t, SpanTagComponentService, finished[0].Tag(SpanTagComponent))
}

func TestTraceErr_MarksSpan(t *testing.T) {
	tracer := mocktracer.New()
	span := tracer.StartSpan("op")

	TraceErr(span, errors.New("boom"))
	TraceErr(span, nil)
	span.Finish()

	assert.Equal(t, true, tracer.FinishedSpans()[0].Tag("error"))
	assert.Len(t, tracer.FinishedSpans()[0].Logs(), 1)
}
