package utils

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2024, 3, 14, 20, 45, 0, 0, time.UTC)

	got := StartOfDay(in, loc)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, loc), got)
	assert.Equal(t, "15-Mar-2024", FormatIMAPDate(got))
}

func TestStringPtrOrNil(t *testing.T) {
	assert.Nil(t, StringPtrOrNil(""))
	assert.Equal(t, "x", *StringPtrOrNil("x"))
}

func TestNewRunContext(t *testing.T) {
	ctx := NewRunContext(context.Background(), "mailsync", "tickets")

	assert.Equal(t, "mailsync", GetAppSourceFromContext(ctx))
	assert.Equal(t, "tickets", GetPipelineFromContext(ctx))
	assert.True(t, strings.HasPrefix(GetRunIDFromContext(ctx), "run_"))
	assert.Equal(t, "", GetPipelineFromContext(context.Background()))
}
