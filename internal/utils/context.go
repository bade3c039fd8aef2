package utils

import (
	"context"
)

type CustomContext struct {
	AppSource string
	Pipeline  string
	RunID     string
}

type customContextKeyType string

const customContextKey customContextKeyType = "CUSTOM_CONTEXT"

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey, customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}

func GetPipelineFromContext(ctx context.Context) string {
	return GetContext(ctx).Pipeline
}

func GetRunIDFromContext(ctx context.Context) string {
	return GetContext(ctx).RunID
}

// NewRunContext tags ctx with the pipeline being run and a fresh run id.
func NewRunContext(ctx context.Context, appSource, pipeline string) context.Context {
	return WithCustomContext(ctx, &CustomContext{
		AppSource: appSource,
		Pipeline:  pipeline,
		RunID:     GenerateNanoIDWithPrefix("run", 12),
	})
}
