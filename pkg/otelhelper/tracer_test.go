package otelhelper_test

import (
	"context"
	"testing"

	"github.com/neosense/neosense/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewTracer(t *testing.T) {
	tracer, err := otelhelper.NewTracer(context.Background(), "neosense-test")
	require.NoError(t, err)
	require.NotNil(t, tracer)

	ctx, span := otelhelper.StartSpan(context.Background(), tracer, "run.execute",
		attribute.String(otelhelper.RunIDKey, "run-1"))
	defer span.End()

	require.NotNil(t, ctx)

	// Spans are recording once the provider is installed; without it they
	// would be no-ops.
	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsValid())
}
