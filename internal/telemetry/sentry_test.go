package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{}, nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "assemble", SpanAttributes{UserID: "u1", Operation: "assemble"})
	defer parent.End()

	childCtx, child := StartSpan(ctx, "retrieve", SpanAttributes{Category: "critical"})
	child.SetData("entries", 3)
	child.SetError(errors.New("boom"))
	child.End()

	assert.NotNil(t, childCtx)
	assert.NotNil(t, child.inner)
	assert.Equal(t, parent.inner.TraceID, child.inner.TraceID)
	assert.Equal(t, "critical", child.inner.Tags["category"])
}

func TestSpan_NilSafe(t *testing.T) {
	var s Span
	s.End()
	s.SetData("k", "v")
	s.SetError(errors.New("ignored"))
}
