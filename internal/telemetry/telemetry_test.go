package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{})
	require.NoError(t, err)

	l := NewLifecycle()
	ctx, span := l.Start(context.Background(), "CreateBug")
	l.Transition(ctx, "create_bug", "tester")
	span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_EnabledExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Options{
		Enabled:        true,
		ServiceName:    "celerix-bugd-test",
		Writer:         &buf,
		ExportInterval: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = Init(context.Background(), Options{}) })

	l := NewLifecycle()
	ctx, span := l.Start(context.Background(), "AssignSelf")
	l.Transition(ctx, "assign_self", "developer")
	l.Denied(ctx, "create_bug", "developer")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "lifecycle.AssignSelf")
	assert.Contains(t, out, "celerix.bugs.transitions")
}
