package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/plang/pkg/observability"
)

func TestNew_DisabledProviderIsInert(t *testing.T) {
	cfg := observability.DefaultConfig()
	cfg.Enabled = false

	p, err := observability.New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Meter())

	ctx, done := p.TrackOperation(context.Background(), "compile")
	assert.NotNil(t, ctx)
	done(errors.New("boom"))

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestDefaultConfig(t *testing.T) {
	cfg := observability.DefaultConfig()
	assert.Equal(t, "plang-engine", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.True(t, cfg.Enabled)
}
