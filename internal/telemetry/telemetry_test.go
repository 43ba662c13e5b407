package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), Options{Enabled: false}, nil)
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledBuildsProvider(t *testing.T) {
	// Exporter construction is lazy, so no collector needs to listen; this
	// guards against resource schema conflicts surfacing as startup errors.
	p, err := New(context.Background(), Options{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Protocol:    "grpc",
		ServiceName: "protocold-test",
		Insecure:    true,
		Version:     "test",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, p)

	// Shutdown flushes toward the absent collector; only the lifecycle
	// matters here, not export success.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestNew_UnknownProtocol(t *testing.T) {
	_, err := New(context.Background(), Options{
		Enabled:  true,
		Protocol: "udp",
		Endpoint: "localhost:4317",
	}, nil)
	assert.Error(t, err)
}

func TestShutdown_NilSafe(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}
