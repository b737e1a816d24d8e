package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/qimud/internal/config"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.Telemetry{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, shutdown(ctx), "noop shutdown ignores a cancelled context")
}

func TestSetup_CreatesProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Telemetry
	}{
		// Non-routable addresses, nothing is exported.
		{name: "url", cfg: config.Telemetry{ServiceName: "test", Endpoint: "http://192.0.2.1:4318"}},
		{name: "host port", cfg: config.Telemetry{Endpoint: "192.0.2.1:4318", Insecure: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), tt.cfg)
			require.NoError(t, err)
			require.NoError(t, shutdown(context.Background()))
		})
	}
}
