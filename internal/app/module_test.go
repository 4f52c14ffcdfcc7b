package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/pkg/readiness"
)

func TestModule_GraphIsComplete(t *testing.T) {
	require.NoError(t, fx.ValidateApp(Module))
}

func TestTrackReadiness(t *testing.T) {
	tr := readiness.New()
	require.NoError(t, trackReadiness(tr, zap.NewNop().Sugar()))
	require.Equal(t, readiness.StateInitializing, tr.State())

	require.Error(t, trackReadiness(tr, zap.NewNop().Sugar()))
}
