package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/platform/store/memstore"
	cfgpkg "github.com/getdigitalpayments/paybridge/pkg/config"
)

func TestNewStore_Memory(t *testing.T) {
	cfg := &cfgpkg.Config{Database: cfgpkg.DBConfig{Driver: cfgpkg.StoreDriverMemory}}
	s, err := NewStore(fxtest.NewLifecycle(t), zap.NewNop().Sugar(), cfg)
	require.NoError(t, err)
	require.IsType(t, &memstore.Store{}, s)
}

func TestNewStore_Errors(t *testing.T) {
	cases := map[string]cfgpkg.Config{
		"unknown driver":       {Database: cfgpkg.DBConfig{Driver: "mongo"}},
		"postgres no dsn":      {Database: cfgpkg.DBConfig{Driver: cfgpkg.StoreDriverPostgres}},
		"firestore no project": {Database: cfgpkg.DBConfig{Driver: cfgpkg.StoreDriverFirestore}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := cfg
			_, err := NewStore(fxtest.NewLifecycle(t), zap.NewNop().Sugar(), &cfg)
			require.Error(t, err)
		})
	}
}
