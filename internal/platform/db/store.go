package db

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/internal/platform/store/firestorestore"
	"github.com/getdigitalpayments/paybridge/internal/platform/store/gormstore"
	"github.com/getdigitalpayments/paybridge/internal/platform/store/memstore"
	cfgpkg "github.com/getdigitalpayments/paybridge/pkg/config"
)

// NewStore opens the store selected by database.driver. Connections are
// closed by an fx stop hook.
func NewStore(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case cfgpkg.StoreDriverPostgres, "":
		gdb, err := NewDB(l, cfg)
		if err != nil {
			return nil, err
		}
		if err := AutoMigrate(l, gdb); err != nil {
			return nil, err
		}
		registerDBClose(lc, l, gdb)
		return gormstore.New(gdb), nil

	case cfgpkg.StoreDriverFirestore:
		client, err := firestorestore.NewClient(context.Background(), cfg.Firestore)
		if err != nil {
			return nil, err
		}
		l.Infow("connected to firestore", "project_id", cfg.Firestore.ProjectID)
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				l.Infow("closing firestore client")
				return client.Close()
			},
		})
		return firestorestore.New(client), nil

	case cfgpkg.StoreDriverMemory:
		l.Warnw("using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown database driver: %q", cfg.Database.Driver)
}

var Module = fx.Options(
	fx.Provide(NewStore),
)
