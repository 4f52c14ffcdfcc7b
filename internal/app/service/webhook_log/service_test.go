package webhook_log

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/internal/platform/store/memstore"
)

func TestSave_FlushWaitsForWrites(t *testing.T) {
	st := memstore.New()
	svc := New(st, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	svc.Save(ctx, &models.WebhookLog{Provider: "stripe", EventID: "evt_1", Status: models.WebhookLogStatusReceived})
	svc.Save(ctx, &models.WebhookLog{Provider: "stripe", EventID: "evt_1", Status: models.WebhookLogStatusHandled})
	svc.Save(ctx, nil)
	cancel()

	require.NoError(t, svc.Flush(context.Background()))
	logs := st.WebhookLogs()
	require.Len(t, logs, 2)
	for _, l := range logs {
		require.NotEmpty(t, l.ID)
		require.Equal(t, "evt_1", l.EventID)
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) SaveWebhookLog(context.Context, *models.WebhookLog) error {
	return errors.New("disk full")
}

func TestSave_ErrorIsLoggedOnly(t *testing.T) {
	svc := New(failingStore{}, zap.NewNop().Sugar())
	svc.Save(context.Background(), &models.WebhookLog{EventID: "evt_2"})
	require.NoError(t, svc.Flush(context.Background()))
}
