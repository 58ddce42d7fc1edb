package app_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"njcrashes/internal/app"
	"njcrashes/internal/config"
	"njcrashes/internal/domain"
	"njcrashes/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Storage.Provider = "local"
	cfg.Storage.LocalRoot = t.TempDir()
	cfg.DB.Enabled = false
	return cfg
}

func TestNew_WithoutDatabase(t *testing.T) {
	a, err := app.New(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Nil(t, a.DB)
	_, err = a.Ingest.GetRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrLedgerDisabled)

	s, err := a.Decode.Schema(domain.KindVehicle, 2012)
	require.NoError(t, err)
	assert.Contains(t, s.Patches(), "vehicle-2012-2013-trailing-padding")
}

func TestNew_IngestFromLocalStorage(t *testing.T) {
	cfg := testConfig(t)
	a, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err)

	run, err := a.Ingest.IngestFile(context.Background(), service.IngestRequest{Kind: domain.KindCrash, Year: 2019})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NotNil(t, run)
	assert.Equal(t, domain.IngestStatusFailed, run.Status)
}

func TestNewStorage_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Provider = "ftp"
	_, err := app.NewStorage(cfg)
	assert.Error(t, err)
}

func TestLayouts(t *testing.T) {
	assert.NotNil(t, app.Layouts(""))
	assert.NotNil(t, app.Layouts(t.TempDir()))
}

func TestNewNotifier(t *testing.T) {
	cfg := testConfig(t)
	n, err := app.NewNotifier(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, n.NotifyBatch(context.Background(), nil))

	cfg.Notify.Provider = "pager"
	_, err = app.NewNotifier(cfg, zap.NewNop())
	assert.Error(t, err)
}
