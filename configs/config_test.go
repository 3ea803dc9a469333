package configs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 50000, cfg.MaxBatchSize)
	assert.Equal(t, int32(36), cfg.MaxScaleExponent)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, BadgerStorage, cfg.StorageDriver)
	assert.False(t, cfg.LedgerEnabled())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "airdrop.yaml")
	require.NoError(t, os.WriteFile(file, []byte("max_batch_size: 10\nfetch_timeout: 2s\nstorage_driver: memory\n"), 0o600))
	t.Setenv("AIRDROP_FETCH_CONCURRENCY", "3")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxBatchSize)
	assert.Equal(t, 2*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.FetchConcurrency)
	assert.Equal(t, MemoryStorage, cfg.StorageDriver)
}

func TestValidateRejects(t *testing.T) {
	v := viper.New()
	v.Set("storage_driver", "s3")
	_, err := Load(v, "")
	assert.Error(t, err)

	v = viper.New()
	v.Set("distributor_factory", "not-an-address")
	_, err = Load(v, "")
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	cfg := &MainConfiguration{LogLevel: "debug"}
	got, ok := FromContext(WithConfig(context.Background(), cfg))
	require.True(t, ok)
	assert.Same(t, cfg, got)
}
