package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/curator/internal/core/domain"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestConfigStore_SetPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("storage.data_dir", "/var/lib/curator"))
	require.NoError(t, store.Set("server.requests_per_minute", int64(120)))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/curator", reopened.GetString("storage.data_dir"))
	assert.Equal(t, 120, reopened.GetInt("server.requests_per_minute"))
}

func TestConfigStore_TypedGettersWithMissingKeys(t *testing.T) {
	store := newTestConfigStore(t)

	assert.Empty(t, store.GetString("nope"))
	assert.Zero(t, store.GetInt("nope"))
	assert.Zero(t, store.GetFloat("nope"))
	assert.False(t, store.GetBool("nope"))

	_, ok := store.Get("nope")
	assert.False(t, ok)
}

func TestConfigStore_FlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `[quality]
decay_per_day = 0.75
access_protection = 20

[quality.impact]
helpful = 3.0

[scheduler]
enabled = false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.75, store.GetFloat("quality.decay_per_day"))
	assert.Equal(t, 20, store.GetInt("quality.access_protection"))
	assert.Equal(t, 3.0, store.GetFloat("quality.impact.helpful"))

	v, ok := store.Get("scheduler.enabled")
	require.True(t, ok)
	assert.Equal(t, false, v)
}

func TestConfigStore_FloatAcceptsTOMLInteger(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("quality.boost_weight", int64(1)))
	require.NoError(t, store.Load())

	assert.Equal(t, 1.0, store.GetFloat("quality.boost_weight"))
}

func TestQualityConfig_DefaultsAndOverrides(t *testing.T) {
	store := newTestConfigStore(t)

	// Empty store hands back the shipped defaults.
	cfg := store.QualityConfig()
	assert.Equal(t, domain.DefaultQualityConfig(), cfg)

	require.NoError(t, store.Set("quality.deprecated_threshold", 35.0))
	require.NoError(t, store.Set("quality.max_age_days", int64(180)))
	require.NoError(t, store.Set("quality.impact.outdated", -20.0))

	cfg = store.QualityConfig()
	assert.Equal(t, 35.0, cfg.DeprecatedThreshold)
	assert.Equal(t, 180, cfg.MaxAgeDays)
	assert.Equal(t, -20.0, cfg.Impacts[domain.FeedbackOutdated])
	// Untouched tunables keep their defaults.
	assert.Equal(t, domain.DefaultQualityConfig().ArchiveThreshold, cfg.ArchiveThreshold)
	assert.Equal(t, domain.DefaultQualityConfig().Impacts[domain.FeedbackHelpful], cfg.Impacts[domain.FeedbackHelpful])
}

func TestWatcher_AppliesReloadedConfig(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save())

	var mu sync.Mutex
	var applied []domain.QualityConfig
	watcher, err := NewWatcher(store, func(cfg domain.QualityConfig) error {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, cfg)
		return nil
	})
	require.NoError(t, err)
	defer watcher.Close()

	content := `[quality]
decay_per_day = 2.0
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) > 0
	}, 5*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2.0, applied[len(applied)-1].DecayPerDay)
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Save())

	watcher, err := NewWatcher(store, func(domain.QualityConfig) error { return nil })
	require.NoError(t, err)

	require.NoError(t, watcher.Close())
	require.NoError(t, watcher.Close())
}
