package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Store.URL = "https://shop.example.com"
	cfg.SFTP.Host = "shop.example.com"
	cfg.SFTP.User = "deploy"
	cfg.SFTP.BasePath = "/var/www/shop.example.com/images"
	return cfg
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "all", cfg.Upload.UpdateMode)
	assert.Equal(t, 22, cfg.SFTP.Port)
	assert.Equal(t, 100, cfg.Upload.BatchSize)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := validConfig()
	cfg.Upload.UpdateMode = "images"
	cfg.Upload.SkipExisting = true
	require.NoError(t, SaveTo(cfg, path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com", loaded.Store.URL)
	assert.Equal(t, "images", loaded.Upload.UpdateMode)
	assert.True(t, loaded.Upload.SkipExisting)
}

func TestLoadFromAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "store:\n  url: https://shop.example.com\nsftp:\n  host: shop.example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com", cfg.Store.URL)
	assert.Equal(t, 22, cfg.SFTP.Port)
	assert.Equal(t, "WC_CONSUMER_KEY", cfg.Store.ConsumerKeyEnv)
	assert.Equal(t, "all", cfg.Upload.UpdateMode)
	assert.Equal(t, 1600, cfg.Upload.MaxImageEdge)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadFromRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [broken"), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing store url", func(c *Config) { c.Store.URL = "" }, "store.url"},
		{"bad store url scheme", func(c *Config) { c.Store.URL = "ftp://x" }, "store.url"},
		{"missing sftp host", func(c *Config) { c.SFTP.Host = "" }, "sftp.host"},
		{"bad sftp port", func(c *Config) { c.SFTP.Port = 70000 }, "sftp.port"},
		{"missing sftp user", func(c *Config) { c.SFTP.User = "" }, "sftp.user"},
		{"relative base path", func(c *Config) { c.SFTP.BasePath = "images" }, "sftp.base_path"},
		{"unknown update mode", func(c *Config) { c.Upload.UpdateMode = "everything" }, "upload.update_mode"},
		{"zero batch size", func(c *Config) { c.Upload.BatchSize = 0 }, "upload.batch_size"},
		{"negative max count", func(c *Config) { c.Upload.MaxCount = -1 }, "upload.max_count"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})
}

func TestSecret(t *testing.T) {
	t.Run("set variable resolves", func(t *testing.T) {
		t.Setenv("WCSYNC_TEST_SECRET", "hunter2")
		got, err := Secret("WCSYNC_TEST_SECRET", "store.consumer_key_env")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", got)
	})

	t.Run("unset variable fails with the field name", func(t *testing.T) {
		_, err := Secret("WCSYNC_TEST_UNSET", "sftp.password_env")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WCSYNC_TEST_UNSET")
	})

	t.Run("empty env name fails", func(t *testing.T) {
		_, err := Secret("", "sftp.password_env")
		assert.Error(t, err)
	})
}
