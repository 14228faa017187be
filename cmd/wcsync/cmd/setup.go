package cmd

import (
	"time"

	"github.com/mytua/wcsync/internal/config"
	"github.com/mytua/wcsync/internal/retry"
	"github.com/mytua/wcsync/internal/sftpstore"
	"github.com/mytua/wcsync/internal/woocommerce"
)

// loadConfig loads and validates the configuration, honoring the
// --config flag.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func retryPolicy(cfg *config.Config) retry.Policy {
	policy := retry.Default()
	if cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelayMs > 0 {
		policy.BaseDelay = time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond
	}
	return policy
}

// buildStore resolves the SFTP password and constructs the image
// store. It does not connect.
func buildStore(cfg *config.Config) (*sftpstore.Store, error) {
	password, err := config.Secret(cfg.SFTP.PasswordEnv, "sftp.password_env")
	if err != nil {
		return nil, err
	}

	return sftpstore.New(sftpstore.Config{
		Host:      cfg.SFTP.Host,
		Port:      cfg.SFTP.Port,
		User:      cfg.SFTP.User,
		Password:  password,
		BasePath:  cfg.SFTP.BasePath,
		WebDomain: cfg.SFTP.WebDomain,
		Checksum:  cfg.SFTP.Checksum,
	}, retryPolicy(cfg)), nil
}

// buildClient resolves API credentials and constructs the catalog
// client. It does not call the API.
func buildClient(cfg *config.Config) (*woocommerce.Client, error) {
	key, err := config.Secret(cfg.Store.ConsumerKeyEnv, "store.consumer_key_env")
	if err != nil {
		return nil, err
	}
	secret, err := config.Secret(cfg.Store.ConsumerSecretEnv, "store.consumer_secret_env")
	if err != nil {
		return nil, err
	}

	return woocommerce.New(woocommerce.Config{
		URL:               cfg.Store.URL,
		ConsumerKey:       key,
		ConsumerSecret:    secret,
		Timeout:           time.Duration(cfg.Store.TimeoutSec) * time.Second,
		RequestsPerSecond: cfg.Store.RequestsPerSec,
	}, retryPolicy(cfg))
}
