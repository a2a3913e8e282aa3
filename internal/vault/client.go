// Package vault sources provider API keys (AI, search) from HashiCorp
// Vault, with an in-memory cache and environment fallback when disabled.
package vault

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/vault/api"

	"trade-journal/config"
)

// Provider secret names under the configured secret path.
const (
	SecretAIKey     = "ai_api_key"
	SecretSearchKey = "search_api_key"
)

// Environment fallbacks used when Vault is disabled.
var envFallbacks = map[string]string{
	SecretAIKey:     "AI_API_KEY",
	SecretSearchKey: "SEARCH_API_KEY",
}

// Client wraps the HashiCorp Vault client
type Client struct {
	client *api.Client
	config config.VaultConfig
	mu     sync.RWMutex
	cache  map[string]string
}

// NewClient creates a new Vault client. With Vault disabled the client
// resolves secrets from the environment instead.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{
			config: cfg,
			cache:  make(map[string]string),
		}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{
			CACert: cfg.CACert,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	return &Client{
		client: client,
		config: cfg,
		cache:  make(map[string]string),
	}, nil
}

// GetSecret resolves one provider secret by name. Cached after the first
// read; env fallback when Vault is disabled.
func (c *Client) GetSecret(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	if cached, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		envVar, ok := envFallbacks[name]
		if !ok {
			return "", fmt.Errorf("unknown secret %q", name)
		}
		value := os.Getenv(envVar)
		if value == "" {
			return "", fmt.Errorf("secret %q not set (vault disabled, %s empty)", name, envVar)
		}
		c.put(name, value)
		return value, nil
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)

	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret path %q not found", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid secret format at %q", path)
	}

	value := getString(data, name)
	if value == "" {
		return "", fmt.Errorf("secret %q not present at %q", name, path)
	}

	c.put(name, value)
	return value, nil
}

// StoreSecret writes one provider secret, merging with the existing
// key-value set at the secret path.
func (c *Client) StoreSecret(ctx context.Context, name, value string) error {
	if !c.config.Enabled {
		c.put(name, value)
		return nil
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)

	existing := map[string]interface{}{}
	if secret, err := c.client.Logical().ReadWithContext(ctx, path); err == nil && secret != nil {
		if data, ok := secret.Data["data"].(map[string]interface{}); ok {
			existing = data
		}
	}
	existing[name] = value

	if _, err := c.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"data": existing,
	}); err != nil {
		return fmt.Errorf("failed to store secret in vault: %w", err)
	}

	c.put(name, value)
	return nil
}

func (c *Client) put(name, value string) {
	c.mu.Lock()
	c.cache[name] = value
	c.mu.Unlock()
}

// ClearCache clears the in-memory cache
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]string)
	c.mu.Unlock()
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
