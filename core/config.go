package core

import (
	"fmt"
	"strings"
)

// Config carries the tunable surface of the webhook service. Values are
// resolved through the layered options stack: hard defaults, then loaded
// configuration, then runtime overrides.
type Config struct {
	ServiceName   string              `koanf:"service_name" mapstructure:"service_name"`
	Subscriptions SubscriptionsConfig `koanf:"subscriptions" mapstructure:"subscriptions"`
	Deliveries    DeliveriesConfig    `koanf:"deliveries" mapstructure:"deliveries"`
}

// SubscriptionsConfig governs record creation defaults. TimeoutMS and
// RetryBudget are stamped onto new subscriptions; RetryBudget is advisory
// and never consumed by any automatic process.
type SubscriptionsConfig struct {
	DefaultTimeoutMS   int `koanf:"default_timeout_ms" mapstructure:"default_timeout_ms"`
	DefaultRetryBudget int `koanf:"default_retry_budget" mapstructure:"default_retry_budget"`
	SecretBytes        int `koanf:"secret_bytes" mapstructure:"secret_bytes"`
}

type DeliveriesConfig struct {
	UserAgent       string `koanf:"user_agent" mapstructure:"user_agent"`
	ListLimit       int    `koanf:"list_limit" mapstructure:"list_limit"`
	MaxListLimit    int    `koanf:"max_list_limit" mapstructure:"max_list_limit"`
	PayloadMaxBytes int    `koanf:"payload_max_bytes" mapstructure:"payload_max_bytes"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "webhooks",
		Subscriptions: SubscriptionsConfig{
			DefaultTimeoutMS:   10000,
			DefaultRetryBudget: 3,
			SecretBytes:        24,
		},
		Deliveries: DeliveriesConfig{
			UserAgent:       "go-webhooks/1.0",
			ListLimit:       50,
			MaxListLimit:    200,
			PayloadMaxBytes: 1 << 20,
		},
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("core: config is nil")
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Subscriptions.DefaultTimeoutMS <= 0 {
		return fmt.Errorf("core: subscriptions.default_timeout_ms must be positive")
	}
	if c.Subscriptions.DefaultRetryBudget < 0 {
		return fmt.Errorf("core: subscriptions.default_retry_budget must not be negative")
	}
	if c.Subscriptions.SecretBytes < minSecretBytes {
		return fmt.Errorf("core: subscriptions.secret_bytes must be at least %d", minSecretBytes)
	}
	if c.Deliveries.ListLimit <= 0 {
		return fmt.Errorf("core: deliveries.list_limit must be positive")
	}
	if c.Deliveries.MaxListLimit < c.Deliveries.ListLimit {
		return fmt.Errorf("core: deliveries.max_list_limit must not be below deliveries.list_limit")
	}
	if c.Deliveries.PayloadMaxBytes <= 0 {
		return fmt.Errorf("core: deliveries.payload_max_bytes must be positive")
	}
	return nil
}
