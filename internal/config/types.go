package config

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"graphql-forms/internal/logging"
	"graphql-forms/internal/naming"
)

// Config holds the application configuration.
type Config struct {
	Endpoint EndpointConfig `mapstructure:"endpoint"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Display  DisplayConfig  `mapstructure:"display"`
	Naming   naming.Config  `mapstructure:"naming"`
	Logging  logging.Config `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// EndpointConfig holds GraphQL backend connection parameters.
type EndpointConfig struct {
	// URL is the GraphQL endpoint, e.g. https://api.example.com/graphql.
	URL string `mapstructure:"url"`
	// Timeout bounds each GraphQL request round trip.
	Timeout time.Duration `mapstructure:"timeout"`
	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `mapstructure:"headers"`
}

// AuthConfig holds backend authentication parameters. A static bearer token
// and OAuth2 client credentials are mutually exclusive.
type AuthConfig struct {
	// BearerToken is a static token sent as "Authorization: Bearer <token>".
	BearerToken string `mapstructure:"bearer_token"`
	// BearerTokenFile is a path to a file containing the token (for secrets
	// management). Supports "@-" to read from stdin.
	BearerTokenFile string `mapstructure:"bearer_token_file"`
	// BearerTokenPrompt prompts for the token interactively without echo.
	BearerTokenPrompt bool `mapstructure:"bearer_token_prompt"`

	// OAuth2 client-credentials flow (used when ClientID is set).
	ClientID         string   `mapstructure:"client_id"`
	ClientSecret     string   `mapstructure:"client_secret"`
	ClientSecretFile string   `mapstructure:"client_secret_file"`
	TokenURL         string   `mapstructure:"token_url"`
	Scopes           []string `mapstructure:"scopes"`
}

// ClientCredentials reports whether the OAuth2 client-credentials flow is
// configured.
func (a *AuthConfig) ClientCredentials() bool {
	return a.ClientID != ""
}

// TokenSource returns an oauth2 token source for the client-credentials
// flow, or nil when it is not configured.
func (a *AuthConfig) TokenSource(ctx context.Context) oauth2.TokenSource {
	if !a.ClientCredentials() {
		return nil
	}
	cc := &clientcredentials.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		TokenURL:     a.TokenURL,
		Scopes:       a.Scopes,
	}
	return cc.TokenSource(ctx)
}

// SchemaConfig holds schema snapshot refresh parameters.
type SchemaConfig struct {
	// RefreshMinInterval debounces refresh requests; RefreshMaxInterval
	// forces a refetch past that age even without an explicit request.
	RefreshMinInterval time.Duration `mapstructure:"refresh_min_interval"`
	RefreshMaxInterval time.Duration `mapstructure:"refresh_max_interval"`
	// PlanCacheSize bounds the per-snapshot selection plan cache.
	PlanCacheSize int `mapstructure:"plan_cache_size"`
}

// DisplayConfig holds value presentation parameters.
type DisplayConfig struct {
	// DateLayout is the Go time layout used to format date-typed cells.
	DateLayout string `mapstructure:"date_layout"`
}

// MetricsConfig controls Prometheus metrics collection.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
