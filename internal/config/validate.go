package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns validation results.
// It returns both errors (fatal) and warnings (non-fatal issues).
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.Endpoint.validate(result)
	c.Auth.validate(result)
	c.Schema.validate(result)
	c.Display.validate(result)
	validateLogging(result, c)

	return result
}

func validateLogging(result *ValidationResult, c *Config) {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level %q", c.Logging.Level),
			Hint:    "use debug, info, warn, or error",
		})
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format %q", c.Logging.Format),
			Hint:    "use json or text",
		})
	}
}

func (e *EndpointConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(e.URL) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "endpoint.url",
			Message: "endpoint URL is required",
			Hint:    "set endpoint.url or GQLFORMS_ENDPOINT_URL",
		})
		return
	}

	parsed, err := url.Parse(e.URL)
	if err != nil || parsed.Host == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "endpoint.url",
			Message: fmt.Sprintf("invalid endpoint URL %q", e.URL),
		})
		return
	}
	switch parsed.Scheme {
	case "https":
	case "http":
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "endpoint.url",
			Message: "endpoint uses plain HTTP",
			Hint:    "use https in production",
		})
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "endpoint.url",
			Message: fmt.Sprintf("unsupported URL scheme %q", parsed.Scheme),
		})
	}

	if e.Timeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "endpoint.timeout",
			Message: "timeout cannot be negative",
		})
	}
}

func (a *AuthConfig) validate(result *ValidationResult) {
	if a.BearerToken != "" && a.ClientCredentials() {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "auth",
			Message: "bearer_token and client_id are mutually exclusive",
			Hint:    "configure either a static token or the client-credentials flow",
		})
	}

	if a.ClientCredentials() {
		if a.ClientSecret == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "auth.client_secret",
				Message: "client_secret is required when client_id is set",
				Hint:    "set auth.client_secret or auth.client_secret_file",
			})
		}
		if a.TokenURL == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "auth.token_url",
				Message: "token_url is required when client_id is set",
			})
		}
	}
}

func (s *SchemaConfig) validate(result *ValidationResult) {
	if s.RefreshMinInterval < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "schema.refresh_min_interval",
			Message: "interval cannot be negative",
		})
	}
	if s.RefreshMaxInterval != 0 && s.RefreshMaxInterval < s.RefreshMinInterval {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "schema.refresh_max_interval",
			Message: "refresh_max_interval must be >= refresh_min_interval",
		})
	}
	if s.RefreshMinInterval != 0 && s.RefreshMinInterval < time.Second {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "schema.refresh_min_interval",
			Message: "sub-second refresh intervals hammer the backend introspection endpoint",
		})
	}
	if s.PlanCacheSize < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "schema.plan_cache_size",
			Message: "plan cache size cannot be negative",
		})
	}
}

func (d *DisplayConfig) validate(result *ValidationResult) {
	if d.DateLayout == "" {
		return
	}
	// A Go time layout must mention the reference year or day; anything else
	// formats every date identically.
	if !strings.Contains(d.DateLayout, "2006") && !strings.Contains(d.DateLayout, "06") &&
		!strings.Contains(d.DateLayout, "2") {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "display.date_layout",
			Message: fmt.Sprintf("layout %q does not look like a Go time layout", d.DateLayout),
			Hint:    "use Go reference time components, e.g. \"Jan 2, 2006 3:04 PM\"",
		})
	}
}
