package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var defineFlagsOnce sync.Once

// Load loads configuration from multiple sources with the following precedence:
// 1. Explicit overrides (v.Set) – used only for secret file/prompt input
// 2. Command line flags
// 3. Environment variables
// 4. Config file
// 5. Default values
func Load() (*Config, error) {
	v := viper.New()

	// Defaults (lowest priority)
	setDefaults(v)

	// --- Flags ---
	defineFlags()
	if !pflag.Parsed() {
		pflag.Parse()
	}

	// --- Config file ---
	cfgPath, _ := pflag.CommandLine.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("graphql-forms")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/graphql-forms/")
		v.AddConfigPath("$HOME/.graphql-forms")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// --- Environment variables ---
	// Canonical keys: dot + snake_case
	// Env vars: GQLFORMS_ENDPOINT_URL
	v.SetEnvPrefix("GQLFORMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Flags binding (highest normal priority) ---
	bindChangedFlagsToViper(v)
	if err := validateSingleStdinFileSource(v); err != nil {
		return nil, err
	}

	// --- Bearer token from file (explicit override) ---
	if v.GetString("auth.bearer_token") == "" && v.GetString("auth.bearer_token_file") != "" {
		token, err := readSecretFile(v.GetString("auth.bearer_token_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read bearer token file: %w", err)
		}
		v.Set("auth.bearer_token", token)
	}

	// --- Client secret from file (explicit override) ---
	if v.GetString("auth.client_secret") == "" && v.GetString("auth.client_secret_file") != "" {
		secret, err := readSecretFile(v.GetString("auth.client_secret_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read client secret file: %w", err)
		}
		v.Set("auth.client_secret", secret)
	}

	// --- Secure token input (explicit override) ---
	if v.GetString("auth.bearer_token") == "" && v.GetBool("auth.bearer_token_prompt") {
		token, err := promptToken()
		if err != nil {
			return nil, fmt.Errorf("failed to read bearer token: %w", err)
		}
		v.Set("auth.bearer_token", token)
	}

	// --- Unmarshal (strict) ---
	var cfg Config
	if err := v.UnmarshalExact(
		&cfg,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToStringSliceHookFunc(","),
			),
		),
	); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindChangedFlagsToViper copies only explicitly-set flags into Viper,
// preserving precedence: flags > env > file > defaults.
func bindChangedFlagsToViper(v *viper.Viper) {
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "version" {
			return
		}

		switch f.Value.Type() {
		case "string":
			val, _ := pflag.CommandLine.GetString(f.Name)
			v.Set(f.Name, val)
		case "int":
			val, _ := pflag.CommandLine.GetInt(f.Name)
			v.Set(f.Name, val)
		case "bool":
			val, _ := pflag.CommandLine.GetBool(f.Name)
			v.Set(f.Name, val)
		case "duration":
			val, _ := pflag.CommandLine.GetDuration(f.Name)
			v.Set(f.Name, val)
		case "stringSlice":
			val, _ := pflag.CommandLine.GetStringSlice(f.Name)
			v.Set(f.Name, val)
		default:
			v.Set(f.Name, f.Value.String())
		}
	})
}

// defineFlags defines all command line flags using canonical snake_case keys.
func defineFlags() {
	defineFlagsOnce.Do(func() {
		// Endpoint flags
		pflag.String("endpoint.url", "", "GraphQL endpoint URL")
		pflag.Duration("endpoint.timeout", 0, "GraphQL request timeout (e.g. 30s)")

		// Auth flags
		pflag.String("auth.bearer_token", "", "Static bearer token for the GraphQL endpoint")
		pflag.String("auth.bearer_token_file", "", "Path to file containing bearer token (use @- for stdin)")
		pflag.Bool("auth.bearer_token_prompt", false, "Prompt for bearer token securely")
		pflag.String("auth.client_id", "", "OAuth2 client ID for client-credentials flow")
		pflag.String("auth.client_secret", "", "OAuth2 client secret")
		pflag.String("auth.client_secret_file", "", "Path to file containing client secret (use @- for stdin)")
		pflag.String("auth.token_url", "", "OAuth2 token endpoint URL")
		pflag.StringSlice("auth.scopes", nil, "OAuth2 scopes (comma-separated or repeated)")

		// Schema flags
		pflag.Duration("schema.refresh_min_interval", 0, "Minimum interval between schema refresh checks")
		pflag.Duration("schema.refresh_max_interval", 0, "Maximum interval between schema refresh checks")
		pflag.Int("schema.plan_cache_size", 0, "Selection plan cache size per schema snapshot")

		// Display flags
		pflag.String("display.date_layout", "", "Go time layout for date cell formatting")

		// Logging flags
		pflag.String("logging.level", "", "Log level (debug, info, warn, error)")
		pflag.String("logging.format", "", "Log format (json, text)")

		// Metrics flags
		pflag.Bool("metrics.enabled", false, "Enable Prometheus metrics collection")

		// Config file flag
		pflag.StringP("config", "c", "", "Config file path")
	})
}

// setDefaults sets default values (lowest precedence).
func setDefaults(v *viper.Viper) {
	// Endpoint defaults
	v.SetDefault("endpoint.url", "")
	v.SetDefault("endpoint.timeout", 30*time.Second)
	v.SetDefault("endpoint.headers", map[string]string{})

	// Auth defaults
	v.SetDefault("auth.bearer_token", "")
	v.SetDefault("auth.bearer_token_file", "")
	v.SetDefault("auth.bearer_token_prompt", false)
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.client_secret_file", "")
	v.SetDefault("auth.token_url", "")
	v.SetDefault("auth.scopes", []string{})

	// Schema defaults
	v.SetDefault("schema.refresh_min_interval", 30*time.Second)
	v.SetDefault("schema.refresh_max_interval", 5*time.Minute)
	v.SetDefault("schema.plan_cache_size", 128)

	// Display defaults
	v.SetDefault("display.date_layout", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)

	// Naming defaults
	v.SetDefault("naming.plural_overrides", map[string]string{})
	v.SetDefault("naming.singular_overrides", map[string]string{})
}

// promptToken prompts the user for a bearer token without echoing to terminal.
func promptToken() (string, error) {
	fmt.Print("Enter bearer token: ")
	byteToken, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(byteToken), nil
}

func readSecretFile(path string) (string, error) {
	var data []byte
	var err error

	if path == "@-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func validateSingleStdinFileSource(v *viper.Viper) error {
	stdinBackedKeys := []string{
		"auth.bearer_token_file",
		"auth.client_secret_file",
	}

	var configured []string
	for _, key := range stdinBackedKeys {
		if strings.TrimSpace(v.GetString(key)) == "@-" {
			configured = append(configured, key)
		}
	}

	if len(configured) > 1 {
		return fmt.Errorf(
			"multiple stdin-backed file settings use @- (%s); only one @- source is allowed",
			strings.Join(configured, ", "),
		)
	}

	return nil
}

func stringToStringSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}

		parts := strings.Split(raw, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}
