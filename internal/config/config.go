package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "FITHON"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabaseDriver  = DriverSQLite
	defaultDatabasePath    = "fithon.db"
	defaultLogLevel        = "info"
	defaultTokenIssuer     = "fithon-auth"
	defaultTokenAudience   = "fithon-api"
	defaultTokenTTLMinutes = 720
	defaultCookieName      = "fithon_session"
	defaultGoogleJWKSURL   = "https://www.googleapis.com/oauth2/v3/certs"
	defaultAPIURL          = "http://localhost:8080"
	defaultCachePath       = ".fithon"
	defaultProbeInterval   = 15 * time.Second
	defaultRequestTimeout  = 10 * time.Second
)

const (
	// DriverSQLite stores everything in one SQLite file through GORM.
	DriverSQLite = "sqlite"
	// DriverPostgres stores sections in PostgreSQL; identities stay in the SQLite file.
	DriverPostgres = "postgres"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabaseDriver     string
	DatabasePath       string
	DatabaseDSN        string
	SigningSecret      string
	TokenIssuer        string
	TokenAudience      string
	TokenTTL           time.Duration
	CookieName         string
	GoogleClientID     string
	GoogleJWKSURL      string
	CORSAllowedOrigins []string
	LogLevel           string
}

// ClientConfig captures runtime configuration for the command line client.
type ClientConfig struct {
	APIURL         string
	APIToken       string
	UserKey        string
	CachePath      string
	ProbeInterval  time.Duration
	RequestTimeout time.Duration
	Offline        bool
	LogLevel       string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("auth.issuer", defaultTokenIssuer)
	configViper.SetDefault("auth.audience", defaultTokenAudience)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("google.jwks_url", defaultGoogleJWKSURL)
	configViper.SetDefault("log.level", defaultLogLevel)

	configViper.SetDefault("api.url", defaultAPIURL)
	configViper.SetDefault("cache.path", defaultCachePath)
	configViper.SetDefault("network.probe_interval", defaultProbeInterval)
	configViper.SetDefault("network.offline", false)
	configViper.SetDefault("request.timeout", defaultRequestTimeout)
}

// ReadFile merges a YAML, TOML or JSON config file into the viper instance when a
// path is given.
func ReadFile(configViper *viper.Viper, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	configViper.SetConfigFile(path)
	if err := configViper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// Load parses server configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabaseDriver:     strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:       configViper.GetString("database.path"),
		DatabaseDSN:        configViper.GetString("database.dsn"),
		SigningSecret:      configViper.GetString("auth.signing_secret"),
		TokenIssuer:        configViper.GetString("auth.issuer"),
		TokenAudience:      configViper.GetString("auth.audience"),
		TokenTTL:           time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		CookieName:         configViper.GetString("auth.cookie_name"),
		GoogleClientID:     configViper.GetString("google.client_id"),
		GoogleJWKSURL:      configViper.GetString("google.jwks_url"),
		CORSAllowedOrigins: splitList(configViper.GetStringSlice("cors.allowed_origins")),
		LogLevel:           configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.GoogleClientID) == "" {
		return fmt.Errorf("google.client_id is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.DatabaseDriver)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	return nil
}

// LoadClient parses client configuration from viper.
func LoadClient(configViper *viper.Viper) (ClientConfig, error) {
	cfg := ClientConfig{
		APIURL:         strings.TrimSpace(configViper.GetString("api.url")),
		APIToken:       strings.TrimSpace(configViper.GetString("api.token")),
		UserKey:        strings.TrimSpace(configViper.GetString("user.key")),
		CachePath:      strings.TrimSpace(configViper.GetString("cache.path")),
		ProbeInterval:  configViper.GetDuration("network.probe_interval"),
		RequestTimeout: configViper.GetDuration("request.timeout"),
		Offline:        configViper.GetBool("network.offline"),
		LogLevel:       configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func (c ClientConfig) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request.timeout must be positive")
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("network.probe_interval must be positive")
	}
	return nil
}

// splitList accepts both repeated values and a single comma separated env value.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
