package app

import (
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/nil-go/konf"
	"github.com/nil-go/konf/provider/file"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/SlavaShagalov/spotify-auth/internal/models"
	pkgErrors "github.com/SlavaShagalov/spotify-auth/internal/pkg/errors"
)

const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvRedirectURI  = "REDIRECT_URI"
	EnvClientURL    = "CLIENT_URL"
)

const (
	DefaultClientURL    = "http://localhost:3000"
	DefaultAuthorizeURL = "https://accounts.spotify.com/authorize"
	DefaultTokenURL     = "https://accounts.spotify.com/api/token"
	DefaultTimeout      = 10 * time.Second
)

type Config struct {
	Web       WebConfig      `konf:"web"`
	Logging   LoggingConfig  `konf:"logging"`
	Provider  ProviderConfig `konf:"provider"`
	ClientURL string         `konf:"client_url"`
	Cookie    CookieConfig   `konf:"cookie"`
	Kafka     KafkaConfig    `konf:"kafka"`
	DB        DBConfig       `konf:"db"`
}

type WebConfig struct {
	Host      string `konf:"host"`
	Port      string `konf:"port"`
	MountPath string `konf:"mount_path"`
}

type LoggingConfig struct {
	Level int `konf:"level"`
}

type ProviderConfig struct {
	AuthorizeURL    string `konf:"authorize_url"`
	TokenURL        string `konf:"token_url"`
	ClientID        string `konf:"client_id"`
	ClientSecret    string `konf:"client_secret"`
	RedirectURI     string `konf:"redirect_uri"`
	TimeoutSeconds  int    `konf:"timeout_seconds"`
	MaxRequestFails uint32 `konf:"max_request_fails"`
}

func (c ProviderConfig) Credentials() models.ProviderCredentials {
	return models.ProviderCredentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	}
}

func (c ProviderConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ProviderConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("authorize_url", c.AuthorizeURL),
		slog.String("token_url", c.TokenURL),
		slog.Any("credentials", c.Credentials()),
		slog.String("redirect_uri", c.RedirectURI),
		slog.Duration("timeout", c.Timeout()),
		slog.Any("max_request_fails", c.MaxRequestFails),
	)
}

type CookieConfig struct {
	Secure           bool   `konf:"secure"`
	SameSite         string `konf:"same_site"`
	Domain           string `konf:"domain"`
	Path             string `konf:"path"`
	MaxAgeFromExpiry bool   `konf:"max_age_from_expiry"`
}

type KafkaConfig struct {
	Addresses []string `konf:"addresses"`
	Topic     string   `konf:"topic"`
}

type DBConfig struct {
	DriverName       string `konf:"driver_name"`
	ConnectionString string `konf:"connection_string"`
}

// ReadLocalConfig loads the yaml file at path (skipped when path is empty),
// applies environment overrides and fills defaults.
func ReadLocalConfig(path string) (Config, error) {
	var config Config

	if path != "" {
		k := konf.New()
		if err := k.Load(file.New(path, file.WithUnmarshal(yaml.Unmarshal))); err != nil {
			return Config{}, errors.Wrapf(err, "load config %s", path)
		}
		if err := k.Unmarshal("", &config); err != nil {
			return Config{}, errors.Wrapf(err, "unmarshal config %s", path)
		}
	}

	config.applyEnv(os.LookupEnv)
	config.applyDefaults()

	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvClientID); ok {
		c.Provider.ClientID = v
	}
	if v, ok := lookup(EnvClientSecret); ok {
		c.Provider.ClientSecret = v
	}
	if v, ok := lookup(EnvRedirectURI); ok {
		c.Provider.RedirectURI = v
	}
	if v, ok := lookup(EnvClientURL); ok && v != "" {
		c.ClientURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.ClientURL == "" {
		c.ClientURL = DefaultClientURL
	}
	if c.Provider.AuthorizeURL == "" {
		c.Provider.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.Provider.TokenURL == "" {
		c.Provider.TokenURL = DefaultTokenURL
	}
	if c.Cookie.Path == "" {
		c.Cookie.Path = "/"
	}
	if c.Cookie.SameSite == "" {
		c.Cookie.SameSite = "Lax"
	}
	c.Web.MountPath = strings.TrimRight(c.Web.MountPath, "/")
}

// ValidateGateway reports every missing or invalid setting the gateway needs at once.
func (c Config) ValidateGateway() error {
	var result error

	required := []struct {
		name  string
		value string
	}{
		{EnvClientID, c.Provider.ClientID},
		{EnvClientSecret, c.Provider.ClientSecret},
		{EnvRedirectURI, c.Provider.RedirectURI},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			result = multierror.Append(result, errors.Wrap(pkgErrors.ErrMissingConfig, r.name))
		}
	}

	for name, raw := range map[string]string{
		"provider.authorize_url": c.Provider.AuthorizeURL,
		"provider.token_url":     c.Provider.TokenURL,
		"client_url":             c.ClientURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "invalid %s", name))
		}
	}

	switch strings.ToLower(c.Cookie.SameSite) {
	case "lax", "strict", "none":
	default:
		result = multierror.Append(result, errors.Errorf("invalid cookie.same_site %q", c.Cookie.SameSite))
	}

	return result
}

func (c Config) ValidateStatistics() error {
	var result error

	if len(c.Kafka.Addresses) == 0 {
		result = multierror.Append(result, errors.Wrap(pkgErrors.ErrMissingConfig, "kafka.addresses"))
	}
	if c.Kafka.Topic == "" {
		result = multierror.Append(result, errors.Wrap(pkgErrors.ErrMissingConfig, "kafka.topic"))
	}
	if c.DB.DriverName == "" {
		result = multierror.Append(result, errors.Wrap(pkgErrors.ErrMissingConfig, "db.driver_name"))
	}
	if c.DB.ConnectionString == "" {
		result = multierror.Append(result, errors.Wrap(pkgErrors.ErrMissingConfig, "db.connection_string"))
	}

	return result
}
