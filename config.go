package publer

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://app.publer.com/api/v1"

// DefaultTimeout is the per-request deadline when none is configured.
const DefaultTimeout = 30 * time.Second

// Environment variables consumed by Config.LoadEnv.
const (
	EnvAPIKey      = "PUBLER_API_KEY"
	EnvWorkspaceID = "PUBLER_WORKSPACE_ID"
	EnvBaseURL     = "PUBLER_BASE_URL"
	EnvTimeout     = "PUBLER_TIMEOUT"
)

// ErrMissingAPIKey reports construction without a credential. This is a
// configuration error, not an APIError.
var ErrMissingAPIKey = errors.New("publer: API key is required (set " + EnvAPIKey + " or Config.APIKey)")

// Config holds the settings for one Client or Session.
type Config struct {
	// APIKey is the Publer API credential. Mandatory.
	APIKey string

	// WorkspaceID sets the initial workspace scope. Optional; can be
	// changed later with SetWorkspace.
	WorkspaceID string

	// BaseURL overrides the API endpoint. A trailing slash is trimmed.
	BaseURL string

	// Timeout is the overall per-request deadline.
	Timeout time.Duration

	// ConnectTimeout bounds connection establishment only. Zero means a
	// transport default.
	ConnectTimeout time.Duration

	// MaxResponseBytes caps response body reads. Zero means a transport
	// default.
	MaxResponseBytes int64

	// Logger receives per-request debug logging. Nil discards.
	Logger *slog.Logger
}

// fileConfig mirrors Config with pointer fields so a TOML file can
// distinguish "unset" from zero values.
type fileConfig struct {
	APIKey           *string  `toml:"api_key"`
	WorkspaceID      *string  `toml:"workspace_id"`
	BaseURL          *string  `toml:"base_url"`
	TimeoutSeconds   *float64 `toml:"timeout_seconds"`
	ConnectSeconds   *float64 `toml:"connect_timeout_seconds"`
	MaxResponseBytes *int64   `toml:"max_response_bytes"`
}

// LoadFile overlays settings from a TOML file onto c. File values override
// whatever c already holds; call LoadEnv afterwards if the environment
// should win.
func (c *Config) LoadFile(path string) error {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("publer: loading config file %s: %w", path, err)
	}
	if un := meta.Undecoded(); len(un) > 0 && c.Logger != nil {
		for _, key := range un {
			c.Logger.Warn("unknown config file key", "file", path, "key", key.String())
		}
	}

	if fc.APIKey != nil {
		c.APIKey = *fc.APIKey
	}
	if fc.WorkspaceID != nil {
		c.WorkspaceID = *fc.WorkspaceID
	}
	if fc.BaseURL != nil {
		c.BaseURL = *fc.BaseURL
	}
	if fc.TimeoutSeconds != nil {
		c.Timeout = time.Duration(*fc.TimeoutSeconds * float64(time.Second))
	}
	if fc.ConnectSeconds != nil {
		c.ConnectTimeout = time.Duration(*fc.ConnectSeconds * float64(time.Second))
	}
	if fc.MaxResponseBytes != nil {
		c.MaxResponseBytes = *fc.MaxResponseBytes
	}
	return nil
}

// LoadEnv overlays PUBLER_* environment variables onto c. Environment
// values fill only fields that are still unset, so explicit configuration
// always wins.
func (c *Config) LoadEnv() error {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKey)
	}
	if c.WorkspaceID == "" {
		c.WorkspaceID = os.Getenv(EnvWorkspaceID)
	}
	if c.BaseURL == "" {
		c.BaseURL = os.Getenv(EnvBaseURL)
	}
	if c.Timeout == 0 {
		if v := os.Getenv(EnvTimeout); v != "" {
			d, err := parseTimeout(v)
			if err != nil {
				return fmt.Errorf("publer: invalid %s: %w", EnvTimeout, err)
			}
			c.Timeout = d
		}
	}
	return nil
}

// parseTimeout accepts either a Go duration ("45s") or a bare number of
// seconds ("45", "4.5") for compatibility with other Publer clients.
func parseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as duration or seconds", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("publer: invalid base URL %q", c.BaseURL)
	}
	return nil
}
