package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/internal/logger"
	"github.com/Adda-Baaj/note-syndicator/pkg/destinations"
	"github.com/Adda-Baaj/note-syndicator/pkg/notifiers"
	"github.com/Adda-Baaj/note-syndicator/pkg/providers"
)

const (
	keyNoteID           = "NOTE_ID"
	keyNoteBaseURL      = "NOTE_BASE_URL"
	keyUserAgent        = "SYNDICATOR_USER_AGENT"
	keyHTTPTimeout      = "SYNDICATOR_HTTP_TIMEOUT"
	keyConcurrent       = "SYNDICATOR_CONCURRENT"
	keyNewestByDate     = "SYNDICATOR_NEWEST_BY_DATE"
	keyConfigFile       = "SYNDICATOR_CONFIG"
	keyLogLevel         = "LOG_LEVEL"
	keyLogFormat        = "LOG_FORMAT"
	keyDestinationsFile = "DESTINATIONS_FILE"
	keyNotifiersFile    = "NOTIFIERS_FILE"

	defaultHTTPTimeout = 15 * time.Second

	// maxEnvSites is the highest WP<n>_ prefix read from the environment.
	maxEnvSites = 9
)

// Config is the resolved runtime configuration.
type Config struct {
	NoteID       string
	NoteBaseURL  string
	UserAgent    string
	HTTPTimeout  time.Duration
	Concurrent   bool
	NewestByDate bool
	Log          logger.Options

	DestinationsFile string
	NotifiersFile    string

	Destinations []destinations.DestinationConfig
	Notifiers    []notifiers.NotifierConfig
}

// FeedURL returns the author's RSS URL.
func (c *Config) FeedURL() (string, error) {
	return providers.NoteFeedURL(c.NoteBaseURL, c.NoteID)
}

// Provider returns the feed provider settings for this run.
func (c *Config) Provider() (providers.Provider, error) {
	feedURL, err := c.FeedURL()
	if err != nil {
		return providers.Provider{}, &domain.ConfigError{Field: keyNoteID, Msg: err.Error()}
	}
	return providers.Provider{
		ID:        providers.NoteProviderID,
		SourceURL: feedURL,
		UserAgent: c.UserAgent,
	}, nil
}

// Load reads .env files (when present) and the process environment.
// With no arguments godotenv looks for ./.env.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.ConfigError{Field: ".env", Msg: err.Error()}
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(keyNoteBaseURL, providers.NoteDefaultBaseURL)
	v.SetDefault(keyUserAgent, providers.DefaultUserAgent)
	v.SetDefault(keyHTTPTimeout, defaultHTTPTimeout.String())
	v.SetDefault(keyConcurrent, "false")
	v.SetDefault(keyNewestByDate, "false")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "console")
	return v
}

// FromViper resolves the configuration from v. An optional config file named
// by SYNDICATOR_CONFIG is merged first; environment variables win over it.
func FromViper(v *viper.Viper) (*Config, error) {
	if path := strings.TrimSpace(v.GetString(keyConfigFile)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &domain.ConfigError{Field: keyConfigFile, Msg: err.Error()}
		}
	}

	cfg := &Config{
		NoteID:           strings.TrimSpace(v.GetString(keyNoteID)),
		NoteBaseURL:      strings.TrimSpace(v.GetString(keyNoteBaseURL)),
		UserAgent:        strings.TrimSpace(v.GetString(keyUserAgent)),
		DestinationsFile: strings.TrimSpace(v.GetString(keyDestinationsFile)),
		NotifiersFile:    strings.TrimSpace(v.GetString(keyNotifiersFile)),
		Log: logger.Options{
			Level:  strings.TrimSpace(v.GetString(keyLogLevel)),
			Format: strings.TrimSpace(v.GetString(keyLogFormat)),
		},
	}
	if cfg.NoteID == "" {
		return nil, &domain.ConfigError{Field: keyNoteID, Msg: "author id is required"}
	}

	var err error
	if cfg.HTTPTimeout, err = durationValue(v, keyHTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.Concurrent, err = boolValue(v, keyConcurrent); err != nil {
		return nil, err
	}
	if cfg.NewestByDate, err = boolValue(v, keyNewestByDate); err != nil {
		return nil, err
	}

	dests, err := envDestinations(v)
	if err != nil {
		return nil, err
	}
	if cfg.DestinationsFile != "" {
		fromFile, err := destinations.LoadFile(cfg.DestinationsFile)
		if err != nil {
			return nil, &domain.ConfigError{Field: keyDestinationsFile, Msg: err.Error()}
		}
		dests = append(dests, fromFile...)
	}

	reg, err := destinations.NewConfigRegistry(dests)
	if err != nil {
		return nil, &domain.ConfigError{Field: "destinations", Msg: err.Error()}
	}
	cfg.Destinations = reg.Enabled()
	if len(cfg.Destinations) == 0 {
		return nil, &domain.ConfigError{Field: "destinations", Msg: "at least one destination is required"}
	}

	if cfg.NotifiersFile != "" {
		if cfg.Notifiers, err = notifiers.LoadFile(cfg.NotifiersFile); err != nil {
			return nil, &domain.ConfigError{Field: keyNotifiersFile, Msg: err.Error()}
		}
	}

	return cfg, nil
}

// envDestinations reads WP_* (Site 1) and WP<n>_* (Site n) groups.
// A group without a URL is treated as not configured.
func envDestinations(v *viper.Viper) ([]destinations.DestinationConfig, error) {
	var out []destinations.DestinationConfig
	for n := 1; n <= maxEnvSites; n++ {
		prefix := "WP"
		if n > 1 {
			prefix = "WP" + strconv.Itoa(n)
		}
		url := strings.TrimSpace(v.GetString(prefix + "_URL"))
		if url == "" {
			continue
		}

		dest := destinations.DestinationConfig{
			Name:     fmt.Sprintf("Site %d", n),
			Type:     destinations.TypeWordPress,
			URL:      url,
			Username: strings.TrimSpace(v.GetString(prefix + "_USER")),
			Password: strings.TrimSpace(v.GetString(prefix + "_APP_PASSWORD")),
		}
		if raw := strings.TrimSpace(v.GetString(prefix + "_CATEGORY_ID")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, &domain.ConfigError{Field: prefix + "_CATEGORY_ID", Msg: fmt.Sprintf("%q is not a number", raw)}
			}
			dest.CategoryID = &id
		}
		out = append(out, dest)
	}
	return out, nil
}

func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, &domain.ConfigError{Field: key, Msg: fmt.Sprintf("invalid duration %q", raw)}
	}
	return d, nil
}

func boolValue(v *viper.Viper, key string) (bool, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &domain.ConfigError{Field: key, Msg: fmt.Sprintf("invalid boolean %q", raw)}
	}
	return b, nil
}
