package destinations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Adda-Baaj/note-syndicator/internal/configfile"
	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/internal/logger"
)

const (
	// Supported destination types.
	TypeWordPress = "wordpress"
)

// Logger is the logging surface used by destination clients.
type Logger = logger.Logger

// Client talks to one destination. Instances never share credentials or state.
type Client interface {
	Name() string
	FindByTitle(ctx context.Context, title string) ([]PostSummary, error)
	DuplicateExists(ctx context.Context, title string) (bool, error)
	PublishDraft(ctx context.Context, title string, doc domain.BlockDocument) (domain.PublishOutcome, error)
}

// PostSummary is one entry of a destination's post search.
type PostSummary struct {
	ID     int64         `json:"id"`
	Link   string        `json:"link"`
	Status string        `json:"status"`
	Title  RenderedField `json:"title"`
}

// RenderedField mirrors the REST API's {"rendered": "..."} objects.
type RenderedField struct {
	Rendered string `json:"rendered"`
}

// configFile represents the structure of the destinations configuration file.
type configFile struct {
	Destinations []DestinationConfig `json:"destinations" yaml:"destinations"`
}

// DestinationConfig represents a single destination entry from env or file.
type DestinationConfig struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Enabled    *bool  `json:"enabled" yaml:"enabled"`
	URL        string `json:"url" yaml:"url"`
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"password" yaml:"password"`
	CategoryID *int64 `json:"category_id" yaml:"category_id"`
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg DestinationConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// Destination converts the entry into the domain record.
func (cfg DestinationConfig) Destination() domain.Destination {
	return domain.Destination{
		Name:       cfg.Name,
		Type:       cfg.Type,
		BaseURL:    cfg.URL,
		Username:   cfg.Username,
		Password:   cfg.Password,
		CategoryID: cfg.CategoryID,
	}
}

// ConfigRegistry holds the ordered, validated destination entries.
type ConfigRegistry struct {
	destinations []DestinationConfig
}

// NewConfigRegistry sanitizes and validates cfgs, keeping their order.
func NewConfigRegistry(cfgs []DestinationConfig) (*ConfigRegistry, error) {
	reg := &ConfigRegistry{destinations: make([]DestinationConfig, 0, len(cfgs))}
	seen := make(map[string]struct{}, len(cfgs))
	for i := range cfgs {
		cfg := sanitizeDestinationConfig(cfgs[i])
		if err := validateDestinationConfig(cfg); err != nil {
			return nil, fmt.Errorf("destinations[%d]: %w", i, err)
		}
		if _, exists := seen[cfg.Name]; exists {
			return nil, fmt.Errorf("duplicate destination name %q", cfg.Name)
		}
		seen[cfg.Name] = struct{}{}
		reg.destinations = append(reg.destinations, cfg)
	}
	return reg, nil
}

// LoadFile reads destination entries from a YAML/JSON file. ${VAR} references
// are expanded from the environment so secrets can stay out of the file.
func LoadFile(path string) ([]DestinationConfig, error) {
	var file configFile
	if err := configfile.Decode(path, &file); err != nil {
		return nil, fmt.Errorf("destinations file: %w", err)
	}
	if len(file.Destinations) == 0 {
		return nil, errors.New("destinations file contains no destinations entries")
	}
	return file.Destinations, nil
}

// sanitizeDestinationConfig trims and normalizes the destination fields.
func sanitizeDestinationConfig(cfg DestinationConfig) DestinationConfig {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Type == "" {
		cfg.Type = TypeWordPress
	}
	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	if cfg.Name == "" && cfg.URL != "" {
		cfg.Name = cfg.URL
	}
	return cfg
}

// validateDestinationConfig checks that required fields are present.
// Missing credentials are allowed; the site fails at publish time instead.
func validateDestinationConfig(cfg DestinationConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("url is required for destination %q", cfg.Name)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url %q is not absolute for destination %q", cfg.URL, cfg.Name)
	}
	switch cfg.Type {
	case TypeWordPress:
	default:
		return fmt.Errorf("type %q not supported for destination %q", cfg.Type, cfg.Name)
	}
	if cfg.CategoryID != nil && *cfg.CategoryID <= 0 {
		return fmt.Errorf("category_id must be positive for destination %q", cfg.Name)
	}
	return nil
}

// All returns all configured destinations in order.
func (r *ConfigRegistry) All() []DestinationConfig {
	if r == nil {
		return nil
	}

	out := make([]DestinationConfig, len(r.destinations))
	copy(out, r.destinations)
	return out
}

// Enabled returns destinations that are enabled, in configured order.
func (r *ConfigRegistry) Enabled() []DestinationConfig {
	if r == nil {
		return nil
	}

	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]DestinationConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}
