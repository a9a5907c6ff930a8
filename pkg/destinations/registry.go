package destinations

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Adda-Baaj/note-syndicator/internal/logger"
	"github.com/Adda-Baaj/note-syndicator/pkg/httpclient"
)

// Builder creates a Client from a config entry.
type Builder func(cfg DestinationConfig, deps Deps) (Client, error)

// Deps are the shared collaborators handed to every builder.
type Deps struct {
	HTTP      httpclient.Client
	UserAgent string
	Log       Logger
}

// Registry maps destination types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	ClientFor(cfg DestinationConfig, deps Deps) (Client, error)
}

type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{
		builders: make(map[string]Builder),
	}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// Register associates a builder with a destination type.
func (r *registry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// ClientFor returns the client built for the provided config.
func (r *registry) ClientFor(cfg DestinationConfig, deps Deps) (Client, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("destination %q has no type configured", cfg.Name)
	}

	r.mu.RLock()
	builder := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no destination client registered for type %q", cfg.Type)
	}
	return builder(cfg, deps)
}

// DefaultRegistry wires up known destination types.
func DefaultRegistry() Registry {
	return NewRegistry(map[string]Builder{
		TypeWordPress: newWordPressClient,
	})
}

// BuildAll instantiates clients for cfgs in order.
func BuildAll(reg Registry, cfgs []DestinationConfig, deps Deps) ([]Client, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}
	deps.Log = logger.Ensure(deps.Log)

	clients := make([]Client, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Username == "" || cfg.Password == "" {
			deps.Log.WarnObj("destination has no credentials; publishing will fail", "destination_incomplete", map[string]any{
				"destination":  cfg.Name,
				"has_username": cfg.Username != "",
				"has_password": cfg.Password != "",
			})
		}
		c, err := reg.ClientFor(cfg, deps)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}
