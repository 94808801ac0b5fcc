package features

import (
	"fmt"
	"sort"
	"sync"

	"github.com/acousticlab/featex/logging"
)

// Factory builds an extractor from a generic config mapping, as
// produced by the framework's persistence layer. A nil map selects the
// extractor's defaults.
type Factory func(config map[string]any) (Extractor, error)

// Registry maps extractor names to factories so the surrounding
// framework can instantiate extractors by name. Registration is
// explicit: there are no import-time side effects.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    logging.Logger
}

// NewRegistry creates a registry pre-populated with the builtin
// extractors.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		logger: logging.WithFields(logging.Fields{
			"component": "extractor_registry",
		}),
	}

	// Builtins. Register is infallible on a fresh map.
	_ = r.Register(WhisperFbankName, func(config map[string]any) (Extractor, error) {
		cfg := DefaultWhisperFbankConfig()
		if config != nil {
			var err error
			cfg, err = WhisperFbankConfigFromMap(config)
			if err != nil {
				return nil, err
			}
		}
		return NewWhisperFbank(&cfg)
	})

	return r
}

// Register adds a factory under the given name. Registering a name
// twice is an error, to catch accidental collisions between
// extractors.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("extractor name must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for extractor %q must not be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("extractor %q is already registered", name)
	}
	r.factories[name] = factory

	r.logger.Debug("registered feature extractor", logging.Fields{
		"name": name,
	})
	return nil
}

// Create instantiates the named extractor with the given config
// mapping.
func (r *Registry) Create(name string, config map[string]any) (Extractor, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown feature extractor %q (registered: %v)", name, r.Names())
	}
	return factory(config)
}

// Names returns the registered extractor names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
