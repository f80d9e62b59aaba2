package customize

import "sync"

// Store holds customization configs keyed by "entityType:mode". Registration
// is whole-key last-write-wins: re-registering replaces the prior config
// without merging.
//
// The store is a constructor-built value passed into the form engine rather
// than ambient package state, but a Default store is provided for
// register-at-bootstrap call sites.
type Store struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

// NewStore returns an empty customization store.
func NewStore() *Store {
	return &Store{configs: make(map[string]*Config)}
}

// Default is the process-wide store used by the package-level registration
// helpers.
var Default = NewStore()

// Register stores a customization config for an entity type and mode,
// replacing any prior registration under the same key.
func (s *Store) Register(entityType string, mode Mode, cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[key(entityType, mode)] = cfg
}

// Lookup returns the config registered for an entity type and mode.
func (s *Store) Lookup(entityType string, mode Mode) (*Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[key(entityType, mode)]
	return cfg, ok
}

// Register stores a config in the Default store.
func Register(entityType string, mode Mode, cfg *Config) {
	Default.Register(entityType, mode, cfg)
}

// Lookup reads a config from the Default store.
func Lookup(entityType string, mode Mode) (*Config, bool) {
	return Default.Lookup(entityType, mode)
}

func key(entityType string, mode Mode) string {
	return entityType + ":" + string(mode)
}
