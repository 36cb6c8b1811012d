package factory

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/storage/objects"
	"github.com/hsarchitect/folio/storage/objects/filesystem"
	"github.com/hsarchitect/folio/storage/objects/s3"
)

// Factory builds an object store for the provided media config.
type Factory func(*config.Media) (objects.Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces an object store factory for the given strategy name.
func Register(strategy string, factory Factory) {
	mu.Lock()
	registry[strategy] = factory
	mu.Unlock()
}

// Get retrieves a factory for the given strategy.
func Get(strategy string) (Factory, bool) {
	mu.RLock()
	f, ok := registry[strategy]
	mu.RUnlock()
	return f, ok
}

// Strategies lists the registered strategy names in order.
func Strategies() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds the object store for the configured strategy. The public base URL
// every media URL is joined onto is checked and normalized before the store sees it.
func Create(cfg *config.Media) (objects.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("media config is nil")
	}

	f, ok := Get(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown media strategy %q (registered: %s)", cfg.Strategy, strings.Join(Strategies(), ", "))
	}

	base, err := PublicBase(cfg.PublicBaseUrl)
	if err != nil {
		return nil, err
	}

	resolved := *cfg
	resolved.PublicBaseUrl = base

	store, err := f(&resolved)
	if err != nil {
		return nil, fmt.Errorf("media strategy %q: %w", cfg.Strategy, err)
	}
	return store, nil
}

// PublicBase validates a public media base URL. An empty value is allowed; anything
// else must be an absolute http(s) URL without query or fragment.
func PublicBase(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid media public_base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("media public_base_url %q must be an absolute http(s) URL", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("media public_base_url %q must not carry a query or fragment", raw)
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func init() {
	Register("noop", func(cfg *config.Media) (objects.Store, error) {
		return &objects.NoopStore{BaseURL: cfg.PublicBaseUrl}, nil
	})
	Register("s3", func(cfg *config.Media) (objects.Store, error) {
		return s3.NewStore(cfg)
	})
	Register("filesystem", func(cfg *config.Media) (objects.Store, error) {
		return filesystem.NewStore(cfg)
	})
}
