package rebuild

import (
	"fmt"

	"github.com/hsarchitect/folio/config"
)

// NewTrigger builds the trigger for the configured strategy.
func NewTrigger(cfg *config.Rebuild) (Trigger, error) {
	switch cfg.Strategy {
	case "github":
		return NewGithub(cfg.Github, nil)
	case "cloudflare":
		return NewCloudflare(cfg.Cloudflare)
	case "noop", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown rebuild strategy: %s", cfg.Strategy)
	}
}
