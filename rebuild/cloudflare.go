package rebuild

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudflare/cloudflare-go/v6"
	"github.com/cloudflare/cloudflare-go/v6/option"
	"github.com/cloudflare/cloudflare-go/v6/pages"

	"github.com/hsarchitect/folio/config"
)

// Cloudflare starts a new Cloudflare Pages deployment of the site project.
type Cloudflare struct {
	cfg    *config.CloudflareRebuildStrategy
	client *cloudflare.Client
}

func NewCloudflare(cfg *config.CloudflareRebuildStrategy, extra ...option.RequestOption) (*Cloudflare, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cloudflare rebuild config is nil")
	}

	opts := []option.RequestOption{
		option.WithAPIToken(strings.TrimSpace(cfg.APIToken)),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	opts = append(opts, extra...)

	return &Cloudflare{cfg: cfg, client: cloudflare.NewClient(opts...)}, nil
}

func (c *Cloudflare) Name() string { return "cloudflare" }

func (c *Cloudflare) Trigger(ctx context.Context, _ Request) error {
	params := pages.ProjectDeploymentNewParams{AccountID: cloudflare.F(c.cfg.AccountID)}
	if c.cfg.Branch != "" {
		params.Branch = cloudflare.F(c.cfg.Branch)
	}

	dep, err := c.client.Pages.Projects.Deployments.New(ctx, c.cfg.Project, params)
	if err != nil {
		return fmt.Errorf("pages deployment: %w", err)
	}
	if dep == nil || dep.ID == "" {
		return fmt.Errorf("pages deployment returned no id")
	}

	return nil
}
