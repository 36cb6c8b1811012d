package rebuild

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hsarchitect/folio/config"
)

const defaultGithubAPI = "https://api.github.com"

// Github fires a repository_dispatch event that the site's workflow listens for.
type Github struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewGithub(cfg *config.GithubRebuildStrategy, client *http.Client) (*Github, error) {
	if cfg == nil {
		return nil, fmt.Errorf("github rebuild config is nil")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseUrl), "/")
	if base == "" {
		base = defaultGithubAPI
	}

	return &Github{
		endpoint: fmt.Sprintf("%s/repos/%s/%s/dispatches", base, cfg.Owner, cfg.Repo),
		token:    strings.TrimSpace(cfg.Token),
		client:   client,
	}, nil
}

func (g *Github) Name() string { return "github" }

type dispatchPayload struct {
	EventType     string          `json:"event_type"`
	ClientPayload dispatchDetails `json:"client_payload"`
}

type dispatchDetails struct {
	Reason     string  `json:"reason"`
	ProjectIDs []int64 `json:"projectIds"`
}

func (g *Github) Trigger(ctx context.Context, req Request) error {
	body, err := json.Marshal(dispatchPayload{
		EventType:     "rebuild",
		ClientPayload: dispatchDetails{Reason: req.Reason, ProjectIDs: req.IDs},
	})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	httpReq.Header.Set("Authorization", "Bearer "+g.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	res, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("dispatch request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("dispatch returned %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}
