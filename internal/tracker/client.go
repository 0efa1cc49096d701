package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mediapull/internal/domain"
)

type Config struct {
	BaseURL string
	APIUser string
	APIKey  string
	Timeout time.Duration
	Logger  *logrus.Logger
}

// Client talks to the production tracker's REST API: version lookup,
// component listing and download locator resolution. Every request carries
// the API key headers.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// VersionQuery narrows the version lookup. IDs wins over project/shot when
// both are given.
type VersionQuery struct {
	Project string
	Shot    string
	IDs     []string
}

type versionPayload struct {
	ID     string `json:"id"`
	Parent string `json:"parent"`
	Asset  string `json:"asset"`
	Number int    `json:"version"`
}

type componentPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
}

type locatorPayload struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

func (c *Client) FetchVersions(ctx context.Context, q VersionQuery) ([]domain.Version, error) {
	query := url.Values{}
	if len(q.IDs) > 0 {
		query.Set("ids", strings.Join(q.IDs, ","))
	} else {
		if q.Project != "" {
			query.Set("project", q.Project)
		}
		if q.Shot != "" {
			query.Set("shot", q.Shot)
		}
	}

	var payload []versionPayload
	if err := c.getJSON(ctx, "/api/versions", query, &payload); err != nil {
		return nil, err
	}

	versions := make([]domain.Version, len(payload))
	for i, p := range payload {
		versions[i] = domain.Version{
			ID:     p.ID,
			Parent: p.Parent,
			Asset:  p.Asset,
			Number: p.Number,
		}
	}
	return versions, nil
}

func (c *Client) FetchComponents(ctx context.Context, versionID string) ([]domain.Component, error) {
	var payload []componentPayload
	path := fmt.Sprintf("/api/versions/%s/components", url.PathEscape(versionID))
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return nil, err
	}

	comps := make([]domain.Component, len(payload))
	for i, p := range payload {
		comps[i] = domain.Component{
			ID:        p.ID,
			Name:      p.Name,
			FileType:  p.FileType,
			Size:      p.Size,
			VersionID: versionID,
		}
	}
	return comps, nil
}

// ResolveDownloadURL returns the source locator for a component together
// with any headers the transfer must send along.
func (c *Client) ResolveDownloadURL(ctx context.Context, componentID string) (string, map[string]string, error) {
	var payload locatorPayload
	path := fmt.Sprintf("/api/components/%s/download-url", url.PathEscape(componentID))
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return "", nil, err
	}
	if payload.URL == "" {
		return "", nil, fmt.Errorf("tracker returned no download url for component %s", componentID)
	}
	return payload.URL, payload.Headers, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-User", c.cfg.APIUser)
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	c.cfg.Logger.WithField("path", path).Debug("tracker request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tracker responded %d for %s: %s",
			resp.StatusCode, path, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	return nil
}
