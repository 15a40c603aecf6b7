package mediamtx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/smazurov/rtspcam/internal/logging"
	"github.com/smazurov/rtspcam/internal/version"
)

// Client is an HTTP client for the MediaMTX control API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// PathInfo represents information about a MediaMTX path
type PathInfo struct {
	Name   string `json:"name"`
	Source *struct {
		Type string `json:"type"`
	} `json:"source"`
	Ready   bool  `json:"ready"`
	Readers []any `json:"readers"`
}

// PathListResponse represents the response from the paths list endpoint
type PathListResponse struct {
	ItemCount int         `json:"itemCount"`
	Items     []*PathInfo `json:"items"`
}

// ErrPathNotFound is returned by Path when the server does not know the path.
var ErrPathNotFound = errors.New("path not found")

// NewClient creates a new MediaMTX API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logging.GetLogger("mediamtx"),
	}
}

// ListPaths returns all paths currently in MediaMTX
func (c *Client) ListPaths(ctx context.Context) ([]*PathInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v3/paths/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list paths: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list paths, status: %d", resp.StatusCode)
	}

	var pathList PathListResponse
	if err := json.NewDecoder(resp.Body).Decode(&pathList); err != nil {
		return nil, fmt.Errorf("failed to decode path list: %w", err)
	}
	return pathList.Items, nil
}

// Path returns the state of a single path.
func (c *Client) Path(ctx context.Context, name string) (*PathInfo, error) {
	paths, err := c.ListPaths(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if p.Name == name {
			return p, nil
		}
	}
	c.logger.Debug("Path not reported by MediaMTX", "path", name, "known", len(paths))
	return nil, ErrPathNotFound
}
