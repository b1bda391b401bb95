package selector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sluice/internal/config"
)

// Service resolves the target currently assigned to a lane. An empty name
// means no target is assigned this round. Callers treat errors the same as
// "no target"; they are surfaced only for logging.
type Service interface {
	Select(ctx context.Context, lane int) (string, error)
}

// FromConfig builds the selector the config asks for: a static list when
// selector.targets is set, otherwise the remote HTTP service.
func FromConfig(cfg *config.Config) Service {
	if len(cfg.Selector.Targets) > 0 {
		return NewStatic(cfg.Selector.Targets)
	}
	return NewHTTP(cfg.Selector.BaseURL, time.Duration(cfg.Selector.TimeoutSeconds)*time.Second)
}

// Static assigns a fixed target list to lanes by index.
type Static struct {
	targets []string
}

// NewStatic builds a static selector. Lane i gets targets[i]; lanes beyond
// the list get nothing.
func NewStatic(targets []string) Static {
	cp := make([]string, len(targets))
	copy(cp, targets)
	return Static{targets: cp}
}

func (s Static) Select(_ context.Context, lane int) (string, error) {
	if lane < 0 || lane >= len(s.targets) {
		return "", nil
	}
	return s.targets[lane], nil
}

// HTTPClient queries the remote selection service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTP builds an HTTP selector against the given base URL.
// GET {base}/lanes/{index} returns the target name as plain text, or
// 204/404 when the lane has no assignment.
func NewHTTP(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Select(ctx context.Context, lane int) (string, error) {
	url := fmt.Sprintf("%s/lanes/%d", c.baseURL, lane)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build selector request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("selector request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return "", nil
	default:
		return "", fmt.Errorf("selector returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("read selector response: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

var (
	_ Service = Static{}
	_ Service = (*HTTPClient)(nil)
)
