package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNotRunning is returned when nothing answers at the daemon address.
var ErrNotRunning = errors.New("daemon not running")

// Client queries a running daemon over its HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for addr, which may be host:port or a full URL.
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: 2 * time.Second},
	}
}

// URL returns the absolute URL of an API path.
func (c *Client) URL(path string) string {
	return c.base + path
}

// Status fetches /v1/status. A refused or timed out connection yields
// ErrNotRunning.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL("/v1/status"), nil)
	if err != nil {
		return st, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return st, fmt.Errorf("%w at %s: %v", ErrNotRunning, c.base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("daemon status: HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode daemon status: %w", err)
	}
	return st, nil
}

// WaitLoaded polls the status endpoint until the first load attempt has
// finished, successfully or not, or ctx is done.
func (c *Client) WaitLoaded(ctx context.Context, every time.Duration) (Status, error) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		st, err := c.Status(ctx)
		if err == nil && (st.Loaded || st.LastError != "") {
			return st, nil
		}
		if err != nil && !errors.Is(err, ErrNotRunning) {
			return st, err
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-tick.C:
		}
	}
}
