// Package syncer pushes profile snapshots to a remote HTTP endpoint. Saves
// enqueue a job in the SQLite queue; a polling Worker delivers them with
// retry and backoff.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mathblast/mathblast/internal/profile"
)

const requestTimeout = 15 * time.Second

// Snapshot is the body POSTed for each synced profile.
type Snapshot struct {
	Name     string          `json:"name"`
	Profile  profile.Profile `json:"profile"`
	SyncedAt time.Time       `json:"synced_at"`
}

// Client POSTs snapshots to a fixed URL.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a Client targeting url.
func NewClient(url string) *Client {
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Push sends one snapshot. Any non-2xx status is an error.
func (c *Client) Push(ctx context.Context, snap Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "mathblast-sync")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sync request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sync: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
