package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the fabrik API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// Status fetches the workflow snapshot.
func (c *Client) Status() (*engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := c.get("/status", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Totals fetches live and persisted production totals.
func (c *Client) Totals() (*TotalsView, error) {
	var totals TotalsView
	if err := c.get("/totals", &totals); err != nil {
		return nil, err
	}
	return &totals, nil
}

// Audit fetches the most recent audit entries.
func (c *Client) Audit(limit int) ([]models.PDREntry, error) {
	var entries []models.PDREntry
	if err := c.get(fmt.Sprintf("/audit?limit=%d", limit), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Health reports daemon health. An unhealthy daemon still returns a body.
func (c *Client) Health() (*HealthView, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var health HealthView
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Pause suspends the tick driver.
func (c *Client) Pause() error {
	return c.post("/pause")
}

// Resume continues the tick driver.
func (c *Client) Resume() error {
	return c.post("/resume")
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(path string) error {
	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", string(body))
	}
	return nil
}
