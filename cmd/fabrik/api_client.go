package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// apiClient is the shared HTTP client with timeout.
var apiClient = &http.Client{
	Timeout: DefaultClientTimeout,
}

// apiGet performs a GET request to the API with timeout.
func apiGet(path string) ([]byte, error) {
	resp, err := apiClient.Get(apiAddr + path)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()
	return readResponse(resp)
}

// apiPost performs a POST request with a JSON body. A nil body sends none.
func apiPost(path string, data interface{}) ([]byte, error) {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(jsonData)
	}
	return apiPostRaw(path, "application/json", body)
}

// apiPostRaw performs a POST request with a pre-encoded body.
func apiPostRaw(path, contentType string, body io.Reader) ([]byte, error) {
	resp, err := apiClient.Post(apiAddr+path, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()
	return readResponse(resp)
}

func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	return body, nil
}

// CheckHealth checks if the daemon is healthy and returns the health response.
// Unlike other API calls, this returns the parsed HealthResponse even on non-200
// responses, allowing callers to inspect the health payload alongside the error.
func CheckHealth() (*HealthResponse, error) {
	resp, err := apiClient.Get(apiAddr + "/health")
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}

	// Return both payload and error on non-200 status
	if resp.StatusCode != http.StatusOK {
		return &health, fmt.Errorf("health check failed (status %d): %s", resp.StatusCode, string(body))
	}

	return &health, nil
}

// HealthResponse matches the server's health response structure.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Driver  string `json:"driver"`
	Version string `json:"version"`
	Time    string `json:"time"`
}
