package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPClient fetches observations from an HTTP market data provider.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a provider client for the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchObservations implements Client.FetchObservations against the
// provider's top-instruments endpoint.
func (c *HTTPClient) FetchObservations(ctx context.Context, count int) ([]Observation, error) {
	u, err := url.Parse(c.baseURL + "/v1/instruments/top")
	if err != nil {
		return nil, fmt.Errorf("provider url: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(count))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var observations []Observation
	if err := json.NewDecoder(resp.Body).Decode(&observations); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	return observations, nil
}
