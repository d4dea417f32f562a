package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Place is one geocoding suggestion.
type Place struct {
	DisplayName string  `json:"displayName"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// GeocodeClient queries a Nominatim-compatible search endpoint.
type GeocodeClient struct {
	baseURL string
	http    *http.Client
}

// NewGeocodeClient creates a client for the given endpoint.
func NewGeocodeClient(baseURL string, timeout time.Duration) *GeocodeClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GeocodeClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// nominatimResult mirrors the fields we use from the API. Coordinates come
// back as strings.
type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search returns address suggestions for a free-form query.
func (c *GeocodeClient) Search(ctx context.Context, query string) ([]Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", "supportme-server")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read geocode response: %w", err)
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to parse geocode response: %w", err)
	}

	places := make([]Place, 0, len(results))
	for _, r := range results {
		lat, _ := strconv.ParseFloat(r.Lat, 64)
		lon, _ := strconv.ParseFloat(r.Lon, 64)
		places = append(places, Place{
			DisplayName: r.DisplayName,
			Lat:         lat,
			Lon:         lon,
		})
	}

	return places, nil
}
