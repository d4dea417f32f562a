// Package lookup wraps the external autocomplete APIs the app proxies:
// disease-name search (NLM clinical tables) and address geocoding
// (Nominatim). Both were called straight from the browser in the source
// application; proxying them keeps API keys and rate limits server-side.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Condition is one disease-name suggestion with an optional info link.
type Condition struct {
	Name     string `json:"name"`
	InfoLink string `json:"infoLink,omitempty"`
}

// ConditionsClient queries the NLM clinical-tables conditions API.
//
// The response is a positional JSON array:
//
//	[total, [terms...], null, _, [[link, name]...]]
type ConditionsClient struct {
	baseURL string
	http    *http.Client
}

// NewConditionsClient creates a client for the given endpoint.
func NewConditionsClient(baseURL string, timeout time.Duration) *ConditionsClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ConditionsClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Search returns condition-name suggestions for the given prefix.
func (c *ConditionsClient) Search(ctx context.Context, query string) ([]Condition, error) {
	params := url.Values{}
	params.Set("terms", query)
	params.Set("cf", "info_link_data")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build conditions request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("conditions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("conditions API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read conditions response: %w", err)
	}

	// Positional array: index 1 holds the terms, index 4 the link data.
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse conditions response: %w", err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("unexpected conditions response shape")
	}

	var terms []string
	if err := json.Unmarshal(raw[1], &terms); err != nil {
		return nil, fmt.Errorf("failed to parse condition terms: %w", err)
	}

	links := make(map[string]string)
	if len(raw) >= 5 {
		var linkData [][]string
		if err := json.Unmarshal(raw[4], &linkData); err == nil {
			for _, pair := range linkData {
				if len(pair) >= 2 {
					links[pair[1]] = pair[0]
				}
			}
		}
	}

	conditions := make([]Condition, 0, len(terms))
	for _, term := range terms {
		conditions = append(conditions, Condition{
			Name:     term,
			InfoLink: links[term],
		})
	}

	return conditions, nil
}
