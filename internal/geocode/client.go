// Package geocode proxies address-autocomplete queries for the contact
// form, keeping the upstream API key off the client.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/roofix-au/siteserver/internal/config"
)

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Label     string  `json:"label"`
	PlaceID   string  `json:"place_id"`
	Latitude  float64 `json:"lat,omitempty"`
	Longitude float64 `json:"lng,omitempty"`
}

type Suggester interface {
	Suggest(ctx context.Context, query string) ([]Suggestion, error)
}

type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	country  string
}

func New(cfg *config.GeocodeCfg) *Client {
	return &Client{
		http: &http.Client{
			Transport: cleanhttp.DefaultPooledTransport(),
			Timeout:   cfg.Timeout.Std(),
		},
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		country:  cfg.CountryBias,
	}
}

func (c *Client) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("country", c.country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build autocomplete request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("autocomplete query: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("autocomplete query: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode autocomplete response: %w", err)
	}
	return body.Suggestions, nil
}
