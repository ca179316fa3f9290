// Package store is the document-store client. Records come back as
// loosely-typed maps; shaping and validation belong to the callers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/roofix-au/siteserver/internal/config"
)

const (
	defaultRetryWaitMin = 250 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
	defaultRetryMax     = 2
)

// ErrNotFound is returned by Document when no document exists under the id.
var ErrNotFound = errors.New("document not found")

// Record is one loosely-typed document as the store returns it.
type Record map[string]any

// ID returns the record's identifier field, empty when absent.
func (r Record) ID() string {
	s, _ := r["_id"].(string)
	return s
}

type Store interface {
	// Collection reads every record of a named collection.
	Collection(ctx context.Context, name string) ([]Record, error)
	// Document reads one document by id. Missing documents are ErrNotFound.
	Document(ctx context.Context, id string) (Record, error)
	// PutDocument replaces the document under id wholesale.
	PutDocument(ctx context.Context, id string, doc Record) error
}

// Client talks to the managed document store over its JSON REST API.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	token   string
}

func New(cfg *config.StoreCfg, logger *slog.Logger) *Client {
	inner := &http.Client{
		Transport: cleanhttp.DefaultPooledTransport(),
		Timeout:   cfg.Timeout.Std(),
	}

	retry := &retryablehttp.Client{
		HTTPClient:   inner,
		Logger:       slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
		RetryWaitMin: defaultRetryWaitMin,
		RetryWaitMax: defaultRetryWaitMax,
		RetryMax:     defaultRetryMax,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
	}

	return &Client{http: retry, baseURL: cfg.BaseURL, token: cfg.Token}
}

func (c *Client) Collection(ctx context.Context, name string) ([]Record, error) {
	var body struct {
		Records []Record `json:"records"`
	}
	endpoint := c.baseURL + "/collections/" + url.PathEscape(name)
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, fmt.Errorf("read collection %q: %w", name, err)
	}
	return body.Records, nil
}

func (c *Client) Document(ctx context.Context, id string) (Record, error) {
	var doc Record
	endpoint := c.baseURL + "/documents/" + url.PathEscape(id)
	if err := c.getJSON(ctx, endpoint, &doc); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read document %q: %w", id, err)
	}
	return doc, nil
}

func (c *Client) PutDocument(ctx context.Context, id string, doc Record) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %q: %w", id, err)
	}

	endpoint := c.baseURL + "/documents/" + url.PathEscape(id)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, endpoint, payload)
	if err != nil {
		return fmt.Errorf("build put request for %q: %w", id, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("put document %q: %w", id, err)
	}
	defer drain(resp)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("put document %q: unexpected status %d", id, resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode/100 != 2:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *retryablehttp.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// drain empties the body so the pooled transport can reuse the connection.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
