// Package mailer sends lead notifications through the transactional
// email provider's HTTP API.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/roofix-au/siteserver/internal/config"
)

const (
	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 4 * time.Second
	retryMax     = 3
)

// Lead is one contact-form submission.
type Lead struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Service string `json:"service,omitempty"`
	Message string `json:"message"`
}

type Sender interface {
	// SendLead mails the lead to the office inbox. Unlike the public
	// content path, failures propagate: the visitor must know their
	// enquiry did not go through.
	SendLead(ctx context.Context, lead Lead) error
}

type Client struct {
	http     *retryablehttp.Client
	endpoint string
	apiKey   string
	from     string
	to       string
}

func New(cfg *config.MailerCfg, logger *slog.Logger) *Client {
	retry := &retryablehttp.Client{
		HTTPClient: &http.Client{
			Transport: cleanhttp.DefaultPooledTransport(),
			Timeout:   cfg.Timeout.Std(),
		},
		Logger:       slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
		RetryWaitMin: retryWaitMin,
		RetryWaitMax: retryWaitMax,
		RetryMax:     retryMax,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
	}
	return &Client{
		http:     retry,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		to:       cfg.To,
	}
}

func (c *Client) SendLead(ctx context.Context, lead Lead) error {
	payload, err := json.Marshal(map[string]any{
		"from":    c.from,
		"to":      c.to,
		"subject": fmt.Sprintf("New enquiry from %s", lead.Name),
		"reply_to": map[string]string{
			"email": lead.Email,
			"name":  lead.Name,
		},
		"lead": lead,
	})
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, payload)
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send lead mail: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("send lead mail: unexpected status %d", resp.StatusCode)
	}
	return nil
}
