// Package delivery defines the outbound message channel and its concrete
// implementations. The engine treats delivery as a best-effort remote call;
// ordinary failures come back as errors, never as panics.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mossline/stockwatch/errors"
	"github.com/sirupsen/logrus"
)

// Channel sends alert text to a single recipient.
type Channel interface {
	Send(ctx context.Context, recipientID, text string) error
}

// WebhookChannel delivers alerts by POSTing JSON to a configured endpoint.
type WebhookChannel struct {
	url    string
	client *http.Client
}

// NewWebhookChannel creates a webhook-backed delivery channel.
func NewWebhookChannel(url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// Send posts the alert. Any network error or non-2xx response is a transient
// delivery failure.
func (c *WebhookChannel) Send(ctx context.Context, recipientID, text string) error {
	start := time.Now()

	body, err := json.Marshal(webhookPayload{Recipient: recipientID, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.DeliveryFailed(recipientID, time.Since(start), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.DeliveryFailed(recipientID, time.Since(start),
			fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}

	return nil
}

// LogChannel writes alerts to the log instead of delivering them. Used for
// dry runs and local development.
type LogChannel struct {
	logger *logrus.Entry
}

// NewLogChannel creates a log-only delivery channel.
func NewLogChannel(logger *logrus.Entry) *LogChannel {
	return &LogChannel{logger: logger}
}

// Send logs the alert and always succeeds.
func (c *LogChannel) Send(ctx context.Context, recipientID, text string) error {
	c.logger.WithField("recipient", recipientID).Infof("Alert:\n%s", text)
	return nil
}
