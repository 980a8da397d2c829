// Package notify delivers trend alerts to a Slack incoming webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/trendlens/trendlens/pkg/logger"
	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/pkg/utils"
)

// ErrNoWebhook is returned when sending without a configured webhook URL.
var ErrNoWebhook = errors.New("notify: no webhook URL configured")

// Notifier posts messages to a Slack-compatible webhook. With DryRun
// set it logs the messages instead of sending them.
type Notifier struct {
	rest       *resty.Client
	webhookURL string
	dryRun     bool
}

// Option configures the notifier.
type Option func(*Notifier)

// WithDryRun logs messages instead of delivering them.
func WithDryRun(dry bool) Option {
	return func(n *Notifier) { n.dryRun = dry }
}

// WithHTTPClient overrides the underlying HTTP client (used in tests).
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) { n.rest = resty.NewWithClient(client) }
}

// New creates a notifier for the given webhook URL. An empty URL is
// allowed; Send then fails with ErrNoWebhook unless dry-run is on.
func New(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{
		rest:       resty.New().SetTimeout(15 * time.Second),
		webhookURL: webhookURL,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send posts a single text message to the webhook.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if n.dryRun {
		logger.WithField("message", text).Info("dry run, skipping slack delivery")
		return nil
	}
	if n.webhookURL == "" {
		return ErrNoWebhook
	}

	resp, err := n.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text}).
		Post(n.webhookURL)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("notify: slack HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SendAlerts formats and delivers one message per alert.
func (n *Notifier) SendAlerts(ctx context.Context, alerts []models.Alert) error {
	for _, alert := range alerts {
		if err := n.Send(ctx, FormatAlert(alert)); err != nil {
			return err
		}
	}
	return nil
}

// FormatAlert renders one alert as a Slack-friendly message with a
// direction arrow on the monthly change.
func FormatAlert(alert models.Alert) string {
	arrow := "📈"
	if alert.PctChangeMonth < 0 {
		arrow = "📉"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s Keyword Alert: `%s`*\n", arrow, alert.Keyword)
	fmt.Fprintf(&b, "> Monthly Change: *%s*\n", utils.FormatPct(alert.PctChangeMonth))
	fmt.Fprintf(&b, "> 3-Month Change: *%s*\n", utils.FormatPct(alert.PctChange3Mo))
	fmt.Fprintf(&b, "> Historical Avg Volume: *%s*", utils.FormatVolume(alert.HistoricalAverage))
	return b.String()
}
