// Package alert pushes feed-outage notifications through ntfy.
package alert

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds ntfy notification configuration.
type Config struct {
	Enabled          bool   `mapstructure:"enabled"`
	Server           string `mapstructure:"server"`
	Topic            string `mapstructure:"topic"`
	Priority         string `mapstructure:"priority"`
	Token            string `mapstructure:"token"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
}

// Notifier sends an outage notification once the consecutive poll failure
// streak reaches the configured threshold, and a recovery notification on
// the first successful poll afterwards. Notification errors are logged and
// never propagate; alerting must not affect the poll loop.
type Notifier struct {
	httpClient *http.Client
	config     *Config
	logger     *zap.Logger

	// Touched only from the poller goroutine.
	down bool
}

// New creates an ntfy notifier. A disabled config yields a notifier whose
// calls are no-ops.
func New(cfg *Config, logger *zap.Logger) *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// PollFailed records one failed poll tick. Fires a notification exactly when
// the streak hits the threshold.
func (n *Notifier) PollFailed(ctx context.Context, streak int, err error) {
	if !n.config.Enabled || n.down || streak < n.config.FailureThreshold {
		return
	}
	n.down = true

	title := "Score feed outage"
	message := fmt.Sprintf("Live events poll failed %d times in a row: %v", streak, err)

	if sendErr := n.send(ctx, title, message, "rotating_light", "high"); sendErr != nil {
		n.logger.Warn("failed to send outage notification", zap.Error(sendErr))
	}
}

// Recovered fires after a successful poll ends an outage.
func (n *Notifier) Recovered(ctx context.Context, downFor time.Duration) {
	if !n.config.Enabled || !n.down {
		return
	}
	n.down = false

	title := "Score feed recovered"
	message := fmt.Sprintf("Live events poll recovered after %s", downFor.Round(time.Second))

	if sendErr := n.send(ctx, title, message, "white_check_mark", n.config.Priority); sendErr != nil {
		n.logger.Warn("failed to send recovery notification", zap.Error(sendErr))
	}
}

func (n *Notifier) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(n.config.Server, "/"), n.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if n.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.config.Token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	n.logger.Debug("notification sent", zap.String("title", title))
	return nil
}
