// Package notify delivers reminder notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Notification is one reminder ready to be delivered
type Notification struct {
	RuleID      string    `json:"rule_id"`
	EventID     string    `json:"event_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ReleaseDate string    `json:"release_date"`
	TriggerAt   time.Time `json:"trigger_at"`
}

// Notifier delivers a notification
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// LogNotifier writes notifications to the log
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification
func (n *LogNotifier) Notify(ctx context.Context, note Notification) error {
	n.logger.WithFields(logrus.Fields{
		"rule":         note.RuleID,
		"event":        note.EventID,
		"release_date": note.ReleaseDate,
	}).Infof("Reminder: %s - %s", note.Title, note.Body)
	return nil
}

// WebhookNotifier posts notifications as JSON
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	maxRetries uint64
	logger     *logrus.Logger
}

// NewWebhookNotifier creates a new webhook notifier posting to url
func NewWebhookNotifier(url string, logger *logrus.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		logger:     logger,
	}
}

// Notify posts note, retrying server errors with exponential backoff
func (n *WebhookNotifier) Notify(ctx context.Context, note Notification) error {
	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to post notification: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), n.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return err
	}

	n.logger.WithFields(logrus.Fields{
		"rule":  note.RuleID,
		"event": note.EventID,
	}).Debug("Reminder delivered to webhook")
	return nil
}

// Multi fans a notification out to several notifiers
type Multi []Notifier

// Notify delivers to every notifier and returns the first error
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(ctx, note); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
