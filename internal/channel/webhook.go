package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Gabo8286/luna-engine/internal/bus"
	"github.com/Gabo8286/luna-engine/internal/config"
)

const webhookChannelName = "webhook"

const webhookSendMaxRetries = 3

type webhookStatusError struct {
	Code int
	Body string
}

func (e *webhookStatusError) Error() string {
	return fmt.Sprintf("webhook endpoint status %d: %s", e.Code, e.Body)
}

// webhookPayload is the JSON body posted to the endpoint.
type webhookPayload struct {
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Priority  string    `json:"priority,omitempty"`
	ChatID    string    `json:"chatId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookChannel is outbound-only: it posts every notification to a
// configured HTTP endpoint. Useful for ntfy, Slack incoming webhooks,
// or any custom receiver.
type WebhookChannel struct {
	BaseChannel
	url        string
	secret     string
	timeout    time.Duration
	httpClient *http.Client
}

func NewWebhookChannel(cfg config.WebhookConfig, b *bus.MessageBus) (*WebhookChannel, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("webhook url is required")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultWebhookTimeout) * time.Second
	}

	return &WebhookChannel{
		BaseChannel: NewBaseChannel(webhookChannelName, b, nil),
		url:         cfg.URL,
		secret:      cfg.Secret,
		timeout:     timeout,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

func (w *WebhookChannel) Start(ctx context.Context) error {
	log.Printf("[webhook] posting notifications to %s", w.url)
	return nil
}

func (w *WebhookChannel) Stop() error {
	log.Printf("[webhook] stopped")
	return nil
}

func (w *WebhookChannel) Send(n bus.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout*webhookSendMaxRetries)
	defer cancel()
	return w.sendWithRetry(ctx, n)
}

func (w *WebhookChannel) sendWithRetry(ctx context.Context, n bus.Notification) error {
	var lastErr error
	for attempt := 1; attempt <= webhookSendMaxRetries; attempt++ {
		err := w.sendOnce(ctx, n)
		if err == nil {
			return nil
		}

		lastErr = err
		if !shouldRetryWebhook(err) || attempt == webhookSendMaxRetries {
			return err
		}

		backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return lastErr
}

func shouldRetryWebhook(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *webhookStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}

	return true
}

func (w *WebhookChannel) sendOnce(ctx context.Context, n bus.Notification) error {
	payload := webhookPayload{
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		Priority:  n.Priority,
		ChatID:    n.ChatID,
		Timestamp: n.Timestamp,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("X-Luna-Secret", w.secret)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook notification: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &webhookStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(raw)),
		}
	}

	return nil
}
