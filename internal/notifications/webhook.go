package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-journal/internal/httputil"
)

const DefaultName = "TradeJournal"

// Sender relays notices to a Slack or Discord webhook. Without a webhook it
// only logs.
type Sender struct {
	webhookURL string
	name       string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        *zap.Logger
}

func NewSender(webhookURL, name string, log *zap.Logger) *Sender {
	if name == "" {
		name = DefaultName
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{
		webhookURL: webhookURL,
		name:       name,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
			Logger:      log,
		},
		log: log,
	}
}

// Notify implements journal.Notifier.
func (s *Sender) Notify(msg string) {
	s.Send(msg)
}

func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.name, msg)
	s.log.Info("notice", zap.String("message", msg))

	if s.webhookURL == "" {
		return
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		s.log.Error("marshal webhook payload", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		s.log.Error("webhook delivery failed", zap.Error(err))
		return
	}
	resp.Body.Close()
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.name,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.name,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
