package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vidyalay/vidyalay-api/pkg/config"
)

// Sender delivers a single SMS message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Normalize prefixes the configured country code when the number lacks one.
// Empty input stays empty so callers can treat it as "no contact on file".
func Normalize(number, countryCode string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	if strings.HasPrefix(number, "+") {
		return number
	}
	return countryCode + number
}

// NewFromConfig selects a sender implementation based on configuration.
func NewFromConfig(cfg config.SMSConfig, logger *zap.Logger) Sender {
	if cfg.Provider == "twilio" {
		return NewTwilioSender(cfg)
	}
	return NewLogSender(logger)
}

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioSender posts messages to the Twilio Messages REST API.
type TwilioSender struct {
	client     *http.Client
	accountSID string
	authToken  string
	from       string
}

// NewTwilioSender builds a Twilio-backed sender.
func NewTwilioSender(cfg config.SMSConfig) *TwilioSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwilioSender{
		client:     &http.Client{Timeout: timeout},
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
	}
}

// Send delivers the message, returning an error on any non-2xx response.
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPIBase, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio responded %d: %s", resp.StatusCode, string(payload))
	}
	return nil
}

// LogSender writes messages to the application log instead of sending them.
// Used in development and test environments.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and always succeeds.
func (s *LogSender) Send(_ context.Context, to, body string) error {
	s.logger.Info("sms", zap.String("to", to), zap.String("body", body))
	return nil
}
