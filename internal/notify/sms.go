package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(ctx context.Context, phone, text string) error
}

type smsPayload struct {
	PhoneNumber string `json:"phoneNumber"`
	Text        string `json:"text"`
}

// GatewaySMS posts messages to an HTTP SMS gateway.
type GatewaySMS struct {
	url    string
	client *retryablehttp.Client
	logger *zap.Logger
}

// NewGatewaySMS builds a sender for url. retryMax bounds retries on
// connection errors and 5xx responses.
func NewGatewaySMS(url string, timeout time.Duration, retryMax int, logger *zap.Logger) *GatewaySMS {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sms")

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = retryLogger{logger}
	if timeout > 0 {
		client.HTTPClient.Timeout = timeout
	}
	// Hand the last response back instead of a generic "giving up" error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &GatewaySMS{url: url, client: client, logger: logger}
}

// Send posts {"phoneNumber","text"}. Non-2xx answers are errors carrying status and body.
func (s *GatewaySMS) Send(ctx context.Context, phone, text string) error {
	body, err := json.Marshal(smsPayload{PhoneNumber: phone, Text: text})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(detail))
	}

	s.logger.Debug("sms sent", zap.String("phone", phone))
	return nil
}

// LogSMS logs instead of sending. It is used when no gateway is configured.
type LogSMS struct {
	logger *zap.Logger
}

// NewLogSMS creates a logging SMS sender.
func NewLogSMS(logger *zap.Logger) *LogSMS {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSMS{logger: logger.Named("sms")}
}

// Send records that a message would have been sent.
func (s *LogSMS) Send(_ context.Context, phone, _ string) error {
	s.logger.Warn("sms gateway not configured, message skipped", zap.String("phone", phone))
	return nil
}

// retryLogger adapts zap to retryablehttp.LeveledLogger.
type retryLogger struct {
	l *zap.Logger
}

func (r retryLogger) Error(msg string, kv ...interface{}) { r.l.Error(msg, fields(kv)...) }
func (r retryLogger) Warn(msg string, kv ...interface{})  { r.l.Warn(msg, fields(kv)...) }
func (r retryLogger) Info(msg string, kv ...interface{})  { r.l.Debug(msg, fields(kv)...) }
func (r retryLogger) Debug(msg string, kv ...interface{}) { r.l.Debug(msg, fields(kv)...) }

func fields(kv []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, zap.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
