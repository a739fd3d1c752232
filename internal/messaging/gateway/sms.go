package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadbook/platform/config"
	"leadbook/platform/logger"
)

// SMSSender delivers one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, toPhone, message string) error
}

// SMSClient posts messages to the configured SMS provider.
type SMSClient struct {
	baseURL  string
	apiKey   string
	fromName string
	http     *http.Client
	log      *logger.Logger
}

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// NewSMSClient creates an SMS client. Returns nil when no provider URL is
// configured; a nil client drops messages silently.
func NewSMSClient(cfg config.MessagingConfig, log *logger.Logger) *SMSClient {
	if cfg.GetSMSAPIURL() == "" {
		return nil
	}

	return &SMSClient{
		baseURL:  strings.TrimRight(cfg.GetSMSAPIURL(), "/"),
		apiKey:   cfg.GetSMSAPIKey(),
		fromName: cfg.GetSMSFromName(),
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// SendSMS posts one message to the provider.
func (c *SMSClient) SendSMS(ctx context.Context, toPhone, message string) error {
	if c == nil {
		return nil
	}

	body, err := json.Marshal(smsRequest{
		To:      toPhone,
		From:    c.fromName,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	url := fmt.Sprintf("%s/messages", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("sms sent", "phone", toPhone)
	return nil
}
