// Package http delivers batches to a webhook.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// Request headers set on every delivery.
const (
	HeaderSubject  = "X-Logship-Subject"
	HeaderBatch    = "X-Logship-Batch"
	HeaderSentAt   = "X-Logship-Sent-At"
	HeaderHostname = "X-Agent-Hostname"
	HeaderOSArch   = "X-Agent-OSArch"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// WebhookConfig configures a WebhookSender.
type WebhookConfig struct {
	URL   string
	Token string

	// Hostname identifies this process to the receiver.
	Hostname string

	// Compress sends the body zstd-encoded with Content-Encoding: zstd.
	Compress bool
}

// WebhookSender implements ports.Transport as an HTTP POST of the batch text.
type WebhookSender struct {
	cfg    WebhookConfig
	client ports.HTTPClient
	logger ports.Logger
}

var _ ports.Transport = (*WebhookSender)(nil)

// NewWebhookSender creates a webhook transport using client.
func NewWebhookSender(cfg WebhookConfig, client ports.HTTPClient, logger ports.Logger) *WebhookSender {
	return &WebhookSender{
		cfg:    cfg,
		client: client,
		logger: log.Named(logger, "webhook"),
	}
}

// Send posts msg.Body. Any non-2xx status is an error.
func (s *WebhookSender) Send(ctx context.Context, msg domain.Message) error {
	body := []byte(msg.Body)
	if s.cfg.Compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		body = enc.EncodeAll(body, nil)
		enc.Close()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if s.cfg.Compress {
		req.Header.Set("Content-Encoding", "zstd")
	}
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	req.Header.Set(HeaderSubject, msg.Subject)
	req.Header.Set(HeaderBatch, msg.ID)
	if !msg.SentAt.IsZero() {
		req.Header.Set(HeaderSentAt, msg.SentAt.UTC().Format(time.RFC3339))
	}
	req.Header.Set(HeaderHostname, s.cfg.Hostname)
	req.Header.Set(HeaderOSArch, runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	s.logger.Debug("Batch posted",
		ports.String("batch", msg.ID),
		ports.Int("bytes", len(body)),
		ports.Int("status", resp.StatusCode),
	)
	return nil
}
