package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/internal/httpclient"
	"github.com/heraldai/herald/internal/util"
	"github.com/heraldai/herald/version"
)

// WebhookSender POSTs notifications as JSON to an owner-configured
// URL. The target is chosen by the machine owner, so private and
// loopback addresses are allowed; a LAN automation hub is the typical
// endpoint.
type WebhookSender struct {
	url    string
	client *httpclient.Outbound
	logger *zap.SugaredLogger
}

// NewWebhookSender creates a webhook sender for the given URL.
func NewWebhookSender(url string, timeout time.Duration, log *zap.SugaredLogger) *WebhookSender {
	return &WebhookSender{
		url: url,
		client: httpclient.NewWithOptions(timeout, httpclient.Options{
			BlockPrivateIP: util.Ptr(false),
		}),
		logger: log,
	}
}

// Name returns the channel this sender serves.
func (s *WebhookSender) Name() string { return "webhook" }

// Send posts the notification and treats any 2xx response as
// acceptance.
func (s *WebhookSender) Send(ctx context.Context, n *Notification) error {
	if s.url == "" {
		return errors.New("webhook URL is not configured")
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "failed to encode notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf("webhook returned status %d", resp.StatusCode)
	}

	s.logger.Debugw("Webhook accepted notification",
		"notification_id", n.ID,
		"status", resp.StatusCode)
	return nil
}
