package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// OutcomeStatus classifies one delivery attempt.
type OutcomeStatus string

const (
	StatusSent       OutcomeStatus = "sent"
	StatusNoURL      OutcomeStatus = "skipped-no-url"
	StatusInvalidURL OutcomeStatus = "skipped-invalid-url"
	StatusSendError  OutcomeStatus = "send-error"
)

// Outcome is the result of one channel delivery. Send never returns a Go
// error: validation and transport failures are folded in here so that a
// failed notification cannot abort state persistence or audit logging.
type Outcome struct {
	Channel string
	Status  OutcomeStatus
	Err     string
}

// Summary renders the outcome as one audit-row line.
func (o Outcome) Summary() string {
	if o.Err == "" {
		return fmt.Sprintf("%s: %s", o.Channel, o.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", o.Channel, o.Status, o.Err)
}

// allowedPrefixes are the webhook endpoints the notifier will POST to.
// Anything else is skipped without network I/O.
var allowedPrefixes = []string{
	"https://discord.com/api/webhooks/",
	"https://discordapp.com/api/webhooks/",
}

// ValidWebhookURL reports whether rawURL points at a Discord webhook
// endpoint.
func ValidWebhookURL(rawURL string) bool {
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(rawURL, p) {
			return true
		}
	}
	return false
}

// Notifier delivers composed messages to Discord webhooks.
type Notifier struct {
	client *http.Client
	logger *slog.Logger
}

// NewNotifier creates a Notifier. client may be nil, in which case a client
// with a 15s timeout is used.
func NewNotifier(client *http.Client, logger *slog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, logger: logger}
}

// Send posts content to webhookURL as a Discord message. An unconfigured or
// non-Discord URL is a skip, not an error — the relay keeps running in
// degraded mode when a channel is not set up. Transport failures and non-2xx
// responses are folded into a send-error outcome.
func (n *Notifier) Send(ctx context.Context, channel, webhookURL, content string) Outcome {
	if webhookURL == "" {
		n.logger.Info("notify: channel not configured, skipping", "channel", channel)
		return Outcome{Channel: channel, Status: StatusNoURL}
	}
	if !ValidWebhookURL(webhookURL) {
		n.logger.Warn("notify: webhook url is not a discord endpoint, skipping", "channel", channel)
		return Outcome{Channel: channel, Status: StatusInvalidURL}
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return Outcome{Channel: channel, Status: StatusSendError, Err: fmt.Sprintf("marshal payload: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{Channel: channel, Status: StatusSendError, Err: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notify: send failed", "channel", channel, "error", err)
		return Outcome{Channel: channel, Status: StatusSendError, Err: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		n.logger.Warn("notify: webhook rejected message", "channel", channel, "status", resp.StatusCode)
		return Outcome{Channel: channel, Status: StatusSendError, Err: fmt.Sprintf("webhook returned %d", resp.StatusCode)}
	}

	n.logger.Info("notify: sent", "channel", channel)
	return Outcome{Channel: channel, Status: StatusSent}
}
