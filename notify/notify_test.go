package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

// fakeTransport routes Discord webhook requests to a canned response without
// touching the network.
type fakeTransport struct {
	status   int
	err      error
	lastBody string
	lastURL  string
}

func (ft *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if ft.err != nil {
		return nil, ft.err
	}
	b, _ := io.ReadAll(req.Body)
	ft.lastBody = string(b)
	ft.lastURL = req.URL.String()
	return &http.Response{
		StatusCode: ft.status,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
	}, nil
}

const testWebhook = "https://discord.com/api/webhooks/123/abc"

func TestSend_NoURL(t *testing.T) {
	// WHAT: An empty URL is a skip outcome, not an error, with no I/O.
	// WHY: Missing configuration is degraded mode; the pipeline continues.
	ft := &fakeTransport{status: 204}
	n := NewNotifier(&http.Client{Transport: ft}, nil)
	oc := n.Send(context.Background(), "status", "", "hello")
	if oc.Status != StatusNoURL {
		t.Errorf("status: got %s", oc.Status)
	}
	if ft.lastURL != "" {
		t.Errorf("unexpected network call to %s", ft.lastURL)
	}
}

func TestSend_InvalidURL(t *testing.T) {
	// WHAT: Non-Discord URLs are skipped before any network I/O.
	// WHY: The notifier only speaks to known webhook endpoints.
	ft := &fakeTransport{status: 204}
	n := NewNotifier(&http.Client{Transport: ft}, nil)
	for _, u := range []string{
		"https://example.com/hook",
		"http://discord.com/api/webhooks/123/abc", // plain http
		"https://discord.com/api/other",
	} {
		oc := n.Send(context.Background(), "status", u, "hello")
		if oc.Status != StatusInvalidURL {
			t.Errorf("%s: got %s", u, oc.Status)
		}
	}
	if ft.lastURL != "" {
		t.Errorf("unexpected network call to %s", ft.lastURL)
	}
}

func TestSend_Success(t *testing.T) {
	// WHAT: A valid URL POSTs {"content": ...} and reports sent.
	ft := &fakeTransport{status: 204}
	n := NewNotifier(&http.Client{Transport: ft}, nil)
	oc := n.Send(context.Background(), "status", testWebhook, "こんにちは")
	if oc.Status != StatusSent {
		t.Fatalf("status: got %s (%s)", oc.Status, oc.Err)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(ft.lastBody), &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["content"] != "こんにちは" {
		t.Errorf("content: got %q", payload["content"])
	}
}

func TestSend_TransportError(t *testing.T) {
	// WHAT: A transport failure is folded into a send-error outcome.
	// WHY: Send never returns a Go error; a failed notification must not
	// abort state persistence or audit logging.
	ft := &fakeTransport{err: fmt.Errorf("connection refused")}
	n := NewNotifier(&http.Client{Transport: ft}, nil)
	oc := n.Send(context.Background(), "liaison", testWebhook, "x")
	if oc.Status != StatusSendError {
		t.Errorf("status: got %s", oc.Status)
	}
	if !strings.Contains(oc.Err, "connection refused") {
		t.Errorf("error text: got %q", oc.Err)
	}
}

func TestSend_HTTPErrorStatus(t *testing.T) {
	ft := &fakeTransport{status: 429}
	n := NewNotifier(&http.Client{Transport: ft}, nil)
	oc := n.Send(context.Background(), "status", testWebhook, "x")
	if oc.Status != StatusSendError {
		t.Errorf("status: got %s", oc.Status)
	}
	if !strings.Contains(oc.Err, "429") {
		t.Errorf("error text: got %q", oc.Err)
	}
}

func TestOutcomeSummary(t *testing.T) {
	oc := Outcome{Channel: "status", Status: StatusSent}
	if got := oc.Summary(); got != "status: sent" {
		t.Errorf("got %q", got)
	}
	oc = Outcome{Channel: "liaison", Status: StatusSendError, Err: "boom"}
	if got := oc.Summary(); got != "liaison: send-error (boom)" {
		t.Errorf("got %q", got)
	}
}

func TestValidWebhookURL(t *testing.T) {
	if !ValidWebhookURL("https://discordapp.com/api/webhooks/1/a") {
		t.Error("discordapp prefix should be valid")
	}
	if ValidWebhookURL("") {
		t.Error("empty url should be invalid")
	}
}
