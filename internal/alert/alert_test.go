package alert

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

type captured struct {
	title string
	body  string
}

func newTestNotifier(t *testing.T, threshold int) (*Notifier, *[]captured) {
	t.Helper()
	var sent []captured

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sent = append(sent, captured{title: r.Header.Get("Title"), body: string(body)})
	}))
	t.Cleanup(server.Close)

	logger, _ := zap.NewDevelopment()
	cfg := &Config{
		Enabled:          true,
		Server:           server.URL,
		Topic:            "scorefeed-ops",
		Priority:         "default",
		FailureThreshold: threshold,
	}
	return New(cfg, logger), &sent
}

func TestNotifier_FiresAtThresholdOnce(t *testing.T) {
	n, sent := newTestNotifier(t, 3)
	err := errors.New("connection refused")

	n.PollFailed(context.Background(), 1, err)
	n.PollFailed(context.Background(), 2, err)
	if len(*sent) != 0 {
		t.Fatalf("expected no notification below threshold, got %d", len(*sent))
	}

	n.PollFailed(context.Background(), 3, err)
	n.PollFailed(context.Background(), 4, err)
	if len(*sent) != 1 {
		t.Fatalf("expected exactly one outage notification, got %d", len(*sent))
	}
	if (*sent)[0].title != "Score feed outage" {
		t.Errorf("unexpected title: %s", (*sent)[0].title)
	}
}

func TestNotifier_RecoveryAfterOutage(t *testing.T) {
	n, sent := newTestNotifier(t, 2)
	err := errors.New("timeout")

	// Recovery without a preceding outage is a no-op.
	n.Recovered(context.Background(), time.Minute)
	if len(*sent) != 0 {
		t.Fatalf("expected no recovery notification without an outage, got %d", len(*sent))
	}

	n.PollFailed(context.Background(), 1, err)
	n.PollFailed(context.Background(), 2, err)
	n.Recovered(context.Background(), 25*time.Second)

	if len(*sent) != 2 {
		t.Fatalf("expected outage + recovery notifications, got %d", len(*sent))
	}
	if (*sent)[1].title != "Score feed recovered" {
		t.Errorf("unexpected title: %s", (*sent)[1].title)
	}

	// A second outage cycle notifies again.
	n.PollFailed(context.Background(), 2, err)
	if len(*sent) != 3 {
		t.Errorf("expected a new outage notification after recovery, got %d", len(*sent))
	}
}

func TestNotifier_DisabledIsNoop(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	n := New(&Config{Enabled: false, FailureThreshold: 1}, logger)

	// No server behind this; a real send would fail loudly.
	n.PollFailed(context.Background(), 5, errors.New("down"))
	n.Recovered(context.Background(), time.Second)
}
