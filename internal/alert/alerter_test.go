package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emperorhan/xns-resolver/internal/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAlert() Alert {
	return Alert{
		Type:    AlertTypeUnhealthy,
		Network: "testnet",
		Title:   "Ledger RPC circuit opened",
		Message: "endpoint is not responding",
		Fields: map[string]string{
			"from": "closed",
			"to":   "open",
		},
	}
}

func countingServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &n
}

type recordingAlerter struct {
	sent chan Alert
	err  error
}

func (r *recordingAlerter) Send(_ context.Context, a Alert) error {
	r.sent <- a
	return r.err
}

func TestMultiAlerter_Send_AllChannels(t *testing.T) {
	slackSrv, slackN := countingServer(t, http.StatusOK)
	webhookSrv, webhookN := countingServer(t, http.StatusOK)

	multi := NewMultiAlerter(time.Minute, testLogger(),
		NewSlackAlerter(slackSrv.URL), NewWebhookAlerter(webhookSrv.URL))
	require.Equal(t, 2, multi.Len())

	require.NoError(t, multi.Send(context.Background(), testAlert()))
	assert.Equal(t, int32(1), slackN.Load())
	assert.Equal(t, int32(1), webhookN.Load())
}

func TestMultiAlerter_Cooldown(t *testing.T) {
	srv, n := countingServer(t, http.StatusOK)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	multi := NewMultiAlerter(time.Minute, testLogger(), NewWebhookAlerter(srv.URL))
	multi.nowFn = func() time.Time { return now }

	a := testAlert()
	require.NoError(t, multi.Send(context.Background(), a))
	require.NoError(t, multi.Send(context.Background(), a))
	assert.Equal(t, int32(1), n.Load(), "repeat within cooldown is suppressed")

	// A different type or network has its own cooldown slot.
	other := a
	other.Network = "devnet"
	require.NoError(t, multi.Send(context.Background(), other))
	assert.Equal(t, int32(2), n.Load())

	now = now.Add(time.Minute)
	require.NoError(t, multi.Send(context.Background(), a))
	assert.Equal(t, int32(3), n.Load(), "sent again once the cooldown elapsed")
}

func TestMultiAlerter_PartialFailure(t *testing.T) {
	failSrv, _ := countingServer(t, http.StatusInternalServerError)
	goodSrv, goodN := countingServer(t, http.StatusOK)

	multi := NewMultiAlerter(time.Hour, testLogger(),
		NewWebhookAlerter(failSrv.URL), NewWebhookAlerter(goodSrv.URL))

	err := multi.Send(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook returned status 500")
	assert.Equal(t, int32(1), goodN.Load(), "working channel still receives the alert")
}

func TestSlackAlerter_PayloadFormat(t *testing.T) {
	tests := []struct {
		alertType AlertType
		emoji     string
	}{
		{AlertTypeUnhealthy, ":warning:"},
		{AlertTypeRecovery, ":white_check_mark:"},
	}
	for _, tc := range tests {
		t.Run(string(tc.alertType), func(t *testing.T) {
			bodies := make(chan []byte, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				bodies <- b
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			a := testAlert()
			a.Type = tc.alertType
			require.NoError(t, NewSlackAlerter(srv.URL).Send(context.Background(), a))

			var payload map[string]string
			require.NoError(t, json.Unmarshal(<-bodies, &payload))
			text := payload["text"]
			assert.True(t, strings.HasPrefix(text, tc.emoji), "got %q", text)
			assert.Contains(t, text, "xrpl/testnet")
			assert.Contains(t, text, a.Title)
			assert.Contains(t, text, a.Message)
			assert.Less(t, strings.Index(text, "*from*"), strings.Index(text, "*to*"), "fields are sorted")
		})
	}
}

func TestWebhookAlerter_PayloadFormat(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		bodies <- b
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	webhook := NewWebhookAlerter(srv.URL)
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	webhook.nowFn = func() time.Time { return fixed }

	require.NoError(t, webhook.Send(context.Background(), testAlert()))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(<-bodies, &payload))
	assert.Equal(t, "UNHEALTHY", payload["type"])
	assert.Equal(t, "testnet", payload["network"])
	assert.Equal(t, "Ledger RPC circuit opened", payload["title"])
	assert.Equal(t, "2025-03-04T05:06:07Z", payload["time"])

	fields, ok := payload["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "open", fields["to"])
}

func TestBreakerHook(t *testing.T) {
	tests := []struct {
		name     string
		from, to circuitbreaker.State
		want     AlertType
	}{
		{"opened", circuitbreaker.StateClosed, circuitbreaker.StateOpen, AlertTypeUnhealthy},
		{"recovered", circuitbreaker.StateHalfOpen, circuitbreaker.StateClosed, AlertTypeRecovery},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recordingAlerter{sent: make(chan Alert, 1)}
			BreakerHook(rec, "mainnet", testLogger())(tc.from, tc.to)

			select {
			case got := <-rec.sent:
				assert.Equal(t, tc.want, got.Type)
				assert.Equal(t, "mainnet", got.Network)
				assert.Equal(t, tc.to.String(), got.Fields["to"])
			case <-time.After(time.Second):
				t.Fatal("alert was not sent")
			}
		})
	}
}

func TestBreakerHook_IgnoresProbeTransitions(t *testing.T) {
	rec := &recordingAlerter{sent: make(chan Alert, 2), err: errors.New("unused")}
	hook := BreakerHook(rec, "mainnet", testLogger())

	hook(circuitbreaker.StateOpen, circuitbreaker.StateHalfOpen)
	hook(circuitbreaker.StateHalfOpen, circuitbreaker.StateOpen)

	select {
	case a := <-rec.sent:
		t.Fatalf("unexpected alert %+v", a)
	case <-time.After(50 * time.Millisecond):
	}
}
