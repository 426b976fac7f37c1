// Package alert notifies operators when a ledger endpoint becomes
// unreachable or recovers.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emperorhan/xns-resolver/internal/circuitbreaker"
	"github.com/emperorhan/xns-resolver/internal/metrics"
)

const (
	DefaultCooldown = 5 * time.Minute
	sendTimeout     = 10 * time.Second
)

// AlertType categorizes the kind of alert.
type AlertType string

const (
	AlertTypeUnhealthy AlertType = "UNHEALTHY"
	AlertTypeRecovery  AlertType = "RECOVERY"
)

// Alert is a single notification.
type Alert struct {
	Type    AlertType
	Network string
	Title   string
	Message string
	Fields  map[string]string
}

// Alerter delivers alerts to one channel.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// MultiAlerter fans out to every channel and suppresses repeats of the same
// type and network within the cooldown.
type MultiAlerter struct {
	alerters []Alerter
	cooldown time.Duration
	logger   *slog.Logger
	nowFn    func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewMultiAlerter(cooldown time.Duration, logger *slog.Logger, alerters ...Alerter) *MultiAlerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiAlerter{
		alerters: alerters,
		cooldown: cooldown,
		logger:   logger.With("component", "alerter"),
		nowFn:    time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Len returns the number of configured channels.
func (m *MultiAlerter) Len() int { return len(m.alerters) }

func cooldownKey(a Alert) string {
	return string(a.Type) + ":" + a.Network
}

// Send dispatches alert to all channels and returns the first failure.
func (m *MultiAlerter) Send(ctx context.Context, alert Alert) error {
	key := cooldownKey(alert)

	m.mu.Lock()
	now := m.nowFn()
	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		m.logger.Debug("alert suppressed by cooldown", "key", key)
		for _, a := range m.alerters {
			metrics.AlertsCooldownSkipped.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
		}
		return nil
	}
	m.lastSent[key] = now
	m.mu.Unlock()

	var firstErr error
	for _, a := range m.alerters {
		if err := a.Send(ctx, alert); err != nil {
			m.logger.Warn("alert send failed",
				"channel", alerterName(a),
				"type", alert.Type,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.AlertsSentTotal.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
	}
	return firstErr
}

func alerterName(a Alerter) string {
	switch a.(type) {
	case *SlackAlerter:
		return "slack"
	case *WebhookAlerter:
		return "webhook"
	default:
		return "unknown"
	}
}

// BreakerHook returns a circuit breaker state callback that raises
// UNHEALTHY when the breaker opens and RECOVERY when it closes again.
// Delivery happens off the caller's goroutine because breakers invoke
// their callback while holding a lock.
func BreakerHook(a Alerter, network string, logger *slog.Logger) func(from, to circuitbreaker.State) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(from, to circuitbreaker.State) {
		var alert Alert
		switch {
		case to == circuitbreaker.StateOpen && from == circuitbreaker.StateClosed:
			alert = Alert{
				Type:    AlertTypeUnhealthy,
				Network: network,
				Title:   "Ledger RPC circuit opened",
				Message: "Consecutive transient failures; lookups fail fast until the endpoint recovers.",
			}
		case to == circuitbreaker.StateClosed:
			alert = Alert{
				Type:    AlertTypeRecovery,
				Network: network,
				Title:   "Ledger RPC recovered",
				Message: "Probe calls succeeded; the circuit is closed again.",
			}
		default:
			return
		}
		alert.Fields = map[string]string{"from": from.String(), "to": to.String()}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			if err := a.Send(ctx, alert); err != nil {
				logger.Warn("breaker alert not delivered", "network", network, "error", err)
			}
		}()
	}
}

// SlackAlerter posts to a Slack incoming webhook.
type SlackAlerter struct {
	webhookURL string
	client     *http.Client
}

func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: sendTimeout},
	}
}

func (s *SlackAlerter) Send(ctx context.Context, alert Alert) error {
	emoji := ":warning:"
	if alert.Type == AlertTypeRecovery {
		emoji = ":white_check_mark:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *[%s]* xrpl/%s: %s\n%s", emoji, alert.Type, alert.Network, alert.Title, alert.Message)
	if len(alert.Fields) > 0 {
		keys := make([]string, 0, len(alert.Fields))
		for k := range alert.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- *%s*: %s\n", k, alert.Fields[k])
		}
	}

	return postJSON(ctx, s.client, s.webhookURL, map[string]string{"text": b.String()}, "slack")
}

// WebhookAlerter posts a JSON document to a generic endpoint.
type WebhookAlerter struct {
	url    string
	client *http.Client
	nowFn  func() time.Time
}

func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{
		url:    url,
		client: &http.Client{Timeout: sendTimeout},
		nowFn:  time.Now,
	}
}

func (w *WebhookAlerter) Send(ctx context.Context, alert Alert) error {
	payload := map[string]any{
		"type":    string(alert.Type),
		"network": alert.Network,
		"title":   alert.Title,
		"message": alert.Message,
		"fields":  alert.Fields,
		"time":    w.nowFn().UTC().Format(time.RFC3339),
	}
	return postJSON(ctx, w.client, w.url, payload, "webhook")
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, channel string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", channel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s alert: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", channel, resp.StatusCode)
	}
	return nil
}
