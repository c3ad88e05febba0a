package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/services"
)

// WebhookAdapter is the one transport that ships with the engine: it POSTs
// a JSON envelope to the target's URL. Email, SMS, push and chat gateways
// plug in as separate adapter processes.
type WebhookAdapter struct {
	client *http.Client
	logger logging.Logger
}

func NewWebhookAdapter(log logging.Logger) *WebhookAdapter {
	return &WebhookAdapter{
		// Per-send deadlines come from the dispatch context; the client
		// timeout is only a backstop for contexts without one.
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log,
	}
}

func (a *WebhookAdapter) Type() string { return models.ChannelWebhook }

// envelope is the wire shape receivers get. Fields are stable; consumers
// key off event_type and alert.id.
type envelope struct {
	EventType string           `json:"event_type"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
	Level     int              `json:"level"`
	Alert     envelopeAlert    `json:"alert"`
	Rule      envelopeRule     `json:"rule"`
	Instance  envelopeInstance `json:"instance"`
	SentAt    time.Time        `json:"sent_at"`
}

type envelopeAlert struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Scope    string                 `json:"scope,omitempty"`
	Severity string                 `json:"severity"`
	Message  string                 `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type envelopeRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type envelopeInstance struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

func (a *WebhookAdapter) Send(ctx context.Context, ch *models.NotificationChannel, n services.Notification) models.DeliveryResult {
	metadata := make(map[string]interface{}, len(n.Event.Metadata))
	for k, v := range n.Event.Metadata {
		metadata[k] = v.ToAny()
	}
	payload := envelope{
		EventType: "escalation.notify",
		Subject:   n.Subject,
		Body:      n.Body,
		Level:     n.Step.Level,
		Alert: envelopeAlert{
			ID:       n.Event.ID,
			Type:     n.Event.Type,
			Scope:    n.Event.Scope,
			Severity: n.Event.Severity,
			Message:  n.Event.Message,
			Metadata: metadata,
		},
		Rule:     envelopeRule{ID: n.Rule.ID, Name: n.Rule.Name},
		Instance: envelopeInstance{ID: n.Instance.ID, Status: n.Instance.Status, StartedAt: n.Instance.StartedAt},
		SentAt:   time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return a.failure(fmt.Errorf("encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Target.Address, bytes.NewReader(body))
	if err != nil {
		return a.failure(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "vigil-core-webhook/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return a.failure(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return a.failure(fmt.Errorf("receiver returned %d", resp.StatusCode))
	}
	return models.DeliveryResult{Status: models.DeliverySent, Timestamp: time.Now().UTC()}
}

func (a *WebhookAdapter) failure(err error) models.DeliveryResult {
	return models.DeliveryResult{
		Status:    models.DeliveryFailed,
		Timestamp: time.Now().UTC(),
		Error:     err.Error(),
	}
}
