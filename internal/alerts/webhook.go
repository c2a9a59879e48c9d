package alerts

import (
	"context"
	"time"

	"github.com/richxcame/cardshield/pkg/httpclient"
)

// Notifier delivers alerts to an external sink, such as an incident
// management webhook.
type Notifier interface {
	Notify(ctx context.Context, alert *Alert) error
}

// WebhookNotifier posts new alerts to a configured HTTP endpoint.
type WebhookNotifier struct {
	client *httpclient.Client
}

// NewWebhookNotifier creates a notifier posting to the given base URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		client: httpclient.NewClient(url, 10*time.Second, httpclient.WithDefaultRetry()),
	}
}

type webhookPayload struct {
	AlertID      string    `json:"alert_id"`
	AssessmentID string    `json:"assessment_id"`
	UserID       string    `json:"user_id"`
	Level        string    `json:"level"`
	Score        float64   `json:"score"`
	Description  string    `json:"description"`
	DetectedAt   time.Time `json:"detected_at"`
}

// Notify posts the alert to the webhook endpoint.
func (w *WebhookNotifier) Notify(ctx context.Context, alert *Alert) error {
	payload := webhookPayload{
		AlertID:      alert.ID.String(),
		AssessmentID: alert.AssessmentID.String(),
		UserID:       alert.UserID.String(),
		Level:        string(alert.Level),
		Score:        alert.Score,
		Description:  alert.Description,
		DetectedAt:   alert.DetectedAt,
	}

	_, err := w.client.Post(ctx, "", payload, nil)
	return err
}
