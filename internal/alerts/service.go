package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cardshield/pkg/async"
	"github.com/richxcame/cardshield/pkg/config"
	"github.com/richxcame/cardshield/pkg/eventbus"
	"github.com/richxcame/cardshield/pkg/logger"
	"github.com/richxcame/cardshield/pkg/websocket"
	"go.uber.org/zap"
)

// ChannelAlerts is the websocket channel analysts subscribe to for live alerts.
const ChannelAlerts = "alerts"

// AlertStore is the persistence surface the service needs.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *Alert) error
	GetAlertByID(ctx context.Context, alertID uuid.UUID) (*Alert, error)
	ListOpenAlerts(ctx context.Context, limit, offset int) ([]*Alert, int64, error)
	ListAlertsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Alert, int64, error)
	StartInvestigation(ctx context.Context, alertID, analystID uuid.UUID) error
	ResolveAlert(ctx context.Context, alertID uuid.UUID, status AlertStatus, notes, actionTaken string) error
	GetStatistics(ctx context.Context, since time.Time) (*Statistics, error)
}

// Service turns fraud detection events into alerts and fans them out to
// analysts over websocket and to on-call staff over SMS.
type Service struct {
	store   AlertStore
	sms     SMSSender
	hub     *websocket.Hub
	webhook Notifier
	cfg     config.AlertingConfig
}

// NewService creates a new alerts service. The hub and sms sender may be
// nil, in which case the corresponding fan-out is skipped.
func NewService(store AlertStore, sms SMSSender, hub *websocket.Hub, cfg config.AlertingConfig) *Service {
	return &Service{
		store: store,
		sms:   sms,
		hub:   hub,
		cfg:   cfg,
	}
}

// WithWebhook adds an external notification sink.
func (s *Service) WithWebhook(webhook Notifier) *Service {
	s.webhook = webhook
	return s
}

// HandleFraudDetected processes a fraud.detected event. Returning an error
// nacks the message so the bus redelivers it.
func (s *Service) HandleFraudDetected(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.FraudDetectedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal fraud event: %w", err)
	}

	alert := &Alert{
		ID:           uuid.New(),
		AssessmentID: data.AssessmentID,
		UserID:       data.UserID,
		Level:        AlertLevel(data.Level),
		Status:       StatusPending,
		Score:        data.Score,
		Description:  data.Details,
		Details: map[string]interface{}{
			"factors":  data.Factors,
			"event_id": event.ID,
		},
		DetectedAt: data.DetectedAt,
	}
	if alert.DetectedAt.IsZero() {
		alert.DetectedAt = time.Now().UTC()
	}

	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return fmt.Errorf("persist alert: %w", err)
	}

	logger.Info("fraud alert created",
		zap.String("alert_id", alert.ID.String()),
		zap.String("assessment_id", alert.AssessmentID.String()),
		zap.String("level", string(alert.Level)),
		zap.Float64("score", alert.Score),
	)

	s.broadcastAlert(alert)
	s.notifyWebhook(ctx, alert)

	if alert.Level == LevelCritical {
		s.pageOnCall(alert)
	}

	return nil
}

// notifyWebhook posts the alert to the external sink off the consumer
// path so a slow endpoint cannot delay the ack.
func (s *Service) notifyWebhook(ctx context.Context, alert *Alert) {
	if s.webhook == nil {
		return
	}

	async.Go(ctx, "alert-webhook", func(ctx context.Context) {
		if err := s.webhook.Notify(ctx, alert); err != nil {
			logger.Warn("failed to deliver alert webhook",
				zap.String("alert_id", alert.ID.String()),
				zap.Error(err),
			)
		}
	})
}

// broadcastAlert pushes the alert to all analysts watching the alerts channel.
func (s *Service) broadcastAlert(alert *Alert) {
	if s.hub == nil {
		return
	}

	s.hub.SendToChannel(ChannelAlerts, &websocket.Message{
		Type:      "alert",
		Channel:   ChannelAlerts,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"alert_id":      alert.ID.String(),
			"assessment_id": alert.AssessmentID.String(),
			"user_id":       alert.UserID.String(),
			"level":         string(alert.Level),
			"score":         alert.Score,
			"description":   alert.Description,
			"detected_at":   alert.DetectedAt,
		},
	})
}

// pageOnCall sends SMS pages for critical alerts. Failures are logged but
// never fail the event; the alert is already persisted and visible.
func (s *Service) pageOnCall(alert *Alert) {
	if s.sms == nil || !s.cfg.SMSEnabled || len(s.cfg.OnCallNumbers) == 0 {
		return
	}

	body := fmt.Sprintf("CRITICAL fraud alert %s: score %.0f for user %s. %s",
		alert.ID.String()[:8], alert.Score, alert.UserID.String()[:8], alert.Description)

	for _, number := range s.cfg.OnCallNumbers {
		if _, err := s.sms.SendSMS(number, body); err != nil {
			logger.Warn("failed to page on-call number",
				zap.String("to", maskPhoneNumber(number)),
				zap.String("alert_id", alert.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// GetAlert retrieves a single alert.
func (s *Service) GetAlert(ctx context.Context, alertID uuid.UUID) (*Alert, error) {
	return s.store.GetAlertByID(ctx, alertID)
}

// ListOpenAlerts returns alerts awaiting investigation.
func (s *Service) ListOpenAlerts(ctx context.Context, limit, offset int) ([]*Alert, int64, error) {
	return s.store.ListOpenAlerts(ctx, limit, offset)
}

// ListUserAlerts returns the alert history for a user.
func (s *Service) ListUserAlerts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Alert, int64, error) {
	return s.store.ListAlertsByUser(ctx, userID, limit, offset)
}

// Investigate assigns an alert to an analyst.
func (s *Service) Investigate(ctx context.Context, alertID, analystID uuid.UUID) error {
	return s.store.StartInvestigation(ctx, alertID, analystID)
}

// Resolve closes an alert with the analyst's conclusion.
func (s *Service) Resolve(ctx context.Context, alertID uuid.UUID, status AlertStatus, notes, actionTaken string) error {
	return s.store.ResolveAlert(ctx, alertID, status, notes, actionTaken)
}

// Statistics summarizes alert volume since the given time.
func (s *Service) Statistics(ctx context.Context, since time.Time) (*Statistics, error) {
	return s.store.GetStatistics(ctx, since)
}
