package alerts

import (
	"context"
	"fmt"

	"github.com/richxcame/cardshield/pkg/eventbus"
	"github.com/richxcame/cardshield/pkg/logger"
	"go.uber.org/zap"
)

const fraudConsumerName = "alerts-fraud-detected"

// StartConsumer subscribes the service to fraud.detected events. It returns
// once the durable consumer is registered; events flow on bus goroutines.
func StartConsumer(ctx context.Context, bus *eventbus.Bus, service *Service) error {
	if err := bus.Subscribe(ctx, eventbus.SubjectFraudDetected, fraudConsumerName, service.HandleFraudDetected); err != nil {
		return fmt.Errorf("subscribe %s: %w", eventbus.SubjectFraudDetected, err)
	}

	logger.Info("alerts consumer started",
		zap.String("subject", eventbus.SubjectFraudDetected),
		zap.String("consumer", fraudConsumerName),
	)
	return nil
}
