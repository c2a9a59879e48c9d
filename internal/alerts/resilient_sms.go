package alerts

import (
	"context"
	"strings"
	"time"

	"github.com/richxcame/cardshield/pkg/logger"
	"github.com/richxcame/cardshield/pkg/resilience"
	"go.uber.org/zap"
)

// ResilientSMSClient wraps an SMSSender with circuit breaker and retry logic.
// Twilio outages must never take the alerts pipeline down with them.
type ResilientSMSClient struct {
	client  SMSSender
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewResilientSMSClient creates a resilient wrapper around an existing sender.
func NewResilientSMSClient(client SMSSender, breaker *resilience.CircuitBreaker) *ResilientSMSClient {
	if breaker == nil {
		breakerSettings := resilience.Settings{
			Name:             "twilio-sms",
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 2,
		}

		breaker = resilience.NewCircuitBreaker(breakerSettings, func(ctx context.Context, err error) (interface{}, error) {
			logger.Get().Error("Twilio circuit breaker open, SMS page failed",
				zap.Error(err),
			)
			return "", err
		})
	}

	retryConfig := resilience.DefaultRetryConfig()
	retryConfig.MaxAttempts = 3
	retryConfig.InitialBackoff = 1 * time.Second
	retryConfig.MaxBackoff = 10 * time.Second
	retryConfig.RetryableChecker = isTwilioRetryable

	return &ResilientSMSClient{
		client:  client,
		breaker: breaker,
		retry:   retryConfig,
	}
}

// SendSMS sends an SMS message with retry and circuit breaker.
func (r *ResilientSMSClient) SendSMS(to, body string) (string, error) {
	ctx := context.Background()

	result, err := resilience.RetryWithBreaker(ctx, r.retry, r.breaker, func(ctx context.Context) (interface{}, error) {
		return r.client.SendSMS(to, body)
	})
	if err != nil {
		logger.Get().Error("Failed to send SMS after retries",
			zap.Error(err),
			zap.String("to", maskPhoneNumber(to)),
		)
		return "", err
	}

	logger.Get().Debug("SMS page sent",
		zap.String("message_sid", result.(string)),
		zap.String("to", maskPhoneNumber(to)),
	)

	return result.(string), nil
}

// isTwilioRetryable determines if a Twilio error should be retried
func isTwilioRetryable(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()

	// Retry on specific Twilio error codes
	retryableErrors := []string{
		"20429", // Too Many Requests
		"20500", // Internal Server Error
		"20503", // Service Unavailable
		"30001", // Queue overflow
		"30003", // Unreachable destination handset (might be temporary)
		"timeout",
		"connection",
		"network",
	}

	for _, code := range retryableErrors {
		if strings.Contains(errMsg, code) {
			return true
		}
	}

	return false
}
