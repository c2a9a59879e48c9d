package alerts

import (
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSSender pages on-call staff about critical alerts.
type SMSSender interface {
	SendSMS(to, body string) (string, error)
}

// TwilioClient sends SMS pages through Twilio.
type TwilioClient struct {
	client     *twilio.RestClient
	fromNumber string
	accountSid string
}

// NewTwilioClient creates a new Twilio SMS client.
func NewTwilioClient(accountSid, authToken, fromNumber string) *TwilioClient {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioClient{
		client:     client,
		fromNumber: fromNumber,
		accountSid: accountSid,
	}
}

// SendSMS sends a single SMS message and returns the message SID.
func (t *TwilioClient) SendSMS(to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send SMS: %w", err)
	}

	if resp.Sid == nil {
		return "", fmt.Errorf("no message SID returned")
	}

	return *resp.Sid, nil
}

// GetMessageStatus retrieves the delivery status of a sent message.
func (t *TwilioClient) GetMessageStatus(messageSid string) (string, error) {
	params := &twilioApi.FetchMessageParams{}
	params.SetPathAccountSid(t.accountSid)

	resp, err := t.client.Api.FetchMessage(messageSid, params)
	if err != nil {
		return "", fmt.Errorf("failed to get message status: %w", err)
	}

	if resp.Status == nil {
		return "", fmt.Errorf("no status returned")
	}

	return *resp.Status, nil
}

// maskPhoneNumber masks phone number for logging (show only last 4 digits)
func maskPhoneNumber(phoneNumber string) string {
	if len(phoneNumber) <= 4 {
		return "***"
	}
	return "***" + phoneNumber[len(phoneNumber)-4:]
}
