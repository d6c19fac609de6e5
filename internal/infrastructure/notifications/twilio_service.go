package notifications

import (
	"fmt"
	"log"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/edurotich/smartplanner/domain"
)

// TwilioServiceImpl implements domain.SMSService
type TwilioServiceImpl struct {
	client     *twilio.RestClient
	fromNumber string
}

// NewTwilioService creates a new Twilio SMS service. The timeout bounds
// every dispatch so a stuck gateway call cannot hold a token debit in
// limbo; the caller treats a timeout as dispatch failure and refunds.
func NewTwilioService(accountSID, authToken, fromNumber string, timeout time.Duration) domain.SMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	client.SetTimeout(timeout)

	return &TwilioServiceImpl{
		client:     client,
		fromNumber: fromNumber,
	}
}

// SendSMS implements domain.SMSService
func (t *TwilioServiceImpl) SendSMS(to, message string) error {
	// If credentials are not configured, log instead of sending
	if t.fromNumber == "" {
		log.Printf("[MOCK SMS] To: %s, Message: %s", to, message)
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("+" + to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	_, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	return nil
}

var _ domain.SMSService = (*TwilioServiceImpl)(nil)
