// Package twilio reaches citizens by SMS and places verification calls.
package twilio

import (
	"context"
	"fmt"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
)

// CitizenNotifier sends SMS for sms notifications and places an outbound
// call for voice notifications.
type CitizenNotifier struct {
	client *twilio.RestClient
	from   string
}

// NewCitizenNotifier builds a notifier from Twilio credentials.
func NewCitizenNotifier(cfg config.NotificationConfig) (*CitizenNotifier, error) {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		return nil, fmt.Errorf("twilio notifier requires account sid, auth token and from number")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &CitizenNotifier{client: client, from: cfg.TwilioFromNumber}, nil
}

func (n *CitizenNotifier) Notify(_ context.Context, msg domain.Notification) error {
	if msg.Recipient.Phone == "" {
		return fmt.Errorf("notification for %s has no phone number", msg.TicketCode)
	}
	switch msg.Channel {
	case domain.ChannelVoice:
		return n.call(msg)
	default:
		return n.sms(msg)
	}
}

func (n *CitizenNotifier) sms(msg domain.Notification) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(msg.Recipient.Phone)
	params.SetFrom(n.from)
	params.SetBody(msg.Message)
	if _, err := n.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms for %s: %w", msg.TicketCode, err)
	}
	return nil
}

func (n *CitizenNotifier) call(msg domain.Notification) error {
	script, err := VerificationScript(msg.TicketCode)
	if err != nil {
		return err
	}
	params := &openapi.CreateCallParams{}
	params.SetTo(msg.Recipient.Phone)
	params.SetFrom(n.from)
	params.SetTwiml(script)
	if _, err := n.client.Api.CreateCall(params); err != nil {
		return fmt.Errorf("place verification call for %s: %w", msg.TicketCode, err)
	}
	return nil
}

// VerificationScript renders the TwiML asking the citizen to confirm the fix
// by keypad: 1 for fixed, 2 for not fixed.
func VerificationScript(code string) (string, error) {
	prompt := &twiml.VoiceSay{
		Message: fmt.Sprintf("Your complaint %s has been marked as resolved. Press 1 if the problem is fixed. Press 2 if it is not fixed.", code),
	}
	gather := &twiml.VoiceGather{
		Input:         "dtmf",
		NumDigits:     "1",
		Timeout:       "10",
		InnerElements: []twiml.Element{prompt},
	}
	return twiml.Voice([]twiml.Element{gather})
}
