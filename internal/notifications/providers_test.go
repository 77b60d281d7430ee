package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teanotify/internal/types"
)

type fakeEmailClient struct {
	input types.SendInput
	id    string
	err   error
}

func (c *fakeEmailClient) Send(_ context.Context, input types.SendInput) (string, error) {
	c.input = input
	return c.id, c.err
}

type fakeWhatsAppClient struct {
	to     string
	name   string
	params []string
	id     string
	err    error
}

func (c *fakeWhatsAppClient) SendTemplate(_ context.Context, to, name string, params []string) (string, error) {
	c.to, c.name, c.params = to, name, params
	return c.id, c.err
}

type fakeSMSClient struct {
	to   string
	text string
	id   string
	err  error
}

func (c *fakeSMSClient) SendText(_ context.Context, to, text string) (string, error) {
	c.to, c.text = to, text
	return c.id, c.err
}

func TestEmailChannelProvider_Attempt(t *testing.T) {
	client := &fakeEmailClient{id: "sg_msg_1"}
	p := NewEmailChannelProvider(client, "care@innerveda.in", "Inner Veda", nil)

	assert.Equal(t, types.ChannelEmail, p.Channel())

	res := p.Attempt(context.Background(), "amit@example.com", &Message{
		Event: types.EventOrderPlaced,
		Rendered: types.RenderedMessage{
			Subject:  "Order Confirmation",
			Body:     "text body",
			BodyHTML: "<p>html body</p>",
		},
	})

	require.Equal(t, types.StatusSent, res.Status)
	assert.Equal(t, "sg_msg_1", res.ProviderMsgID)
	assert.Equal(t, "amit@example.com", client.input.To)
	assert.Equal(t, "care@innerveda.in", client.input.From)
	assert.Equal(t, "Inner Veda", client.input.FromName)
	assert.Equal(t, "Order Confirmation", client.input.Subject)
	assert.Equal(t, "text body", client.input.BodyText)
	assert.Equal(t, "<p>html body</p>", client.input.BodyHTML)
}

func TestEmailChannelProvider_Attempt_TransportError(t *testing.T) {
	p := NewEmailChannelProvider(&fakeEmailClient{err: errors.New("451 greylisted")}, "care@innerveda.in", "", nil)

	res := p.Attempt(context.Background(), "amit@example.com", &Message{})

	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Equal(t, "451 greylisted", res.Diagnostic)
}

func TestWhatsAppChannelProvider_Attempt(t *testing.T) {
	client := &fakeWhatsAppClient{id: "wamid.abc"}
	p := NewWhatsAppChannelProvider(client, nil)

	assert.Equal(t, types.ChannelWhatsApp, p.Channel())

	res := p.Attempt(context.Background(), "919113920980", &Message{
		Event:   types.EventOrderPlaced,
		Payload: types.Payload{"order_id": "IV-3", "amount": float64(1299)},
	})

	require.Equal(t, types.StatusSent, res.Status)
	assert.Equal(t, "wamid.abc", res.ProviderMsgID)
	assert.Equal(t, "919113920980", client.to)
	assert.Equal(t, "order_placed", client.name)
	assert.Equal(t, []string{"IV-3", "₹1299"}, client.params)
}

func TestWhatsAppChannelProvider_Attempt_TransportError(t *testing.T) {
	p := NewWhatsAppChannelProvider(&fakeWhatsAppClient{err: errors.New("template not approved")}, nil)

	res := p.Attempt(context.Background(), "919113920980", &Message{Event: types.EventOrderShipped})

	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Equal(t, "template not approved", res.Diagnostic)
}

func TestWATemplateFor(t *testing.T) {
	tests := []struct {
		name       string
		event      types.EventType
		payload    types.Payload
		wantName   string
		wantParams []string
	}{
		{
			name:       "order placed",
			event:      types.EventOrderPlaced,
			payload:    types.Payload{"order_id": "IV-1", "amount": float64(450)},
			wantName:   "order_placed",
			wantParams: []string{"IV-1", "₹450"},
		},
		{
			name:       "order shipped",
			event:      types.EventOrderShipped,
			payload:    types.Payload{"order_id": "IV-2", "tracking_id": "TRK99"},
			wantName:   "order_shipped",
			wantParams: []string{"IV-2", "TRK99"},
		},
		{
			name:       "order delivered",
			event:      types.EventOrderDelivered,
			payload:    types.Payload{"order_id": "IV-3"},
			wantName:   "order_delivered",
			wantParams: []string{"IV-3"},
		},
		{
			name:       "unmapped event",
			event:      types.EventCartAbandoned,
			payload:    types.Payload{"message": "your cart misses you"},
			wantName:   "general_notification",
			wantParams: []string{"your cart misses you"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, params := waTemplateFor(tt.event, tt.payload)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestSMSChannelProvider_Attempt(t *testing.T) {
	client := &fakeSMSClient{id: "sms_1"}
	p := NewSMSChannelProvider(client, nil)

	assert.Equal(t, types.ChannelSMS, p.Channel())

	res := p.Attempt(context.Background(), "9113920980", &Message{
		Event:   types.EventOrderPlaced,
		Payload: types.Payload{"customer_name": "Amit", "order_id": "IV-5", "amount": float64(450)},
	})

	require.Equal(t, types.StatusSent, res.Status)
	assert.Equal(t, "9113920980", client.to)
	assert.Equal(t, "Dear Amit, your order #IV-5 worth ₹450 has been placed successfully! - Inner Veda", client.text)
}

func TestSMSTextFor(t *testing.T) {
	tests := []struct {
		name    string
		event   types.EventType
		payload types.Payload
		want    string
	}{
		{
			name:    "order placed defaults missing name",
			event:   types.EventOrderPlaced,
			payload: types.Payload{"order_id": "IV-5", "amount": float64(450)},
			want:    "Dear Customer, your order #IV-5 worth ₹450 has been placed successfully! - Inner Veda",
		},
		{
			name:    "order shipped",
			event:   types.EventOrderShipped,
			payload: types.Payload{"order_id": "IV-6", "tracking_id": "TRK42"},
			want:    "Great news! Your order #IV-6 has been shipped. Track: TRK42 - Inner Veda",
		},
		{
			name:    "order delivered",
			event:   types.EventOrderDelivered,
			payload: types.Payload{"order_id": "IV-7"},
			want:    "Your order #IV-7 has been delivered. Thank you for choosing Inner Veda!",
		},
		{
			name:    "unmapped event",
			event:   types.EventFeedbackReceived,
			payload: types.Payload{"message": "thanks for the feedback"},
			want:    "You have a notification from Inner Veda. thanks for the feedback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, smsTextFor(tt.event, tt.payload))
		})
	}
}
