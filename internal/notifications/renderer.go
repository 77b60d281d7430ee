package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"teanotify/internal/types"
)

// TemplateStore is the subset of the template repository the renderer needs.
type TemplateStore interface {
	FindActive(ctx context.Context, event types.EventType, channel types.ChannelType) (*types.Template, error)
}

// TemplateRenderer resolves the message for an (event, channel) pair. A
// stored active template wins; otherwise a built-in default for the event is
// used, so rendering always succeeds. Variables appear in templates as
// {{name}} and are substituted from the payload; missing keys are left
// untouched rather than erased, which makes a bad payload visible in the
// delivered message instead of silently truncating it.
type TemplateRenderer struct {
	store  TemplateStore
	logger *slog.Logger
}

// NewTemplateRenderer creates a renderer. store may be nil, in which case
// only the built-in templates are used.
func NewTemplateRenderer(store TemplateStore, logger *slog.Logger) *TemplateRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateRenderer{store: store, logger: logger}
}

// Render produces the message for one channel. The second return value is
// the stored template ID, empty when a built-in default was used. A store
// lookup failure degrades to the built-in template rather than failing the
// dispatch.
func (r *TemplateRenderer) Render(ctx context.Context, event types.EventType, channel types.ChannelType, payload types.Payload) (types.RenderedMessage, string, error) {
	if r.store != nil {
		t, err := r.store.FindActive(ctx, event, channel)
		switch {
		case err != nil:
			r.logger.Warn("template lookup failed; using built-in default",
				"event", event,
				"channel", channel,
				"error", err,
			)
		case t != nil:
			return types.RenderedMessage{
				Subject:  Substitute(t.Subject, payload),
				Body:     Substitute(t.Body, payload),
				BodyHTML: Substitute(t.BodyHTML, payload),
			}, t.ID, nil
		}
	}

	bt := builtinTemplate(event)
	return types.RenderedMessage{
		Subject:  Substitute(bt.subject, payload),
		Body:     Substitute(bt.body, payload),
		BodyHTML: Substitute(bt.htmlBody, payload),
	}, "", nil
}

// Substitute replaces every {{key}} placeholder with the payload value for
// key. Placeholders with no matching payload key are left as-is.
func Substitute(text string, payload types.Payload) string {
	if text == "" || len(payload) == 0 {
		return text
	}
	pairs := make([]string, 0, len(payload)*2)
	for key, value := range payload {
		pairs = append(pairs, "{{"+key+"}}", payloadString(value))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// payloadString stringifies a payload value for template substitution.
// JSON numbers decode as float64; integral values render without the
// trailing ".0" so order IDs and amounts read naturally.
func payloadString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

type builtin struct {
	subject  string
	body     string
	htmlBody string
}

// builtinTemplate returns the default message for an event. Unmapped events
// fall back to a generic notification.
func builtinTemplate(event types.EventType) builtin {
	switch event {
	case types.EventOrderPlaced:
		return builtin{
			subject:  "🍃 Order Confirmation - Inner Veda #{{order_id}}",
			body:     "Dear {{customer_name}},\n\nYour order #{{order_id}} has been placed successfully!\n\nOrder Total: ₹{{amount}}\n\nWe'll notify you once your order is shipped.\n\nThank you for choosing Inner Veda!",
			htmlBody: orderPlacedHTML,
		}
	case types.EventOrderShipped:
		return builtin{
			subject:  "📦 Your Order is on the way! - Inner Veda #{{order_id}}",
			body:     "Dear {{customer_name}},\n\nGreat news! Your order #{{order_id}} has been shipped.\n\nTracking ID: {{tracking_id}}\n\nExpected delivery: {{delivery_date}}\n\nTrack your order: {{tracking_url}}",
			htmlBody: orderShippedHTML,
		}
	case types.EventContactForm:
		return builtin{
			subject:  "🍃 Thank you for contacting Inner Veda",
			body:     "Dear {{name}},\n\nThank you for contacting us regarding {{category}}.\n\nWe've received your inquiry and will respond within 24 hours.\n\nReference ID: {{reference_id}}",
			htmlBody: contactFormHTML,
		}
	default:
		return builtin{
			subject: "Notification from Inner Veda",
			body:    "Hello,\n\nYou have a new notification.\n\nThank you!",
		}
	}
}

const orderPlacedHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: linear-gradient(135deg, #2d5a45, #3b7057); padding: 30px; text-align: center; color: white;">
    <h1 style="margin: 0;">🍃 Inner Veda</h1>
    <p>Order Confirmation</p>
  </div>
  <div style="padding: 30px; background: white;">
    <h2>Dear {{customer_name}},</h2>
    <p>Your order <strong>#{{order_id}}</strong> has been placed successfully!</p>
    <div style="background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
      <h3>Order Details</h3>
      <p><strong>Order ID:</strong> {{order_id}}</p>
      <p><strong>Total Amount:</strong> ₹{{amount}}</p>
      <p><strong>Order Date:</strong> {{order_date}}</p>
    </div>
    <p>We'll notify you once your order is shipped.</p>
    <p>Thank you for choosing Inner Veda for your wellness journey!</p>
  </div>
</div>`

const orderShippedHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: linear-gradient(135deg, #2d5a45, #3b7057); padding: 30px; text-align: center; color: white;">
    <h1 style="margin: 0;">🍃 Inner Veda</h1>
    <p>Your Order is on the way!</p>
  </div>
  <div style="padding: 30px; background: white;">
    <h2>Great news, {{customer_name}}!</h2>
    <p>Your order <strong>#{{order_id}}</strong> has been shipped and is on its way to you.</p>
    <div style="background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
      <h3>Shipping Details</h3>
      <p><strong>Tracking ID:</strong> {{tracking_id}}</p>
      <p><strong>Expected Delivery:</strong> {{delivery_date}}</p>
      <p><a href="{{tracking_url}}" style="color: #2d5a45;">Track your order</a></p>
    </div>
    <p>We hope you'll love your Inner Veda products!</p>
  </div>
</div>`

const contactFormHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: linear-gradient(135deg, #2d5a45, #3b7057); padding: 30px; text-align: center; color: white;">
    <h1 style="margin: 0;">🍃 Inner Veda</h1>
    <p>Thank you for contacting us</p>
  </div>
  <div style="padding: 30px; background: white;">
    <h2>Dear {{name}},</h2>
    <p>Thank you for contacting us regarding <strong>{{category}}</strong>.</p>
    <p>We've received your inquiry and our team will respond within 24 hours.</p>
    <div style="background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
      <p><strong>Reference ID:</strong> {{reference_id}}</p>
      <p><strong>Subject:</strong> {{subject}}</p>
    </div>
    <p>For urgent matters, please call us at +91 9113920980.</p>
    <p>Thank you for choosing Inner Veda!</p>
  </div>
</div>`
