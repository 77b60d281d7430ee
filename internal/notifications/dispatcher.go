package notifications

import (
	"context"
	"log/slog"
	"time"

	"teanotify/internal/types"
)

// Dispatcher fans one notification request out across its channels in
// request order. Channels are independent: a failure on one never short-
// circuits the others, and every (request, channel) pair yields exactly one
// terminal outcome. The channel list is taken as given; duplicates dispatch
// twice.
type Dispatcher struct {
	providers      map[types.ChannelType]Provider
	renderer       Renderer
	policy         RetryPolicy
	attemptTimeout time.Duration
	metrics        Metrics
	clock          types.Clock
	logger         *slog.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

// DispatcherConfig configures a Dispatcher. Zero values fall back to the
// default retry policy, a 10s attempt timeout, the real clock, and no-op
// metrics.
type DispatcherConfig struct {
	Providers      []Provider
	Renderer       Renderer
	Policy         RetryPolicy
	AttemptTimeout time.Duration
	Metrics        Metrics
	Clock          types.Clock
	Logger         *slog.Logger
}

// NewDispatcher creates a Dispatcher from the given providers, keyed by
// their declared channel.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy = DefaultRetryPolicy()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	providers := make(map[types.ChannelType]Provider, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers[p.Channel()] = p
	}

	return &Dispatcher{
		providers:      providers,
		renderer:       cfg.Renderer,
		policy:         cfg.Policy,
		attemptTimeout: cfg.AttemptTimeout,
		metrics:        cfg.Metrics,
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		sleep:          sleepCtx,
	}
}

// WithSleepFunc replaces the inter-attempt pause, for tests.
func (d *Dispatcher) WithSleepFunc(fn func(ctx context.Context, dur time.Duration) error) *Dispatcher {
	d.sleep = fn
	return d
}

// Dispatch delivers the request on every listed channel and returns one
// outcome per channel, in request order. It never returns an error: all
// failure modes, including an unregistered channel, are expressed as failed
// outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, req *types.NotificationRequest) *types.DispatchResult {
	result := &types.DispatchResult{
		Event:     req.Event,
		Recipient: req.Recipient,
		Priority:  req.Priority,
		Outcomes:  make([]types.DeliveryOutcome, 0, len(req.Channels)),
		Timestamp: d.clock.Now(),
	}

	for _, ch := range req.Channels {
		result.Outcomes = append(result.Outcomes, d.dispatchChannel(ctx, req, ch))
	}
	return result
}

// dispatchChannel produces the terminal outcome for one channel, retrying
// failed attempts up to the policy limit with a fixed pause between them.
func (d *Dispatcher) dispatchChannel(ctx context.Context, req *types.NotificationRequest, ch types.ChannelType) types.DeliveryOutcome {
	provider, ok := d.providers[ch]
	if !ok {
		d.logger.Warn("no provider registered for channel", "channel", ch, "event", req.Event)
		d.metrics.RecordDelivery(ctx, ch, MetricResultFailure)
		return types.DeliveryOutcome{
			Channel:    ch,
			Status:     types.StatusFailed,
			Diagnostic: "provider not available",
		}
	}

	rendered, tplID, err := d.renderer.Render(ctx, req.Event, ch, req.Payload)
	if err != nil {
		d.metrics.RecordDelivery(ctx, ch, MetricResultFailure)
		return types.DeliveryOutcome{
			Channel:    ch,
			Status:     types.StatusFailed,
			Diagnostic: "template rendering failed: " + err.Error(),
		}
	}

	msg := &Message{
		Event:      req.Event,
		Payload:    req.Payload,
		Rendered:   rendered,
		TemplateID: tplID,
	}

	var res AttemptResult
	attempts := 0
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		attempts = attempt
		start := d.clock.Now()
		res = d.attempt(ctx, provider, req.Recipient, msg)
		d.metrics.RecordLatency(ctx, ch, d.clock.Now().Sub(start))

		if res.Status == types.StatusSent {
			break
		}

		d.logger.Warn("delivery attempt failed",
			"channel", ch,
			"event", req.Event,
			"attempt", attempt,
			"max_attempts", d.policy.MaxAttempts,
			"error", res.Diagnostic,
		)

		if attempt < d.policy.MaxAttempts {
			if err := d.sleep(ctx, d.policy.Delay); err != nil {
				res.Diagnostic = "dispatch canceled: " + err.Error()
				break
			}
		}
	}

	if res.Status == types.StatusSent {
		d.metrics.RecordDelivery(ctx, ch, MetricResultSuccess)
		d.logger.Info("notification sent",
			"channel", ch,
			"event", req.Event,
			"attempts", attempts,
			"provider_msg_id", res.ProviderMsgID,
		)
	} else {
		d.metrics.RecordDelivery(ctx, ch, MetricResultFailure)
	}

	return types.DeliveryOutcome{
		Channel:    ch,
		Status:     res.Status,
		Diagnostic: res.Diagnostic,
		Attempts:   attempts,
		Subject:    rendered.Subject,
		Body:       rendered.Body,
	}
}

// attempt runs exactly one provider attempt under the per-attempt timeout.
// A provider panic is contained as a failed attempt so one misbehaving
// transport cannot take down the dispatch loop.
func (d *Dispatcher) attempt(ctx context.Context, provider Provider, recipient string, msg *Message) (res AttemptResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("provider panicked", "channel", provider.Channel(), "panic", r)
			res = failed("provider panic")
		}
	}()

	actx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()
	return provider.Attempt(actx, recipient, msg)
}

// sleepCtx pauses for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
