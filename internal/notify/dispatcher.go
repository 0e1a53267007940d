package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/itsmrshow/conduit/internal/logging"
)

// Delivery results reported per channel.
const (
	ResultSent    = "sent"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Channel pairs a transport with its routing rule.
type Channel struct {
	Route    Route
	Notifier Notifier
}

// Delivery records what happened to one channel during a dispatch.
type Delivery struct {
	Channel Kind
	Result  string
	Err     error
}

// Report is the per-channel summary of a dispatch.
type Report []Delivery

// Sent returns the channels that delivered successfully.
func (r Report) Sent() []Kind {
	var out []Kind
	for _, d := range r {
		if d.Result == ResultSent {
			out = append(out, d.Channel)
		}
	}
	return out
}

// Failed returns the deliveries that failed.
func (r Report) Failed() []Delivery {
	var out []Delivery
	for _, d := range r {
		if d.Result == ResultFailed {
			out = append(out, d)
		}
	}
	return out
}

// Dispatcher fans an outcome out to every configured channel.
type Dispatcher struct {
	channels []Channel
	logger   *logging.Logger
	timeout  time.Duration
	observe  func(channel Kind, result string)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSendTimeout bounds each channel's send.
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithDeliveryHook registers a callback invoked once per channel with the
// delivery result.
func WithDeliveryHook(fn func(channel Kind, result string)) DispatcherOption {
	return func(disp *Dispatcher) { disp.observe = fn }
}

// NewDispatcher creates a dispatcher over channels.
func NewDispatcher(channels []Channel, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		channels: channels,
		logger:   logger.WithComponent("notify"),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Channels returns the configured channels.
func (d *Dispatcher) Channels() []Channel {
	return d.channels
}

// Dispatch sends the outcome through every channel whose route fires. A
// failing channel is logged and never affects the others; Dispatch itself
// cannot fail.
func (d *Dispatcher) Dispatch(ctx context.Context, outcome Outcome) Report {
	msg := outcome.Message()
	isError := outcome.IsError()

	report := make(Report, 0, len(d.channels))
	for _, ch := range d.channels {
		kind := ch.Notifier.Kind()
		if !ch.Route.Fires(isError) {
			d.logger.Debug().
				Str("channel", string(kind)).
				Bool("is_error", isError).
				Msg("Channel not routed for outcome")
			report = append(report, d.record(Delivery{Channel: kind, Result: ResultSkipped}))
			continue
		}

		if err := d.send(ctx, ch.Notifier, msg); err != nil {
			d.logger.Error().
				Err(err).
				Str("event", string(kind)+"_alert_failed").
				Str("channel", string(kind)).
				Str("subject", msg.Subject).
				Msg("Alert delivery failed")
			report = append(report, d.record(Delivery{Channel: kind, Result: ResultFailed, Err: err}))
			continue
		}

		d.logger.Info().
			Str("event", string(kind)+"_alert_sent").
			Str("channel", string(kind)).
			Str("subject", msg.Subject).
			Msg("Alert sent")
		report = append(report, d.record(Delivery{Channel: kind, Result: ResultSent}))
	}
	return report
}

func (d *Dispatcher) record(delivery Delivery) Delivery {
	if d.observe != nil {
		d.observe(delivery.Channel, delivery.Result)
	}
	return delivery
}

func (d *Dispatcher) send(ctx context.Context, n Notifier, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TransportError{Channel: n.Kind(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := n.Send(ctx, msg); err != nil {
		if IsTransportError(err) {
			return err
		}
		return &TransportError{Channel: n.Kind(), Err: err}
	}
	return nil
}
