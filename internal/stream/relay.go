package stream

import (
	"context"
	"strings"

	"github.com/sentryai/sentry/internal/ai"
	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/logging"
)

// Outcome is what a relayed stream produced.
type Outcome struct {
	// Text is every fragment received, including those produced after the
	// client went away.
	Text string
	// Err is the provider failure, if any.
	Err error
	// Canceled is set when the client disconnected before the end.
	Canceled bool
}

// Partial reports whether the stream stopped early but still produced text.
func (o Outcome) Partial() bool {
	return (o.Err != nil || o.Canceled) && o.Text != ""
}

type relayOptions struct {
	describe func(error) string
}

type RelayOption func(*relayOptions)

// WithErrorMessage sets how a provider failure is shown in the error event.
func WithErrorMessage(fn func(error) string) RelayOption {
	return func(o *relayOptions) { o.describe = fn }
}

// Relay forwards provider events to sink until the channel closes. Each text
// fragment becomes a token event; a failure becomes one error event. The
// terminal event is always written. When ctx ends or the sink stops
// accepting writes the client is considered gone: nothing more is written
// but the channel is still drained so Outcome.Text holds the whole answer.
func Relay(ctx context.Context, events <-chan ai.StreamEvent, sink Sink, opts ...RelayOption) Outcome {
	o := relayOptions{describe: apperr.PublicMessage}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.WithContext(ctx)

	var (
		text   strings.Builder
		out    Outcome
		closed bool
	)
	gone := func() bool {
		if !out.Canceled && ctx.Err() != nil {
			out.Canceled = true
		}
		return out.Canceled
	}

	for ev := range events {
		switch ev.Type {
		case ai.EventTypeText:
			text.WriteString(ev.Text)
			if ev.Text == "" || gone() {
				continue
			}
			if err := sink.Token(ev.Text); err != nil {
				log.Debugf("[stream] client write failed: %v", err)
				out.Canceled = true
			}
		case ai.EventTypeError:
			if out.Err == nil {
				out.Err = ev.Error
			}
			if gone() {
				continue
			}
			if err := sink.Error(o.describe(ev.Error)); err != nil {
				out.Canceled = true
			}
		case ai.EventTypeDone:
			closed = true
		}
	}

	if !closed && out.Err == nil {
		out.Err = ai.ErrIncompleteStream
		if !gone() {
			_ = sink.Error(o.describe(out.Err))
		}
	}
	gone()
	if err := sink.End(); err != nil && !out.Canceled {
		log.Debugf("[stream] terminal write failed: %v", err)
		out.Canceled = true
	}
	out.Text = text.String()
	return out
}
