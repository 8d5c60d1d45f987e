// Package dispatch sends formatted alert messages to an external notification
// channel. Delivery failure is never fatal to the evaluation pipeline: the
// caller persists alerts regardless and only logs the DispatchError.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
)

// Gateway is the single capability an external notification channel exposes.
type Gateway interface {
	Send(ctx context.Context, text, mediaURL string) error
}

// DispatchError wraps a gateway failure so callers can distinguish delivery
// problems from their own errors.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed: %v", e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Dispatcher pushes messages through a Gateway with a per-send timeout and a
// global rate limit. It does not retry; retry policy belongs to the gateway.
type Dispatcher struct {
	gateway Gateway
	logger  *logging.Logger
	timeout time.Duration
	limiter *rate.Limiter
}

func New(gateway Gateway, logger *logging.Logger, timeout time.Duration, ratePerSecond int) *Dispatcher {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Dispatcher{
		gateway: gateway,
		logger:  logger,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
	}
}

// Send delivers a message. mediaURL may be empty. A failure is logged and
// returned as a *DispatchError.
func (d *Dispatcher) Send(ctx context.Context, text, mediaURL string) error {
	if d.gateway == nil {
		d.logger.Debugf("no notification gateway configured, skipping dispatch")
		return nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return &DispatchError{Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.gateway.Send(sendCtx, text, mediaURL); err != nil {
		d.logger.Errorf("dispatch failed: %v", err)
		return &DispatchError{Err: err}
	}
	return nil
}
