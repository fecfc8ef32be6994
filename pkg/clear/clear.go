// Package clear drives the destructive task that empties a context's
// stored data. Clearing runs outside any session lifecycle: the control
// plane flips the context's state to "clearing" and back to "available"
// when the wipe completes.
package clear

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

// Defaults for the clear poll loop. Clears are expected to be short and
// bounded, so this is a simple fixed-interval poll, not a backoff.
const (
	DefaultTimeout      = 60 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Result is the observed state of a clear task.
type Result struct {
	ContextID string

	// State is the context's state field as reported by the control
	// plane. Primarily "clearing" or "available"; unrecognized values
	// pass through for forward compatibility.
	State string

	// Triggered records that this controller started a clear for the
	// context. The remote state field doubles as the general context
	// state, so "available" alone can't distinguish "idle, never cleared"
	// from "just finished clearing" -- the local intent does.
	Triggered bool

	ErrorMessage string
}

// Succeeded returns whether the context has reached the available state.
func (r Result) Succeeded() bool {
	return r.State == client.ContextStateAvailable
}

// Controller drives clear tasks against the control plane.
type Controller struct {
	client client.Client
	clock  clockwork.Clock
}

// NewController creates a clear task controller.
func NewController(c client.Client) *Controller {
	return &Controller{
		client: c,
		clock:  clockwork.NewRealClock(),
	}
}

// ClearAsync starts clearing the context and returns immediately. The
// returned result reports "clearing" by convention of the call itself;
// the control plane may not reflect the state on the very next read.
func (c *Controller) ClearAsync(ctx context.Context, contextID string) (Result, error) {
	if contextID == "" {
		return Result{}, errors.ValidationError{Reason: "contextId is required"}
	}

	if err := c.client.ClearContext(ctx, contextID); err != nil {
		return Result{}, errors.WithContext(err, "trigger clear")
	}

	log.WithField("context", contextID).Debug("Triggered context clear")
	return Result{
		ContextID: contextID,
		State:     client.ContextStateClearing,
		Triggered: true,
	}, nil
}

// Status probes the context's current state. It returns whatever state is
// observed without interpreting it.
func (c *Controller) Status(ctx context.Context, contextID string) (Result, error) {
	if contextID == "" {
		return Result{}, errors.ValidationError{Reason: "contextId is required"}
	}

	record, err := c.client.DescribeContext(ctx, contextID)
	if err != nil {
		return Result{}, errors.WithContext(err, "get context state")
	}

	return Result{
		ContextID: contextID,
		State:     record.State,
	}, nil
}

// Clear triggers a clear and polls until the context reports available or
// the timeout elapses. Zero timeout and pollInterval use the defaults. On
// timeout the error carries the last observed state rather than a generic
// failure.
func (c *Controller) Clear(ctx context.Context, contextID string,
	timeout, pollInterval time.Duration) (Result, error) {

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	result, err := c.ClearAsync(ctx, contextID)
	if err != nil {
		return Result{}, err
	}

	deadline := c.clock.Now().Add(timeout)
	for {
		probed, err := c.Status(ctx, contextID)
		if err != nil {
			return result, err
		}

		result.State = probed.State
		result.ErrorMessage = probed.ErrorMessage
		if result.Succeeded() {
			log.WithField("context", contextID).Info("Context cleared")
			return result, nil
		}

		if c.clock.Now().Add(pollInterval).After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return result, errors.CancelledError{Op: "clear"}
		case <-c.clock.After(pollInterval):
		}
	}

	return result, errors.ClearanceTimeoutError{
		ContextID: contextID,
		LastState: result.State,
	}
}
