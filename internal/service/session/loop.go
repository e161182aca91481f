package session

import (
	"context"
	"log/slog"
	"time"

	"valuation-backend/internal/service/form"
)

const (
	MessageState = "state"
	MessageError = "error"
)

// Message is sent back to the client after each action or recalculation.
type Message struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Created   string `json:"created,omitempty"`
	State     *State `json:"state,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Request is an action tagged with a client id for correlation.
type Request struct {
	ID string `json:"id,omitempty"`
	Action
}

type Sender func(ctx context.Context, msg Message) error

// Run applies requests from in until it is closed or ctx ends. The model must
// be built with form.WithDeferredCalculation: visibility updates are sent
// right away, calculated values once no value has changed for debounce.
func Run(ctx context.Context, log *slog.Logger, m *form.Model, debounce time.Duration, in <-chan Request, send Sender) error {
	if err := send(ctx, Message{Type: MessageState, State: ptr(StateOf(m))}); err != nil {
		return err
	}

	// Stop and Reset never leave a stale tick in C (go1.23 timers).
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req, ok := <-in:
			if !ok {
				return nil
			}

			created, err := Apply(m, req.Action)
			if err != nil {
				log.Debug("action rejected", slog.String("type", req.Type), slog.String("error", err.Error()))
				if err := send(ctx, Message{Type: MessageError, RequestID: req.ID, Error: err.Error()}); err != nil {
					return err
				}
				continue
			}

			if m.Pending() {
				timer.Reset(debounce)
			}

			msg := Message{Type: MessageState, RequestID: req.ID, Created: created, State: ptr(StateOf(m))}
			if err := send(ctx, msg); err != nil {
				return err
			}

		case <-timer.C:
			m.Flush()
			if err := send(ctx, Message{Type: MessageState, State: ptr(StateOf(m))}); err != nil {
				return err
			}
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
