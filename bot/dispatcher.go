// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pmbot-project/pmbot/lib/ref"
	"github.com/pmbot-project/pmbot/messaging"
)

// Dispatcher routes a batch of events to handlers. Strictly
// sequential: events dispatch in batch order, handlers for one event
// run in registration order, and nothing is parallelized, so causal
// order (invite-then-message in one room) is preserved.
type Dispatcher struct {
	session     messaging.Session
	self        ref.UserID
	registry    *Registry
	memberships *Memberships
	logger      *slog.Logger
}

// NewDispatcher creates a Dispatcher. self is the bot's own user ID,
// used for the self-message filter.
func NewDispatcher(session messaging.Session, self ref.UserID, registry *Registry, memberships *Memberships, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		session:     session,
		self:        self,
		registry:    registry,
		memberships: memberships,
		logger:      logger,
	}
}

// DispatchResult aggregates the outcome of one batch.
type DispatchResult struct {
	// Processed counts events that went through dispatch, including
	// self-filtered messages and events with no registered handler.
	Processed int
	// Errors holds per-event handler and auto-join failures. These
	// never abort the batch.
	Errors []*HandlerError
}

// Dispatch processes every event in the batch in order. Individual
// handler failures are collected in the result; only a structural
// problem (nil batch contents cannot occur here, so in practice never)
// returns a non-nil error.
func (d *Dispatcher) Dispatch(ctx context.Context, batch Batch) DispatchResult {
	var result DispatchResult
	for _, event := range batch.Events {
		result.Processed++
		switch event.Kind {
		case KindInvite:
			d.dispatchInvite(ctx, event, &result)
		case KindMessage:
			d.dispatchMessage(ctx, event, &result)
		default:
			d.dispatchOther(ctx, event, &result)
		}
	}
	return result
}

// dispatchInvite records the invite, auto-joins, then fires any
// registered invite handlers. Join failure is best-effort: recorded,
// logged, batch continues. Joining an already-joined room is a no-op
// success, which keeps batch re-delivery idempotent.
func (d *Dispatcher) dispatchInvite(ctx context.Context, event Event, result *DispatchResult) {
	d.memberships.Set(event.RoomID, MembershipInvited)
	d.logger.Info("room invite received", "room_id", event.RoomID, "inviter", event.Inviter)

	if err := d.session.JoinRoom(ctx, event.RoomID); err != nil {
		d.logger.Error("auto-join failed", "room_id", event.RoomID, "error", err)
		result.Errors = append(result.Errors, &HandlerError{
			EventID: event.EventID,
			RoomID:  event.RoomID,
			Err:     fmt.Errorf("auto-join: %w", err),
		})
	} else {
		d.memberships.Set(event.RoomID, MembershipJoined)
		d.logger.Info("joined room", "room_id", event.RoomID)
	}

	d.invokeHandlers(ctx, KindInvite, event, result)
}

// dispatchMessage applies the self-message filter, then fires message
// handlers in registration order.
func (d *Dispatcher) dispatchMessage(ctx context.Context, event Event, result *DispatchResult) {
	if event.Sender == d.self {
		// Our own messages come back through /sync; reacting to them
		// would create a feedback loop.
		return
	}
	d.invokeHandlers(ctx, KindMessage, event, result)
}

// dispatchOther fires generic handlers if any are registered, and
// otherwise discards the event.
func (d *Dispatcher) dispatchOther(ctx context.Context, event Event, result *DispatchResult) {
	d.invokeHandlers(ctx, KindOther, event, result)
}

func (d *Dispatcher) invokeHandlers(ctx context.Context, kind Kind, event Event, result *DispatchResult) {
	for _, handler := range d.registry.forKind(kind) {
		if err := handler(ctx, event); err != nil {
			d.logger.Error("handler failed",
				"kind", kind.String(),
				"room_id", event.RoomID,
				"event_id", event.EventID,
				"error", err,
			)
			result.Errors = append(result.Errors, &HandlerError{
				EventID: event.EventID,
				RoomID:  event.RoomID,
				Err:     err,
			})
		}
	}
}
