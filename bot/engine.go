// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pmbot-project/pmbot/lib/clock"
	"github.com/pmbot-project/pmbot/messaging"
)

// syncFilter restricts the /sync response to what the bot dispatches
// on: m.room.member state (membership reconciliation) and the timeline
// event types handlers see. Presence, typing notifications, and
// account data are excluded entirely.
const syncFilter = `{
	"room": {
		"state": {
			"types": ["m.room.member"]
		},
		"timeline": {
			"types": ["m.room.member", "m.room.message"],
			"limit": 50
		},
		"ephemeral": {
			"types": []
		},
		"account_data": {
			"types": []
		}
	},
	"presence": {
		"types": []
	},
	"account_data": {
		"types": []
	}
}`

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Session is the authenticated homeserver connection.
	Session messaging.Session

	// SyncTimeout is the server-side long-poll hold for incremental
	// polls. Required, positive.
	SyncTimeout time.Duration

	// BackoffFloor and BackoffCap bound the retry delay after
	// transport failures.
	BackoffFloor time.Duration
	BackoffCap   time.Duration

	// MaxConsecutiveFailures is the failure budget before the loop
	// gives up.
	MaxConsecutiveFailures int

	// Clock abstracts time for backoff waits. Defaults to the real
	// clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine runs the sync loop: validate credentials once, then
// poll → dispatch → advance-cursor until stopped or fatal. One engine
// per credential; the loop is strictly sequential, so the cursor and
// membership state need no locking.
type Engine struct {
	session     messaging.Session
	registry    *Registry
	memberships *Memberships
	dispatcher  *Dispatcher
	backoff     *Backoff
	clock       clock.Clock
	logger      *slog.Logger
	syncTimeout time.Duration

	// cursor is the opaque since token. Empty means "from the
	// beginning". Advanced only after a batch fully dispatches.
	cursor string
}

// NewEngine creates an Engine. Register handlers with On before
// calling Run.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Session == nil {
		return nil, fmt.Errorf("bot: Session is required")
	}
	if config.SyncTimeout <= 0 {
		return nil, fmt.Errorf("bot: SyncTimeout must be positive, got %v", config.SyncTimeout)
	}
	if config.BackoffFloor <= 0 || config.BackoffCap < config.BackoffFloor {
		return nil, fmt.Errorf("bot: invalid backoff bounds [%v, %v]", config.BackoffFloor, config.BackoffCap)
	}
	if config.MaxConsecutiveFailures < 1 {
		return nil, fmt.Errorf("bot: MaxConsecutiveFailures must be at least 1, got %d", config.MaxConsecutiveFailures)
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := NewRegistry()
	memberships := NewMemberships()
	return &Engine{
		session:     config.Session,
		registry:    registry,
		memberships: memberships,
		dispatcher:  NewDispatcher(config.Session, config.Session.UserID(), registry, memberships, logger),
		backoff:     NewBackoff(config.BackoffFloor, config.BackoffCap, config.MaxConsecutiveFailures),
		clock:       clk,
		logger:      logger,
		syncTimeout: config.SyncTimeout,
	}, nil
}

// On registers a handler for an event kind. Must be called before Run;
// the registry freezes when the run starts.
func (e *Engine) On(kind Kind, handler Handler) {
	e.registry.On(kind, handler)
}

// Memberships exposes the room membership tracker for handlers that
// need room context.
func (e *Engine) Memberships() *Memberships {
	return e.memberships
}

// State returns the reconnection state machine's current state.
func (e *Engine) State() State {
	return e.backoff.State()
}

// Run validates credentials, then drives the sync loop until ctx is
// cancelled (returns nil) or a fatal condition surfaces (returns the
// error). The stop signal is cooperative: it is checked between poll
// cycles, and an in-flight long-poll ends by the transport's own
// timeout or ctx plumbing rather than being torn down mid-protocol.
func (e *Engine) Run(ctx context.Context) error {
	e.registry.freeze()

	if err := validateIdentity(ctx, e.session, e.session.UserID()); err != nil {
		e.backoff.Fatal()
		return err
	}
	e.logger.Info("authenticated", "user_id", e.session.UserID())

	e.seedMemberships(ctx)

	e.backoff.Start()
	firstPoll := true
	for {
		if ctx.Err() != nil {
			e.logger.Info("sync loop stopping")
			return nil
		}

		options := messaging.SyncOptions{
			Since:      e.cursor,
			Timeout:    int(e.syncTimeout / time.Millisecond),
			SetTimeout: true,
			Filter:     syncFilter,
		}
		if firstPoll {
			// The initial poll reconciles membership fully and
			// returns immediately rather than long-polling.
			options.FullState = true
			options.Timeout = 0
		}

		response, err := e.session.Sync(ctx, options)
		if err != nil {
			if ctx.Err() != nil {
				e.logger.Info("sync loop stopping")
				return nil
			}
			if fatalErr := e.handleSyncFailure(ctx, err); fatalErr != nil {
				return fatalErr
			}
			continue
		}

		firstPoll = false
		e.backoff.Success()

		batch := flattenSync(response, e.session.UserID())
		if !batch.Empty() {
			result := e.dispatcher.Dispatch(ctx, batch)
			e.logger.Debug("batch dispatched",
				"events", result.Processed,
				"handler_errors", len(result.Errors),
				"next_cursor", batch.NextCursor,
			)
		}
		// Cursor advances only after the batch fully dispatched; a
		// crash above re-delivers this batch on restart.
		e.cursor = batch.NextCursor
	}
}

// seedMemberships records the rooms the bot is already joined to, so
// handlers see correct room context from the first batch. Best-effort:
// the initial full-state sync reconciles membership anyway.
func (e *Engine) seedMemberships(ctx context.Context) {
	rooms, err := e.session.JoinedRooms(ctx)
	if err != nil {
		e.logger.Warn("listing joined rooms failed, membership will reconcile via sync", "error", err)
		return
	}
	for _, roomID := range rooms {
		e.memberships.Set(roomID, MembershipJoined)
	}
	e.logger.Info("membership seeded", "joined_rooms", len(rooms))
}

// handleSyncFailure classifies a poll failure and either waits out the
// backoff delay (returns nil to continue) or returns the fatal error
// that ends the run.
func (e *Engine) handleSyncFailure(ctx context.Context, err error) error {
	if isAuthFailure(err) {
		// Token revoked mid-run. Retrying cannot help.
		e.backoff.Fatal()
		return &AuthError{Reason: AuthInvalidToken, Err: err}
	}

	delay, fatal := e.backoff.Failure()
	if fatal {
		return fmt.Errorf("sync failed %d consecutive times, giving up: %w", e.backoff.Failures(), err)
	}

	failureClass := "network"
	if isServerError(err) {
		failureClass = "server_error"
	}
	e.logger.Error("sync failed, backing off",
		"class", failureClass,
		"failures", e.backoff.Failures(),
		"delay", delay,
		"error", err,
	)

	// Drop pooled connections so the retry dials fresh instead of
	// reusing a connection the failure may have poisoned.
	e.session.CloseIdleConnections()

	select {
	case <-ctx.Done():
		return nil
	case <-e.clock.After(delay):
		return nil
	}
}
