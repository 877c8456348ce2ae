// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"

	"github.com/pmbot-project/pmbot/lib/ref"
)

// Session is an authenticated connection to the Matrix homeserver.
// [DirectSession] is the production implementation; the sync engine is
// written against this interface so tests can substitute a scripted
// fake.
type Session interface {
	// UserID returns the identity this session authenticates as.
	UserID() ref.UserID

	// WhoAmI asks the homeserver which user the access token belongs
	// to. Used at startup to verify the token before entering the sync
	// loop.
	WhoAmI(ctx context.Context) (*WhoAmIResponse, error)

	// Sync performs one long-poll against /sync. The call blocks until
	// events arrive or the server-side timeout elapses, whichever comes
	// first.
	Sync(ctx context.Context, opts SyncOptions) (*SyncResponse, error)

	// JoinRoom accepts an invite (or joins a public room) by room ID.
	JoinRoom(ctx context.Context, roomID ref.RoomID) error

	// LeaveRoom leaves a room the session is joined to or invited to.
	LeaveRoom(ctx context.Context, roomID ref.RoomID) error

	// JoinedRooms lists the rooms the session's user is currently
	// joined to.
	JoinedRooms(ctx context.Context) ([]ref.RoomID, error)

	// SendMessage sends an m.room.message event and returns the event
	// ID assigned by the server.
	SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error)

	// SendEvent sends an arbitrary event type. SendMessage is a
	// convenience wrapper over this.
	SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error)

	// CloseIdleConnections drops pooled HTTP connections so the next
	// request dials fresh. Called after transport failures.
	CloseIdleConnections()
}
