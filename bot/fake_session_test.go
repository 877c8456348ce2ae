// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/pmbot-project/pmbot/lib/ref"
	"github.com/pmbot-project/pmbot/messaging"
)

// fakeSession is a scripted messaging.Session for engine and
// dispatcher tests. Sync responses are served from a queue; every call
// is recorded in order for call-order assertions.
type fakeSession struct {
	mu sync.Mutex

	userID ref.UserID

	// calls records method names in invocation order ("whoami",
	// "joined_rooms", "sync", "join:<room>", "send:<room>:<body>",
	// "leave:<room>", "close_idle").
	calls []string

	whoAmIErr   error
	whoAmIAs    ref.UserID // defaults to userID when zero
	joinedRooms []ref.RoomID
	joinedErr   error

	// syncScript is consumed one entry per Sync call; when exhausted,
	// Sync blocks until the context is cancelled.
	syncScript []syncStep
	syncOpts   []messaging.SyncOptions

	joinErr map[ref.RoomID]error

	sendErr    error
	sentBodies []string
	sentRooms  []ref.RoomID
}

type syncStep struct {
	response *messaging.SyncResponse
	err      error
}

func newFakeSession(userID string) *fakeSession {
	return &fakeSession{
		userID:  ref.MustParseUserID(userID),
		joinErr: make(map[ref.RoomID]error),
	}
}

func (f *fakeSession) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSession) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSession) UserID() ref.UserID { return f.userID }

func (f *fakeSession) WhoAmI(ctx context.Context) (*messaging.WhoAmIResponse, error) {
	f.record("whoami")
	if f.whoAmIErr != nil {
		return nil, f.whoAmIErr
	}
	as := f.whoAmIAs
	if as.IsZero() {
		as = f.userID
	}
	return &messaging.WhoAmIResponse{UserID: as}, nil
}

func (f *fakeSession) Sync(ctx context.Context, opts messaging.SyncOptions) (*messaging.SyncResponse, error) {
	f.record("sync")
	f.mu.Lock()
	f.syncOpts = append(f.syncOpts, opts)
	if len(f.syncScript) == 0 {
		f.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	step := f.syncScript[0]
	f.syncScript = f.syncScript[1:]
	f.mu.Unlock()
	return step.response, step.err
}

func (f *fakeSession) JoinRoom(ctx context.Context, roomID ref.RoomID) error {
	f.record("join:" + roomID.String())
	return f.joinErr[roomID]
}

func (f *fakeSession) LeaveRoom(ctx context.Context, roomID ref.RoomID) error {
	f.record("leave:" + roomID.String())
	return nil
}

func (f *fakeSession) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	f.record("joined_rooms")
	return f.joinedRooms, f.joinedErr
}

func (f *fakeSession) SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error) {
	f.record(fmt.Sprintf("send:%s:%s", roomID, content.Body))
	if f.sendErr != nil {
		return ref.EventID{}, f.sendErr
	}
	f.mu.Lock()
	f.sentBodies = append(f.sentBodies, content.Body)
	f.sentRooms = append(f.sentRooms, roomID)
	n := len(f.sentBodies)
	f.mu.Unlock()
	return ref.MustParseEventID(fmt.Sprintf("$sent%d:local", n)), nil
}

func (f *fakeSession) SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error) {
	f.record(fmt.Sprintf("send_event:%s:%s", roomID, eventType))
	return ref.MustParseEventID("$sent:local"), nil
}

func (f *fakeSession) CloseIdleConnections() {
	f.record("close_idle")
}

var _ messaging.Session = (*fakeSession)(nil)

// Sync response builders shared by the tests.

func syncMessage(roomID, eventID, sender, body string) messaging.Event {
	return messaging.Event{
		EventID: ref.MustParseEventID(eventID),
		Type:    ref.EventTypeMessage,
		Sender:  ref.MustParseUserID(sender),
		Content: map[string]any{"msgtype": "m.text", "body": body},
	}
}

func syncResponseWithMessages(nextBatch, roomID string, events ...messaging.Event) *messaging.SyncResponse {
	return &messaging.SyncResponse{
		NextBatch: nextBatch,
		Rooms: messaging.RoomsSection{
			Join: map[ref.RoomID]messaging.JoinedRoom{
				ref.MustParseRoomID(roomID): {
					Timeline: messaging.TimelineSection{Events: events},
				},
			},
		},
	}
}

func syncResponseWithInvite(nextBatch, roomID, inviter, invitee string) *messaging.SyncResponse {
	stateKey := invitee
	return &messaging.SyncResponse{
		NextBatch: nextBatch,
		Rooms: messaging.RoomsSection{
			Invite: map[ref.RoomID]messaging.InvitedRoom{
				ref.MustParseRoomID(roomID): {
					InviteState: messaging.StateSection{
						Events: []messaging.Event{{
							Type:     ref.EventTypeMember,
							Sender:   ref.MustParseUserID(inviter),
							StateKey: &stateKey,
							Content:  map[string]any{"membership": "invite"},
						}},
					},
				},
			},
		},
	}
}

func emptySyncResponse(nextBatch string) *messaging.SyncResponse {
	return &messaging.SyncResponse{NextBatch: nextBatch}
}
