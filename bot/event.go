// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"sort"

	"github.com/pmbot-project/pmbot/lib/ref"
	"github.com/pmbot-project/pmbot/messaging"
)

// Kind classifies an incoming event for dispatch.
type Kind int

const (
	// KindInvite: the bot was invited to a room.
	KindInvite Kind = iota
	// KindMessage: an m.room.message timeline event.
	KindMessage
	// KindOther: any other timeline event the sync filter let through.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindInvite:
		return "invite"
	case KindMessage:
		return "message"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Event is one incoming event, immutable once constructed. Invite
// events carry Inviter; message events carry Body and MsgType. Invite
// events synthesized from stripped invite state have a zero EventID and
// Timestamp (the homeserver omits them).
type Event struct {
	Kind      Kind
	RoomID    ref.RoomID
	Sender    ref.UserID
	EventID   ref.EventID
	Timestamp int64

	// Inviter is set for KindInvite.
	Inviter ref.UserID

	// Body and MsgType are set for KindMessage.
	Body    string
	MsgType string
}

// Batch is the ordered set of events produced by one sync poll,
// together with the cursor to advance to once the batch has been
// dispatched.
type Batch struct {
	Events     []Event
	NextCursor string
}

// Empty reports whether the poll returned no events (the normal
// outcome of a long-poll timeout).
func (b Batch) Empty() bool { return len(b.Events) == 0 }

// flattenSync converts a sync response into a dispatch batch. Within a
// room, server-assigned timeline order is preserved exactly. Across
// rooms the protocol defines no order; rooms are visited in sorted ID
// order so dispatch is deterministic, with invites ahead of joined-room
// timelines so that an invite and follow-up messages delivered in the
// same poll dispatch in causal order.
func flattenSync(response *messaging.SyncResponse, self ref.UserID) Batch {
	batch := Batch{NextCursor: response.NextBatch}

	for _, roomID := range sortedRoomIDs(response.Rooms.Invite) {
		room := response.Rooms.Invite[roomID]
		event := Event{Kind: KindInvite, RoomID: roomID}
		for _, stripped := range room.InviteState.Events {
			if stripped.Type != ref.EventTypeMember {
				continue
			}
			if stripped.StateKey == nil || *stripped.StateKey != self.String() {
				continue
			}
			event.Sender = stripped.Sender
			event.Inviter = stripped.Sender
		}
		batch.Events = append(batch.Events, event)
	}

	for _, roomID := range sortedRoomIDs(response.Rooms.Join) {
		room := response.Rooms.Join[roomID]
		for _, raw := range room.Timeline.Events {
			batch.Events = append(batch.Events, timelineEvent(roomID, raw))
		}
	}

	return batch
}

// timelineEvent classifies one joined-room timeline event.
func timelineEvent(roomID ref.RoomID, raw messaging.Event) Event {
	event := Event{
		Kind:      KindOther,
		RoomID:    roomID,
		Sender:    raw.Sender,
		EventID:   raw.EventID,
		Timestamp: raw.OriginServerTS,
	}
	if raw.Type != ref.EventTypeMessage {
		return event
	}
	event.Kind = KindMessage
	if body, ok := raw.Content["body"].(string); ok {
		event.Body = body
	}
	if msgType, ok := raw.Content["msgtype"].(string); ok {
		event.MsgType = msgType
	}
	return event
}

func sortedRoomIDs[V any](rooms map[ref.RoomID]V) []ref.RoomID {
	ids := make([]ref.RoomID, 0, len(rooms))
	for id := range rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
