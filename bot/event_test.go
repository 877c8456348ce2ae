// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"testing"

	"github.com/pmbot-project/pmbot/lib/ref"
	"github.com/pmbot-project/pmbot/messaging"
)

func TestFlattenSyncInvitesBeforeMessages(t *testing.T) {
	self := ref.MustParseUserID("@pmbot:local")
	stateKey := self.String()
	response := &messaging.SyncResponse{
		NextBatch: "s5",
		Rooms: messaging.RoomsSection{
			Invite: map[ref.RoomID]messaging.InvitedRoom{
				ref.MustParseRoomID("!invited:local"): {
					InviteState: messaging.StateSection{Events: []messaging.Event{{
						Type:     ref.EventTypeMember,
						Sender:   ref.MustParseUserID("@alice:local"),
						StateKey: &stateKey,
						Content:  map[string]any{"membership": "invite"},
					}}},
				},
			},
			Join: map[ref.RoomID]messaging.JoinedRoom{
				ref.MustParseRoomID("!joined:local"): {
					Timeline: messaging.TimelineSection{Events: []messaging.Event{
						syncMessage("!joined:local", "$m1:local", "@bob:local", "first"),
						syncMessage("!joined:local", "$m2:local", "@bob:local", "second"),
					}},
				},
			},
		},
	}

	batch := flattenSync(response, self)
	if batch.NextCursor != "s5" {
		t.Errorf("next cursor = %q, want s5", batch.NextCursor)
	}
	if len(batch.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(batch.Events))
	}

	invite := batch.Events[0]
	if invite.Kind != KindInvite {
		t.Errorf("first event kind = %v, want invite", invite.Kind)
	}
	if invite.Inviter.String() != "@alice:local" {
		t.Errorf("inviter = %s, want @alice:local", invite.Inviter)
	}
	if batch.Events[1].Body != "first" || batch.Events[2].Body != "second" {
		t.Errorf("timeline order not preserved: %q, %q",
			batch.Events[1].Body, batch.Events[2].Body)
	}
}

func TestFlattenSyncClassifiesTimeline(t *testing.T) {
	self := ref.MustParseUserID("@pmbot:local")
	memberKey := "@alice:local"
	response := syncResponseWithMessages("s1", "!room1:local",
		syncMessage("!room1:local", "$m1:local", "@alice:local", "hi"),
		messaging.Event{
			EventID:  ref.MustParseEventID("$s1:local"),
			Type:     ref.EventTypeMember,
			Sender:   ref.MustParseUserID("@alice:local"),
			StateKey: &memberKey,
			Content:  map[string]any{"membership": "join"},
		},
	)

	batch := flattenSync(response, self)
	if len(batch.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(batch.Events))
	}
	if batch.Events[0].Kind != KindMessage {
		t.Errorf("first event kind = %v, want message", batch.Events[0].Kind)
	}
	if batch.Events[0].MsgType != "m.text" {
		t.Errorf("msgtype = %q, want m.text", batch.Events[0].MsgType)
	}
	if batch.Events[1].Kind != KindOther {
		t.Errorf("member event kind = %v, want other", batch.Events[1].Kind)
	}
}

func TestFlattenSyncEmptyResponse(t *testing.T) {
	batch := flattenSync(emptySyncResponse("s9"), ref.MustParseUserID("@pmbot:local"))
	if !batch.Empty() {
		t.Errorf("expected empty batch, got %d events", len(batch.Events))
	}
	if batch.NextCursor != "s9" {
		t.Errorf("next cursor = %q, want s9", batch.NextCursor)
	}
}

func TestFlattenSyncDeterministicRoomOrder(t *testing.T) {
	self := ref.MustParseUserID("@pmbot:local")
	response := &messaging.SyncResponse{
		NextBatch: "s1",
		Rooms: messaging.RoomsSection{
			Join: map[ref.RoomID]messaging.JoinedRoom{
				ref.MustParseRoomID("!bbb:local"): {Timeline: messaging.TimelineSection{Events: []messaging.Event{
					syncMessage("!bbb:local", "$b:local", "@alice:local", "from-b"),
				}}},
				ref.MustParseRoomID("!aaa:local"): {Timeline: messaging.TimelineSection{Events: []messaging.Event{
					syncMessage("!aaa:local", "$a:local", "@alice:local", "from-a"),
				}}},
			},
		},
	}

	for i := 0; i < 10; i++ {
		batch := flattenSync(response, self)
		if batch.Events[0].Body != "from-a" || batch.Events[1].Body != "from-b" {
			t.Fatalf("room order not deterministic on run %d: %q, %q",
				i, batch.Events[0].Body, batch.Events[1].Body)
		}
	}
}
