// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import "github.com/pmbot-project/pmbot/lib/ref"

// Membership is the bot's relationship to a room.
type Membership int

const (
	// MembershipNone: no recorded relationship.
	MembershipNone Membership = iota
	MembershipInvited
	MembershipJoined
	MembershipLeft
)

func (m Membership) String() string {
	switch m {
	case MembershipInvited:
		return "invited"
	case MembershipJoined:
		return "joined"
	case MembershipLeft:
		return "left"
	default:
		return "none"
	}
}

// Memberships tracks per-room membership state. Owned by the dispatch
// loop; accessed only between poll cycles, so no locking. Transitions
// are idempotent: re-recording the current state is a no-op, which is
// what makes batch re-delivery after a crash safe.
type Memberships struct {
	rooms map[ref.RoomID]Membership
}

// NewMemberships creates an empty membership tracker.
func NewMemberships() *Memberships {
	return &Memberships{rooms: make(map[ref.RoomID]Membership)}
}

// Get returns the recorded membership for roomID, or MembershipNone.
func (m *Memberships) Get(roomID ref.RoomID) Membership {
	return m.rooms[roomID]
}

// Set records the membership state for roomID.
func (m *Memberships) Set(roomID ref.RoomID, state Membership) {
	m.rooms[roomID] = state
}

// Joined returns the rooms currently recorded as joined, for
// diagnostics.
func (m *Memberships) Joined() []ref.RoomID {
	var joined []ref.RoomID
	for roomID, state := range m.rooms {
		if state == MembershipJoined {
			joined = append(joined, roomID)
		}
	}
	return joined
}
