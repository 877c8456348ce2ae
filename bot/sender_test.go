// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pmbot-project/pmbot/lib/ref"
	"github.com/pmbot-project/pmbot/messaging"
)

func TestSendTextSuccess(t *testing.T) {
	session := newFakeSession("@pmbot:local")
	sender := NewSender(session, testLogger())

	eventID, err := sender.SendText(context.Background(),
		ref.MustParseRoomID("!room1:local"), "hello")
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if eventID.IsZero() {
		t.Error("expected non-zero event ID")
	}
	if len(session.sentBodies) != 1 || session.sentBodies[0] != "hello" {
		t.Errorf("unexpected sends: %v", session.sentBodies)
	}
}

func TestSendTextClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason SendReason
	}{
		{
			name:   "network failure",
			err:    fmt.Errorf("dial tcp: connection refused"),
			reason: SendNetwork,
		},
		{
			name:   "forbidden",
			err:    &messaging.MatrixError{Code: messaging.ErrCodeForbidden, Message: "not in room", StatusCode: 403},
			reason: SendForbidden,
		},
		{
			name:   "rate limited",
			err:    &messaging.MatrixError{Code: messaging.ErrCodeLimitExceeded, Message: "slow down", StatusCode: 429},
			reason: SendRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeSession("@pmbot:local")
			session.sendErr = tt.err
			sender := NewSender(session, testLogger())

			_, err := sender.SendText(context.Background(),
				ref.MustParseRoomID("!room1:local"), "x")
			var sendErr *SendError
			if !errors.As(err, &sendErr) {
				t.Fatalf("expected *SendError, got %v", err)
			}
			if sendErr.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", sendErr.Reason, tt.reason)
			}
			if !errors.Is(err, tt.err) && sendErr.Unwrap() == nil {
				t.Error("SendError must wrap the underlying failure")
			}
		})
	}
}

func TestEchoHandlerRepliesInSameRoom(t *testing.T) {
	session := newFakeSession("@pmbot:local")
	handler := EchoHandler(NewSender(session, testLogger()))

	err := handler(context.Background(), Event{
		Kind:    KindMessage,
		RoomID:  ref.MustParseRoomID("!abc:example.org"),
		Sender:  ref.MustParseUserID("@alice:example.org"),
		Body:    "hi",
		MsgType: "m.text",
	})
	if err != nil {
		t.Fatalf("echo handler failed: %v", err)
	}
	if len(session.sentBodies) != 1 || session.sentBodies[0] != "You said: hi" {
		t.Errorf("unexpected sends: %v", session.sentBodies)
	}
	if session.sentRooms[0].String() != "!abc:example.org" {
		t.Errorf("reply went to %s, want !abc:example.org", session.sentRooms[0])
	}
}

func TestEchoHandlerIgnoresNonText(t *testing.T) {
	session := newFakeSession("@pmbot:local")
	handler := EchoHandler(NewSender(session, testLogger()))

	err := handler(context.Background(), Event{
		Kind:    KindMessage,
		RoomID:  ref.MustParseRoomID("!abc:example.org"),
		Sender:  ref.MustParseUserID("@alice:example.org"),
		Body:    "image.png",
		MsgType: "m.image",
	})
	if err != nil {
		t.Fatalf("echo handler failed: %v", err)
	}
	if len(session.sentBodies) != 0 {
		t.Errorf("non-text message triggered sends: %v", session.sentBodies)
	}
}

func TestEchoHandlerSurfacesSendFailure(t *testing.T) {
	session := newFakeSession("@pmbot:local")
	session.sendErr = fmt.Errorf("connection reset")
	handler := EchoHandler(NewSender(session, testLogger()))

	err := handler(context.Background(), Event{
		Kind:    KindMessage,
		RoomID:  ref.MustParseRoomID("!abc:example.org"),
		Sender:  ref.MustParseUserID("@alice:example.org"),
		Body:    "hi",
		MsgType: "m.text",
	})
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected wrapped *SendError, got %v", err)
	}
}
