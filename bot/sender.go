// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"log/slog"

	"github.com/pmbot-project/pmbot/lib/ref"
	"github.com/pmbot-project/pmbot/messaging"
)

// Sender submits outbound reply events. Synchronous: the calling
// handler suspends until the send round-trip completes or fails. No
// internal retry; retry policy belongs to the caller, and the
// messaging layer's per-call transaction IDs make a deliberate caller
// resend safe against duplication only within one transaction.
type Sender struct {
	session messaging.Session
	logger  *slog.Logger
}

// NewSender creates a Sender over the given session.
func NewSender(session messaging.Session, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{session: session, logger: logger}
}

// SendText sends a plain text message to a room. Failures come back as
// *SendError classified network, forbidden, or rate_limited.
func (s *Sender) SendText(ctx context.Context, roomID ref.RoomID, body string) (ref.EventID, error) {
	eventID, err := s.session.SendMessage(ctx, roomID, messaging.NewTextMessage(body))
	if err != nil {
		sendErr := classifySendError(roomID, err)
		s.logger.Error("send failed",
			"room_id", roomID,
			"reason", string(sendErr.Reason),
			"error", err,
		)
		return ref.EventID{}, sendErr
	}
	s.logger.Debug("message sent", "room_id", roomID, "event_id", eventID)
	return eventID, nil
}
