// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"fmt"
)

// EchoHandler returns the built-in message handler: it replies to
// every text message with "You said: <body>" in the same room.
// Non-text message subtypes (images, notices) are ignored.
func EchoHandler(sender *Sender) Handler {
	return func(ctx context.Context, event Event) error {
		if event.MsgType != "m.text" {
			return nil
		}
		if _, err := sender.SendText(ctx, event.RoomID, "You said: "+event.Body); err != nil {
			return fmt.Errorf("echo reply: %w", err)
		}
		return nil
	}
}
