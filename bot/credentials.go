// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"fmt"

	"github.com/pmbot-project/pmbot/lib/ref"
	"github.com/pmbot-project/pmbot/messaging"
)

// validateIdentity performs the one-time whoami probe: the access
// token must resolve to exactly the configured user ID before any sync
// begins. Failure is always an *AuthError and fatal to startup; there
// is no retry, because credentials do not become valid by waiting.
func validateIdentity(ctx context.Context, session messaging.Session, want ref.UserID) error {
	response, err := session.WhoAmI(ctx)
	if err != nil {
		return classifyProbeError(err)
	}
	if response.UserID != want {
		return &AuthError{
			Reason: AuthInvalidToken,
			Err:    fmt.Errorf("token belongs to %s, configured as %s", response.UserID, want),
		}
	}
	return nil
}
