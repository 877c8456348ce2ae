// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pmbot-project/pmbot/lib/ref"
	"github.com/pmbot-project/pmbot/messaging"
)

// AuthReason classifies why credential validation or an authenticated
// call failed.
type AuthReason string

const (
	// AuthInvalidToken: the homeserver rejected the access token, or
	// the token belongs to a different user than configured.
	AuthInvalidToken AuthReason = "invalid_token"
	// AuthUnreachable: the homeserver could not be reached for the
	// validation probe.
	AuthUnreachable AuthReason = "unreachable"
	// AuthMalformedResponse: the homeserver answered the probe with
	// something that is not a valid whoami response.
	AuthMalformedResponse AuthReason = "malformed_response"
)

// AuthError is a credential failure. Always fatal: credentials do not
// become valid by waiting, so the engine never retries one.
type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SendReason classifies an outbound send failure.
type SendReason string

const (
	SendNetwork     SendReason = "network"
	SendForbidden   SendReason = "forbidden"
	SendRateLimited SendReason = "rate_limited"
)

// SendError is a failed outbound send. Returned to the handler that
// issued the send; the engine never retries sends on its own, since a
// blind resend of a chat message would duplicate visible text.
type SendError struct {
	Reason SendReason
	RoomID ref.RoomID
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed (%s): %v", e.RoomID, e.Reason, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// HandlerError records a single handler or auto-join failure during
// dispatch. Collected in DispatchResult; never aborts the batch.
type HandlerError struct {
	EventID ref.EventID
	RoomID  ref.RoomID
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler failed for event %s in %s: %v", e.EventID, e.RoomID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// classifySendError wraps a messaging-layer send failure into a
// *SendError with the reason a handler can act on.
func classifySendError(roomID ref.RoomID, err error) *SendError {
	reason := SendNetwork
	switch {
	case messaging.IsRateLimited(err):
		reason = SendRateLimited
	case messaging.IsMatrixError(err, messaging.ErrCodeForbidden):
		reason = SendForbidden
	}
	return &SendError{Reason: reason, RoomID: roomID, Err: err}
}

// classifyProbeError converts a whoami failure into an *AuthError.
func classifyProbeError(err error) *AuthError {
	switch {
	case messaging.IsAuthFailure(err):
		return &AuthError{Reason: AuthInvalidToken, Err: err}
	case isMatrixResponse(err):
		// The server answered, but not with a valid whoami response.
		return &AuthError{Reason: AuthMalformedResponse, Err: err}
	default:
		return &AuthError{Reason: AuthUnreachable, Err: err}
	}
}

func isMatrixResponse(err error) bool {
	var matrixErr *messaging.MatrixError
	return errors.As(err, &matrixErr)
}

// isAuthFailure reports whether a mid-run sync failure means the token
// was revoked (401 / token error codes). This is the only transport
// failure the backoff controller treats as fatal on first sight.
func isAuthFailure(err error) bool {
	return messaging.IsAuthFailure(err)
}

// isServerError reports whether err is a Matrix-level 5xx or 429, the
// recoverable server-side failure class.
func isServerError(err error) bool {
	var matrixErr *messaging.MatrixError
	if !errors.As(err, &matrixErr) {
		return false
	}
	return matrixErr.StatusCode >= 500 || matrixErr.StatusCode == http.StatusTooManyRequests
}
