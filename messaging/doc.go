// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the subset of the Matrix client-server API
// the bot needs: identity verification (WhoAmI), incremental /sync with
// long-polling, room membership operations (join, leave, joined_rooms),
// and idempotent event sending.
//
// [Client] holds the homeserver URL and HTTP transport. [DirectSession]
// wraps a Client with a bearer access token for authenticated calls;
// the [Session] interface abstracts it so the sync engine can be tested
// against a scripted fake.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_UNKNOWN_TOKEN, etc.) and the HTTP
// status code. [IsMatrixError] tests for a specific error code. Request
// URLs are built by string concatenation rather than url.URL to avoid
// double-encoding of path segments that contain URL-encoded characters.
//
// Event sends use Matrix's idempotent PUT with a fresh transaction ID
// per call, so the homeserver deduplicates an accidental resend of the
// same transaction without duplicating visible messages.
package messaging
