// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated Matrix identifier types.
//
// Matrix identifiers arrive as strings from configuration, command-line
// flags, and homeserver responses. Parsing them into these types at the
// boundary means the rest of the codebase never handles a malformed
// user ID, room ID, or event ID: a non-zero ref value is structurally
// valid by construction.
//
// All types are immutable value types. The zero value is not valid;
// use IsZero to check. UserID, RoomID, and EventID implement
// encoding.TextMarshaler/TextUnmarshaler so encoding/json validates
// them automatically during /sync response deserialization.
package ref
