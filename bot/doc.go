// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot implements the sync engine at the heart of pmbot: a
// single sequential long-poll loop against the Matrix homeserver that
// classifies incoming events, dispatches them to registered handlers in
// server order, auto-joins rooms the bot is invited to, and recovers
// from transport failures with capped exponential backoff.
//
// The loop is strictly poll → dispatch → advance-cursor: the sync
// cursor only moves forward after a batch has been fully dispatched, so
// a crash mid-dispatch re-delivers the batch on restart rather than
// dropping it. Handlers must tolerate that re-delivery.
//
// [Engine] owns the loop. Handlers are registered with [Engine.On]
// before [Engine.Run] starts; the registry is frozen for the duration
// of the run. Handler failures are isolated and logged, never fatal.
// Only authentication failures and an exhausted consecutive-failure
// budget terminate the loop.
package bot
