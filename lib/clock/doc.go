// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability. Production
// code injects Real(); tests inject Fake() with deterministic time
// control, so backoff delays and long-poll retry timing can be tested
// without real sleeps.
package clock
