// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. These centralize
// the raw I/O that happens before or after the structured logger
// exists: fatal error reporting to stderr and process exit after an
// unrecoverable error in main().
package process
