// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides startup configuration for the bot.
//
// Credentials come from the environment: MATRIX_SERVER,
// MATRIX_BOT_USER, and MATRIX_ACCESS_TOKEN are all required, and
// loading fails fast — before any network I/O — when one is absent. An
// optional .env file (loaded via godotenv) can supply them for local
// development.
//
// Operational tuning (long-poll timeout, backoff floor and cap,
// consecutive-failure budget, log level) comes from an optional YAML
// file. Tuning values have defaults; the file only needs to list the
// values it overrides. Credentials are never read from the YAML file —
// tokens do not belong in config files that get committed or copied.
//
// The result is a single immutable Config constructed once at startup
// and passed into the engine. No package reads environment variables
// at import time.
package config
