// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"fmt"
)

// Handler processes one dispatched event. A non-nil error is recorded
// as a HandlerError in the dispatch result; it never stops the loop or
// the remaining handlers.
type Handler func(ctx context.Context, event Event) error

// Registry maps event kinds to ordered handler lists. Registration
// happens at setup time; the registry freezes when the engine starts
// and is read-only for the rest of the run, so dispatch needs no
// locking.
type Registry struct {
	handlers map[Kind][]Handler
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind][]Handler)}
}

// On appends a handler for the given kind. Handlers fire in
// registration order. Panics if called after the registry has been
// frozen: registration mid-run is a programming error, not a runtime
// condition.
func (r *Registry) On(kind Kind, handler Handler) {
	if r.frozen {
		panic(fmt.Sprintf("bot: handler for %s registered after engine start", kind))
	}
	if handler == nil {
		panic("bot: nil handler")
	}
	r.handlers[kind] = append(r.handlers[kind], handler)
}

// freeze makes the registry read-only. Called once by the engine when
// the run starts.
func (r *Registry) freeze() {
	r.frozen = true
}

// forKind returns the handlers registered for kind, in registration
// order. The returned slice must not be mutated.
func (r *Registry) forKind(kind Kind) []Handler {
	return r.handlers[kind]
}
