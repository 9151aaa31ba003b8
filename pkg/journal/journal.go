// Copyright 2025 agentmesh authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package journal implements the append-only message sink: every
// ChatMessage a RunContext or a CallableActivation produces is written
// through a Journal tagged with its Origin, and journals compose by
// wrapping one another rather than by inheritance.
package journal

import (
	"context"
	"sync"

	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/origin"
)

// Journal is the write sink every RunContext and activation writes
// through. Write must forward to any wrapped journal before returning,
// so that message ordering within one RunContext is preserved end to
// end.
type Journal interface {
	Write(ctx context.Context, msg *chat.Message) error
	History() []*chat.Message
}

// Originating is the root composition: it stamps every message it's
// given with the Origin of the RunContext that owns it, appends to an
// in-memory history, and — when wrapping a parent journal — forwards the
// stamped message upward before returning.
type Originating struct {
	origin origin.Origin
	parent Journal

	mu      sync.Mutex
	history []*chat.Message
}

// NewOriginating builds a journal owned by the activation at o. parent
// may be nil for a front-man's root journal.
func NewOriginating(o origin.Origin, parent Journal) *Originating {
	return &Originating{origin: o, parent: parent}
}

func (j *Originating) Write(ctx context.Context, msg *chat.Message) error {
	// Only stamp a message that doesn't already carry an origin: a
	// message forwarded up from a child's own Originating journal is
	// already stamped with that child's origin, and an ancestor
	// re-stamping it with its own origin would destroy the per-origin
	// grouping a ChatContext round-trip depends on.
	stamped := msg
	if msg.Origin == nil {
		cp := *msg
		cp.Origin = j.origin
		stamped = &cp
	}

	j.mu.Lock()
	j.history = append(j.history, stamped)
	j.mu.Unlock()

	if j.parent != nil {
		return j.parent.Write(ctx, stamped)
	}
	return nil
}

func (j *Originating) History() []*chat.Message {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*chat.Message, len(j.history))
	copy(out, j.history)
	return out
}

// Intercepting forwards every write to a wrapped journal unchanged, and
// additionally captures a private copy of any message whose origin
// equals target — used to reconstruct one sub-graph's trace without
// disturbing the wrapped journal's own history.
type Intercepting struct {
	wrapped Journal
	target  origin.Origin

	mu       sync.Mutex
	captured []*chat.Message
}

func NewIntercepting(wrapped Journal, target origin.Origin) *Intercepting {
	return &Intercepting{wrapped: wrapped, target: target}
}

func (j *Intercepting) Write(ctx context.Context, msg *chat.Message) error {
	if err := j.wrapped.Write(ctx, msg); err != nil {
		return err
	}
	if msg.Origin.Equal(j.target) {
		j.mu.Lock()
		j.captured = append(j.captured, msg)
		j.mu.Unlock()
	}
	return nil
}

// History delegates to the wrapped journal; Intercepting never owns its
// own primary history, only the captured subset.
func (j *Intercepting) History() []*chat.Message {
	return j.wrapped.History()
}

// Captured returns every message so far observed with origin equal to
// the target this Intercepting journal was built with.
func (j *Intercepting) Captured() []*chat.Message {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*chat.Message, len(j.captured))
	copy(out, j.captured)
	return out
}
