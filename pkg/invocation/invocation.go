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

// Package invocation implements the InvocationContext: the per-request
// ambient state every RunContext spawned while serving one
// streaming-chat turn is built from.
package invocation

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agentmesh/agentmesh/pkg/journal"
	"github.com/agentmesh/agentmesh/pkg/origin"
)

// Disposable is anything an InvocationContext must release when the
// request ends, mirroring a "delete_resources()" cascade. RunContext
// implements this.
type Disposable interface {
	DeleteResources()
}

// Context holds the ambient state for one request: metadata, the
// origination counter, the journal root, and the factories downstream
// activations use to build LLM resources, toolbox lookups, and
// external-agent sessions. Factories are typed as `any` here and
// narrowed by the packages that consume them (pkg/runcontext,
// pkg/activation), keeping this package free of an import cycle back to
// pkg/llm/pkg/toolbox.
type Context struct {
	RequestID string
	UserID    string

	Metadata map[string]string

	Logger *zap.Logger

	LLMFactory             any
	ToolboxFactory         any
	ExternalAgentSessionFn any

	JournalRoot journal.Journal
	Origination *origin.Counter

	group  *errgroup.Group
	egCtx  context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	started   bool
	stopped   bool
	disposers []Disposable
}

// Option configures a Context at construction.
type Option func(*Context)

func WithUserID(userID string) Option {
	return func(c *Context) { c.UserID = userID }
}

func WithMetadata(md map[string]string) Option {
	return func(c *Context) { c.Metadata = md }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) { c.Logger = logger }
}

func WithLLMFactory(f any) Option {
	return func(c *Context) { c.LLMFactory = f }
}

func WithToolboxFactory(f any) Option {
	return func(c *Context) { c.ToolboxFactory = f }
}

func WithExternalAgentSessionFn(f any) Option {
	return func(c *Context) { c.ExternalAgentSessionFn = f }
}

// WithJournalRoot overrides the request's root journal. Used by a
// streaming session to observe every message as it's written instead of
// only seeing the compiled history after the turn completes.
func WithJournalRoot(j journal.Journal) Option {
	return func(c *Context) { c.JournalRoot = j }
}

// New builds a Context for a request rooted at frontMan. It does not
// start the async executor; call Start for that.
func New(frontMan string, opts ...Option) *Context {
	c := &Context{
		RequestID:   uuid.NewString(),
		Metadata:    map[string]string{},
		Logger:      zap.NewNop(),
		Origination: origin.NewCounter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.JournalRoot == nil {
		c.JournalRoot = journal.NewOriginating(origin.Root(frontMan), nil)
	}
	c.Logger = c.Logger.With(
		zap.String("request_id", c.RequestID),
		zap.String("front_man", frontMan),
	)
	if c.UserID != "" {
		c.Logger = c.Logger.With(zap.String("user_id", c.UserID))
	}
	return c
}

// Start begins the request's lifecycle, wiring an errgroup bound to ctx
// as the async executor handle for concurrent tool-call fan-out. Stop
// cancels it and tears down every RunContext registered via Track.
func (c *Context) Start(ctx context.Context) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return c.egCtx
	}
	c.started = true

	egCtx, cancel := context.WithCancel(ctx)
	group, egCtx := errgroup.WithContext(egCtx)
	c.group = group
	c.egCtx = egCtx
	c.cancel = cancel
	return egCtx
}

// Go schedules fn on the request's async executor. Calling it before
// Start is a programmer error and panics, failing fast on a misused
// lifecycle API.
func (c *Context) Go(fn func() error) {
	c.mu.Lock()
	group := c.group
	c.mu.Unlock()
	if group == nil {
		panic("invocation: Go called before Start")
	}
	group.Go(fn)
}

// Wait blocks until every goroutine scheduled via Go has returned,
// returning the first non-nil error if any.
func (c *Context) Wait() error {
	c.mu.Lock()
	group := c.group
	c.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}

// Track registers a RunContext (or any other Disposable) so Stop
// releases it, triggering delete_resources() on every RunContext
// created under it.
func (c *Context) Track(d Disposable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposers = append(c.disposers, d)
}

// Stop ends the request's lifecycle: cancels the async executor and
// calls DeleteResources on every tracked RunContext, in reverse
// registration order so children release before their parents.
func (c *Context) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel := c.cancel
	disposers := c.disposers
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for i := len(disposers) - 1; i >= 0; i-- {
		disposers[i].DeleteResources()
	}
}
