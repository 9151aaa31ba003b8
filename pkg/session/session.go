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

// Package session drives one streaming-chat turn end to end: resolving
// the target AgentNetwork, gating on the Authorizer, materializing the
// activation graph for the front-man, running its RunContext, and
// emitting every message the turn produces — ending in exactly one
// terminal AGENT_FRAMEWORK message — through a caller-supplied Sink.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agentmesh/agentmesh/pkg/authz"
	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/codedtool"
	"github.com/agentmesh/agentmesh/pkg/httpclient"
	"github.com/agentmesh/agentmesh/pkg/invocation"
	"github.com/agentmesh/agentmesh/pkg/llm"
	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/origin"
	"github.com/agentmesh/agentmesh/pkg/runcontext"
	"github.com/agentmesh/agentmesh/pkg/slydata"
	"github.com/agentmesh/agentmesh/pkg/toolbox"
)

// AuthError is returned when the Authorizer denies a turn before any
// RunContext is built; the transport layer maps this to a 403-equivalent
// response.
type AuthError struct {
	Network string
	ActorID string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session: actor %q is not authorized to use network %q", e.ActorID, e.Network)
}

// Runner is the per-process session driver: one Runner serves every
// network installed in Networks, for every request.
type Runner struct {
	Networks          network.Provider
	Authorizer        authz.Authorizer
	Resources         *llm.Resources
	ToolboxRegistry   *toolbox.Registry
	CodedToolResolver *codedtool.Resolver
	ExternalClient    *httpclient.Client
	Logger            *zap.Logger
}

// TurnRequest is one streaming-chat turn.
type TurnRequest struct {
	NetworkName string
	UserMessage string
	ChatContext *chat.Context
	SlyData     map[string]any
	Actor       *authz.Actor
}

// Run drives one turn to completion, calling emit for every message in
// wire order. It returns a non-nil error for failures that happen
// before any message is emitted (network not found, authorization
// denied, activation graph not buildable) and for an error emit returns
// on the terminal message; once the front-man's RunContext starts, any
// failure inside the turn is folded into the one terminal
// AGENT_FRAMEWORK message instead.
func (r *Runner) Run(ctx context.Context, req TurnRequest, emit Sink) error {
	net, err := network.MustGet(r.Networks, req.NetworkName)
	if err != nil {
		return err
	}

	actorID := ""
	var actorMetadata map[string]any
	if req.Actor != nil {
		actorID = req.Actor.ID
		actorMetadata = req.Actor.Metadata
	}
	if r.Authorizer != nil {
		allowed, err := r.Authorizer.Allow(ctx, actorID, actorMetadata, "read", fmt.Sprintf("AgentNetwork:%s", net.Name))
		if err != nil {
			return fmt.Errorf("session: authorize network %q: %w", net.Name, err)
		}
		if !allowed {
			return &AuthError{Network: net.Name, ActorID: actorID}
		}
	}

	frontMan, ok := net.Agents[net.FrontMan]
	if !ok {
		return fmt.Errorf("session: front-man %q not declared in network %q", net.FrontMan, net.Name)
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	journalRoot := newStreamingJournal(frontMan.Name, emit)
	invCtx := invocation.New(frontMan.Name,
		invocation.WithLogger(logger),
		invocation.WithUserID(actorID),
		invocation.WithJournalRoot(journalRoot),
	)
	execCtx := invCtx.Start(ctx)
	defer invCtx.Stop()

	builder := newActivationBuilder(net, r.Resources, r.ToolboxRegistry, r.CodedToolResolver, r.ExternalClient)
	tools, toolDefs, err := builder.toolsFor(frontMan)
	if err != nil {
		return fmt.Errorf("session: build activation graph for %q: %w", net.Name, err)
	}

	rootRC := runcontext.New(frontMan, runcontext.Options{
		InvocationContext: invCtx,
		Resources:         r.Resources,
		Tools:             tools,
		ToolDefs:          toolDefs,
		SlyData:           slydata.NewStore(req.SlyData),
		ChatContext:       req.ChatContext,
	})

	final, turnErr := rootRC.SubmitMessage(execCtx, req.UserMessage)

	frontManBoundary := boundaryOf(frontMan)
	frameworkMsg := compileFrameworkMessage(frontMan.Name, final, turnErr, rootRC, journalRoot, frontManBoundary)
	return emit(frameworkMsg)
}

// compileFrameworkMessage builds the one terminal event of a turn: on
// success it extracts any JSON structure from the front-man's compiled
// answer and attaches a resumable ChatContext; on failure it carries a
// user-visible reason string instead of an internal stack trace.
func compileFrameworkMessage(frontMan string, final *chat.Message, turnErr error, rc *runcontext.RunContext, j *streamingJournal, boundary slydata.Boundary) *chat.Message {
	cc := compileChatContext(j.History())

	if turnErr != nil {
		text := fmt.Sprintf("The %s agent could not complete this turn: %v", frontMan, turnErr)
		msg := chat.AgentFramework(text, nil, nil, cc)
		msg.Origin = origin.Root(frontMan)
		return msg
	}

	structure, text := extractStructure(final.Text)
	slyDataOut := slydata.Redact(boundary.Resolve("to_downstream"), rc.SlyData().Snapshot())

	msg := chat.AgentFramework(text, structure, slyDataOut, cc)
	msg.Origin = origin.Root(frontMan)
	return msg
}

// compileChatContext groups a flat, origin-stamped message history (as
// produced by the streaming journal) back into the per-origin histories
// a ChatContext carries, preserving first-seen order.
func compileChatContext(messages []*chat.Message) *chat.Context {
	var order []origin.Origin
	byOrigin := map[string][]*chat.Message{}

	for _, m := range messages {
		key := m.Origin.String()
		if _, seen := byOrigin[key]; !seen {
			order = append(order, m.Origin)
		}
		byOrigin[key] = append(byOrigin[key], m)
	}

	histories := make([]chat.History, 0, len(order))
	for _, o := range order {
		histories = append(histories, chat.History{Origin: o, Messages: byOrigin[o.String()]})
	}
	return &chat.Context{ChatHistories: histories}
}
