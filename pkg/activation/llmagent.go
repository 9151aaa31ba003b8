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

// Package activation implements the four CallableActivation variants:
// LlmAgent, CodedTool, Toolbox, and ExternalAgent. Each adapts a
// downstream reference into the runcontext.Activation contract a parent
// RunContext drives its tool calls through.
package activation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentmesh/agentmesh/pkg/llm"
	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/runcontext"
)

// LlmAgent activates a sub-agent: it builds a child RunContext under the
// parent's origin, assigns the call's arguments as the child's declared
// parameters, and forwards the tool call as the child's user turn.
type LlmAgent struct {
	Spec      *network.AgentSpec
	Resources *llm.Resources
	Tools     map[string]runcontext.Activation
	ToolDefs  []llm.ToolDefinition
}

func (a *LlmAgent) Name() string { return a.Spec.Name }

func (a *LlmAgent) Invoke(ctx context.Context, rc *runcontext.RunContext, args map[string]any) (runcontext.ToolOutput, error) {
	child := *a.Spec
	child.ToolboxArgs = args

	childRC := runcontext.New(&child, runcontext.Options{
		InvocationContext: rc.InvocationContext(),
		ParentOrigin:      rc.Origin(),
		Resources:         a.Resources,
		Tools:             a.Tools,
		ToolDefs:          a.ToolDefs,
		SlyData:           rc.SlyData(),
	})

	final, err := childRC.SubmitMessage(ctx, userTurnText(args))
	if err != nil {
		return runcontext.ToolOutput{}, fmt.Errorf("activation: sub-agent %s: %w", a.Spec.Name, err)
	}
	return runcontext.ToolOutput{Value: final}, nil
}

// userTurnText derives the text forwarded as a sub-agent's user turn
// from the calling LLM's tool-call arguments: the conventional "message"
// key if present, otherwise the whole argument set JSON-encoded.
func userTurnText(args map[string]any) string {
	if msg, ok := args["message"].(string); ok {
		return msg
	}
	buf, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(buf)
}
