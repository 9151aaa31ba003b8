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

package activation

import (
	"context"
	"fmt"

	"github.com/agentmesh/agentmesh/pkg/codedtool"
	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/runcontext"
)

// CodedTool activates a compiled-in Go tool by its symbolic class: it
// resolves and instantiates the tool fresh per call, injects the
// capabilities the instance opted into, and converts
// any error the tool returns into a string "Error: ..." message rather
// than propagating it, so the chain can continue.
type CodedTool struct {
	Spec     *network.AgentSpec
	Resolver *codedtool.Resolver
}

func (a *CodedTool) Name() string { return a.Spec.Name }

func (a *CodedTool) Invoke(ctx context.Context, rc *runcontext.RunContext, args map[string]any) (runcontext.ToolOutput, error) {
	tool, err := a.Resolver.Activate(a.Spec.Class, codedtool.Injection{
		RunContext:    rc,
		SlyData:       rc.SlyData(),
		Arguments:     args,
		AgentToolSpec: a.Spec,
	})
	if err != nil {
		return runcontext.ToolOutput{}, fmt.Errorf("activation: resolve coded tool %s: %w", a.Spec.Class, err)
	}

	out, err := tool.Invoke(ctx, args)
	if err != nil {
		return runcontext.ToolOutput{Value: fmt.Sprintf("Error: %v", err)}, nil
	}
	return runcontext.ToolOutput{Value: out}, nil
}
