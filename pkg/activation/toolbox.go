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

	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/runcontext"
	"github.com/agentmesh/agentmesh/pkg/toolbox"
)

// Toolbox activates one tool resolved from the ToolboxRegistry: the
// ToolboxEntry's declared args (AgentSpec.ToolboxArgs) are merged with
// the call's arguments, user-supplied values winning.
type Toolbox struct {
	Spec     *network.AgentSpec
	Registry *toolbox.Registry
}

func (a *Toolbox) Name() string { return a.Spec.Name }

func (a *Toolbox) Invoke(ctx context.Context, rc *runcontext.RunContext, args map[string]any) (runcontext.ToolOutput, error) {
	tool, ok := a.Registry.Get(a.Spec.Name)
	if !ok {
		return runcontext.ToolOutput{}, fmt.Errorf("activation: toolbox entry %q not found", a.Spec.Name)
	}

	merged, err := toolbox.MergeArgs(a.Spec.ToolboxArgs, args, nil)
	if err != nil {
		return runcontext.ToolOutput{Value: fmt.Sprintf("Error: %v", err)}, nil
	}

	out, err := tool.Invoke(ctx, merged)
	if err != nil {
		return runcontext.ToolOutput{Value: fmt.Sprintf("Error: %v", err)}, nil
	}
	return runcontext.ToolOutput{Value: out}, nil
}
