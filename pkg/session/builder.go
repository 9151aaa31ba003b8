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

package session

import (
	"encoding/json"
	"fmt"

	"github.com/agentmesh/agentmesh/pkg/activation"
	"github.com/agentmesh/agentmesh/pkg/codedtool"
	"github.com/agentmesh/agentmesh/pkg/httpclient"
	"github.com/agentmesh/agentmesh/pkg/llm"
	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/runcontext"
	"github.com/agentmesh/agentmesh/pkg/slydata"
	"github.com/agentmesh/agentmesh/pkg/toolbox"
)

// activationBuilder walks an AgentNetwork's graph once per turn, turning
// each declared AgentSpec into the runcontext.Activation its referrers
// call through, and every ExternalRef tool string into an ExternalAgent
// bound to the referring LlmAgent's own allow.to_downstream/
// from_downstream boundary — the allow block is declared per-LlmAgent,
// not per-reference.
type activationBuilder struct {
	net               *network.AgentNetwork
	resources         *llm.Resources
	toolboxRegistry   *toolbox.Registry
	codedToolResolver *codedtool.Resolver
	externalClient    *httpclient.Client

	built map[string]runcontext.Activation
}

func newActivationBuilder(net *network.AgentNetwork, resources *llm.Resources, toolboxRegistry *toolbox.Registry, codedToolResolver *codedtool.Resolver, externalClient *httpclient.Client) *activationBuilder {
	return &activationBuilder{
		net:               net,
		resources:         resources,
		toolboxRegistry:   toolboxRegistry,
		codedToolResolver: codedToolResolver,
		externalClient:    externalClient,
		built:             map[string]runcontext.Activation{},
	}
}

// boundaryOf converts an AgentSpec's allow block into the slydata.Boundary
// shape ExternalAgent consumes.
func boundaryOf(spec *network.AgentSpec) slydata.Boundary {
	b := slydata.Boundary{}
	if spec.Allow.FromDownstream != nil {
		b["from_downstream"] = slydata.ParsePolicy(spec.Allow.FromDownstream.SlyData)
	}
	if spec.Allow.ToDownstream != nil {
		b["to_downstream"] = slydata.ParsePolicy(spec.Allow.ToDownstream.SlyData)
	}
	return b
}

// toolsFor builds the Tools map and ToolDefs slice a RunContext for spec
// needs: one activation and one llm.ToolDefinition per entry in
// spec.Tools, recursing into declared sub-agents so the whole reachable
// subgraph is materialized up front for the turn.
func (b *activationBuilder) toolsFor(spec *network.AgentSpec) (map[string]runcontext.Activation, []llm.ToolDefinition, error) {
	tools := make(map[string]runcontext.Activation, len(spec.Tools))
	defs := make([]llm.ToolDefinition, 0, len(spec.Tools))
	boundary := boundaryOf(spec)

	for _, ref := range spec.Tools {
		if network.IsExternalRef(ref) {
			tools[ref] = &activation.ExternalAgent{URL: ref, Client: b.externalClient, Allow: boundary}
			defs = append(defs, llm.ToolDefinition{Name: ref, Description: fmt.Sprintf("Delegate to the external agent at %s.", ref)})
			continue
		}

		childSpec, ok := b.net.Agents[ref]
		if !ok {
			return nil, nil, fmt.Errorf("session: tool %q referenced by %q is not declared in network %q", ref, spec.Name, b.net.Name)
		}

		act, err := b.build(childSpec)
		if err != nil {
			return nil, nil, err
		}
		tools[ref] = act
		defs = append(defs, toolDefinitionFor(childSpec))
	}

	return tools, defs, nil
}

// build resolves (and memoizes) the Activation for one declared AgentSpec.
func (b *activationBuilder) build(spec *network.AgentSpec) (runcontext.Activation, error) {
	if act, ok := b.built[spec.Name]; ok {
		return act, nil
	}

	var act runcontext.Activation
	switch spec.Kind {
	case network.KindLLMAgent:
		childTools, childDefs, err := b.toolsFor(spec)
		if err != nil {
			return nil, err
		}
		act = &activation.LlmAgent{Spec: spec, Resources: b.resources, Tools: childTools, ToolDefs: childDefs}

	case network.KindCodedTool:
		act = &activation.CodedTool{Spec: spec, Resolver: b.codedToolResolver}

	case network.KindToolboxEntry:
		act = &activation.Toolbox{Spec: spec, Registry: b.toolboxRegistry}

	default:
		return nil, fmt.Errorf("session: agent %q has unrecognized kind %q", spec.Name, spec.Kind)
	}

	b.built[spec.Name] = act
	return act, nil
}

// toolDefinitionFor derives the function-call schema advertised to the
// LLM for one declared tool reference.
func toolDefinitionFor(spec *network.AgentSpec) llm.ToolDefinition {
	def := llm.ToolDefinition{Name: spec.Name, Description: spec.Instructions}
	if spec.Function != nil && spec.Function.Parameters != nil {
		if buf, err := json.Marshal(spec.Function.Parameters); err == nil {
			var params map[string]any
			if json.Unmarshal(buf, &params) == nil {
				def.Parameters = params
			}
		}
	}
	return def
}
