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

// Package toolbox implements the ToolboxRegistry: a name-keyed catalog
// of callable tools assembled from three sources — built-ins registered
// in-process, toolkits that expand into several tools at load time, and
// external MCP servers.
package toolbox

import (
	"context"
	"fmt"

	"github.com/agentmesh/agentmesh/pkg/llm"
	"github.com/agentmesh/agentmesh/pkg/registry"
)

// Tool is one callable entry a ToolboxEntry AgentSpec can resolve to.
type Tool interface {
	Definition() llm.ToolDefinition
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// Toolkit expands into a set of Tools at registration time; each is
// stored under its own Definition().Name, with nothing recording that it
// came from a toolkit rather than a hand registration.
type Toolkit interface {
	GetTools() []Tool
}

// toolFunc adapts a plain function into a Tool, the common case for a
// built-in.
type toolFunc struct {
	def llm.ToolDefinition
	fn  func(ctx context.Context, args map[string]any) (string, error)
}

func (t *toolFunc) Definition() llm.ToolDefinition { return t.def }
func (t *toolFunc) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return t.fn(ctx, args)
}

// NewFunc builds a Tool from a definition and handler, the common shape
// for registering a built-in.
func NewFunc(def llm.ToolDefinition, fn func(ctx context.Context, args map[string]any) (string, error)) Tool {
	return &toolFunc{def: def, fn: fn}
}

// Registry is the ToolboxRegistry: a name-keyed store of Tools built on
// the shared registry.BaseRegistry used across every symbolic-name
// lookup in this tree (LLM providers, coded-tool factories, toolbox
// entries alike).
type Registry struct {
	*registry.BaseRegistry[Tool]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Tool]()}
}

// Register adds a single built-in tool under name, overwriting any
// existing entry — a ToolboxRegistry is reloaded wholesale on every
// manifest or toolkit registration, so last-write-wins rather than the
// fail-on-duplicate semantics BaseRegistry.Register offers.
func (r *Registry) Register(name string, t Tool) {
	r.Upsert(name, t)
}

// RegisterToolkit expands a Toolkit and registers each resulting Tool
// under its own Definition().Name.
func (r *Registry) RegisterToolkit(tk Toolkit) {
	for _, t := range tk.GetTools() {
		r.Upsert(t.Definition().Name, t)
	}
}

// ErrUnknownTool is returned by Get-dependent calls for an undeclared name.
type ErrUnknownTool struct{ Name string }

func (e *ErrUnknownTool) Error() string { return fmt.Sprintf("toolbox: unknown tool %q", e.Name) }
