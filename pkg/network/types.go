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

// Package network holds the declarative agent-network data model:
// AgentNetwork, AgentSpec and its variants, and the load-time config
// tree. It is deliberately free of any execution concerns — those live
// in pkg/runcontext and pkg/activation.
package network

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// AgentKind discriminates the AgentSpec union. ExternalRef is not
// represented here: it is a tool reference resolved at
// call time (any reference beginning with "/" or "http(s)://"), never a
// graph node in AgentNetwork.Agents.
type AgentKind string

const (
	KindLLMAgent     AgentKind = "llm_agent"
	KindCodedTool    AgentKind = "coded_tool"
	KindToolboxEntry AgentKind = "toolbox_entry"
)

// BoundaryAllow is one named boundary's sly-data policy, e.g. the
// "from_downstream" or "to_downstream" section of an allow block.
type BoundaryAllow struct {
	SlyData any `yaml:"sly_data,omitempty" json:"sly_data,omitempty"`
}

// Allow is the AgentSpec.allow block. Its shape varies slightly by
// AgentKind: LlmAgent uses FromDownstream/ToDownstream,
// CodedTool uses the flat SlyData field directly.
type Allow struct {
	FromDownstream *BoundaryAllow `yaml:"from_downstream,omitempty" json:"from_downstream,omitempty"`
	ToDownstream   *BoundaryAllow `yaml:"to_downstream,omitempty" json:"to_downstream,omitempty"`
	SlyData        any            `yaml:"sly_data,omitempty" json:"sly_data,omitempty"`
}

// ErrorFragments lists the agent-specific error substrings the
// error_detector checks: known refusal prefixes that should be treated
// as an error response rather than a normal answer.
type ErrorFragments struct {
	Agent  []string `yaml:"agent,omitempty" json:"agent,omitempty"`
	System []string `yaml:"system,omitempty" json:"system,omitempty"`
}

// FunctionSchema wraps a JSON-Schema parameter declaration. Config files
// are YAML/JSON, and because gopkg.in/yaml.v3 does not understand the
// json-tagged invopop/jsonschema.Schema type directly,
// UnmarshalYAML decodes into a generic tree first and re-marshals it
// through encoding/json.
type FunctionSchema struct {
	Parameters *jsonschema.Schema
}

func (f *FunctionSchema) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	raw = normalizeYAMLTree(raw)
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("function schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(buf, &schema); err != nil {
		return fmt.Errorf("function schema: %w", err)
	}
	f.Parameters = &schema
	return nil
}

func (f FunctionSchema) MarshalYAML() (any, error) {
	if f.Parameters == nil {
		return nil, nil
	}
	buf, err := json.Marshal(f.Parameters)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeYAMLTree recursively converts the map[any]any / map[string]any
// mix that gopkg.in/yaml.v3 can produce into a purely JSON-marshalable
// tree of map[string]any.
func normalizeYAMLTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAMLTree(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAMLTree(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAMLTree(val)
		}
		return out
	default:
		return v
	}
}

// AgentSpec is one node of an AgentNetwork's graph: an LlmAgent, a
// CodedTool, or a ToolboxEntry.
type AgentSpec struct {
	Name string    `yaml:"name" json:"name"`
	Kind AgentKind `yaml:"-" json:"kind"`

	// LlmAgent fields.
	Instructions        string          `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	Command             string          `yaml:"command,omitempty" json:"command,omitempty"`
	LLMConfig           *LLMConfig      `yaml:"llm_config,omitempty" json:"llm_config,omitempty"`
	Tools               []string        `yaml:"tools,omitempty" json:"tools,omitempty"`
	Function            *FunctionSchema `yaml:"function,omitempty" json:"function,omitempty"`
	Allow               Allow           `yaml:"allow,omitempty" json:"allow,omitempty"`
	ErrorFragmentsCfg   *ErrorFragments `yaml:"error_fragments,omitempty" json:"error_fragments,omitempty"`
	Verbose             bool            `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	MaxExecutionSeconds *int            `yaml:"max_execution_seconds,omitempty" json:"max_execution_seconds,omitempty"`
	MaxIterations       *int            `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`

	// CodedTool fields.
	Class string `yaml:"class,omitempty" json:"class,omitempty"`

	// ToolboxEntry fields: resolved purely by Name via ToolboxRegistry;
	// ToolboxArgs carries the user-supplied positional/keyword args
	// merged over the toolbox's declared defaults.
	ToolboxArgs map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
}

const (
	defaultMaxExecutionSeconds = 120
	defaultMaxIterations       = 20
)

// SetDefaults fills in the documented defaults.
func (a *AgentSpec) SetDefaults() {
	if a.MaxExecutionSeconds == nil {
		v := defaultMaxExecutionSeconds
		a.MaxExecutionSeconds = &v
	}
	if a.MaxIterations == nil {
		v := defaultMaxIterations
		a.MaxIterations = &v
	}
	a.Kind = a.inferKind()
}

// inferKind classifies the spec by which discriminating fields are set,
// matching the source's single untagged "tools" config shape.
func (a *AgentSpec) inferKind() AgentKind {
	switch {
	case a.Class != "":
		return KindCodedTool
	case a.Instructions != "" || a.Command != "":
		return KindLLMAgent
	default:
		return KindToolboxEntry
	}
}

// RecursionLimit translates MaxIterations into the chain-invocation
// recursion limit: 2n+1.
func (a *AgentSpec) RecursionLimit() int {
	n := defaultMaxIterations
	if a.MaxIterations != nil {
		n = *a.MaxIterations
	}
	return 2*n + 1
}

// IsExternalRef reports whether a tool reference is an ExternalAgent
// reference rather than a declared graph node.
func IsExternalRef(toolRef string) bool {
	return len(toolRef) > 0 && (toolRef[0] == '/' ||
		hasAnyPrefix(toolRef, "http://", "https://"))
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

// LLMConfig is a typed key/value tree describing a model to use: class
// name (provider), model id, and provider-specific overrides, plus an
// optional ordered list of Fallbacks tried on provider error.
type LLMConfig struct {
	Class       string            `yaml:"class" json:"class"`
	Model       string            `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature *float64          `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   *int              `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Extra       map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
	Fallbacks   []*LLMConfig      `yaml:"fallbacks,omitempty" json:"fallbacks,omitempty"`
}

// Overlay returns a copy of base with any non-zero field in override
// applied on top, matching "the agent-local config overlaid on the
// network default".
func (base *LLMConfig) Overlay(override *LLMConfig) *LLMConfig {
	if base == nil {
		return override
	}
	if override == nil {
		cp := *base
		return &cp
	}
	merged := *base
	if override.Class != "" {
		merged.Class = override.Class
	}
	if override.Model != "" {
		merged.Model = override.Model
	}
	if override.Temperature != nil {
		merged.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		merged.MaxTokens = override.MaxTokens
	}
	if override.Extra != nil {
		merged.Extra = override.Extra
	}
	if override.Fallbacks != nil {
		merged.Fallbacks = override.Fallbacks
	}
	return &merged
}

// AgentNetwork is the immutable, validated agent graph. Construct it
// only through Load/LoadBytes so invariants hold.
type AgentNetwork struct {
	Name              string                `yaml:"name" json:"name"`
	Config            map[string]any        `yaml:"config,omitempty" json:"config,omitempty"`
	Agents            map[string]*AgentSpec `yaml:"-" json:"agents"`
	FrontMan          string                `yaml:"-" json:"front_man"`
	DefaultLLMConfig  *LLMConfig            `yaml:"llm_config,omitempty" json:"default_llm_config,omitempty"`
	Metadata          map[string]any        `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	AllowedExternal   []string              `yaml:"-" json:"allowed_external,omitempty"`
	AllowedMCPServers []string              `yaml:"-" json:"allowed_mcp_servers,omitempty"`
	IncludeCycles     bool                  `yaml:"-" json:"include_cycles,omitempty"`
}

// AgentNames returns every agent name in the network, sorted.
func (n *AgentNetwork) AgentNames() []string {
	names := make([]string, 0, len(n.Agents))
	for name := range n.Agents {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
