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

// Package llm implements the LlmProvider registry: a pluggable set of
// model backends an LlmAgent's llm_config resolves into, plus the
// fallback-chain and lifecycle policy around them.
package llm

import (
	"context"

	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/registry"
)

// ToolCall is one function-call request an LLM turn produced.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Completion is a single LLM turn's result: either free text, one or
// more tool calls, or both (some providers emit narration alongside a
// tool call).
type Completion struct {
	Text      string
	ToolCalls []ToolCall
	// StopReason surfaces the provider's own terminology for why the
	// turn ended, used only for logging/diagnostics.
	StopReason string
}

// ToolDefinition is a function-call tool schema, provider-agnostic.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema, from network.FunctionSchema
}

// Request is a single chat completion call: the full running transcript
// in a provider-neutral shape plus the tools currently in scope.
type Request struct {
	System      string
	Messages    []RequestMessage
	Tools       []ToolDefinition
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// RequestMessage is one turn of RequestMessage history: "user",
// "assistant", or "tool" (a tool result being fed back).
type RequestMessage struct {
	Role       string
	Text       string
	ToolCallID string // set when Role == "tool"
	ToolCalls  []ToolCall
}

// Provider is the interface every model backend adapter implements.
type Provider interface {
	// Name identifies the provider for error classification and logging.
	Name() string
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Factory constructs a Provider from a resolved LLMConfig. Registered
// under LLMConfig.Class (e.g. "anthropic", "openai", "gemini",
// "bedrock", "ollama").
type Factory func(cfg *network.LLMConfig) (Provider, error)

// Registry maps an LLMConfig.Class to the Factory that builds it.
type Registry struct {
	factories *registry.BaseRegistry[Factory]
}

func NewRegistry() *Registry {
	return &Registry{factories: registry.NewBaseRegistry[Factory]()}
}

func (r *Registry) Register(class string, f Factory) {
	r.factories.Upsert(class, f)
}

func (r *Registry) Build(cfg *network.LLMConfig) (Provider, error) {
	f, ok := r.factories.Get(cfg.Class)
	if !ok {
		return nil, &UnknownProviderError{Class: cfg.Class}
	}
	return f(cfg)
}

// UnknownProviderError is returned when an LLMConfig names a class with
// no registered Factory.
type UnknownProviderError struct{ Class string }

func (e *UnknownProviderError) Error() string {
	return "llm: unknown provider class " + e.Class
}
