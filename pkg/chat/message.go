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

// Package chat holds the tagged ChatMessage variant and the opaque
// ChatContext resumption token that together make up the wire-level data
// model of the streaming-chat protocol.
package chat

import "github.com/agentmesh/agentmesh/pkg/origin"

// Type tags a ChatMessage's role in the conversation.
type Type string

const (
	TypeHuman           Type = "HUMAN"
	TypeSystem          Type = "SYSTEM"
	TypeAI              Type = "AI"
	TypeAgent           Type = "AGENT"
	TypeAgentToolResult Type = "AGENT_TOOL_RESULT"
	TypeAgentFramework  Type = "AGENT_FRAMEWORK"
)

// Message is the tagged ChatMessage variant.
//
// Only the fields relevant to a message's Type are populated; the zero
// value of the others is left unset. This collapses what the source
// expresses as a handful of divergent message constructors (AgentMessage
// et al.) into one expressive struct.
type Message struct {
	Type Type `json:"type"`
	Text string `json:"text"`

	// Structure holds the JSON object extracted from Text for
	// AGENT_FRAMEWORK messages, via JSON-structure extraction. Nil when no
	// block was found or it failed to parse.
	Structure map[string]any `json:"structure,omitempty"`

	// SlyData is only ever populated on AGENT_FRAMEWORK messages, after
	// redaction, as the out-of-band side channel for the final turn.
	SlyData map[string]any `json:"sly_data,omitempty"`

	// ChatContext is the resumption token handed back on the terminal
	// AGENT_FRAMEWORK message of a turn.
	ChatContext *Context `json:"chat_context,omitempty"`

	// ToolResultOrigin identifies which activation produced an
	// AGENT_TOOL_RESULT message.
	ToolResultOrigin origin.Origin `json:"-"`

	// Origin is the call-tree path of the activation that emitted this
	// message.
	Origin origin.Origin `json:"origin,omitempty"`

	// AdditionalKwargs is the opaque passthrough bag every message
	// carries, for anything that doesn't warrant its own field.
	AdditionalKwargs map[string]any `json:"additional_kwargs,omitempty"`
}

// Human constructs a HUMAN chat message.
func Human(text string) *Message { return &Message{Type: TypeHuman, Text: text} }

// System constructs a SYSTEM chat message.
func System(text string) *Message { return &Message{Type: TypeSystem, Text: text} }

// Agent constructs an AGENT (final per-activation) message.
func Agent(text string, structure map[string]any) *Message {
	return &Message{Type: TypeAgent, Text: text, Structure: structure}
}

// AgentToolResult constructs the message wrapping a tool/sub-agent's
// answer as it's folded back into the caller's chat history.
func AgentToolResult(text string, resultOrigin origin.Origin) *Message {
	return &Message{Type: TypeAgentToolResult, Text: text, ToolResultOrigin: resultOrigin}
}

// AgentFramework constructs the one terminal message of a turn.
func AgentFramework(text string, structure, slyData map[string]any, cc *Context) *Message {
	return &Message{Type: TypeAgentFramework, Text: text, Structure: structure, SlyData: slyData, ChatContext: cc}
}

// IsFinal reports whether this message type can terminate a RunContext
// state machine: an AGENT message with no further tool calls, or the
// turn-level AGENT_FRAMEWORK message.
func (m *Message) IsFinal() bool {
	return m.Type == TypeAgent || m.Type == TypeAgentFramework
}

// History is one origin's ordered chat history, as captured in a
// ChatContext for cross-turn/cross-server resumption.
type History struct {
	Origin   origin.Origin `json:"origin"`
	Messages []*Message    `json:"messages"`
}

// Context is the opaque resumption token: enough to rehydrate the
// per-origin chat histories of a previous turn, including on
// a different server instance.
type Context struct {
	ChatHistories []History `json:"chat_histories"`
}

// HistoryFor returns the History entry whose Origin equals the given
// origin, used by RunContext to rehydrate on construction.
func (c *Context) HistoryFor(o origin.Origin) (*History, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.ChatHistories {
		if c.ChatHistories[i].Origin.Equal(o) {
			return &c.ChatHistories[i], true
		}
	}
	return nil, false
}
