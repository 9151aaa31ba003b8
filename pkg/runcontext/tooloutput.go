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

package runcontext

import "github.com/agentmesh/agentmesh/pkg/chat"

// ToolOutput is what a CallableActivation returns for one tool call:
// Value may be a string, a *chat.Message, or a nested []any of either.
// SlyData is populated only when the activation produced its own
// sly_data distinct from the RunContext's shared store, and is merged
// into it afterward.
type ToolOutput struct {
	Value   any
	SlyData map[string]any
}

// lastAIMessage walks v (a string, *chat.Message, or arbitrarily nested
// []any of those) and returns the last message-shaped value found,
// wrapping bare strings as AGENT messages — the tool's answer,
// regardless of how deeply it was nested.
func lastAIMessage(v any) *chat.Message {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return chat.Agent(t, nil)
	case *chat.Message:
		return t
	case []any:
		var last *chat.Message
		for _, elem := range t {
			if m := lastAIMessage(elem); m != nil {
				last = m
			}
		}
		return last
	default:
		return nil
	}
}
