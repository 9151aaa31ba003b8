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

package validate

import (
	"fmt"
	"regexp"

	"github.com/agentmesh/agentmesh/pkg/network"
)

// toolNamePattern is the syntax an LLM function-call tool name must
// satisfy across every supported provider: this is the tightest common
// subset across anthropic/openai/gemini/bedrock.
var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ToolNameValidator checks that every tool reference, once resolved to
// the function-call name an LLM provider will see, satisfies the common
// naming syntax every provider accepts.
type ToolNameValidator struct{}

func (v *ToolNameValidator) Name() string { return "tool_name" }

func (v *ToolNameValidator) Validate(n *network.AgentNetwork) []Finding {
	var findings []Finding
	for name, agent := range n.Agents {
		for _, t := range agent.Tools {
			if network.IsExternalRef(t) {
				continue
			}
			if !toolNamePattern.MatchString(t) {
				findings = append(findings, Finding{
					Rule: v.Name(), Agent: name, Severity: SeverityError,
					Message: fmt.Sprintf("tool reference %q is not a valid LLM function-call name", t),
				})
			}
		}
	}
	return findings
}
