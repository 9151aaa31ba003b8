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

// agentNamePattern matches a bare identifier usable both as a graph key
// and as an LLM function-call name.
var agentNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedKeywords may not be used as an agent name: they collide with
// fields the runtime injects into prompt/tool-call contexts.
var reservedKeywords = map[string]bool{
	"sly_data":      true,
	"chat_context":  true,
	"run_context":   true,
	"origin":        true,
	"additional_kwargs": true,
}

// KeywordValidator rejects agent names that are not valid identifiers or
// that collide with a reserved runtime keyword.
type KeywordValidator struct{}

func (v *KeywordValidator) Name() string { return "keyword" }

func (v *KeywordValidator) Validate(n *network.AgentNetwork) []Finding {
	var findings []Finding
	for name := range n.Agents {
		if !agentNamePattern.MatchString(name) {
			findings = append(findings, Finding{
				Rule: v.Name(), Agent: name, Severity: SeverityError,
				Message: fmt.Sprintf("agent name %q is not a valid identifier", name),
			})
		}
		if reservedKeywords[name] {
			findings = append(findings, Finding{
				Rule: v.Name(), Agent: name, Severity: SeverityError,
				Message: fmt.Sprintf("agent name %q collides with a reserved keyword", name),
			})
		}
	}
	return findings
}
