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

	"github.com/agentmesh/agentmesh/pkg/network"
)

// MissingNodesValidator flags tool references that are neither a sibling
// agent in this network, nor a known toolbox tool name, nor an ExternalRef.
// Toolbox names are recognized only through KnownToolboxTools; Default
// builds this validator without it, so there every reference that is not
// a declared agent or an ExternalRef is flagged.
type MissingNodesValidator struct {
	// KnownToolboxTools, when non-nil, suppresses findings for references
	// that match a declared toolbox tool name.
	KnownToolboxTools map[string]bool
}

func (v *MissingNodesValidator) Name() string { return "missing_nodes" }

func (v *MissingNodesValidator) Validate(n *network.AgentNetwork) []Finding {
	var findings []Finding
	for name, agent := range n.Agents {
		for _, t := range agent.Tools {
			if network.IsExternalRef(t) {
				continue
			}
			if _, ok := n.Agents[t]; ok {
				continue
			}
			if v.KnownToolboxTools != nil && v.KnownToolboxTools[t] {
				continue
			}
			findings = append(findings, Finding{
				Rule: v.Name(), Agent: name, Severity: SeverityError,
				Message: fmt.Sprintf("tool %q is not a local agent, toolbox entry, or external ref", t),
			})
		}
	}
	return findings
}
