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

// UnreachableNodesValidator flags declared agents that the front man can
// never reach by following tool references: almost always a typo'd
// tool name or an orphaned leftover node, so it is a
// warning rather than a hard error.
type UnreachableNodesValidator struct{}

func (v *UnreachableNodesValidator) Name() string { return "unreachable_nodes" }

func (v *UnreachableNodesValidator) Validate(n *network.AgentNetwork) []Finding {
	frontMen := n.DetectFrontMen()
	if len(frontMen) != 1 {
		// FrontManValidator (folded into the loader) reports this case;
		// reachability is undefined without exactly one front man.
		return nil
	}
	reachable := n.Reachable(frontMen[0])
	var findings []Finding
	for name := range n.Agents {
		if !reachable[name] {
			findings = append(findings, Finding{
				Rule: v.Name(), Agent: name, Severity: SeverityWarning,
				Message: fmt.Sprintf("agent %q is not reachable from front man %q", name, frontMen[0]),
			})
		}
	}
	return findings
}
