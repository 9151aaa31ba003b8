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
	"strings"

	"github.com/agentmesh/agentmesh/pkg/network"
)

// CyclesValidator flags cyclic tool-reference paths. A cycle fails
// admission by default; passing --include-cycles (a flag of both
// agentmesh-validate and agentmeshd serve) permits it, for networks that
// intentionally route back through an earlier agent and rely on the
// runtime's recursion limit instead of a static cycle check.
type CyclesValidator struct{}

func (v *CyclesValidator) Name() string { return "cycles" }

func (v *CyclesValidator) Validate(n *network.AgentNetwork) []Finding {
	var findings []Finding
	for _, c := range n.DetectCycles() {
		findings = append(findings, Finding{
			Rule: v.Name(), Agent: c[0], Severity: SeverityError,
			Message: fmt.Sprintf("cycle detected: %s", strings.Join(c, " -> ")),
		})
	}
	return findings
}
