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
	"net/url"

	"github.com/agentmesh/agentmesh/pkg/network"
)

// URLValidator enforces the operator-controlled allow-list of external
// agent hosts and MCP servers a network is permitted to reference, set
// via agentmesh-validate's --external-agents/--mcp-servers flags. An
// empty allow-list means "no restriction" so
// existing manifests validate unchanged until an operator opts in.
type URLValidator struct {
	AllowedExternal   []string
	AllowedMCPServers []string
}

func (v *URLValidator) Name() string { return "url" }

func (v *URLValidator) Validate(n *network.AgentNetwork) []Finding {
	var findings []Finding
	if len(v.AllowedExternal) > 0 {
		allowed := toSet(v.AllowedExternal)
		for name, agent := range n.Agents {
			for _, t := range agent.Tools {
				if !network.IsExternalRef(t) || t[0] == '/' {
					continue
				}
				host, err := hostOf(t)
				if err != nil {
					findings = append(findings, Finding{
						Rule: v.Name(), Agent: name, Severity: SeverityError,
						Message: fmt.Sprintf("external ref %q is not a valid URL: %v", t, err),
					})
					continue
				}
				if !allowed[host] {
					findings = append(findings, Finding{
						Rule: v.Name(), Agent: name, Severity: SeverityError,
						Message: fmt.Sprintf("external host %q is not in the allowed-external list", host),
					})
				}
			}
		}
	}
	if len(v.AllowedMCPServers) > 0 {
		allowed := toSet(v.AllowedMCPServers)
		for name, agent := range n.Agents {
			for _, t := range agent.Tools {
				server, ok := mcpServerOf(t)
				if !ok {
					continue
				}
				if !allowed[server] {
					findings = append(findings, Finding{
						Rule: v.Name(), Agent: name, Severity: SeverityError,
						Message: fmt.Sprintf("MCP server %q is not in the allowed-mcp-servers list", server),
					})
				}
			}
		}
	}
	return findings
}

func hostOf(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	return u.Host, nil
}

// mcpServerOf recognizes the "mcp:<server>/<tool>" toolbox reference
// convention used by the mark3labs/mcp-go wiring.
func mcpServerOf(ref string) (string, bool) {
	const prefix = "mcp:"
	if len(ref) <= len(prefix) || ref[:len(prefix)] != prefix {
		return "", false
	}
	rest := ref[len(prefix):]
	for i, r := range rest {
		if r == '/' {
			return rest[:i], true
		}
	}
	return rest, true
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}
