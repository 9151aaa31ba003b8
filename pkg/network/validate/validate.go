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

// Package validate holds the composable structural and semantic
// validators that gate an AgentNetwork's admission into a NetworkStore,
// plus the CLI-facing composite runner.
package validate

import (
	"fmt"
	"sort"

	"github.com/agentmesh/agentmesh/pkg/network"
)

// Severity distinguishes findings that block load from advisory ones.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one validator complaint.
type Finding struct {
	Rule     string   `json:"rule"`
	Agent    string   `json:"agent,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (f Finding) String() string {
	if f.Agent == "" {
		return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Rule, f.Message)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", f.Severity, f.Rule, f.Agent, f.Message)
}

// Validator checks one concern against a loaded AgentNetwork.
type Validator interface {
	Name() string
	Validate(n *network.AgentNetwork) []Finding
}

// Options configures which advisory validators run, mirroring the
// agentmesh-validate CLI's flags.
type Options struct {
	IncludeCycles     bool
	AllowedExternal   []string
	AllowedMCPServers []string
}

// Default returns the six validators in the order they run: keyword
// naming, missing references,
// unreachable nodes, tool-name syntax, cycles, and external URL allow-listing.
// CyclesValidator is omitted only when opts.IncludeCycles explicitly
// permits a cyclic graph; by default a cycle fails admission.
func Default(opts Options) []Validator {
	vs := []Validator{
		&KeywordValidator{},
		&MissingNodesValidator{},
		&UnreachableNodesValidator{},
		&ToolNameValidator{},
	}
	if !opts.IncludeCycles {
		vs = append(vs, &CyclesValidator{})
	}
	vs = append(vs, &URLValidator{
		AllowedExternal:   opts.AllowedExternal,
		AllowedMCPServers: opts.AllowedMCPServers,
	})
	return vs
}

// Run executes every validator against n and returns all findings,
// sorted for deterministic CLI/JSON output.
func Run(n *network.AgentNetwork, validators []Validator) []Finding {
	var out []Finding
	for _, v := range validators {
		out = append(out, v.Validate(n)...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rule != out[j].Rule {
			return out[i].Rule < out[j].Rule
		}
		if out[i].Agent != out[j].Agent {
			return out[i].Agent < out[j].Agent
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// HasErrors reports whether any finding is SeverityError.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
