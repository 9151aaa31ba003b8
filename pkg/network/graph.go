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

package network

// LocalDownstream returns the tool references of a that name another
// node in the same network (i.e. excluding ExternalRef references,
// which are resolved out-of-graph).
func (n *AgentNetwork) LocalDownstream(agentName string) []string {
	a, ok := n.Agents[agentName]
	if !ok {
		return nil
	}
	var out []string
	for _, t := range a.Tools {
		if IsExternalRef(t) {
			continue
		}
		if _, exists := n.Agents[t]; exists {
			out = append(out, t)
		}
	}
	return out
}

// DetectFrontMen applies the front-man algorithm: the set of agents
// that have at least one tool reference (local or external), minus the
// set of agents that are themselves someone else's downstream tool.
// A well-formed network has exactly one member in that set.
func (n *AgentNetwork) DetectFrontMen() []string {
	hasDownstream := map[string]bool{}
	isDownstream := map[string]bool{}
	for name, a := range n.Agents {
		if len(a.Tools) > 0 {
			hasDownstream[name] = true
		}
		for _, d := range n.LocalDownstream(name) {
			isDownstream[d] = true
		}
	}
	var out []string
	for name := range hasDownstream {
		if !isDownstream[name] {
			out = append(out, name)
		}
	}
	sortStrings(out)
	return out
}

// Reachable returns the set of agent names reachable from start by
// following LocalDownstream edges, start included.
func (n *AgentNetwork) Reachable(start string) map[string]bool {
	seen := map[string]bool{}
	var visit func(string)
	visit = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		for _, d := range n.LocalDownstream(name) {
			visit(d)
		}
	}
	if start != "" {
		visit(start)
	}
	return seen
}

// Cycle is one detected back-edge path, expressed as a simple cycle of
// agent names, first == last.
type Cycle []string

// DetectCycles runs a DFS over the local-downstream edges, returning
// one Cycle per back-edge found, feeding the cycles validator.
func (n *AgentNetwork) DetectCycles() []Cycle {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var stack []string
	var cycles []Cycle

	var visit func(name string)
	visit = func(name string) {
		color[name] = gray
		stack = append(stack, name)
		for _, d := range n.LocalDownstream(name) {
			switch color[d] {
			case white:
				visit(d)
			case gray:
				// Found a back-edge: extract the cycle from the stack.
				start := 0
				for i, s := range stack {
					if s == d {
						start = i
						break
					}
				}
				cyc := append(append(Cycle{}, stack[start:]...), d)
				cycles = append(cycles, cyc)
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
	}

	names := make([]string, 0, len(n.Agents))
	for name := range n.Agents {
		names = append(names, name)
	}
	sortStrings(names)
	for _, name := range names {
		if color[name] == white {
			visit(name)
		}
	}
	return cycles
}
