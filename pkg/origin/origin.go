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

// Package origin implements the call-tree path that tags every message
// flowing through a RunContext's Journal: the ordered list of tool names
// (with instantiation disambiguators) from the front-man down to the
// currently executing activation.
package origin

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Entry is one hop in an Origin: the tool name at this level of the call
// tree, plus the index disambiguating concurrent instances of that name
// under the same parent.
type Entry struct {
	Tool                string `json:"tool"`
	InstantiationIndex int    `json:"instantiation_index"`
}

// Origin is the path from the front-man to the currently executing
// activation. Two origins are equal iff their String() forms match.
type Origin []Entry

// Root returns the single-element origin for the front-man itself.
func Root(frontMan string) Origin {
	return Origin{{Tool: frontMan, InstantiationIndex: 0}}
}

// Child returns a new Origin extending o with one more hop. It never
// mutates o, matching the "Origin: derived; never shared mutably"
// ownership rule.
func (o Origin) Child(tool string, instantiationIndex int) Origin {
	next := make(Origin, len(o)+1)
	copy(next, o)
	next[len(o)] = Entry{Tool: tool, InstantiationIndex: instantiationIndex}
	return next
}

// Head returns the front-man entry, or the zero Entry if o is empty.
func (o Origin) Head() Entry {
	if len(o) == 0 {
		return Entry{}
	}
	return o[0]
}

// Parent returns the origin of the enclosing activation, or nil at the root.
func (o Origin) Parent() Origin {
	if len(o) <= 1 {
		return nil
	}
	return o[:len(o)-1]
}

// Equal compares two origins by their dotted-path string form, per spec.
func (o Origin) Equal(other Origin) bool {
	return o.String() == other.String()
}

// String renders the dotted path, disambiguating repeated instances with
// a bracketed index: "announcer.synonymizer[1]".
func (o Origin) String() string {
	parts := make([]string, len(o))
	for i, e := range o {
		if e.InstantiationIndex == 0 {
			parts[i] = e.Tool
		} else {
			parts[i] = e.Tool + "[" + strconv.Itoa(e.InstantiationIndex) + "]"
		}
	}
	return strings.Join(parts, ".")
}

// Counter assigns monotonically increasing instantiation indices for a
// given (parent origin, child tool name) pair, starting at 0. One Counter
// is shared by all activations spawned under the same InvocationContext.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Next returns the Origin for the next instance of tool under parent, and
// advances the internal counter for that (parent, tool) pair.
func (c *Counter) Next(parent Origin, tool string) Origin {
	key := fmt.Sprintf("%s>%s", parent.String(), tool)

	c.mu.Lock()
	idx := c.counts[key]
	c.counts[key] = idx + 1
	c.mu.Unlock()

	return parent.Child(tool, idx)
}
