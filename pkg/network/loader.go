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

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawFile is the on-disk manifest shape before commondefs substitution
// and AgentSpec typing are applied.
type rawFile struct {
	Name      string         `yaml:"name"`
	Config    map[string]any `yaml:"config,omitempty"`
	LLMConfig *LLMConfig     `yaml:"llm_config,omitempty"`
	Metadata  map[string]any `yaml:"metadata,omitempty"`
	Commondefs struct {
		ReplacementValues map[string]any `yaml:"replacement_values,omitempty"`
	} `yaml:"commondefs,omitempty"`
	Agents []yaml.Node `yaml:"agents"`
}

// LoadOptions carries the per-load knobs that are not part of the
// manifest text itself.
type LoadOptions struct {
	// SkipInvalidAgents, when true, drops individual agent entries that
	// fail to decode instead of failing the whole load: a Watcher polling
	// many files prefers to keep serving the networks that did parse
	// rather than going dark on one bad file.
	SkipInvalidAgents bool
}

// Load parses manifest bytes into a single AgentNetwork: it runs
// commondefs.replacement_values substitution over the whole document,
// decodes each agent entry, infers AgentKind, fills defaults, and
// resolves the unique front man. It performs no cross-reference
// validation — callers compose pkg/network/validate.Run over the result.
func Load(data []byte, opts LoadOptions) (*AgentNetwork, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("network: decode manifest: %w", err)
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("network: manifest missing required \"name\"")
	}

	n := &AgentNetwork{
		Name:             raw.Name,
		Config:           raw.Config,
		DefaultLLMConfig: raw.LLMConfig,
		Metadata:         raw.Metadata,
		Agents:           map[string]*AgentSpec{},
	}

	subst := raw.Commondefs.ReplacementValues
	for i, node := range raw.Agents {
		substituteNode(&node, subst)
		var spec AgentSpec
		if err := node.Decode(&spec); err != nil {
			if opts.SkipInvalidAgents {
				continue
			}
			return nil, fmt.Errorf("network: agent entry %d: %w", i, err)
		}
		if spec.Name == "" {
			if opts.SkipInvalidAgents {
				continue
			}
			return nil, fmt.Errorf("network: agent entry %d missing required \"name\"", i)
		}
		spec.SetDefaults()
		n.Agents[spec.Name] = &spec
	}

	frontMen := n.DetectFrontMen()
	switch len(frontMen) {
	case 1:
		n.FrontMan = frontMen[0]
	case 0:
		return nil, fmt.Errorf("network %q: no front man found (no agent lists any tools, or every agent that does is another agent's tool)", n.Name)
	default:
		return nil, fmt.Errorf("network %q: ambiguous front man, candidates: %s", n.Name, strings.Join(frontMen, ", "))
	}

	return n, nil
}

// substituteNode walks a YAML node tree in place, replacing any scalar
// string that names a commondefs.replacement_values key. An exact match
// ("{key}" as the entire scalar) substitutes the replacement's native
// type by re-encoding it as a node; a partial match ("prefix-{key}")
// does a textual substring replacement, matching the source's deep
// string-templating semantics of AgentNetwork.config.
func substituteNode(node *yaml.Node, subst map[string]any) {
	if node == nil || len(subst) == 0 {
		return
	}
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode, yaml.MappingNode:
		for i := range node.Content {
			substituteNode(node.Content[i], subst)
		}
	case yaml.ScalarNode:
		if node.Tag != "!!str" {
			return
		}
		if v, ok := lookupExactPlaceholder(node.Value, subst); ok {
			replaced := &yaml.Node{}
			if err := replaced.Encode(v); err == nil {
				*node = *replaced
			}
			return
		}
		node.Value = substitutePlaceholders(node.Value, subst)
	}
}

func lookupExactPlaceholder(s string, subst map[string]any) (any, bool) {
	if len(s) > 2 && strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		key := s[1 : len(s)-1]
		if v, ok := subst[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func substitutePlaceholders(s string, subst map[string]any) string {
	for key, v := range subst {
		if sv, ok := v.(string); ok {
			s = strings.ReplaceAll(s, "{"+key+"}", sv)
		}
	}
	return s
}
