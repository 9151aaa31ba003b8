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

package slydata

// Kind identifies the shape an Allow policy was declared in.
type Kind int

const (
	KindDeny Kind = iota
	KindAllowAll
	KindList
	KindMap
)

// KeyRule is one entry of a map-shaped Allow policy: "k: true|false" or
// "k: renamed_name".
type KeyRule struct {
	Allow    bool
	RenameTo string
}

// Policy is a parsed Allow declaration:
//
//	allow = true                      -> KindAllowAll
//	allow = false / unset             -> KindDeny
//	allow = [k1, k2]                  -> KindList
//	allow = {k: true|false}           -> KindMap (Allow, no rename)
//	allow = {k: renamed}              -> KindMap (Allow, RenameTo set)
type Policy struct {
	Kind   Kind
	Keys   []string
	PerKey map[string]KeyRule
}

// Deny is the zero-value default: block everything.
var Deny = Policy{Kind: KindDeny}

// AllowAll passes every key through unchanged.
var AllowAll = Policy{Kind: KindAllowAll}

// ParsePolicy builds a Policy from a YAML/JSON-decoded `allow.*.sly_data`
// value of unknown shape.
func ParsePolicy(raw any) Policy {
	switch v := raw.(type) {
	case nil:
		return Deny
	case bool:
		if v {
			return AllowAll
		}
		return Deny
	case []string:
		return Policy{Kind: KindList, Keys: append([]string(nil), v...)}
	case []any:
		keys := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				keys = append(keys, s)
			}
		}
		return Policy{Kind: KindList, Keys: keys}
	case map[string]any:
		perKey := make(map[string]KeyRule, len(v))
		for k, rv := range v {
			switch rule := rv.(type) {
			case bool:
				perKey[k] = KeyRule{Allow: rule}
			case string:
				perKey[k] = KeyRule{Allow: true, RenameTo: rule}
			default:
				perKey[k] = KeyRule{Allow: false}
			}
		}
		return Policy{Kind: KindMap, PerKey: perKey}
	default:
		return Deny
	}
}

// Redact applies policy to data, returning a new Data. It is idempotent:
// Redact(p, Redact(p, s)) always equals Redact(p, s), including for
// rename policies, because an already-renamed key is recognized as a
// rename target on the second pass and passed through unchanged.
func Redact(policy Policy, data Data) Data {
	out := Data{}
	if data == nil {
		return out
	}

	switch policy.Kind {
	case KindAllowAll:
		return data.Clone()
	case KindDeny:
		return out
	case KindList:
		allowed := make(map[string]bool, len(policy.Keys))
		for _, k := range policy.Keys {
			allowed[k] = true
		}
		for k, v := range data {
			if allowed[k] {
				out[k] = v
			}
		}
		return out
	case KindMap:
		renameTargets := make(map[string]bool)
		for _, rule := range policy.PerKey {
			if rule.Allow && rule.RenameTo != "" {
				renameTargets[rule.RenameTo] = true
			}
		}
		for k, v := range data {
			if rule, declared := policy.PerKey[k]; declared {
				if !rule.Allow {
					continue
				}
				outKey := k
				if rule.RenameTo != "" {
					outKey = rule.RenameTo
				}
				out[outKey] = v
				continue
			}
			// Not a declared source key: keep only if it already is the
			// renamed form of a rule, so re-redacting stays idempotent.
			if renameTargets[k] {
				out[k] = v
			}
		}
		return out
	default:
		return out
	}
}

// Boundary holds one section's worth of named Allow policies, e.g. the
// "from_downstream" / "to_downstream" sections of an AgentSpec's allow
// block.
type Boundary map[string]Policy

// Resolve returns the first configured policy among the given section
// names in precedence order, or Deny if none are configured: the first
// match wins.
func (b Boundary) Resolve(sections ...string) Policy {
	for _, s := range sections {
		if p, ok := b[s]; ok {
			return p
		}
	}
	return Deny
}
