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

package runcontext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// buildAssignmentClauses renders an LlmAgent's declared-parameter
// arguments as human-readable clauses appended to its prompt. Keys are
// visited in sorted order for determinism; nil-valued arguments are
// omitted.
func buildAssignmentClauses(schema *jsonschema.Schema, args map[string]any) string {
	if len(args) == 0 {
		return ""
	}

	keys := make([]string, 0, len(args))
	for k, v := range args {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	for _, k := range keys {
		clauses = append(clauses, assignmentClause(k, args[k], propertyType(schema, k)))
	}
	return strings.Join(clauses, " ")
}

// propertyType looks up the declared JSON-Schema type of property name,
// falling back to "" (unknown) when schema is nil or the property isn't
// declared — callers then infer formatting from the Go value's own type.
func propertyType(schema *jsonschema.Schema, name string) string {
	if schema == nil || schema.Properties == nil {
		return ""
	}
	prop, ok := schema.Properties.Get(name)
	if !ok || prop == nil {
		return ""
	}
	return prop.Type
}

func assignmentClause(key string, value any, declaredType string) string {
	switch v := value.(type) {
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = formatScalar(elem, declaredType == "array")
		}
		return fmt.Sprintf("The %s are %s.", key, strings.Join(parts, ", "))
	case map[string]any:
		pairs := make([]string, 0, len(v))
		innerKeys := make([]string, 0, len(v))
		for k := range v {
			innerKeys = append(innerKeys, k)
		}
		sort.Strings(innerKeys)
		for _, k := range innerKeys {
			pairs = append(pairs, fmt.Sprintf("%s: %v", k, v[k]))
		}
		return fmt.Sprintf("The %s is %s.", key, strings.Join(pairs, ", "))
	default:
		return fmt.Sprintf("The %s is %s.", key, formatScalar(v, declaredType == "string"))
	}
}

// formatScalar renders one value, single-quoting and brace-escaping
// string-typed values so they survive the prompt template's own
// substitution syntax ("{" / "}" -> "{{" / "}}").
func formatScalar(v any, quoteAsString bool) string {
	s, isString := v.(string)
	if quoteAsString || isString {
		if !isString {
			s = fmt.Sprintf("%v", v)
		}
		escaped := strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
		return "'" + escaped + "'"
	}
	return fmt.Sprintf("%v", v)
}
