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

package toolbox

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// MergeArgs overlays the LLM's call-time arguments onto a ToolboxEntry's
// declared defaults: user args override declared args. target, when
// non-nil, is a pointer to a typed struct the merged map is decoded into
// via mapstructure, and a merged key with no matching field fails the
// decode, so a built-in tool can declare a normal Go struct for its
// arguments instead of hand-walking a map. With a nil target every key
// is kept.
func MergeArgs(declared, userArgs map[string]any, target any) (map[string]any, error) {
	merged := make(map[string]any, len(declared)+len(userArgs))
	for k, v := range declared {
		merged[k] = v
	}
	for k, v := range userArgs {
		merged[k] = v
	}

	if target == nil {
		return merged, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      target,
		TagName:     "json",
	})
	if err != nil {
		return nil, fmt.Errorf("toolbox: build arg decoder: %w", err)
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("toolbox: decode arguments: %w", err)
	}
	return merged, nil
}
