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

// Package builtintools holds the small set of example coded tools
// shipped with agentmesh, used in its seed end-to-end scenarios and as
// a template for operator-written tools.
package builtintools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentmesh/agentmesh/pkg/slydata"
)

// Accountant is a coded tool that tracks a running cost across a
// conversation: each call reads the current total from args if the
// caller supplied one, otherwise from sly_data (defaulting to 0.0), and
// adds a fixed 3.0. The new total is written back to sly_data only when
// it was the source, so a caller that passes its own running_cost in
// args is tracking the total itself and sly_data is left alone.
type Accountant struct {
	sly *slydata.Store
}

// SetSlyData implements codedtool.SlyDataSetter.
func (a *Accountant) SetSlyData(store any) {
	if s, ok := store.(*slydata.Store); ok {
		a.sly = s
	}
}

func (a *Accountant) Invoke(ctx context.Context, args map[string]any) (string, error) {
	var runningCost float64
	fromArgs := false
	if v, ok := args["running_cost"]; ok {
		n, ok := numericArg(v)
		if !ok {
			return "", fmt.Errorf("accountant: non-numeric \"running_cost\" argument")
		}
		runningCost = n
		fromArgs = true
	} else if a.sly != nil {
		if v, ok := a.sly.Get("running_cost"); ok {
			n, ok := numericArg(v)
			if !ok {
				return "", fmt.Errorf("accountant: non-numeric \"running_cost\" in sly_data")
			}
			runningCost = n
		}
	}

	updated := runningCost + 3.0

	if !fromArgs && a.sly != nil {
		a.sly.Set("running_cost", updated)
	}

	out, err := json.Marshal(map[string]float64{"running_cost": updated})
	if err != nil {
		return "", fmt.Errorf("accountant: marshal response: %w", err)
	}
	return string(out), nil
}

func numericArg(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
