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

package builtintools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentmesh/agentmesh/pkg/slydata"
)

func decodeRunningCost(t *testing.T, out string) float64 {
	t.Helper()
	var resp struct {
		RunningCost float64 `json:"running_cost"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", out, err)
	}
	return resp.RunningCost
}

func TestAccountant_ReadsAndMutatesSlyData(t *testing.T) {
	store := slydata.NewStore(slydata.Data{"running_cost": 0.0})
	a := &Accountant{}
	a.SetSlyData(store)

	out, err := a.Invoke(context.Background(), map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeRunningCost(t, out); got != 3.0 {
		t.Fatalf("got running_cost = %v, want 3.0", got)
	}

	out, err = a.Invoke(context.Background(), map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeRunningCost(t, out); got != 6.0 {
		t.Fatalf("got running_cost = %v, want 6.0", got)
	}

	got, ok := store.Get("running_cost")
	if !ok {
		t.Fatal("expected running_cost to be present in sly_data")
	}
	if got.(float64) != 6.0 {
		t.Fatalf("got sly_data running_cost = %v", got)
	}
}

func TestAccountant_ArgsRunningCostNotMutatedIntoSlyData(t *testing.T) {
	store := slydata.NewStore(slydata.Data{"running_cost": 0.0})
	a := &Accountant{}
	a.SetSlyData(store)

	out, err := a.Invoke(context.Background(), map[string]any{"running_cost": 10.0})
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeRunningCost(t, out); got != 13.0 {
		t.Fatalf("got running_cost = %v, want 13.0", got)
	}

	// running_cost came from args, so sly_data is left untouched.
	got, _ := store.Get("running_cost")
	if got.(float64) != 0.0 {
		t.Fatalf("expected sly_data running_cost to stay 0.0, got %v", got)
	}
}

func TestAccountant_NoSlyDataDefaultsToZero(t *testing.T) {
	a := &Accountant{}
	out, err := a.Invoke(context.Background(), map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeRunningCost(t, out); got != 3.0 {
		t.Fatalf("got running_cost = %v, want 3.0", got)
	}
}
