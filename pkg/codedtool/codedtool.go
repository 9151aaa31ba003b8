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

// Package codedtool implements the CodedToolResolver: resolving an
// AgentSpec.class symbolic reference to compiled-in Go code, with no
// constructor arguments, plus the narrow set of optional capabilities a
// tool can opt into by implementing an extra interface.
package codedtool

import (
	"context"
	"strings"

	"github.com/agentmesh/agentmesh/pkg/registry"
)

// Tool is the interface every coded tool implements. Only Invoke is
// required; everything else is the zero-arg-constructor contract and
// the optional capability interfaces below.
type Tool interface {
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// Constructor builds a Tool with no arguments — the resolver supplies
// everything a tool needs afterward, through capability injection, never
// through constructor parameters.
type Constructor func() Tool

// RunContextSetter, SlyDataSetter, ArgumentsSetter, FactorySetter, and
// AgentToolSpecSetter are the branch-activation capabilities: a coded
// tool may implement any subset of these to receive ambient state the
// Activation injects right after construction, without needing it
// threaded through Invoke's arguments.
type RunContextSetter interface{ SetRunContext(rc any) }
type SlyDataSetter interface{ SetSlyData(store any) }
type ArgumentsSetter interface{ SetArguments(args map[string]any) }
type FactorySetter interface{ SetFactory(factory any) }
type AgentToolSpecSetter interface{ SetAgentToolSpec(spec any) }

// Injection carries the ambient values a Resolver.Activate call injects
// into whichever capability interfaces the constructed Tool implements.
type Injection struct {
	RunContext   any
	SlyData      any
	Arguments    map[string]any
	Factory      any
	AgentToolSpec any
}

// Resolver is the CodedToolResolver: classes are registered under a
// dotted symbolic path (mirroring the "package.Class" naming convention
// coded-tool manifests declare), and Resolve tries the
// exact path first, then progressively less specific suffixes — so a
// manifest can reference either "agentmesh/tools/finance.Accountant" or
// just "finance.Accountant" once only one registrant matches that
// suffix.
type Resolver struct {
	exact *registry.BaseRegistry[Constructor]
}

func NewResolver() *Resolver {
	return &Resolver{exact: registry.NewBaseRegistry[Constructor]()}
}

// Register binds a fully-qualified symbolic path to a Constructor,
// replacing any prior registrant under the same path — re-registering a
// class (e.g. on a manifest-driven reload) is expected, not an error.
func (r *Resolver) Register(class string, ctor Constructor) {
	r.exact.Upsert(class, ctor)
}

// ErrAmbiguousClass is returned when a suffix resolution matches more
// than one registered class.
type ErrAmbiguousClass struct {
	Class      string
	Candidates []string
}

func (e *ErrAmbiguousClass) Error() string {
	return "codedtool: class " + e.Class + " matches multiple registrants: " + strings.Join(e.Candidates, ", ")
}

// ErrUnknownClass is returned when no registrant matches class or any of
// its suffixes.
type ErrUnknownClass struct{ Class string }

func (e *ErrUnknownClass) Error() string { return "codedtool: no registrant for class " + e.Class }

// Resolve finds the Constructor for class, trying the exact registered
// path first and then progressively shorter dotted suffixes.
func (r *Resolver) Resolve(class string) (Constructor, error) {
	if ctor, ok := r.exact.Get(class); ok {
		return ctor, nil
	}

	names := r.exact.Names()
	parts := strings.Split(class, ".")
	for i := 1; i < len(parts); i++ {
		suffix := strings.Join(parts[i:], ".")
		var matches []string
		for _, registered := range names {
			if registered == suffix || strings.HasSuffix(registered, "."+suffix) {
				matches = append(matches, registered)
			}
		}
		switch len(matches) {
		case 0:
			continue
		case 1:
			ctor, _ := r.exact.Get(matches[0])
			return ctor, nil
		default:
			return nil, &ErrAmbiguousClass{Class: class, Candidates: matches}
		}
	}
	return nil, &ErrUnknownClass{Class: class}
}

// Activate resolves class, constructs the Tool with no arguments, and
// injects whichever capabilities from inj the constructed value's type
// implements.
func (r *Resolver) Activate(class string, inj Injection) (Tool, error) {
	ctor, err := r.Resolve(class)
	if err != nil {
		return nil, err
	}
	t := ctor()
	if s, ok := t.(RunContextSetter); ok && inj.RunContext != nil {
		s.SetRunContext(inj.RunContext)
	}
	if s, ok := t.(SlyDataSetter); ok && inj.SlyData != nil {
		s.SetSlyData(inj.SlyData)
	}
	if s, ok := t.(ArgumentsSetter); ok && inj.Arguments != nil {
		s.SetArguments(inj.Arguments)
	}
	if s, ok := t.(FactorySetter); ok && inj.Factory != nil {
		s.SetFactory(inj.Factory)
	}
	if s, ok := t.(AgentToolSpecSetter); ok && inj.AgentToolSpec != nil {
		s.SetAgentToolSpec(inj.AgentToolSpec)
	}
	return t, nil
}
