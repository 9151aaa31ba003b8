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

package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agentmesh/agentmesh/pkg/authz"
	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/llm"
	"github.com/agentmesh/agentmesh/pkg/network"
)

type scriptedProvider struct {
	turns []llm.Completion
	err   error
	calls int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	if p.err != nil {
		return llm.Completion{}, p.err
	}
	out := p.turns[p.calls]
	p.calls++
	return out, nil
}

func newScriptedResources(turns []llm.Completion, err error) *llm.Resources {
	reg := llm.NewRegistry()
	reg.Register("scripted", func(cfg *network.LLMConfig) (llm.Provider, error) {
		return &scriptedProvider{turns: turns, err: err}, nil
	})
	return llm.NewResources(reg, llm.ReachInShutdown)
}

func helloWorldNetwork() *network.AgentNetwork {
	frontMan := &network.AgentSpec{
		Name:         "hello_world",
		Instructions: "You say hello.",
		LLMConfig:    &network.LLMConfig{Class: "scripted", Model: "test-model"},
	}
	frontMan.SetDefaults()

	store := network.NewStore()
	store.Install(frontMan)
	return &network.AgentNetwork{
		Name:     "hello_world",
		Agents:   map[string]*network.AgentSpec{"hello_world": frontMan},
		FrontMan: "hello_world",
	}
}

type staticProvider struct {
	networks map[string]*network.AgentNetwork
}

func (p *staticProvider) Get(name string) (*network.AgentNetwork, bool) {
	n, ok := p.networks[name]
	return n, ok
}

func (p *staticProvider) List() []string {
	names := make([]string, 0, len(p.networks))
	for n := range p.networks {
		names = append(names, n)
	}
	return names
}

func newProvider(networks ...*network.AgentNetwork) *staticProvider {
	m := make(map[string]*network.AgentNetwork, len(networks))
	for _, n := range networks {
		m[n.Name] = n
	}
	return &staticProvider{networks: m}
}

type denyingAuthorizer struct{}

func (denyingAuthorizer) Allow(ctx context.Context, actorID string, metadata map[string]any, action, resource string) (bool, error) {
	return false, nil
}
func (denyingAuthorizer) List(ctx context.Context, actorID, relation, resourceType string) ([]string, error) {
	return nil, nil
}
func (denyingAuthorizer) Grant(ctx context.Context, actorID, relation string, r authz.Resource) (bool, error) {
	return false, nil
}
func (denyingAuthorizer) Revoke(ctx context.Context, actorID, relation string, r authz.Resource) (bool, error) {
	return false, nil
}

func TestRunner_Run_EmitsSingleTerminalFrameworkMessage(t *testing.T) {
	net := helloWorldNetwork()
	r := &Runner{
		Networks:   newProvider(net),
		Authorizer: authz.NewNullAuthorizer(),
		Resources:  newScriptedResources([]llm.Completion{{Text: "hello there"}}, nil),
	}

	var emitted []*chat.Message
	err := r.Run(context.Background(), TurnRequest{NetworkName: "hello_world", UserMessage: "hi"}, func(m *chat.Message) error {
		emitted = append(emitted, m)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(emitted) == 0 {
		t.Fatal("expected at least one emitted message")
	}

	terminals := 0
	for i, m := range emitted {
		if m.Origin == nil {
			t.Fatalf("message %d has nil origin", i)
		}
		if m.Origin.Head().Tool != "hello_world" {
			t.Fatalf("message %d origin head = %q, want hello_world", i, m.Origin.Head().Tool)
		}
		if m.Type == chat.TypeAgentFramework {
			terminals++
		} else if i != len(emitted)-1 {
			// non-terminal messages may appear anywhere before the close
		}
	}
	if terminals != 1 {
		t.Fatalf("expected exactly one AGENT_FRAMEWORK message, got %d", terminals)
	}
	last := emitted[len(emitted)-1]
	if last.Type != chat.TypeAgentFramework {
		t.Fatalf("expected the last emitted message to be terminal, got %s", last.Type)
	}
	if !strings.Contains(last.Text, "hello there") {
		t.Fatalf("expected terminal message to carry the front-man's answer, got %q", last.Text)
	}
	if last.ChatContext == nil || len(last.ChatContext.ChatHistories) == 0 {
		t.Fatal("expected a non-empty ChatContext on the terminal message")
	}
}

func TestRunner_Run_UnauthorizedActorNeverEmits(t *testing.T) {
	net := helloWorldNetwork()
	r := &Runner{
		Networks:   newProvider(net),
		Authorizer: denyingAuthorizer{},
		Resources:  newScriptedResources(nil, nil),
	}

	called := false
	err := r.Run(context.Background(), TurnRequest{NetworkName: "hello_world", UserMessage: "hi"}, func(m *chat.Message) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected an AuthError")
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	if called {
		t.Fatal("expected no messages emitted for a denied turn")
	}
}

func TestRunner_Run_UnknownNetworkNeverEmits(t *testing.T) {
	r := &Runner{
		Networks:   newProvider(),
		Authorizer: authz.NewNullAuthorizer(),
	}

	called := false
	err := r.Run(context.Background(), TurnRequest{NetworkName: "nope"}, func(m *chat.Message) error {
		called = true
		return nil
	})
	var notFound *network.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *network.ErrNotFound, got %T: %v", err, err)
	}
	if called {
		t.Fatal("expected no messages emitted")
	}
}

func TestRunner_Run_LLMFailureStillEmitsOneTerminalMessage(t *testing.T) {
	net := helloWorldNetwork()
	r := &Runner{
		Networks:   newProvider(net),
		Authorizer: authz.NewNullAuthorizer(),
		Resources:  newScriptedResources(nil, errors.New("provider unreachable")),
	}

	var emitted []*chat.Message
	err := r.Run(context.Background(), TurnRequest{NetworkName: "hello_world", UserMessage: "hi"}, func(m *chat.Message) error {
		emitted = append(emitted, m)
		return nil
	})
	if err != nil {
		t.Fatalf("expected the turn-level failure to be folded into the terminal message, not returned: %v", err)
	}
	if len(emitted) != 2 {
		t.Fatalf("expected the journaled user message plus one terminal message on failure, got %d", len(emitted))
	}
	msg := emitted[1]
	if msg.Type != chat.TypeAgentFramework {
		t.Fatalf("expected an AGENT_FRAMEWORK message, got %s", msg.Type)
	}
	if !strings.Contains(msg.Text, "could not complete this turn") {
		t.Fatalf("expected a user-visible reason string, got %q", msg.Text)
	}
	if msg.SlyData != nil {
		t.Fatalf("expected no sly_data on a failed turn, got %#v", msg.SlyData)
	}
}
