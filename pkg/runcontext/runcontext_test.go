package runcontext

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/invocation"
	"github.com/agentmesh/agentmesh/pkg/llm"
	"github.com/agentmesh/agentmesh/pkg/network"
)

type scriptedProvider struct {
	turns []llm.Completion
	calls int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	out := p.turns[p.calls]
	p.calls++
	return out, nil
}

func newResources(t *testing.T, turns []llm.Completion) *llm.Resources {
	t.Helper()
	reg := llm.NewRegistry()
	reg.Register("scripted", func(cfg *network.LLMConfig) (llm.Provider, error) {
		return &scriptedProvider{turns: turns}, nil
	})
	return llm.NewResources(reg, llm.ReachInShutdown)
}

type echoActivation struct{ name string }

func (a *echoActivation) Name() string { return a.name }

func (a *echoActivation) Invoke(ctx context.Context, rc *RunContext, args map[string]any) (ToolOutput, error) {
	return ToolOutput{Value: "tool answer"}, nil
}

func newSpec() *network.AgentSpec {
	spec := &network.AgentSpec{
		Name:         "announcer",
		Instructions: "You are a helpful announcer.",
		LLMConfig:    &network.LLMConfig{Class: "scripted", Model: "test-model"},
	}
	spec.SetDefaults()
	return spec
}

func newInvocationContext() *invocation.Context {
	return invocation.New("announcer", invocation.WithLogger(zap.NewNop()))
}

func TestSubmitMessage_NoToolCalls_ReachesFinal(t *testing.T) {
	resources := newResources(t, []llm.Completion{{Text: "hello there"}})
	rc := New(newSpec(), Options{
		InvocationContext: newInvocationContext(),
		Resources:         resources,
	})

	final, err := rc.SubmitMessage(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if final.Text != "hello there" {
		t.Fatalf("got %q", final.Text)
	}
	if rc.State() != StateFinal {
		t.Fatalf("got state %s", rc.State())
	}
}

func TestSubmitMessage_OneToolCallThenFinal(t *testing.T) {
	resources := newResources(t, []llm.Completion{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "echo", Arguments: map[string]any{}}}},
		{Text: "final answer"},
	})
	spec := newSpec()
	rc := New(spec, Options{
		InvocationContext: newInvocationContext(),
		Resources:         resources,
		Tools:             map[string]Activation{"echo": &echoActivation{name: "echo"}},
	})

	final, err := rc.SubmitMessage(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if final.Text != "final answer" {
		t.Fatalf("got %q", final.Text)
	}

	hist := rc.History()
	var sawToolResult bool
	for _, m := range hist {
		if m.Type == chat.TypeAgentToolResult && m.Text == "tool answer" {
			sawToolResult = true
		}
	}
	if !sawToolResult {
		t.Fatalf("expected a folded-back tool result in history, got %+v", hist)
	}
}

func TestSubmitMessage_RejectsDoubleSubmit(t *testing.T) {
	resources := newResources(t, []llm.Completion{{Text: "hi"}, {Text: "hi again"}})
	rc := New(newSpec(), Options{
		InvocationContext: newInvocationContext(),
		Resources:         resources,
	})

	if _, err := rc.SubmitMessage(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := rc.SubmitMessage(context.Background(), "second"); err == nil {
		t.Fatal("expected an error submitting a second message to a Final RunContext")
	}
}

func TestSubmitMessage_DetectsAgentErrorFragment(t *testing.T) {
	resources := newResources(t, []llm.Completion{{Text: "I cannot help with that request"}})
	spec := newSpec()
	spec.ErrorFragmentsCfg = &network.ErrorFragments{Agent: []string{"I cannot help"}}

	rc := New(spec, Options{
		InvocationContext: newInvocationContext(),
		Resources:         resources,
	})

	final, err := rc.SubmitMessage(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if final.Text[:6] != "Error:" {
		t.Fatalf("expected an error-prefixed message, got %q", final.Text)
	}
}
