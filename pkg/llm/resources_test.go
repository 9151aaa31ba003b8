package llm

import (
	"context"
	"testing"

	"github.com/agentmesh/agentmesh/pkg/network"
)

type fakeProvider struct {
	name string
	fail bool
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	if f.fail {
		return Completion{}, &ProviderError{Provider: f.name, Retryable: true, Err: context.DeadlineExceeded}
	}
	return Completion{Text: "ok from " + f.name}, nil
}

func TestResources_FallsBackOnRetryableError(t *testing.T) {
	reg := NewRegistry()
	reg.Register("primary", func(cfg *network.LLMConfig) (Provider, error) {
		return &fakeProvider{name: "primary", fail: true}, nil
	})
	reg.Register("secondary", func(cfg *network.LLMConfig) (Provider, error) {
		return &fakeProvider{name: "secondary"}, nil
	})

	cfg := &network.LLMConfig{
		Class: "primary",
		Fallbacks: []*network.LLMConfig{
			{Class: "secondary"},
		},
	}
	res := NewResources(reg, ReachInShutdown)
	out, err := res.Complete(context.Background(), cfg, Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Text != "ok from secondary" {
		t.Fatalf("got %q, want fallback to secondary", out.Text)
	}
}

func TestResources_UnknownClass(t *testing.T) {
	res := NewResources(NewRegistry(), ReachInShutdown)
	_, err := res.Complete(context.Background(), &network.LLMConfig{Class: "nope"}, Request{})
	if err == nil {
		t.Fatal("expected error for unregistered class")
	}
}

func TestValueOrEnv(t *testing.T) {
	t.Setenv("AGENTMESH_TEST_KEY", "secret-value")
	if got := ValueOrEnv("env:AGENTMESH_TEST_KEY"); got != "secret-value" {
		t.Fatalf("got %q", got)
	}
	if got := ValueOrEnv("literal-value"); got != "literal-value" {
		t.Fatalf("got %q", got)
	}
}
