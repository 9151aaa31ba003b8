package toolbox

import (
	"context"
	"testing"

	"github.com/agentmesh/agentmesh/pkg/llm"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", NewFunc(llm.ToolDefinition{Name: "echo"}, func(ctx context.Context, args map[string]any) (string, error) {
		return args["text"].(string), nil
	}))
	tool, ok := r.Get("echo")
	if !ok {
		t.Fatal("expected echo to be registered")
	}
	out, err := tool.Invoke(context.Background(), map[string]any{"text": "hi"})
	if err != nil || out != "hi" {
		t.Fatalf("Invoke: %q, %v", out, err)
	}
}

type fakeToolkit struct{}

func (fakeToolkit) GetTools() []Tool {
	return []Tool{
		NewFunc(llm.ToolDefinition{Name: "a"}, func(ctx context.Context, args map[string]any) (string, error) { return "a", nil }),
		NewFunc(llm.ToolDefinition{Name: "b"}, func(ctx context.Context, args map[string]any) (string, error) { return "b", nil }),
	}
}

func TestRegistry_RegisterToolkitExpands(t *testing.T) {
	r := NewRegistry()
	r.RegisterToolkit(fakeToolkit{})
	if len(r.Names()) != 2 {
		t.Fatalf("expected 2 tools from toolkit expansion, got %v", r.Names())
	}
}

func TestMergeArgs_UserOverridesDeclared(t *testing.T) {
	merged, err := MergeArgs(map[string]any{"limit": 10, "query": "default"}, map[string]any{"query": "override"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if merged["query"] != "override" || merged["limit"] != 10 {
		t.Fatalf("unexpected merge result: %#v", merged)
	}
}
