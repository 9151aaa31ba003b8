package codedtool

import (
	"context"
	"testing"
)

type greeter struct {
	name string
}

func (g *greeter) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return "hello, " + g.name, nil
}

func (g *greeter) SetArguments(args map[string]any) {
	if n, ok := args["name"].(string); ok {
		g.name = n
	}
}

func TestResolve_ExactMatch(t *testing.T) {
	r := NewResolver()
	r.Register("agentmesh/tools/greeting.Greeter", func() Tool { return &greeter{} })
	ctor, err := r.Resolve("agentmesh/tools/greeting.Greeter")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ctor().(*greeter); !ok {
		t.Fatal("expected a *greeter")
	}
}

func TestResolve_SuffixMatch(t *testing.T) {
	r := NewResolver()
	r.Register("agentmesh/tools/greeting.Greeter", func() Tool { return &greeter{} })
	ctor, err := r.Resolve("greeting.Greeter")
	if err != nil {
		t.Fatal(err)
	}
	if ctor == nil {
		t.Fatal("expected a resolved constructor")
	}
}

func TestResolve_Unknown(t *testing.T) {
	r := NewResolver()
	if _, err := r.Resolve("nope.Nope"); err == nil {
		t.Fatal("expected ErrUnknownClass")
	}
}

func TestResolve_Ambiguous(t *testing.T) {
	r := NewResolver()
	r.Register("pkg_a/greeting.Greeter", func() Tool { return &greeter{} })
	r.Register("pkg_b/greeting.Greeter", func() Tool { return &greeter{} })
	_, err := r.Resolve("greeting.Greeter")
	if err == nil {
		t.Fatal("expected ErrAmbiguousClass")
	}
	if _, ok := err.(*ErrAmbiguousClass); !ok {
		t.Fatalf("got %T, want *ErrAmbiguousClass", err)
	}
}

func TestActivate_InjectsArguments(t *testing.T) {
	r := NewResolver()
	r.Register("greeting.Greeter", func() Tool { return &greeter{} })
	tool, err := r.Activate("greeting.Greeter", Injection{Arguments: map[string]any{"name": "world"}})
	if err != nil {
		t.Fatal(err)
	}
	out, err := tool.Invoke(context.Background(), nil)
	if err != nil || out != "hello, world" {
		t.Fatalf("got %q, %v", out, err)
	}
}
