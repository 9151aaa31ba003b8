package journal

import (
	"context"
	"testing"

	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/origin"
)

func TestOriginating_StampsAndAppendsHistory(t *testing.T) {
	root := origin.Root("announcer")
	j := NewOriginating(root, nil)

	if err := j.Write(context.Background(), chat.Human("hi")); err != nil {
		t.Fatal(err)
	}
	if err := j.Write(context.Background(), chat.Agent("hello back", nil)); err != nil {
		t.Fatal(err)
	}

	hist := j.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(hist))
	}
	for _, m := range hist {
		if !m.Origin.Equal(root) {
			t.Fatalf("expected origin %s, got %s", root, m.Origin)
		}
	}
	if hist[0].Text != "hi" || hist[1].Text != "hello back" {
		t.Fatalf("unexpected ordering: %+v", hist)
	}
}

func TestOriginating_ForwardsToParent(t *testing.T) {
	root := origin.Root("announcer")
	counter := origin.NewCounter()
	childOrigin := counter.Next(root, "synonymizer")

	parent := NewOriginating(root, nil)
	child := NewOriginating(childOrigin, parent)

	if err := child.Write(context.Background(), chat.Agent("synonym result", nil)); err != nil {
		t.Fatal(err)
	}

	if len(child.History()) != 1 {
		t.Fatalf("expected child history of 1, got %d", len(child.History()))
	}
	parentHist := parent.History()
	if len(parentHist) != 1 {
		t.Fatalf("expected parent to observe the forwarded write, got %d", len(parentHist))
	}
	if !parentHist[0].Origin.Equal(childOrigin) {
		t.Fatalf("expected forwarded message to keep the child's origin, got %s", parentHist[0].Origin)
	}
}

func TestIntercepting_CapturesOnlyMatchingOrigin(t *testing.T) {
	root := origin.Root("announcer")
	counter := origin.NewCounter()
	childOrigin := counter.Next(root, "synonymizer")

	base := NewOriginating(root, nil)
	intercepted := NewIntercepting(base, childOrigin)

	if err := intercepted.Write(context.Background(), &chat.Message{Type: chat.TypeAgent, Text: "from root", Origin: root}); err != nil {
		t.Fatal(err)
	}
	if err := intercepted.Write(context.Background(), &chat.Message{Type: chat.TypeAgent, Text: "from child", Origin: childOrigin}); err != nil {
		t.Fatal(err)
	}

	if len(base.History()) != 2 {
		t.Fatalf("expected both writes forwarded to the wrapped journal, got %d", len(base.History()))
	}
	captured := intercepted.Captured()
	if len(captured) != 1 || captured[0].Text != "from child" {
		t.Fatalf("expected only the child-origin message captured, got %+v", captured)
	}
}
