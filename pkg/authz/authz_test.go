package authz

import (
	"context"
	"testing"
)

func TestNullAuthorizer_AllowsEverything(t *testing.T) {
	n := NewNullAuthorizer()
	allowed, err := n.Allow(context.Background(), "actor-1", nil, "read", "AgentNetwork:hello_world")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected NullAuthorizer to allow everything")
	}
}

func TestNullAuthorizer_ListIntersection(t *testing.T) {
	// With existing agents {a,b,c}, a NullAuthorizer's list_agents()
	// returns all three: it never filters.
	n := NewNullAuthorizer()
	n.KnownResources["AgentNetwork"] = []string{"a", "b", "c"}

	ids, err := n.List(context.Background(), "actor-1", "can_view", "AgentNetwork")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %v", ids)
	}
}

func TestNullAuthorizer_GrantThenRevoke(t *testing.T) {
	n := NewNullAuthorizer()
	resource := Resource{Type: "AgentNetwork", ID: "hello_world"}

	granted, err := n.Grant(context.Background(), "actor-1", "can_view", resource)
	if err != nil {
		t.Fatal(err)
	}
	if !granted {
		t.Fatal("expected the first grant to report a change")
	}

	grantedAgain, err := n.Grant(context.Background(), "actor-1", "can_view", resource)
	if err != nil {
		t.Fatal(err)
	}
	if grantedAgain {
		t.Fatal("expected a repeated grant to report no change")
	}

	revoked, err := n.Revoke(context.Background(), "actor-1", "can_view", resource)
	if err != nil {
		t.Fatal(err)
	}
	if !revoked {
		t.Fatal("expected the revoke to report a change")
	}

	revokedAgain, err := n.Revoke(context.Background(), "actor-1", "can_view", resource)
	if err != nil {
		t.Fatal(err)
	}
	if revokedAgain {
		t.Fatal("expected a repeated revoke to report no change")
	}
}

func TestTupleUserAndObject(t *testing.T) {
	if got := tupleUser("User", "alice"); got != "User:alice" {
		t.Fatalf("got %q", got)
	}
	if got := tupleObject("AgentNetwork", "hello_world"); got != "AgentNetwork:hello_world" {
		t.Fatalf("got %q", got)
	}
}
