package slydata

import "testing"

func sampleData() Data {
	return Data{"a": 1, "b": 2, "c": 3}
}

func TestRedact_AllowAll(t *testing.T) {
	out := Redact(AllowAll, sampleData())
	if len(out) != 3 {
		t.Fatalf("got %d keys, want 3", len(out))
	}
}

func TestRedact_Deny(t *testing.T) {
	out := Redact(Deny, sampleData())
	if len(out) != 0 {
		t.Fatalf("got %d keys, want 0", len(out))
	}
}

func TestRedact_List(t *testing.T) {
	p := ParsePolicy([]any{"a", "c"})
	out := Redact(p, sampleData())
	if _, ok := out["b"]; ok {
		t.Fatal("unlisted key b must be absent")
	}
	if out["a"] != 1 || out["c"] != 3 {
		t.Fatalf("unexpected output: %#v", out)
	}
}

func TestRedact_MapRename(t *testing.T) {
	p := ParsePolicy(map[string]any{"a": "renamed_a", "b": false})
	out := Redact(p, sampleData())
	if _, ok := out["a"]; ok {
		t.Fatal("original key a should not survive a rename")
	}
	if out["renamed_a"] != 1 {
		t.Fatalf("expected renamed_a=1, got %#v", out)
	}
	if _, ok := out["b"]; ok {
		t.Fatal("b explicitly denied")
	}
	if _, ok := out["c"]; ok {
		t.Fatal("c not declared, must be absent")
	}
}

// Property: Redact(P, Redact(P, S)) == Redact(P, S), for every policy
// shape, including renames — the trickiest case because the renamed key
// no longer matches its original rule on the second pass.
func TestRedact_Idempotent(t *testing.T) {
	policies := []Policy{
		Deny,
		AllowAll,
		ParsePolicy([]any{"a", "b"}),
		ParsePolicy(map[string]any{"a": "renamed_a", "b": true, "c": false}),
	}

	for i, p := range policies {
		once := Redact(p, sampleData())
		twice := Redact(p, once)
		if len(once) != len(twice) {
			t.Fatalf("policy %d: len(once)=%d len(twice)=%d once=%#v twice=%#v", i, len(once), len(twice), once, twice)
		}
		for k, v := range once {
			if twice[k] != v {
				t.Fatalf("policy %d: key %q changed across redaction: once=%v twice=%v", i, k, v, twice[k])
			}
		}
	}
}

// Property: for any unlisted key k, redact(P, S)[k] is absent unless P == AllowAll.
func TestRedact_UnlistedKeyAbsentUnlessAllowAll(t *testing.T) {
	p := ParsePolicy(map[string]any{"a": true})
	out := Redact(p, sampleData())
	if _, ok := out["z_not_present_in_source_or_policy"]; ok {
		t.Fatal("key absent from both source and policy must never appear")
	}
	if _, ok := out["b"]; ok {
		t.Fatal("b is unlisted under a map policy and must be absent")
	}
}

func TestBoundary_ResolvePrecedence(t *testing.T) {
	b := Boundary{
		"to_downstream": AllowAll,
	}
	got := b.Resolve("from_downstream", "to_downstream")
	if got.Kind != KindAllowAll {
		t.Fatalf("expected fallback to to_downstream, got %#v", got)
	}
	if b.Resolve("nonexistent").Kind != KindDeny {
		t.Fatal("missing section should resolve to Deny")
	}
}
