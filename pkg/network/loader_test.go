package network

import "testing"

const helloWorldManifest = `
name: hello_world
llm_config:
  class: anthropic
  model: claude-3-5-sonnet
agents:
  - name: announcer
    instructions: "Greet the user, then ask synonymizer for a warmer synonym."
    tools:
      - synonymizer
  - name: synonymizer
    instructions: "Return a single warmer synonym for the word you are given."
`

func TestLoad_HelloWorld(t *testing.T) {
	n, err := Load([]byte(helloWorldManifest), LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n.FrontMan != "announcer" {
		t.Fatalf("front man = %q, want announcer", n.FrontMan)
	}
	if n.Agents["announcer"].Kind != KindLLMAgent {
		t.Fatalf("announcer kind = %v, want llm_agent", n.Agents["announcer"].Kind)
	}
	if got := n.Agents["announcer"].RecursionLimit(); got != 41 {
		t.Fatalf("recursion limit = %d, want 41", got)
	}
}

func TestLoad_NoFrontMan(t *testing.T) {
	manifest := `
name: no_front_man
agents:
  - name: a
    instructions: x
    tools: [b]
  - name: b
    instructions: x
    tools: [a]
`
	_, err := Load([]byte(manifest), LoadOptions{})
	if err == nil {
		t.Fatal("expected error: two-cycle has no agent outside the cycle, so no front man")
	}
}

func TestLoad_CommondefsSubstitution(t *testing.T) {
	manifest := `
name: templated
commondefs:
  replacement_values:
    model_name: claude-3-5-sonnet
    greeting: "Hello there"
agents:
  - name: front
    instructions: "{greeting}, from the front agent. Model is {model_name}."
    tools: ["https://helper.example.com/agent"]
`
	n, err := Load([]byte(manifest), LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := n.Agents["front"].Instructions
	want := "Hello there, from the front agent. Model is claude-3-5-sonnet."
	if got != want {
		t.Fatalf("instructions = %q, want %q", got, want)
	}
}

func TestLoad_SkipInvalidAgents(t *testing.T) {
	manifest := `
name: partial
agents:
  - name: front
    instructions: x
    tools: ["https://helper.example.com/agent"]
  - instructions: "missing a name"
`
	n, err := Load([]byte(manifest), LoadOptions{SkipInvalidAgents: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(n.Agents) != 1 {
		t.Fatalf("got %d agents, want 1", len(n.Agents))
	}
}

func TestDetectCycles(t *testing.T) {
	manifest := `
name: cyclic
agents:
  - name: front
    instructions: x
    tools: [looper]
  - name: looper
    instructions: x
    tools: [looper]
`
	n, err := Load([]byte(manifest), LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cycles := n.DetectCycles()
	if len(cycles) != 1 {
		t.Fatalf("got %d cycles, want 1: %#v", len(cycles), cycles)
	}
}
