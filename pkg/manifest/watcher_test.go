package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/network/validate"
)

const singleAgentManifest = `
name: greeter
agents:
  - name: front
    instructions: "Greet the user."
    tools: ["https://greeter.example.com/agent"]
`

func TestFileSourceLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "greeter.yaml"), []byte(singleAgentManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := NewFileSource(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "greeter" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestWatcherInitialLoadPopulatesStore(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "greeter.yaml"), []byte(singleAgentManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := NewFileSource(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	store := network.NewStore()
	w := New(src, store, validate.Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, ok := store.Get("greeter"); !ok {
		t.Fatal("expected greeter network to be installed after Start")
	}
}

func TestWatcherReactsToFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeter.yaml")
	if err := os.WriteFile(path, []byte(singleAgentManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := NewFileSource(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	store := network.NewStore()
	w := New(src, store, validate.Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(`
name: renamed_greeter
agents:
  - name: front
    instructions: "Greet the user, renamed."
    tools: ["https://greeter.example.com/agent"]
`), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := store.Get("renamed_greeter"); ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected renamed_greeter to appear in store after file change")
}
