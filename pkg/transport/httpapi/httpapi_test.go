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

package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agentmesh/agentmesh/pkg/authz"
	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/llm"
	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/session"
)

func helloWorldNetwork() *network.AgentNetwork {
	frontMan := &network.AgentSpec{
		Name:         "hello_world",
		Instructions: "You say hello.",
		LLMConfig:    &network.LLMConfig{Class: "scripted", Model: "test-model"},
	}
	frontMan.SetDefaults()
	return &network.AgentNetwork{
		Name:     "hello_world",
		Agents:   map[string]*network.AgentSpec{"hello_world": frontMan},
		FrontMan: "hello_world",
	}
}

type staticProvider struct{ networks map[string]*network.AgentNetwork }

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

type scriptedCompleter struct{ text string }

func (s scriptedCompleter) Name() string { return "scripted" }
func (s scriptedCompleter) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	return llm.Completion{Text: s.text}, nil
}

func newRunner(t *testing.T) *session.Runner {
	t.Helper()
	net := helloWorldNetwork()
	reg := llm.NewRegistry()
	reg.Register("scripted", func(cfg *network.LLMConfig) (llm.Provider, error) {
		return scriptedCompleter{text: "hello there"}, nil
	})
	return &session.Runner{
		Networks:   &staticProvider{networks: map[string]*network.AgentNetwork{net.Name: net}},
		Authorizer: authz.NewNullAuthorizer(),
		Resources:  llm.NewResources(reg, llm.ReachInShutdown),
	}
}

func TestHandleChat_StreamsNDJSONEndingInAgentFramework(t *testing.T) {
	h := &Handler{Runner: newRunner(t)}
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{
		"user_message": map[string]string{"type": "HUMAN", "text": "hi there"},
	})
	resp, err := http.Post(srv.URL+"/v1/networks/hello_world/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}

	var lines []wireResponseLine
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var line wireResponseLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("unmarshal line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one response line")
	}
	last := lines[len(lines)-1]
	if last.Response.Type != chat.TypeAgentFramework {
		t.Fatalf("expected last line to be AGENT_FRAMEWORK, got %s", last.Response.Type)
	}
	if !strings.Contains(last.Response.Text, "hello there") {
		t.Fatalf("expected the front-man's answer in the terminal message, got %q", last.Response.Text)
	}
}

func TestHandleChat_UnknownNetworkClosesStreamEmpty(t *testing.T) {
	h := &Handler{Runner: newRunner(t)}
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{
		"user_message": map[string]string{"type": "HUMAN", "text": "hi"},
	})
	resp, err := http.Post(srv.URL+"/v1/networks/does-not-exist/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if buf.Len() != 0 {
		t.Fatalf("expected an empty stream for a network lookup failure, got %q", buf.String())
	}
}

func TestHandleDescribe_ReturnsNetworkMetadata(t *testing.T) {
	h := &Handler{Runner: newRunner(t)}
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/networks/hello_world/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["front_man"] != "hello_world" {
		t.Fatalf("got %#v", decoded)
	}
}

func TestParseAllowedCORSHeaders(t *testing.T) {
	got := ParseAllowedCORSHeaders(" X-Trace-Id , X-Tenant ")
	if len(got) != 2 || got[0] != "X-Trace-Id" || got[1] != "X-Tenant" {
		t.Fatalf("got %#v", got)
	}
	if ParseAllowedCORSHeaders("") != nil {
		t.Fatal("expected nil for empty input")
	}
}
