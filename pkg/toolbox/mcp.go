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

package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentmesh/agentmesh/pkg/llm"
)

// MCPSourceConfig configures a subprocess-backed MCP server, the "mcp:"
// toolbox reference convention of pkg/network/validate.URLValidator.
type MCPSourceConfig struct {
	Server  string // logical name, e.g. the "mcp:<server>/<tool>" prefix
	Command string
	Args    []string
	Env     map[string]string
	Filter  []string // when non-empty, only these tool names are registered
}

// MCPSource lazily connects to one MCP server over stdio and exposes its
// tools as toolbox.Tool values.
type MCPSource struct {
	cfg MCPSourceConfig

	mu        sync.Mutex
	client    *client.Client
	connected bool
}

func NewMCPSource(cfg MCPSourceConfig) *MCPSource {
	return &MCPSource{cfg: cfg}
}

// Tools connects (on first call) and returns every exposed tool as a
// toolbox.Tool, named "mcp:<server>/<toolName>".
func (s *MCPSource) Tools(ctx context.Context) ([]Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		if err := s.connect(ctx); err != nil {
			return nil, err
		}
	}

	listResp, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("toolbox: mcp list tools: %w", err)
	}

	var filter map[string]bool
	if len(s.cfg.Filter) > 0 {
		filter = make(map[string]bool, len(s.cfg.Filter))
		for _, n := range s.cfg.Filter {
			filter[n] = true
		}
	}

	var tools []Tool
	for _, t := range listResp.Tools {
		if filter != nil && !filter[t.Name] {
			continue
		}
		tools = append(tools, &mcpTool{
			source: s,
			name:   t.Name,
			def: llm.ToolDefinition{
				Name:        fmt.Sprintf("mcp:%s/%s", s.cfg.Server, t.Name),
				Description: t.Description,
				Parameters:  schemaToMap(t.InputSchema),
			},
		})
	}
	return tools, nil
}

func (s *MCPSource) connect(ctx context.Context) error {
	env := make([]string, 0, len(s.cfg.Env))
	for k, v := range s.cfg.Env {
		env = append(env, k+"="+v)
	}
	c, err := client.NewStdioMCPClient(s.cfg.Command, env, s.cfg.Args...)
	if err != nil {
		return fmt.Errorf("toolbox: start mcp server %s: %w", s.cfg.Server, err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("toolbox: start mcp client: %w", err)
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "agentmesh", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return fmt.Errorf("toolbox: initialize mcp server %s: %w", s.cfg.Server, err)
	}
	s.client = c
	s.connected = true
	return nil
}

func (s *MCPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		s.connected = false
		return err
	}
	return nil
}

type mcpTool struct {
	source *MCPSource
	name   string
	def    llm.ToolDefinition
}

func (t *mcpTool) Definition() llm.ToolDefinition { return t.def }

func (t *mcpTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	t.source.mu.Lock()
	c := t.source.client
	t.source.mu.Unlock()
	if c == nil {
		return "", fmt.Errorf("toolbox: mcp server %s not connected", t.source.cfg.Server)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args
	resp, err := c.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("toolbox: mcp call %s: %w", t.name, err)
	}
	if resp.IsError {
		for _, c := range resp.Content {
			if tc, ok := c.(mcp.TextContent); ok {
				return "", fmt.Errorf("toolbox: mcp tool %s: %s", t.name, tc.Text)
			}
		}
		return "", fmt.Errorf("toolbox: mcp tool %s returned an unspecified error", t.name)
	}
	var texts []string
	for _, c := range resp.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	out, _ := json.Marshal(texts)
	if len(texts) == 1 {
		return texts[0], nil
	}
	return string(out), nil
}

func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	buf, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil
	}
	return out
}
