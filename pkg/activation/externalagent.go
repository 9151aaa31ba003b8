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

package activation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/httpclient"
	"github.com/agentmesh/agentmesh/pkg/runcontext"
	"github.com/agentmesh/agentmesh/pkg/slydata"
)

// externalTurnRequest is the wire body ExternalAgent posts to a remote
// agentmesh-compatible streaming-chat endpoint.
type externalTurnRequest struct {
	Message     string         `json:"message"`
	SlyData     map[string]any `json:"sly_data,omitempty"`
	ChatContext *chat.Context  `json:"chat_context,omitempty"`
}

// externalTurnResponse is the compiled response a remote endpoint
// returns once its own stream has reached its terminal AGENT_FRAMEWORK
// message.
type externalTurnResponse struct {
	Text        string         `json:"text"`
	SlyData     map[string]any `json:"sly_data,omitempty"`
	ChatContext *chat.Context  `json:"chat_context,omitempty"`
}

// ExternalAgent activates a remote agentmesh network over HTTP: the
// reference URL is the AgentSpec.Name itself (an ExternalRef, per
// network.IsExternalRef). Sly-data crossing the boundary is redacted
// per the configured allow.from_downstream / allow.to_downstream
// policies; an unreachable endpoint degrades to a single explanatory
// message rather than failing the parent turn.
type ExternalAgent struct {
	URL    string
	Client *httpclient.Client
	Allow  slydata.Boundary
}

func (a *ExternalAgent) Name() string { return a.URL }

func (a *ExternalAgent) Invoke(ctx context.Context, rc *runcontext.RunContext, args map[string]any) (runcontext.ToolOutput, error) {
	outbound := slydata.Redact(a.Allow.Resolve("to_downstream"), rc.SlyData().Snapshot())

	body, err := json.Marshal(externalTurnRequest{
		Message: userTurnText(args),
		SlyData: outbound,
	})
	if err != nil {
		return runcontext.ToolOutput{}, fmt.Errorf("activation: encode external-agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return runcontext.ToolOutput{}, fmt.Errorf("activation: build external-agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		// An unreachable endpoint degrades to a single explanatory
		// message rather than failing the parent chain.
		return runcontext.ToolOutput{Value: fmt.Sprintf("%s was unreachable. Cannot rely on results from it as a tool.", a.URL)}, nil
	}
	defer resp.Body.Close()

	var decoded externalTurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return runcontext.ToolOutput{Value: fmt.Sprintf("%s returned an unparsable response. Cannot rely on results from it as a tool.", a.URL)}, nil
	}

	inbound := slydata.Redact(a.Allow.Resolve("from_downstream"), decoded.SlyData)
	return runcontext.ToolOutput{Value: decoded.Text, SlyData: inbound}, nil
}
