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

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentmesh/agentmesh/pkg/network"
)

// OpenAIProvider adapts sashabaranov/go-openai to Provider. The same
// client also serves any OpenAI-compatible endpoint (local vLLM, Azure
// OpenAI) via llm_config.extra.base_url.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider is registered under LLMConfig.Class == "openai".
func NewOpenAIProvider(cfg *network.LLMConfig) (Provider, error) {
	apiKey := ValueOrEnv(cfg.Extra["api_key"])
	if apiKey == "" {
		return nil, fmt.Errorf("llm: openai provider requires llm_config.extra.api_key")
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if base := cfg.Extra["base_url"]; base != "" {
		clientCfg.BaseURL = base
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	chatReq := openai.ChatCompletionRequest{Model: p.model}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	}
	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.System,
		})
	}
	for _, m := range req.Messages {
		chatReq.Messages = append(chatReq.Messages, toOpenAIMessage(m))
	}
	for _, t := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Completion{}, &ProviderError{Provider: p.Name(), Retryable: isOpenAIRetryable(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("llm: openai returned no choices")
	}
	choice := resp.Choices[0]
	out := Completion{Text: choice.Message.Content, StopReason: string(choice.FinishReason)}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return out, nil
}

func toOpenAIMessage(m RequestMessage) openai.ChatCompletionMessage {
	switch m.Role {
	case "assistant":
		msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Text}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Arguments)
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		return msg
	case "tool":
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleTool, Content: m.Text, ToolCallID: m.ToolCallID}
	default:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Text}
	}
}

func isOpenAIRetryable(err error) bool {
	var apiErr *openai.APIError
	if ok := asOpenAIAPIError(err, &apiErr); ok {
		switch apiErr.HTTPStatusCode {
		case 429, 500, 502, 503:
			return true
		}
	}
	return false
}

func asOpenAIAPIError(err error, target **openai.APIError) bool {
	ae, ok := err.(*openai.APIError)
	if ok {
		*target = ae
	}
	return ok
}
