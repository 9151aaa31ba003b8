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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithydocument "github.com/aws/smithy-go/document"

	"github.com/agentmesh/agentmesh/pkg/network"
)

// BedrockProvider adapts aws-sdk-go-v2's bedrockruntime Converse API,
// which normalizes request/response shape across every model family
// Bedrock hosts (Anthropic, Llama, Titan, ...).
type BedrockProvider struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockProvider is registered under LLMConfig.Class == "bedrock".
// cfg.Model carries the Bedrock model ID (e.g.
// "anthropic.claude-3-5-sonnet-20241022-v2:0"); cfg.Extra["region"]
// overrides the AWS SDK's default region resolution.
func NewBedrockProvider(cfg *network.LLMConfig) (Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: bedrock provider requires llm_config.model (the Bedrock model id)")
	}
	ctx := context.Background()
	var optFns []func(*awsconfig.LoadOptions) error
	if region := cfg.Extra["region"]; region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("llm: load aws config: %w", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(awsCfg), modelID: cfg.Model}, nil
}

func (p *BedrockProvider) Name() string { return "bedrock" }

func (p *BedrockProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	input := &bedrockruntime.ConverseInput{ModelId: aws.String(p.modelID)}
	if req.System != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.System}}
	}
	inferenceConfig := &types.InferenceConfiguration{}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		inferenceConfig.Temperature = &t
	}
	if req.MaxTokens != nil {
		m := int32(*req.MaxTokens)
		inferenceConfig.MaxTokens = &m
	}
	input.InferenceConfig = inferenceConfig

	for _, m := range req.Messages {
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		input.Messages = append(input.Messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Text}},
		})
	}

	if len(req.Tools) > 0 {
		toolConfig := &types.ToolConfiguration{}
		for _, t := range req.Tools {
			schemaDoc, err := documentFromMap(t.Parameters)
			if err != nil {
				return Completion{}, fmt.Errorf("llm: bedrock tool schema: %w", err)
			}
			toolConfig.Tools = append(toolConfig.Tools, &types.ToolMemberToolSpec{
				Value: types.ToolSpecification{
					Name:        aws.String(t.Name),
					Description: aws.String(t.Description),
					InputSchema: &types.ToolInputSchemaMemberJson{Value: schemaDoc},
				},
			})
		}
		input.ToolConfig = toolConfig
	}

	resp, err := p.client.Converse(ctx, input)
	if err != nil {
		return Completion{}, &ProviderError{Provider: p.Name(), Retryable: true, Err: err}
	}

	var out Completion
	out.StopReason = string(resp.StopReason)
	msgOut, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return out, nil
	}
	for _, block := range msgOut.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			out.Text += b.Value
		case *types.ContentBlockMemberToolUse:
			args := map[string]any{}
			if b.Value.Input != nil {
				buf, _ := json.Marshal(b.Value.Input)
				_ = json.Unmarshal(buf, &args)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID: aws.ToString(b.Value.ToolUseId), Name: aws.ToString(b.Value.Name), Arguments: args,
			})
		}
	}
	return out, nil
}

// documentFromMap adapts a plain JSON-Schema map into the smithy
// document type bedrockruntime's ToolInputSchema expects.
func documentFromMap(m map[string]any) (smithydocument.Interface, error) {
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(buf, &v); err != nil {
		return nil, err
	}
	return jsonDocument{value: v}, nil
}

// jsonDocument is a minimal smithydocument.Interface implementation
// backed by a decoded JSON value.
type jsonDocument struct{ value any }

func (d jsonDocument) UnmarshalDocument(target any) error {
	buf, err := json.Marshal(d.value)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, target)
}

func (d jsonDocument) MarshalSmithyDocument() ([]byte, error) {
	return json.Marshal(d.value)
}
