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

// DefaultRegistry returns a Registry with every in-tree provider adapter
// registered under its LLMConfig.Class name.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("anthropic", NewAnthropicProvider)
	r.Register("openai", NewOpenAIProvider)
	r.Register("gemini", NewGeminiProvider)
	r.Register("bedrock", NewBedrockProvider)
	r.Register("ollama", NewOllamaProvider)
	return r
}
