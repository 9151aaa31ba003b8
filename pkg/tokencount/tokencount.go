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

// Package tokencount provides model-aware token counting, used by
// pkg/runcontext to reason about a prompt's size relative to a
// provider's context window before sending it.
package tokencount

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/agentmesh/agentmesh/pkg/chat"
)

// Counter counts tokens the way a specific model's tokenizer would.
// tiktoken-go's BPE tables are an approximation for non-OpenAI models
// counting only needs to be consistent enough to budget prompts, not
// byte-exact to each provider's own tokenizer.
type Counter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.RWMutex
}

var (
	encodingCache = map[string]*tiktoken.Tiktoken{}
	cacheMu       sync.RWMutex
)

// NewCounter returns a Counter for model, falling back to cl100k_base
// when the model has no direct tiktoken-go mapping.
func NewCounter(model string) (*Counter, error) {
	encodingName := EncodingForModel(model)

	cacheMu.RLock()
	cached, ok := encodingCache[encodingName]
	cacheMu.RUnlock()
	if ok {
		return &Counter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("tokencount: get encoding %s: %w", encodingName, err)
	}
	cacheMu.Lock()
	encodingCache[encodingName] = encoding
	cacheMu.Unlock()
	return &Counter{encoding: encoding, model: model}, nil
}

// Count returns the token count of a single string.
func (c *Counter) Count(text string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.encoding.Encode(text, nil, nil))
}

// messageOverheadTokens approximates the per-message framing overhead
// most chat-formatted models add (role tag, turn delimiters).
const messageOverheadTokens = 3

// CountMessages counts a chat history, including per-message overhead.
func (c *Counter) CountMessages(messages []*chat.Message) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, m := range messages {
		total += messageOverheadTokens
		total += len(c.encoding.Encode(string(m.Type), nil, nil))
		total += len(c.encoding.Encode(m.Text, nil, nil))
	}
	total += messageOverheadTokens
	return total
}

// FitWithinLimit returns the most recent suffix of messages whose total
// token count (via CountMessages) does not exceed maxTokens, used by
// RunContext when reassembling a prompt from chat history.
func (c *Counter) FitWithinLimit(messages []*chat.Message, maxTokens int) []*chat.Message {
	if len(messages) == 0 {
		return messages
	}
	var fitted []*chat.Message
	running := messageOverheadTokens
	for i := len(messages) - 1; i >= 0; i-- {
		cost := c.CountMessages(messages[i:i+1]) - messageOverheadTokens
		if running+cost > maxTokens {
			break
		}
		fitted = append([]*chat.Message{messages[i]}, fitted...)
		running += cost
	}
	return fitted
}

// Model returns the model name this Counter was built for.
func (c *Counter) Model() string { return c.model }

// EncodingForModel maps a model name to a tiktoken-go encoding name.
// Non-OpenAI models approximate with cl100k_base.
func EncodingForModel(model string) string {
	switch {
	case hasPrefix(model, "gpt-4o"):
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
