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
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/agentmesh/agentmesh/pkg/network"
)

// ClientPolicy decides when a Provider's underlying client gets
// constructed: EagerConstruct builds every configured provider up front
// so a misconfigured key fails fast at startup; ReachInShutdown defers
// construction to first use and tears
// clients down only on InvocationContext shutdown, trading a slower
// first call for not paying for providers a run never reaches.
type ClientPolicy int

const (
	EagerConstruct ClientPolicy = iota
	ReachInShutdown
)

// Resources binds a Registry to a ClientPolicy and caches constructed
// Providers per resolved LLMConfig, walking the Fallbacks chain on
// provider error.
type Resources struct {
	registry *Registry
	policy   ClientPolicy

	mu    sync.Mutex
	cache map[string]Provider
}

func NewResources(registry *Registry, policy ClientPolicy) *Resources {
	return &Resources{registry: registry, policy: policy, cache: map[string]Provider{}}
}

// Warm eagerly constructs every config in the chain when policy is
// EagerConstruct; a no-op under ReachInShutdown.
func (r *Resources) Warm(cfg *network.LLMConfig) error {
	if r.policy != EagerConstruct || cfg == nil {
		return nil
	}
	for c := cfg; c != nil; {
		if _, err := r.resolve(c); err != nil {
			return err
		}
		if len(c.Fallbacks) == 0 {
			break
		}
		c = c.Fallbacks[0]
	}
	return nil
}

func (r *Resources) resolve(cfg *network.LLMConfig) (Provider, error) {
	key := cacheKey(cfg)
	r.mu.Lock()
	if p, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	p, err := r.registry.Build(cfg)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[key] = p
	r.mu.Unlock()
	return p, nil
}

func cacheKey(cfg *network.LLMConfig) string {
	return cfg.Class + "|" + cfg.Model
}

// Complete tries cfg, then each of cfg.Fallbacks in order, on any
// classified-retryable provider error along the fallback chain. A
// non-retryable error (bad request, auth failure) stops the
// chain immediately rather than masking a config mistake as a transient
// outage.
func (r *Resources) Complete(ctx context.Context, cfg *network.LLMConfig, req Request) (Completion, error) {
	if cfg == nil {
		return Completion{}, fmt.Errorf("llm: nil config")
	}
	var lastErr error
	for c := cfg; c != nil; {
		req.Model = valueOr(req.Model, c.Model)
		req.Temperature = firstNonNilFloat(req.Temperature, c.Temperature)
		req.MaxTokens = firstNonNilInt(req.MaxTokens, c.MaxTokens)

		p, err := r.resolve(c)
		if err != nil {
			lastErr = err
		} else {
			out, err := p.Complete(ctx, req)
			if err == nil {
				return out, nil
			}
			lastErr = err
			if !IsRetryable(err) {
				return Completion{}, err
			}
		}
		if len(c.Fallbacks) == 0 {
			break
		}
		c = c.Fallbacks[0]
	}
	return Completion{}, fmt.Errorf("llm: all providers in chain failed: %w", lastErr)
}

func valueOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func firstNonNilFloat(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

func firstNonNilInt(a, b *int) *int {
	if a != nil {
		return a
	}
	return b
}

// ValueOrEnv resolves a config string that may itself be a literal
// secret or an "env:VAR_NAME" indirection, the value_or_env convention
// used for api_key-shaped fields.
func ValueOrEnv(value string) string {
	const prefix = "env:"
	if strings.HasPrefix(value, prefix) {
		return os.Getenv(strings.TrimPrefix(value, prefix))
	}
	return value
}
