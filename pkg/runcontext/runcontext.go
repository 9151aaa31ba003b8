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

package runcontext

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/invocation"
	"github.com/agentmesh/agentmesh/pkg/journal"
	"github.com/agentmesh/agentmesh/pkg/llm"
	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/origin"
	"github.com/agentmesh/agentmesh/pkg/slydata"
	"github.com/agentmesh/agentmesh/pkg/tokencount"
)

// couldNotParseMarker is the known "documented workaround" shape: when
// an LLM chain's output-parser fails on this message, the text after
// the marker is recovered as the answer instead of surfacing the parse
// error.
const couldNotParseMarker = "Could not parse LLM output: "

// Activation is the CallableActivation contract a RunContext drives its
// declared tools through. Defined here (rather than in pkg/activation,
// which implements it) so this package never imports its own
// implementers.
type Activation interface {
	Name() string
	Invoke(ctx context.Context, rc *RunContext, args map[string]any) (ToolOutput, error)
}

// RunContext is the execution scope of one agent invocation: it owns
// the chat history, the LLM resource, the journal, and the state
// machine driving the turn.
type RunContext struct {
	spec   *network.AgentSpec
	invCtx *invocation.Context
	origin origin.Origin

	journal journal.Journal
	logger  *zap.Logger

	resources *llm.Resources
	tools     map[string]Activation
	toolDefs  []llm.ToolDefinition

	slyData     *slydata.Store
	chatContext *chat.Context
	tokenCount  *tokencount.Counter

	mu      sync.Mutex
	state   State
	history []*chat.Message
	failure error
}

// Options carries everything New needs beyond the AgentSpec and origin.
type Options struct {
	InvocationContext *invocation.Context
	ParentOrigin      origin.Origin // nil for a front-man's root RunContext
	Resources         *llm.Resources
	Tools             map[string]Activation
	ToolDefs          []llm.ToolDefinition
	SlyData           *slydata.Store
	ChatContext       *chat.Context
}

// New builds a RunContext for spec, deriving its Origin from opts.ParentOrigin
// via the InvocationContext's origination Counter, rehydrating chat
// history from opts.ChatContext when an entry matches, and registering
// itself with the InvocationContext for lifecycle cleanup.
func New(spec *network.AgentSpec, opts Options) *RunContext {
	var o origin.Origin
	var j journal.Journal
	if opts.ParentOrigin == nil {
		o = origin.Root(spec.Name)
		j = opts.InvocationContext.JournalRoot
	} else {
		o = opts.InvocationContext.Origination.Next(opts.ParentOrigin, spec.Name)
		j = journal.NewOriginating(o, opts.InvocationContext.JournalRoot)
	}

	slyData := opts.SlyData
	if slyData == nil {
		slyData = slydata.NewStore(nil)
	}

	model := ""
	if spec.LLMConfig != nil {
		model = spec.LLMConfig.Model
	}

	counter, err := tokencount.NewCounter(model)
	if err != nil {
		opts.InvocationContext.Logger.Warn("token counter unavailable; chat history is sent untrimmed", zap.String("model", model), zap.Error(err))
	}

	rc := &RunContext{
		spec:        spec,
		invCtx:      opts.InvocationContext,
		origin:      o,
		journal:     j,
		logger:      opts.InvocationContext.Logger.With(zap.String("origin", o.String())),
		resources:   opts.Resources,
		tools:       opts.Tools,
		toolDefs:    opts.ToolDefs,
		slyData:     slyData,
		chatContext: opts.ChatContext,
		tokenCount:  counter,
		state:       StateIdle,
	}

	if entry, ok := opts.ChatContext.HistoryFor(o); ok {
		rc.history = append(rc.history, entry.Messages...)
	}

	opts.InvocationContext.Track(rc)
	return rc
}

func (rc *RunContext) Origin() origin.Origin { return rc.origin }

// InvocationContext returns the request-scoped ambient state this
// RunContext was built from, so pkg/activation can spawn child
// RunContexts sharing the same journal root and origination counter.
func (rc *RunContext) InvocationContext() *invocation.Context { return rc.invCtx }

func (rc *RunContext) State() State {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

func (rc *RunContext) History() []*chat.Message {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]*chat.Message, len(rc.history))
	copy(out, rc.history)
	return out
}

func (rc *RunContext) SlyData() *slydata.Store { return rc.slyData }

// DeleteResources implements invocation.Disposable; RunContext holds no
// resources beyond what the InvocationContext already owns, so this only
// marks a still-running turn cancelled.
func (rc *RunContext) DeleteResources() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if !rc.state.Terminal() {
		rc.state = StateCancelled
	}
}

// SubmitMessage drives one full turn of the state machine from Idle to
// a terminal state, returning the final message or the
// failure/cancellation error.
func (rc *RunContext) SubmitMessage(ctx context.Context, userText string) (*chat.Message, error) {
	if err := rc.transition(StateIdle, StatePromptReady); err != nil {
		return nil, err
	}

	rc.appendHistory(ctx, chat.Human(userText))

	maxSeconds := *rc.spec.MaxExecutionSeconds
	execCtx, cancel := context.WithTimeout(ctx, time.Duration(maxSeconds)*time.Second)
	defer cancel()

	limit := rc.spec.RecursionLimit()
	for iteration := 0; ; iteration++ {
		if err := execCtx.Err(); err != nil {
			return nil, rc.terminate(StateCancelled, fmt.Errorf("runcontext %s: %w", rc.origin, err))
		}
		if iteration >= limit {
			return nil, rc.terminate(StateFailed, fmt.Errorf("runcontext %s: exceeded recursion limit %d", rc.origin, limit))
		}

		rc.setState(StateInvoking)
		completion, err := rc.invokeWithRetries(execCtx)
		if err != nil {
			return nil, rc.terminate(StateFailed, err)
		}

		if len(completion.ToolCalls) == 0 {
			final := rc.buildFinalMessage(completion.Text)
			rc.appendHistory(ctx, final)
			rc.setState(StateFinal)
			return final, nil
		}

		rc.setState(StateToolCallsPending)
		assistantCall := &chat.Message{Type: chat.TypeAgent, Text: completion.Text}
		rc.appendHistory(ctx, assistantCall)

		rc.setState(StateToolRunning)
		if err := rc.runToolCalls(execCtx, completion.ToolCalls); err != nil {
			return nil, rc.terminate(StateFailed, err)
		}
		// Loop back into Invoking with the tool results folded into history.
	}
}

func (rc *RunContext) transition(from, to State) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.state != from {
		return fmt.Errorf("runcontext %s: cannot submit_message from state %s", rc.origin, rc.state)
	}
	rc.state = to
	return nil
}

func (rc *RunContext) setState(s State) {
	rc.mu.Lock()
	rc.state = s
	rc.mu.Unlock()
}

func (rc *RunContext) terminate(s State, err error) error {
	rc.mu.Lock()
	rc.state = s
	rc.failure = err
	rc.mu.Unlock()
	rc.logger.Warn("runcontext terminated", zap.String("state", string(s)), zap.Error(err))
	return err
}

func (rc *RunContext) appendHistory(ctx context.Context, msg *chat.Message) {
	rc.mu.Lock()
	rc.history = append(rc.history, msg)
	rc.mu.Unlock()
	if err := rc.journal.Write(ctx, msg); err != nil {
		rc.logger.Warn("journal write failed", zap.Error(err))
	}
}

// invokeWithRetries calls the LLM chain up to 3 times: retries on
// provider-classified retryable errors, and recovers the documented
// "Could not parse LLM output" workaround shape as a successful answer
// instead of surfacing the parse error.
func (rc *RunContext) invokeWithRetries(ctx context.Context) (llm.Completion, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		completion, err := rc.resources.Complete(ctx, rc.spec.LLMConfig, rc.buildRequest())
		if err == nil {
			return completion, nil
		}
		if idx := strings.Index(err.Error(), couldNotParseMarker); idx >= 0 {
			recovered := strings.TrimSpace(err.Error()[idx+len(couldNotParseMarker):])
			return llm.Completion{Text: recovered}, nil
		}
		lastErr = err
		if !llm.IsRetryable(err) {
			break
		}
	}
	return llm.Completion{}, fmt.Errorf("runcontext %s: llm invocation failed: %w", rc.origin, lastErr)
}

func (rc *RunContext) buildRequest() llm.Request {
	system := rc.spec.Instructions
	if clauses := buildAssignmentClauses(functionParameters(rc.spec), rc.spec.ToolboxArgs); clauses != "" {
		system = strings.TrimSpace(system + "\n\n" + clauses)
	}

	rc.mu.Lock()
	history := make([]*chat.Message, len(rc.history))
	copy(history, rc.history)
	rc.mu.Unlock()

	fitted := history
	if rc.tokenCount != nil {
		fitted = rc.tokenCount.FitWithinLimit(history, maxContextTokens(rc.spec))
	}

	messages := make([]llm.RequestMessage, 0, len(fitted))
	for _, m := range fitted {
		messages = append(messages, toRequestMessage(m))
	}

	return llm.Request{
		System:   system,
		Messages: messages,
		Tools:    rc.toolDefs,
	}
}

func maxContextTokens(spec *network.AgentSpec) int {
	if spec.LLMConfig != nil && spec.LLMConfig.MaxTokens != nil {
		return *spec.LLMConfig.MaxTokens
	}
	return 8192
}

func toRequestMessage(m *chat.Message) llm.RequestMessage {
	switch m.Type {
	case chat.TypeHuman:
		return llm.RequestMessage{Role: "user", Text: m.Text}
	case chat.TypeSystem:
		return llm.RequestMessage{Role: "system", Text: m.Text}
	case chat.TypeAgentToolResult:
		return llm.RequestMessage{Role: "tool", Text: m.Text}
	default:
		return llm.RequestMessage{Role: "assistant", Text: m.Text}
	}
}

// runToolCalls resolves and invokes each requested tool, parsing its
// output via the last-AI-message rule, merging any returned sly_data,
// and folding the synthesized AgentToolResult back into chat history.
func (rc *RunContext) runToolCalls(ctx context.Context, calls []llm.ToolCall) error {
	for _, call := range calls {
		activation, ok := rc.tools[call.Name]
		if !ok {
			rc.appendHistory(ctx, chat.AgentToolResult(fmt.Sprintf("Error: tool %q not found", call.Name), nil))
			continue
		}

		out, err := activation.Invoke(ctx, rc, call.Arguments)
		if err != nil {
			rc.appendHistory(ctx, chat.AgentToolResult(fmt.Sprintf("Error: %v", err), rc.origin))
			continue
		}
		if out.SlyData != nil {
			rc.slyData.Merge(out.SlyData)
		}

		answer := lastAIMessage(out.Value)
		if answer == nil {
			answer = chat.Agent("", nil)
		}
		result := chat.AgentToolResult(answer.Text, rc.origin)
		if rc.detectedError(answer.Text) {
			result.Text = "Error: " + result.Text
		}
		rc.appendHistory(ctx, result)
	}
	return nil
}

// buildFinalMessage wraps an LLM turn's free-text answer, applying the
// error_detector: text containing a configured system or agent error
// fragment becomes a distinguishable error message instead of a normal
// AGENT message.
func (rc *RunContext) buildFinalMessage(text string) *chat.Message {
	if rc.detectedError(text) {
		return chat.Agent("Error: "+text, nil)
	}
	return chat.Agent(text, nil)
}

func (rc *RunContext) detectedError(text string) bool {
	if rc.spec.ErrorFragmentsCfg == nil {
		return false
	}
	for _, frag := range rc.spec.ErrorFragmentsCfg.System {
		if frag != "" && strings.Contains(text, frag) {
			return true
		}
	}
	for _, frag := range rc.spec.ErrorFragmentsCfg.Agent {
		if frag != "" && strings.Contains(text, frag) {
			return true
		}
	}
	return false
}

func functionParameters(spec *network.AgentSpec) *jsonschema.Schema {
	if spec.Function == nil {
		return nil
	}
	return spec.Function.Parameters
}
