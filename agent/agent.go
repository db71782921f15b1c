// Package agent implements the tool-calling loop at the heart of the
// assistant: assemble the model input from session history, the new user
// message and the in-flight scratchpad, submit it, execute any requested
// tools, fold the observations back in and repeat until the model produces a
// final answer or the iteration cap is hit.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/schedbot/schedbot/core"
	"github.com/schedbot/schedbot/logging"
	"github.com/schedbot/schedbot/model"
	"github.com/schedbot/schedbot/tool"
)

// DefaultInstruction is the system prompt used when no override is
// configured. The {today} token is replaced with the current date at
// assembly time.
const DefaultInstruction = "You are a helpful calendar booking assistant.\n" +
	"You have access to a set of tools to help users.\n" +
	"Today's date is {today}.\n"

// DefaultMaxIterations bounds the model/tool cycle. Ten turns is far beyond
// what a booking conversation needs; hitting the cap indicates a confused
// model, not a long task.
const DefaultMaxIterations = 10

const dateFormat = "Monday, January 02, 2006"

// ScratchpadEntry pairs one tool invocation with its observation. Entries are
// scoped to a single Run and rebuilt from scratch on every invocation.
type ScratchpadEntry struct {
	Call        core.FunctionCall
	Observation string
}

// loopState enumerates the agent loop's state machine.
type loopState int

const (
	stateAwaitingModel loopState = iota
	stateExecutingTool
	stateDone
	stateFailed
)

// Options configures an Agent instance.
type Options struct {
	// Instruction is the system prompt template; {today} is substituted with
	// the formatted current date.
	Instruction string

	// MaxIterations caps model turns per Run.
	MaxIterations int

	// ToolTimeout bounds each individual tool execution.
	ToolTimeout time.Duration

	// MaxHistoryTurns limits how many trailing history turns are replayed to
	// the model. Zero replays the full history.
	MaxHistoryTurns int

	Logger logging.Logger

	// Now supplies the current time for the instruction date. Overridden in
	// tests for determinism.
	Now func() time.Time
}

// Agent drives the tool-calling loop against a language model and a set of
// registered tools. An Agent holds no per-conversation state; history is
// passed into Run and the scratchpad lives only within one invocation.
type Agent struct {
	name            string
	llm             model.Model
	instruction     string
	tools           map[string]tool.Tool
	toolOrder       []string // registration order, for deterministic prompts
	maxIterations   int
	toolTimeout     time.Duration
	maxHistoryTurns int
	logger          logging.Logger
	now             func() time.Time
}

// New creates an agent with sensible defaults: the standard booking
// instruction, a ten-iteration cap and a 15 second tool timeout.
func New(name string, llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Instruction:   DefaultInstruction,
		MaxIterations: DefaultMaxIterations,
		ToolTimeout:   15 * time.Second,
		Now:           time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Agent{
		name:            name,
		llm:             llm,
		instruction:     opts.Instruction,
		tools:           make(map[string]tool.Tool),
		maxIterations:   opts.MaxIterations,
		toolTimeout:     opts.ToolTimeout,
		maxHistoryTurns: opts.MaxHistoryTurns,
		logger:          logging.OrNoOp(opts.Logger),
		now:             opts.Now,
	}
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// RegisterTool adds a tool to the agent's capability set.
func (a *Agent) RegisterTool(t tool.Tool) {
	if _, exists := a.tools[t.Name()]; !exists {
		a.toolOrder = append(a.toolOrder, t.Name())
	}
	a.tools[t.Name()] = t
}

// RegisterTools adds multiple tools at once.
func (a *Agent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// HasTool checks if a tool is registered with the agent.
func (a *Agent) HasTool(name string) bool {
	_, exists := a.tools[name]
	return exists
}

// ListTools returns the names of all registered tools in registration order.
func (a *Agent) ListTools() []string {
	names := make([]string, len(a.toolOrder))
	copy(names, a.toolOrder)
	return names
}

// Run executes one complete agent loop for a user message given the prior
// conversation history. It always produces answer text for the caller: tool
// and loop failures are folded into a best-effort conversational string. A
// non-nil error is returned only for model transport failures and context
// cancellation, where no text could be produced at all.
func (a *Agent) Run(ctx context.Context, history []core.Turn, userMessage string) (string, error) {
	runID := core.NewID()

	a.logger.Debug("agent.run.start", "agent", a.name, "run", runID)

	var (
		scratchpad []ScratchpadEntry
		pending    []core.FunctionCall
		answer     string
		iterations int
	)

	st := stateAwaitingModel
	for st != stateDone && st != stateFailed {
		switch st {
		case stateAwaitingModel:
			if iterations >= a.maxIterations {
				a.logger.Warn("agent.loop.exhausted", "agent", a.name, "run", runID, "iterations", iterations)
				answer = fmt.Sprintf(
					"I wasn't able to finish working on that after %d steps. Could you rephrase or simplify your request?",
					iterations,
				)
				st = stateFailed

				continue
			}
			iterations++

			req := a.AssembleRequest(history, userMessage, scratchpad)

			start := time.Now()
			resp, err := a.llm.Generate(ctx, req)
			if err != nil {
				a.logger.Error("agent.model.error", "agent", a.name, "run", runID, "error", err.Error())
				return "", fmt.Errorf("model call failed: %w", err)
			}

			a.logger.Debug(
				"agent.model.response",
				"agent", a.name,
				"run", runID,
				"iteration", iterations,
				"duration_ms", time.Since(start).Milliseconds(),
				"tool_calls", len(resp.ToolCalls()),
				"finish_reason", resp.FinishReason,
			)

			pending = resp.ToolCalls()
			if len(pending) == 0 {
				answer = resp.Text()
				st = stateDone
			} else {
				st = stateExecutingTool
			}

		case stateExecutingTool:
			// Tools run sequentially in the order the model requested them so
			// every observation is attributed before the next model turn.
			for _, call := range pending {
				t, registered := a.tools[call.Name]
				if !registered {
					a.logger.Error("agent.tool.unregistered", "agent", a.name, "run", runID, "tool", call.Name)
					answer = fmt.Sprintf(
						"I tried to use a tool named %q that isn't available to me, so I couldn't complete the request.",
						call.Name,
					)
					st = stateFailed

					break
				}

				observation := a.executeTool(ctx, runID, t, call)
				scratchpad = append(scratchpad, ScratchpadEntry{Call: call, Observation: observation})
			}
			if st != stateFailed {
				st = stateAwaitingModel
			}
		}
	}

	a.logger.Info(
		"agent.run.complete",
		"agent", a.name,
		"run", runID,
		"iterations", iterations,
		"failed", st == stateFailed,
	)

	return answer, nil
}

// executeTool runs one tool call and coerces its result into a string
// observation. Tool errors become observations too; execution is never
// retried here.
func (a *Agent) executeTool(ctx context.Context, runID string, t tool.Tool, call core.FunctionCall) string {
	callCtx, cancel := context.WithTimeout(ctx, a.toolTimeout)
	defer cancel()

	callID := call.ID
	if callID == "" {
		callID = core.NewID()
	}
	toolCtx := tool.NewContext(callCtx, callID, a.logger)

	argsMap := make(map[string]any)
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &argsMap); err != nil {
			a.logger.Warn("agent.tool.bad_arguments", "agent", a.name, "run", runID, "tool", call.Name, "error", err.Error())
			return fmt.Sprintf("The arguments for %s could not be decoded: %v", call.Name, err)
		}
	}

	start := time.Now()
	result, err := t.Call(toolCtx, argsMap)
	dur := time.Since(start)

	a.logger.Info(
		"agent.tool.executed",
		"agent", a.name,
		"run", runID,
		"tool", call.Name,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		return err.Error()
	}
	return coerceObservation(result)
}

// coerceObservation flattens a tool result into the single string fed back to
// the model.
func coerceObservation(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "\n")
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// AssembleRequest builds the model input for one inference turn. Ordering is
// fixed: system instruction (with today's date), session history in
// chronological order, the current user message, then the scratchpad replayed
// as call/observation pseudo-turns. Identical inputs produce identical
// requests.
func (a *Agent) AssembleRequest(history []core.Turn, userMessage string, scratchpad []ScratchpadEntry) model.Request {
	today := a.now().Format(dateFormat)
	instructions := strings.ReplaceAll(a.instruction, "{today}", today)

	contents := make([]core.Content, 0, len(history)+1+2*len(scratchpad))
	for _, turn := range a.trimHistory(history) {
		if len(turn.Content.Parts) == 0 {
			continue
		}
		contents = append(contents, turn.Content)
	}

	contents = append(contents, core.NewTextContent(core.RoleUser, userMessage))

	for _, entry := range scratchpad {
		callID := entry.Call.ID
		contents = append(contents,
			core.Content{
				Role:  core.RoleAssistant,
				Parts: []core.Part{core.FunctionCallPart{FunctionCall: entry.Call}},
			},
			core.Content{
				Role: core.RoleTool,
				Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
					ID:          callID,
					Name:        entry.Call.Name,
					Observation: entry.Observation,
				}}},
			},
		)
	}

	req := model.Request{
		Instructions: instructions,
		Contents:     contents,
	}

	if len(a.toolOrder) > 0 {
		defs := make([]model.ToolDefinition, 0, len(a.toolOrder))
		for _, name := range a.toolOrder {
			t := a.tools[name]
			defs = append(defs, model.ToolDefinition{
				Type: "function",
				Function: model.FunctionDefinition{
					Name:        t.Name(),
					Description: t.Description(),
					Parameters:  t.Parameters(),
				},
			})
		}
		req.Tools = defs
	}

	return req
}

// trimHistory applies the configured history window, keeping the most recent
// turns.
func (a *Agent) trimHistory(history []core.Turn) []core.Turn {
	if a.maxHistoryTurns <= 0 || len(history) <= a.maxHistoryTurns {
		return history
	}
	return history[len(history)-a.maxHistoryTurns:]
}
