// Package tool implements the function calling subsystem that lets the agent
// invoke structured capabilities (calendar lookups, bookings) with schema
// validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"

	"github.com/schedbot/schedbot/internal/util"
	"github.com/schedbot/schedbot/logging"
)

// Tool defines the contract shared by all callable capabilities.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define a proper JSON schema for parameters
//   - Catch their own domain failures and return a descriptive string
//     observation instead of an error, so the model can relay it
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description returns a human-readable description provided to the model
	// so it understands when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with already-decoded arguments. Arguments are
	// validated against the declared schema before the implementation runs.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// Context carries per-invocation plumbing into a tool call: the request
// context for cancellation, the function call id for correlation and a
// logger.
type Context struct {
	ctx            context.Context
	functionCallID string
	logger         logging.Logger
}

// NewContext builds a tool context. A nil logger is replaced with a no-op.
func NewContext(ctx context.Context, functionCallID string, logger logging.Logger) *Context {
	return &Context{ctx: ctx, functionCallID: functionCallID, logger: logging.OrNoOp(logger)}
}

// Context returns the request context governing the invocation.
func (c *Context) Context() context.Context { return c.ctx }

// FunctionCallID returns the id correlating this execution with the model's
// function call request.
func (c *Context) FunctionCallID() string { return c.functionCallID }

// Logger returns the invocation logger.
func (c *Context) Logger() logging.Logger { return c.logger }

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes attached to ToolError for categorization.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
