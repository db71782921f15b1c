package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedbot/schedbot/core"
)

func TestBuildMessagesToolRoundTrip(t *testing.T) {
	m := NewModel()

	contents := []core.Content{
		core.NewTextContent(core.RoleUser, "Book me a dentist visit tomorrow at 4pm"),
		{
			Role: core.RoleAssistant,
			Parts: []core.Part{
				core.FunctionCallPart{FunctionCall: core.FunctionCall{
					ID:        "c1",
					Name:      "book_appointment",
					Arguments: `{"summary":"Dentist"}`,
				}},
			},
		},
		{
			Role: core.RoleTool,
			Parts: []core.Part{
				core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
					ID:          "c1",
					Name:        "book_appointment",
					Observation: "Success! Appointment \"Dentist\" created.",
				}},
			},
		},
	}

	msgs := m.buildMessages(contents)
	require.Len(t, msgs, 3)

	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	require.Len(t, msgs[0].Content, 1)
	require.NotNil(t, msgs[0].Content[0].OfText)
	assert.Equal(t, "Book me a dentist visit tomorrow at 4pm", msgs[0].Content[0].OfText.Text)

	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Content, 1)
	require.NotNil(t, msgs[1].Content[0].OfToolUse)
	assert.Equal(t, "c1", msgs[1].Content[0].OfToolUse.ID)
	assert.Equal(t, "book_appointment", msgs[1].Content[0].OfToolUse.Name)
	for _, block := range msgs[1].Content {
		assert.Nil(t, block.OfToolResult, "assistant messages must not carry tool_result blocks")
	}

	// The observation follows as a user-role tool_result message.
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 1)
	result := msgs[2].Content[0].OfToolResult
	require.NotNil(t, result)
	assert.Equal(t, "c1", result.ToolUseID)
	require.Len(t, result.Content, 1)
	require.NotNil(t, result.Content[0].OfText)
	assert.Equal(t, "Success! Appointment \"Dentist\" created.", result.Content[0].OfText.Text)
}

func TestBuildMessagesParallelToolResults(t *testing.T) {
	m := NewModel()

	contents := []core.Content{
		core.NewTextContent(core.RoleUser, "am I free monday and tuesday?"),
		{
			Role: core.RoleAssistant,
			Parts: []core.Part{
				core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "check_availability", Arguments: `{"day":"monday"}`}},
				core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c2", Name: "check_availability", Arguments: `{"day":"tuesday"}`}},
			},
		},
		{
			Role: core.RoleTool,
			Parts: []core.Part{
				core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c2", Name: "check_availability", Observation: "busy"}},
				core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "check_availability", Observation: "free"}},
			},
		},
	}

	msgs := m.buildMessages(contents)
	require.Len(t, msgs, 3)

	// Both results land in one user message, ordered by tool_use, not arrival.
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	require.NotNil(t, msgs[2].Content[1].OfToolResult)
	assert.Equal(t, "c1", msgs[2].Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, "c2", msgs[2].Content[1].OfToolResult.ToolUseID)
}

func TestBuildMessagesTextOnlyAssistant(t *testing.T) {
	m := NewModel()

	msgs := m.buildMessages([]core.Content{
		core.NewTextContent(core.RoleUser, "hello"),
		core.NewTextContent(core.RoleAssistant, "Hi! How can I help?"),
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
}
