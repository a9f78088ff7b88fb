package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSDKTools(t *testing.T) {
	tools := []ToolDefinition{
		{
			Name:        "record_contract_data",
			Description: "Record structured fields from a contract.",
			InputSchema: ToolInputSchema{
				Properties: map[string]any{
					"client_name": map[string]any{"type": "string"},
				},
				Required: []string{"client_name"},
			},
		},
	}

	out := toSDKTools(tools)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].OfTool)
	assert.Equal(t, "record_contract_data", out[0].OfTool.Name)
	assert.Equal(t, []string{"client_name"}, out[0].OfTool.InputSchema.Required)
}

func TestToSDKToolChoice(t *testing.T) {
	tc := toSDKToolChoice("record_contract_data")
	require.NotNil(t, tc.OfTool)
	assert.Equal(t, "record_contract_data", tc.OfTool.Name)
}

func TestToolUseContentBlock(t *testing.T) {
	block := ContentBlock{
		Type:  "tool_use",
		ID:    "toolu_01",
		Name:  "record_contract_data",
		Input: []byte(`{"client_name":"Alfa d.o.o."}`),
	}
	assert.Equal(t, "tool_use", block.Type)
	assert.JSONEq(t, `{"client_name":"Alfa d.o.o."}`, string(block.Input))
}
