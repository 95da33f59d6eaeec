package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare", input: `{"action":"rag_query"}`, want: `{"action":"rag_query"}`},
		{name: "fenced", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around", input: "Sure! {\"a\":{\"b\":2}} hope that helps", want: `{"a":{"b":2}}`},
		{name: "no object", input: "I cannot help with that", wantErr: true},
		{name: "reversed braces", input: "} oops {", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Department *string `json:"department"`
	}
	require.NoError(t, DecodeJSON("```json\n{\"department\": \"Oncology\"}\n```", &out))
	require.NotNil(t, out.Department)
	assert.Equal(t, "Oncology", *out.Department)

	assert.Error(t, DecodeJSON(`{"department": }`, &out))
}
