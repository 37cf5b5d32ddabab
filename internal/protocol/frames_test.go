package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollamachat/internal/models"
)

func TestOutboundWireFormat(t *testing.T) {
	tests := []struct {
		name  string
		frame any
		want  string
	}{
		{"message", NewMessage("hi"), `{"type":"message","content":"hi"}`},
		{"load history", NewLoadHistory("h-1"), `{"type":"load_history","history_id":"h-1"}`},
		{"clear history", NewClearHistory(), `{"type":"clear_history"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.frame)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestDecode(t *testing.T) {
	in, err := Decode([]byte(`{"type":"stream","content":"Hel"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeStream, in.Type)
	assert.Equal(t, "Hel", in.Content)

	in, err = Decode([]byte(`{"type":"history_loaded","messages":[{"role":"user","content":"q"},{"role":"assistant","content":"a"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "q"},
		{Role: models.RoleAssistant, Content: "a"},
	}, in.Messages)

	in, err = Decode([]byte(`{"type":"chat_histories","histories":["a",{"id":"b","label":"B"}]}`))
	require.NoError(t, err)
	assert.Len(t, in.Histories, 2)
	assert.Equal(t, "B", in.Histories[1].Label)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"content":"no type"}`))
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = Decode([]byte(`[]`))
	assert.Error(t, err)
}
