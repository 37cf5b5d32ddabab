package models

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayName_Examples(t *testing.T) {
	tests := []struct {
		id   ModelID
		want string
	}{
		{"gemma2:2b", "Gemma 2"},
		{"custom-model:7b", "Custom Model"},
		{"mistral:latest", "Mistral"},
		{"MISTRAL:latest", "Mistral"},
		{"Llama3.1:8b", "Llama 3.1"},
		{"deepseek-r1:14b", "DeepSeek R1"},
		{"my_fine.tune", "My Fine Tune"},
		{"qwen3-coder", "Qwen3 Coder"},
		{"hf.co/org/thing:Q4_K_M", "Hf Co Org Thing"},
		{":7b", "7b"},
		{"", UnknownModelName},
		{"  ", UnknownModelName},
		{"::--", UnknownModelName},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.id))
		})
	}
}

func TestDisplayName_AliasesIgnoreCase(t *testing.T) {
	for id, name := range knownModels {
		assert.Equal(t, name, DisplayName(ModelID(id)), id)
		assert.Equal(t, name, DisplayName(ModelID(strings.ToUpper(id)+":latest")), id)
	}
}

func TestDisplayName_Idempotent(t *testing.T) {
	inputs := []ModelID{
		"gemma2:2b", "custom-model:7b", "tinyllama", "x", "", "LLaVA", "gemma2-", "a.b.c:d",
		"Code Llama", "nomic-embed-text:v1.5",
	}
	for _, id := range inputs {
		once := DisplayName(id)
		assert.Equal(t, once, DisplayName(ModelID(once)), string(id))
	}
}

func TestDisplayName_UnmappedIsTitleCased(t *testing.T) {
	inputs := []ModelID{"foo-bar", "zeta_9", "élan:1", "some/org/model", "a--b"}
	for _, id := range inputs {
		got := DisplayName(id)
		require.NotEmpty(t, got)
		assert.Equal(t, strings.Join(strings.Fields(got), " "), got)
		for _, word := range strings.Fields(got) {
			first := []rune(word)[0]
			assert.False(t, unicode.IsLower(first), "%q in %q", word, got)
		}
	}
}

func TestHistorySummary_Unmarshal(t *testing.T) {
	var got []HistorySummary
	err := json.Unmarshal([]byte(`["first", {"id": 7, "title": "Second"}, {"id": "x3", "name": "Third"}, {"label": "Only label"}]`), &got)
	require.NoError(t, err)

	assert.Equal(t, []HistorySummary{
		{ID: "first", Label: "first"},
		{ID: "7", Label: "Second"},
		{ID: "x3", Label: "Third"},
		{ID: "Only label", Label: "Only label"},
	}, got)
}

func TestHistorySummary_UnmarshalInvalid(t *testing.T) {
	var h HistorySummary
	assert.Error(t, json.Unmarshal([]byte(`42`), &h))
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "idle", StreamIdle.String())
	assert.Equal(t, "streaming", Streaming.String())
}
