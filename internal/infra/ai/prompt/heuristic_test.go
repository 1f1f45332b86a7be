package prompt

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicSummarize(t *testing.T) {
	manifest := "Files:\ncmd/api/main.go\ninternal/server.go\nscripts/build.sh\nREADME.md\n\nREADME:\n# demo\n"

	raw, err := HeuristicClient{}.Summarize(context.Background(), manifest)
	require.NoError(t, err)

	var out struct {
		Summary    string   `json:"summary"`
		Languages  []string `json:"languages"`
		Components []string `json:"components"`
		Advice     string   `json:"advice"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))

	assert.Equal(t, []string{"Go", "Shell"}, out.Languages, "ordered by file count")
	assert.Equal(t, []string{"cmd", "internal", "scripts"}, out.Components)
	assert.Contains(t, out.Summary, "Go")
}

func TestHeuristicSummarizeEmptyTree(t *testing.T) {
	raw, err := HeuristicClient{}.Summarize(context.Background(), "Files:\n")
	require.NoError(t, err)

	var out struct {
		Summary string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	assert.Equal(t, "Empty or unreadable working tree.", out.Summary)
}
