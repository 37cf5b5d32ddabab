package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollamachat/internal/models"
)

func TestArchive(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, InsertMessage(db, "s1", models.Message{Role: models.RoleUser, Content: "q1", Model: "mistral:latest"}, 100))
	require.NoError(t, InsertMessage(db, "s1", models.AssistantMessage("a1", "mistral:latest"), 101))
	require.NoError(t, InsertMessage(db, "s1", models.Message{Role: models.RoleUser, Content: "q2", Model: "mistral:latest"}, 102))
	require.NoError(t, InsertMessage(db, "s2", models.AssistantMessage("g1", "gemma2:2b"), 200))

	got, err := RecentMessages(db, "mistral:latest", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].Content)
	assert.Equal(t, "q2", got[1].Content)
	assert.Equal(t, int64(102), got[1].CreatedAtUnix)
	assert.Equal(t, models.ModelID("mistral:latest"), got[1].Model)

	none, err := RecentMessages(db, "llama3", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	summaries, err := ArchivedModels(db)
	require.NoError(t, err)
	assert.Equal(t, []models.ArchiveSummary{
		{Model: "gemma2:2b", Count: 1, UpdatedAtUnix: 200},
		{Model: "mistral:latest", Count: 3, UpdatedAtUnix: 102},
	}, summaries)
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, filepath.Join("ollamachat", "transcripts.db")))
}

func TestOpen_DefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	db, err := Open(DefaultPathName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, InsertMessage(db, "s", models.AssistantMessage("hi", "gemma2:2b"), 1))

	p, err := DefaultPath()
	require.NoError(t, err)
	assert.FileExists(t, p)
}
