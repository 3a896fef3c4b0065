package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func course(ids ...string) *Course {
	c := &Course{ID: "c1"}
	for _, id := range ids {
		c.Lessons = append(c.Lessons, Lesson{ID: id, Title: "Lesson " + id})
	}
	return c
}

func TestPercentComplete(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{5, 5, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PercentComplete(tc.completed, tc.total), "%d/%d", tc.completed, tc.total)
	}
}

func TestCourse_Navigation(t *testing.T) {
	c := course("a", "b", "c")

	next, ok := c.NextLesson("a")
	require.True(t, ok)
	assert.Equal(t, "b", next.ID)

	_, ok = c.NextLesson("c")
	assert.False(t, ok, "last lesson has no next")

	_, ok = c.PrevLesson("a")
	assert.False(t, ok, "first lesson has no previous")

	prev, ok := c.PrevLesson("c")
	require.True(t, ok)
	assert.Equal(t, "b", prev.ID)

	_, ok = c.Lesson("missing")
	assert.False(t, ok)
	_, ok = c.NextLesson("missing")
	assert.False(t, ok)
}

func TestCourse_CheckProgress(t *testing.T) {
	c := course("a", "b", "c")
	require.NoError(t, c.CheckProgress())

	c.Progress.CompletedLessons = []string{"a"}
	c.Progress.PercentComplete = 33
	require.NoError(t, c.CheckProgress())
	assert.True(t, c.IsCompleted("a"))
	assert.False(t, c.IsCompleted("b"))

	c.Progress.PercentComplete = 50
	assert.Error(t, c.CheckProgress())

	c.Progress.CompletedLessons = []string{"a", "a"}
	c.Progress.PercentComplete = 67
	assert.ErrorContains(t, c.CheckProgress(), "twice")

	c.Progress.CompletedLessons = []string{"z"}
	c.Progress.PercentComplete = 33
	assert.ErrorContains(t, c.CheckProgress(), "not part of course")

	c.Progress.CompletedLessons = nil
	c.Progress.PercentComplete = 0
	missing := "z"
	c.Progress.CurrentLessonID = &missing
	assert.ErrorContains(t, c.CheckProgress(), "current lesson")
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "Go__Basics___More.pdf", ExportFilename("Go: Basics & More"))
	assert.Equal(t, "Intro_to_SQL.pdf", ExportFilename("Intro to SQL"))
	assert.Equal(t, ".pdf", ExportFilename(""))
}

func TestProvider_Valid(t *testing.T) {
	assert.True(t, ProviderGoogle.Valid())
	assert.True(t, ProviderGitHub.Valid())
	assert.False(t, Provider("gitlab").Valid())
}

func TestProgressPatch_EmptyCompletedIsSent(t *testing.T) {
	raw, err := json.Marshal(ProgressPatch{CompletedLessons: []string{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"completedLessons":[]}`, string(raw))

	raw, err = json.Marshal(ProgressPatch{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}
