package domain

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"time"
)

// Difficulty is the requested level of a generated course.
type Difficulty string

// Supported difficulties. DifficultyBeginner is the default.
const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Difficulties lists the allowed difficulties in display order.
var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// Categories lists the allowed course categories in display order.
var Categories = []string{
	"Technology",
	"Business",
	"Science",
	"Arts",
	"Health",
	"Language",
	"Mathematics",
	"History",
	"Programming",
}

// Lesson is one generated unit of a course. Lessons are immutable once generated.
type Lesson struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Objectives       []string `json:"objectives"`
	Content          string   `json:"content"`
	KeyConcepts      []string `json:"keyConcepts"`
	Summary          string   `json:"summary"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
}

// Progress is the per-course learner progress record.
type Progress struct {
	CompletedLessons []string  `json:"completedLessons"`
	CurrentLessonID  *string   `json:"currentLessonId"`
	PercentComplete  int       `json:"percentComplete"`
	LastAccessedAt   time.Time `json:"lastAccessedAt"`
}

// ProgressPatch is a merge-patch over the client-writable progress fields.
// Nil fields are left untouched. A non-nil empty CompletedLessons resets
// completion; an empty CurrentLessonID clears it.
type ProgressPatch struct {
	CompletedLessons []string `json:"completedLessons,omitzero"`
	CurrentLessonID  *string  `json:"currentLessonId,omitempty"`
}

// Course is a generated, ordered sequence of lessons plus the owner's progress.
type Course struct {
	ID                  string     `json:"courseId"`
	UserID              string     `json:"userId"`
	Subject             string     `json:"subject"`
	Category            string     `json:"category"`
	Difficulty          Difficulty `json:"difficulty"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Lessons             []Lesson   `json:"lessons"`
	LearningOutcomes    []string   `json:"learningOutcomes"`
	TotalEstimatedHours float64    `json:"totalEstimatedHours"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	Progress            Progress   `json:"progress"`
}

// GenerateInput is the body of a course generation request.
type GenerateInput struct {
	Subject    string     `json:"subject"    validate:"min=3"`
	Category   string     `json:"category"   validate:"required,category"`
	Difficulty Difficulty `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
}

// PercentComplete returns round(100 * completed / total), or 0 when total is 0.
func PercentComplete(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// LessonIndex returns the position of lessonID in the course order, or -1.
func (c *Course) LessonIndex(lessonID string) int {
	return slices.IndexFunc(c.Lessons, func(l Lesson) bool { return l.ID == lessonID })
}

// Lesson returns the lesson with the given id.
func (c *Course) Lesson(lessonID string) (Lesson, bool) {
	i := c.LessonIndex(lessonID)
	if i < 0 {
		return Lesson{}, false
	}
	return c.Lessons[i], true
}

// NextLesson returns the lesson after lessonID. There is no wraparound.
func (c *Course) NextLesson(lessonID string) (Lesson, bool) {
	i := c.LessonIndex(lessonID)
	if i < 0 || i+1 >= len(c.Lessons) {
		return Lesson{}, false
	}
	return c.Lessons[i+1], true
}

// PrevLesson returns the lesson before lessonID. There is no wraparound.
func (c *Course) PrevLesson(lessonID string) (Lesson, bool) {
	i := c.LessonIndex(lessonID)
	if i <= 0 {
		return Lesson{}, false
	}
	return c.Lessons[i-1], true
}

// IsCompleted reports whether lessonID is in the completed set.
func (c *Course) IsCompleted(lessonID string) bool {
	return slices.Contains(c.Progress.CompletedLessons, lessonID)
}

// CheckProgress verifies the progress invariants against the lesson list.
func (c *Course) CheckProgress() error {
	seen := make(map[string]bool, len(c.Progress.CompletedLessons))
	for _, id := range c.Progress.CompletedLessons {
		if c.LessonIndex(id) < 0 {
			return fmt.Errorf("completed lesson %q is not part of course %s", id, c.ID)
		}
		if seen[id] {
			return fmt.Errorf("completed lesson %q listed twice", id)
		}
		seen[id] = true
	}
	if cur := c.Progress.CurrentLessonID; cur != nil && c.LessonIndex(*cur) < 0 {
		return fmt.Errorf("current lesson %q is not part of course %s", *cur, c.ID)
	}
	want := PercentComplete(len(c.Progress.CompletedLessons), len(c.Lessons))
	if c.Progress.PercentComplete != want {
		return fmt.Errorf("percent complete is %d, want %d", c.Progress.PercentComplete, want)
	}
	return nil
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportFilename derives the PDF filename for a course title.
func ExportFilename(title string) string {
	return nonAlphanumeric.ReplaceAllString(title, "_") + ".pdf"
}
