// Package ai holds the course generators.
package ai

import (
	"context"
	"fmt"
	"math"
	"strings"

	gonanoid "github.com/matoous/go-nanoid"

	"github.com/arturoeanton/coursepilot/internal/domain"
)

const lessonIDLength = 12

// outline is the generator-neutral shape of a course before ids are assigned.
type outline struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	LearningOutcomes []string        `json:"learningOutcomes"`
	Lessons          []outlineLesson `json:"lessons"`
}

type outlineLesson struct {
	Title            string   `json:"title"`
	Objectives       []string `json:"objectives"`
	Content          string   `json:"content"`
	KeyConcepts      []string `json:"keyConcepts"`
	Summary          string   `json:"summary"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
}

// assemble assigns lesson ids and totals. Course id, owner and progress are
// stamped by the caller.
func (o outline) assemble(in domain.GenerateInput) (*domain.Course, error) {
	c := &domain.Course{
		Subject:          strings.TrimSpace(in.Subject),
		Category:         in.Category,
		Difficulty:       in.Difficulty,
		Title:            o.Title,
		Description:      o.Description,
		LearningOutcomes: o.LearningOutcomes,
	}
	if c.Title == "" {
		c.Title = c.Subject
	}
	if c.LearningOutcomes == nil {
		c.LearningOutcomes = []string{}
	}

	minutes := 0
	for _, l := range o.Lessons {
		id, err := gonanoid.Nanoid(lessonIDLength)
		if err != nil {
			return nil, fmt.Errorf("lesson id: %w", err)
		}
		if l.EstimatedMinutes <= 0 {
			l.EstimatedMinutes = 15
		}
		minutes += l.EstimatedMinutes
		c.Lessons = append(c.Lessons, domain.Lesson{
			ID:               id,
			Title:            l.Title,
			Objectives:       nonNil(l.Objectives),
			Content:          l.Content,
			KeyConcepts:      nonNil(l.KeyConcepts),
			Summary:          l.Summary,
			EstimatedMinutes: l.EstimatedMinutes,
		})
	}
	c.TotalEstimatedHours = math.Round(float64(minutes)/60*10) / 10
	return c, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var stages = map[domain.Difficulty][]string{
	domain.DifficultyBeginner:     {"What is %s?", "Core vocabulary of %s", "First steps with %s", "Common pitfalls in %s", "Where to go next with %s"},
	domain.DifficultyIntermediate: {"Refreshing the fundamentals of %s", "Patterns in %s", "Working through a %s project", "Debugging %s", "Reviewing %s practice"},
	domain.DifficultyAdvanced:     {"The internals of %s", "Trade-offs in %s", "Scaling %s", "Edge cases in %s", "Teaching %s to others"},
}

// OutlineGenerator builds a fixed-shape course without a model. It serves
// deployments without an Ollama endpoint and the tests.
type OutlineGenerator struct{}

// NewOutlineGenerator creates a template generator.
func NewOutlineGenerator() *OutlineGenerator { return &OutlineGenerator{} }

// Name returns the generator identifier.
func (g *OutlineGenerator) Name() string { return "outline" }

// Generate returns a five-lesson course for the subject.
func (g *OutlineGenerator) Generate(ctx context.Context, in domain.GenerateInput) (*domain.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(in.Subject)
	titles, ok := stages[in.Difficulty]
	if !ok {
		titles = stages[domain.DifficultyBeginner]
	}

	o := outline{
		Title:       fmt.Sprintf("%s: a %s course", subject, in.Difficulty),
		Description: fmt.Sprintf("A %s course on %s in %s.", in.Difficulty, subject, in.Category),
		LearningOutcomes: []string{
			fmt.Sprintf("Explain the key ideas of %s", subject),
			fmt.Sprintf("Apply %s to a small problem", subject),
		},
	}
	for i, t := range titles {
		title := fmt.Sprintf(t, subject)
		o.Lessons = append(o.Lessons, outlineLesson{
			Title:            title,
			Objectives:       []string{"Understand " + strings.ToLower(title[:1]) + title[1:]},
			Content:          fmt.Sprintf("## %s\n\nLesson %d of %d.", title, i+1, len(titles)),
			KeyConcepts:      []string{subject},
			Summary:          title + ".",
			EstimatedMinutes: 20 + 5*i,
		})
	}
	return o.assemble(in)
}
