// Package wizard drives the three-step course creation form.
package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
	"github.com/arturoeanton/coursepilot/internal/validate"
)

// Step is a wizard page, 1 through 3.
type Step int

const (
	StepSubject    Step = 1
	StepCategory   Step = 2
	StepDifficulty Step = 3
)

func (s Step) String() string {
	switch s {
	case StepSubject:
		return "subject"
	case StepCategory:
		return "category"
	case StepDifficulty:
		return "difficulty"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// gate lists the fields that must be valid to leave each step.
var gate = map[Step][]string{
	StepSubject:    {"Subject"},
	StepCategory:   {"Subject", "Category"},
	StepDifficulty: {"Subject", "Category", "Difficulty"},
}

// Generator creates a course from the collected input.
type Generator interface {
	Generate(ctx context.Context, in domain.GenerateInput) (*domain.Course, error)
}

// Sink receives a freshly generated course.
type Sink interface {
	Adopt(course domain.Course)
}

// CoursePath returns the view path for a course id.
func CoursePath(courseID string) string {
	return "/course/" + courseID
}

// Config wires a Wizard.
type Config struct {
	Generator Generator
	Sink      Sink
	Location  port.Location
	Validator *validate.Validator
	Logger    *slog.Logger
}

// Wizard holds the form state. The zero value is not usable; call New.
type Wizard struct {
	gen      Generator
	sink     Sink
	location port.Location
	v        *validate.Validator
	logger   *slog.Logger

	mu         sync.Mutex
	step       Step
	input      domain.GenerateInput
	submitting bool
	err        error
}

// New returns a wizard at step 1 with the default difficulty.
func New(cfg Config) *Wizard {
	if cfg.Validator == nil {
		cfg.Validator = validate.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Wizard{
		gen:      cfg.Generator,
		sink:     cfg.Sink,
		location: cfg.Location,
		v:        cfg.Validator,
		logger:   cfg.Logger,
		step:     StepSubject,
		input:    domain.GenerateInput{Difficulty: domain.DifficultyBeginner},
	}
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Input returns the collected input.
func (w *Wizard) Input() domain.GenerateInput {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.input
}

// Err returns the last validation or submission error.
func (w *Wizard) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// SetSubject records the subject. It is stored trimmed.
func (w *Wizard) SetSubject(subject string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.input.Subject = strings.TrimSpace(subject)
}

// SetCategory records the category. Membership is checked when leaving step 2.
func (w *Wizard) SetCategory(category string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.input.Category = category
}

// SetDifficulty records the difficulty, rejecting values outside the enum.
func (w *Wizard) SetDifficulty(d domain.Difficulty) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	probe := w.input
	probe.Difficulty = d
	if err := w.v.Field(probe, "Difficulty"); err != nil {
		w.err = err
		return err
	}
	w.input.Difficulty = d
	return nil
}

// Next advances one step if the current step's fields are valid.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step >= StepDifficulty {
		return nil
	}
	if err := w.checkLocked(w.step); err != nil {
		w.err = err
		return err
	}
	w.err = nil
	w.step++
	return nil
}

// Back moves one step back. Going back never validates.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepSubject {
		w.step--
	}
	w.err = nil
}

// Submit generates the course. It is only allowed on step 3 with valid input.
// On success the course is handed to the sink and the location moves to the
// course view. On failure the wizard stays on step 3 with its input intact.
func (w *Wizard) Submit(ctx context.Context) (*domain.Course, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return nil, port.ErrSubmitInFlight
	}
	if w.step != StepDifficulty {
		w.mu.Unlock()
		return nil, fmt.Errorf("submit from %s step: %w", w.step, port.ErrValidation)
	}
	if err := w.checkLocked(StepDifficulty); err != nil {
		w.err = err
		w.mu.Unlock()
		return nil, err
	}
	w.submitting = true
	w.err = nil
	in := w.input
	w.mu.Unlock()

	w.logger.Info("generating course", "subject", in.Subject, "category", in.Category, "difficulty", in.Difficulty)
	course, err := w.gen.Generate(ctx, in)

	w.mu.Lock()
	w.submitting = false
	if err != nil {
		w.err = fmt.Errorf("generate course: %w", err)
		err = w.err
		w.mu.Unlock()
		w.logger.Warn("course generation failed", "error", err)
		return nil, err
	}
	w.mu.Unlock()

	if w.sink != nil {
		w.sink.Adopt(*course)
	}
	if w.location != nil {
		w.location.Navigate(CoursePath(course.ID))
	}
	return course, nil
}

func (w *Wizard) checkLocked(step Step) error {
	for _, field := range gate[step] {
		if err := w.v.Field(w.input, field); err != nil {
			return err
		}
	}
	return nil
}
