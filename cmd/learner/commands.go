package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/arturoeanton/coursepilot/internal/client"
	"github.com/arturoeanton/coursepilot/internal/client/authgate"
	"github.com/arturoeanton/coursepilot/internal/client/wizard"
	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
	"github.com/arturoeanton/coursepilot/internal/validate"
)

const loginTimeout = 5 * time.Minute

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	cyan  = color.New(color.FgCyan)
	gray  = color.New(color.FgHiBlack)
)

// authenticated starts a client and runs fn only for a signed-in user.
func (c *cli) authenticated(ctx context.Context, start string, fn func(*client.App, domain.User) error) error {
	app, _ := c.newApp(start)
	if _, err := app.Start(ctx); err != nil && !errors.Is(err, port.ErrAuthCheckNegative) {
		return fmt.Errorf("check session: %w", err)
	}
	d, err := app.Guard(ctx, func(u domain.User) error { return fn(app, u) })
	if err != nil {
		return err
	}
	if d == authgate.RedirectToLogin {
		return errors.New("not signed in, run `learner login`")
	}
	return nil
}

func (c *cli) login(ctx context.Context) error {
	provider := domain.ProviderGitHub
	if len(c.args) > 0 {
		provider = domain.Provider(strings.ToLower(c.args[0]))
	}
	if !provider.Valid() {
		return fmt.Errorf("unknown provider %q, use google or github", provider)
	}

	probe, _ := c.newApp(authgate.LoginPath)
	if s, _ := probe.Start(ctx); s.Status == domain.AuthAuthenticated {
		fmt.Fprintf(c.out, "Already signed in as %s.\n", bold.Sprint(s.User.Name))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	landed := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		uri, err := awaitLanding(ctx, c.cfg.CallbackAddr, c.logger)
		if err != nil {
			errc <- err
			return
		}
		landed <- uri
	}()

	if err := probe.Session.Login(provider); err != nil {
		return err
	}
	fmt.Fprintln(c.out, gray.Sprintf("Waiting for the browser on http://%s ...", c.cfg.CallbackAddr))

	var uri string
	select {
	case uri = <-landed:
	case err := <-errc:
		return fmt.Errorf("login: %w", err)
	}

	app, loc := c.newApp(uri)
	s, err := app.Start(ctx)
	if err != nil {
		c.logger.Warn("session check after login failed", "error", err)
	}
	final := loc.Current()
	if final.Path == authgate.LoginPath {
		if msg := authgate.LoginMessage(final.Query().Get("error")); msg != "" {
			return errors.New(msg)
		}
		return errors.New("login did not complete")
	}
	if s.Status != domain.AuthAuthenticated {
		return errors.New("login did not complete")
	}
	fmt.Fprintf(c.out, "%s Signed in as %s (%s).\n", green.Sprint("✓"), bold.Sprint(s.User.Name), s.User.Email)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	app, _ := c.newApp(authgate.DashboardPath)
	if _, err := app.Start(ctx); err != nil {
		c.logger.Debug("session check before logout failed", "error", err)
	}
	app.Logout(ctx)
	fmt.Fprintln(c.out, "Signed out.")
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	return c.authenticated(ctx, authgate.DashboardPath, func(_ *client.App, u domain.User) error {
		fmt.Fprintf(c.out, "%s <%s> via %s\n", bold.Sprint(u.Name), u.Email, u.Provider)
		return nil
	})
}

func (c *cli) courses(ctx context.Context) error {
	return c.authenticated(ctx, authgate.DashboardPath, func(app *client.App, _ domain.User) error {
		courses, err := app.Progress.List(ctx)
		if err != nil {
			return err
		}
		if len(courses) == 0 {
			fmt.Fprintln(c.out, "No courses yet. Create one with `learner create`.")
			return nil
		}
		for _, course := range courses {
			fmt.Fprintf(c.out, "%s  %s %s\n",
				gray.Sprint(course.ID),
				bold.Sprint(course.Title),
				progressBar(course.Progress.PercentComplete))
			fmt.Fprintf(c.out, "    %s · %s · %d lessons\n", course.Category, course.Difficulty, len(course.Lessons))
		}
		return nil
	})
}

func (c *cli) show(ctx context.Context) error {
	id, err := c.arg(0, "course")
	if err != nil {
		return err
	}
	return c.authenticated(ctx, wizard.CoursePath(id), func(app *client.App, _ domain.User) error {
		course, err := app.Progress.Fetch(ctx, id)
		if err != nil {
			return err
		}
		printCourse(c, course)
		return nil
	})
}

func (c *cli) lesson(ctx context.Context) error {
	id, err := c.arg(0, "course")
	if err != nil {
		return err
	}
	lessonID, err := c.arg(1, "lesson")
	if err != nil {
		return err
	}
	return c.authenticated(ctx, wizard.CoursePath(id), func(app *client.App, _ domain.User) error {
		course, err := app.Progress.Fetch(ctx, id)
		if err != nil {
			return err
		}
		lesson, ok := course.Lesson(lessonID)
		if !ok {
			return fmt.Errorf("lesson %s is not part of this course", lessonID)
		}
		if _, err := app.Progress.UpdateProgress(ctx, id, domain.ProgressPatch{CurrentLessonID: &lessonID}); err != nil {
			c.logger.Warn("could not record current lesson", "error", err)
		}

		bold.Fprintln(c.out, lesson.Title)
		if course.IsCompleted(lesson.ID) {
			green.Fprintln(c.out, "✓ completed")
		}
		fmt.Fprintln(c.out)
		for _, o := range lesson.Objectives {
			fmt.Fprintf(c.out, "  • %s\n", o)
		}
		fmt.Fprintf(c.out, "\n%s\n\n", lesson.Content)
		if len(lesson.KeyConcepts) > 0 {
			cyan.Fprintf(c.out, "Key concepts: %s\n", strings.Join(lesson.KeyConcepts, ", "))
		}
		if lesson.Summary != "" {
			gray.Fprintln(c.out, lesson.Summary)
		}
		if prev, ok := course.PrevLesson(lesson.ID); ok {
			gray.Fprintf(c.out, "← previous: %s (%s)\n", prev.Title, prev.ID)
		}
		if next, ok := course.NextLesson(lesson.ID); ok {
			gray.Fprintf(c.out, "→ next: %s (%s)\n", next.Title, next.ID)
		}
		return nil
	})
}

func (c *cli) complete(ctx context.Context) error {
	id, err := c.arg(0, "course")
	if err != nil {
		return err
	}
	lessonID, err := c.arg(1, "lesson")
	if err != nil {
		return err
	}
	return c.authenticated(ctx, wizard.CoursePath(id), func(app *client.App, _ domain.User) error {
		if _, err := app.Progress.Fetch(ctx, id); err != nil {
			return err
		}
		course, err := app.Progress.MarkComplete(ctx, id, lessonID)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s Lesson complete. %s\n", green.Sprint("✓"), progressBar(course.Progress.PercentComplete))
		if next, ok := course.NextLesson(lessonID); ok {
			gray.Fprintf(c.out, "Next up: %s (%s)\n", next.Title, next.ID)
		} else if course.Progress.PercentComplete == 100 {
			green.Fprintln(c.out, "Course finished!")
		}
		return nil
	})
}

func (c *cli) delete(ctx context.Context) error {
	id, err := c.arg(0, "course")
	if err != nil {
		return err
	}
	return c.authenticated(ctx, authgate.DashboardPath, func(app *client.App, _ domain.User) error {
		if err := app.Progress.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Course deleted.")
		return nil
	})
}

func (c *cli) export(ctx context.Context) error {
	id, err := c.arg(0, "course")
	if err != nil {
		return err
	}
	return c.authenticated(ctx, wizard.CoursePath(id), func(app *client.App, _ domain.User) error {
		course, err := app.Progress.Fetch(ctx, id)
		if err != nil {
			return err
		}
		path, err := app.Progress.Export(ctx, id, course.Title, c.cfg.ExportDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Saved %s\n", path)
		return nil
	})
}

func (c *cli) createCourse(ctx context.Context) error {
	return c.authenticated(ctx, "/create", func(app *client.App, _ domain.User) error {
		w := app.NewWizard()
		scanner := bufio.NewScanner(c.in)
		prompts := map[wizard.Step]string{
			wizard.StepSubject:  "What do you want to learn?",
			wizard.StepCategory: "Category (" + strings.Join(domain.Categories, ", ") + ")",
		}

		for w.Step() < wizard.StepDifficulty {
			step := w.Step()
			preset := &c.create.subject
			if step == wizard.StepCategory {
				preset = &c.create.category
			}
			answer, err := c.ask(scanner, preset, prompts[step])
			if err != nil {
				return err
			}
			if step == wizard.StepSubject {
				w.SetSubject(answer)
			} else {
				w.SetCategory(answer)
			}
			if err := w.Next(); err != nil {
				if err := c.printValidation(err); err != nil {
					return err
				}
			}
		}

		d, err := c.ask(scanner, &c.create.difficulty, "Difficulty (beginner, intermediate, advanced) [beginner]")
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if d != "" {
			if err := w.SetDifficulty(domain.Difficulty(strings.ToLower(d))); err != nil {
				return err
			}
		}

		fmt.Fprintln(c.out, gray.Sprint("Generating your course, this can take a minute..."))
		course, err := w.Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s Created %s (%s) with %d lessons.\n",
			green.Sprint("✓"), bold.Sprint(course.Title), course.ID, len(course.Lessons))
		return nil
	})
}

// ask consumes *preset when set, otherwise prompts for a line.
func (c *cli) ask(scanner *bufio.Scanner, preset *string, prompt string) (string, error) {
	if v := *preset; v != "" {
		*preset = ""
		return v, nil
	}
	fmt.Fprintf(c.out, "%s ", cyan.Sprint(prompt+":"))
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// printValidation prints field messages and returns any other error.
func (c *cli) printValidation(err error) error {
	var verr *validate.Error
	if !errors.As(err, &verr) {
		return err
	}
	for _, f := range verr.Fields {
		fmt.Fprintln(c.out, color.YellowString("  %s", f.Message))
	}
	return nil
}

func printCourse(c *cli, course domain.Course) {
	bold.Fprintln(c.out, course.Title)
	fmt.Fprintf(c.out, "%s · %s · %.1f hours  %s\n\n",
		course.Category, course.Difficulty, course.TotalEstimatedHours, progressBar(course.Progress.PercentComplete))
	if course.Description != "" {
		fmt.Fprintf(c.out, "%s\n\n", course.Description)
	}
	for i, l := range course.Lessons {
		mark := gray.Sprint("○")
		if course.IsCompleted(l.ID) {
			mark = green.Sprint("✓")
		}
		current := ""
		if cur := course.Progress.CurrentLessonID; cur != nil && *cur == l.ID {
			current = cyan.Sprint("  ← current")
		}
		fmt.Fprintf(c.out, "%s %2d. %s %s%s\n", mark, i+1, l.Title, gray.Sprintf("(%s, %d min)", l.ID, l.EstimatedMinutes), current)
	}
}

func progressBar(percent int) string {
	const width = 20
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("█", filled), strings.Repeat("░", width-filled), percent)
}
