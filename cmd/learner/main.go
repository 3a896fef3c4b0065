// Command learner is the terminal client for the course API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/arturoeanton/coursepilot/internal/client"
	"github.com/arturoeanton/coursepilot/internal/client/browser"
	"github.com/arturoeanton/coursepilot/internal/client/storage"
	"github.com/arturoeanton/coursepilot/internal/port"
	"github.com/arturoeanton/coursepilot/pkg/config"
)

const usage = `usage: learner [flags] <command> [args]

commands:
  login [google|github]         sign in through the browser
  logout                        end the session
  whoami                        show the signed-in user
  courses                       list your courses
  show <course>                 show a course and its lessons
  lesson <course> <lesson>      read a lesson and make it current
  complete <course> <lesson>    mark a lesson complete
  delete <course>               delete a course
  create [--subject s --category c --difficulty d]
                                generate a new course
  export <course>               save the course as a PDF

flags:
`

// cli carries the resolved configuration and the stores for one invocation.
type cli struct {
	cfg    *config.Learner
	tokens port.TokenStore
	out    io.Writer
	in     io.Reader
	logger *slog.Logger
	args   []string
	create createFlags
}

type createFlags struct {
	subject, category, difficulty string
}

func main() {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("learner", pflag.ContinueOnError)
	config.LearnerFlags(fs)
	var cf createFlags
	fs.StringVar(&cf.subject, "subject", "", "create: course subject")
	fs.StringVar(&cf.category, "category", "", "create: course category")
	fs.StringVar(&cf.difficulty, "difficulty", "", "create: beginner, intermediate or advanced")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.LoadLearner(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("config: %v", err))
		os.Exit(2)
	}
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.JSONLogs)
	slog.SetDefault(logger)

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	tokens, closeTokens, err := openTokenStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("token store: %v", err))
		os.Exit(1)
	}
	defer closeTokens()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &cli{
		cfg:    cfg,
		tokens: tokens,
		out:    os.Stdout,
		in:     os.Stdin,
		logger: logger,
		args:   fs.Args()[1:],
		create: cf,
	}
	if err := c.run(ctx, fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		closeTokens()
		os.Exit(1)
	}
}

func openTokenStore(cfg *config.Learner) (port.TokenStore, func(), error) {
	if cfg.TokenStore == "sqlite" {
		db, err := storage.OpenSQLite(cfg.TokenPath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	}
	return storage.NewFile(cfg.TokenPath), func() {}, nil
}

// newApp builds a client whose in-app location starts at start.
func (c *cli) newApp(start string) (*client.App, *browser.Location) {
	loc := browser.NewLocation(start)
	app := client.New(client.Config{
		APIURL:   c.cfg.APIURL,
		Tokens:   c.tokens,
		Location: loc,
		External: &browser.Opener{Out: c.out, Launch: true, Logger: c.logger},
		Logger:   c.logger,
	})
	return app, loc
}

func (c *cli) run(ctx context.Context, command string) error {
	switch strings.ToLower(command) {
	case "login":
		return c.login(ctx)
	case "logout":
		return c.logout(ctx)
	case "whoami":
		return c.whoami(ctx)
	case "courses", "ls":
		return c.courses(ctx)
	case "show":
		return c.show(ctx)
	case "lesson":
		return c.lesson(ctx)
	case "complete":
		return c.complete(ctx)
	case "delete", "rm":
		return c.delete(ctx)
	case "create":
		return c.createCourse(ctx)
	case "export":
		return c.export(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) arg(i int, name string) (string, error) {
	if i >= len(c.args) || c.args[i] == "" {
		return "", fmt.Errorf("missing <%s>", name)
	}
	return c.args[i], nil
}
