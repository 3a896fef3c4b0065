package browser

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
)

// Opener performs full navigations by handing the URL to the system browser.
// The URL is always printed to Out so it can be opened by hand.
type Opener struct {
	Out    io.Writer
	Launch bool
	Logger *slog.Logger
}

// NavigateExternal implements port.ExternalNavigator.
func (o *Opener) NavigateExternal(rawURL string) {
	if o.Out != nil {
		fmt.Fprintf(o.Out, "Open this URL to continue:\n  %s\n", rawURL)
	}
	if !o.Launch {
		return
	}
	if err := launch(rawURL); err != nil && o.Logger != nil {
		o.Logger.Warn("could not launch browser", "error", err)
	}
}

func launch(rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	return cmd.Start()
}

// Recorder is an ExternalNavigator that only records targets.
type Recorder struct {
	Targets []string
}

// NavigateExternal implements port.ExternalNavigator.
func (r *Recorder) NavigateExternal(rawURL string) {
	r.Targets = append(r.Targets, rawURL)
}
