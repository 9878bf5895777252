package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ldaudit/ldaudit/internal/config"
	"github.com/ldaudit/ldaudit/internal/engine"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatSlack = "slack"
)

const (
	dateLayout   = "2006-01-02"
	notAvailable = "N/A"
	hoursPerDay  = 24
)

// Palette.
func colorHeader() lipgloss.Color  { return lipgloss.Color("39") }
func colorBorder() lipgloss.Color  { return lipgloss.Color("240") }
func colorKey() lipgloss.Color     { return lipgloss.Color("45") }
func colorOn() lipgloss.Color      { return lipgloss.Color("42") }
func colorOff() lipgloss.Color     { return lipgloss.Color("196") }
func colorMuted() lipgloss.Color   { return lipgloss.Color("245") }
func colorWarning() lipgloss.Color { return lipgloss.Color("214") }

// isWriterTerminal reports whether w is a terminal.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

// view holds everything renderers need besides the data itself.
type view struct {
	format   string
	renderer *lipgloss.Renderer
	printer  *message.Printer
	baseURL  string
	project  string
	envs     []string
	excludes []string
	months   int
	// temporaryOnly mirrors the audit scope for wording.
	temporaryOnly bool
	now           time.Time
}

// newView builds the rendering context for w from the effective config.
func newView(w io.Writer, cfg *config.Config, now time.Time) view {
	color := false
	if cfg.Output.DefaultFormat == formatTable {
		switch cfg.Output.Color {
		case "always":
			color = true
		case "auto":
			color = isWriterTerminal(w)
		}
	}

	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return view{
		format:        cfg.Output.DefaultFormat,
		renderer:      r,
		printer:       message.NewPrinter(language.English),
		baseURL:       cfg.LaunchDarkly.BaseURL,
		project:       cfg.LaunchDarkly.Project,
		envs:          cfg.Audit.Environments,
		excludes:      cfg.Audit.Excludes,
		months:        cfg.Audit.Months,
		temporaryOnly: !cfg.Audit.IncludePermanent,
		now:           now,
	}
}

func (v view) style() lipgloss.Style {
	return v.renderer.NewStyle()
}

// flagURL returns the dashboard link of a flag. primaryEnv falls back to the
// first configured environment.
func (v view) flagURL(key, primaryEnv string) string {
	env := primaryEnv
	if env == "" && len(v.envs) > 0 {
		env = v.envs[0]
	}
	if env == "" {
		env = config.DefaultEnvironment
	}
	return fmt.Sprintf("%s/%s/%s/features/%s",
		strings.TrimRight(v.baseURL, "/"),
		url.PathEscape(v.project), url.PathEscape(env), url.PathEscape(key))
}

// count formats n with thousands separators.
func (v view) count(n int) string {
	return v.printer.Sprintf("%d", n)
}

// envStatus renders "production: ON, staging: OFF" in environment name order.
func (v view) envStatus(f engine.Flag) string {
	if len(f.Environments) == 0 {
		return "no environments"
	}
	on := v.style().Foreground(colorOn())
	off := v.style().Foreground(colorOff())

	parts := make([]string, 0, len(f.Environments))
	for _, name := range f.EnvironmentNames() {
		if f.Environments[name].On {
			parts = append(parts, name+": "+on.Render("ON"))
		} else {
			parts = append(parts, name+": "+off.Render("OFF"))
		}
	}
	return strings.Join(parts, ", ")
}

func maintainerText(f engine.Flag) string {
	if f.Maintainer == nil {
		return notAvailable
	}
	if d := f.Maintainer.Display(); d != "" {
		return d
	}
	return notAvailable
}

func dateText(t *time.Time) string {
	if t == nil {
		return notAvailable
	}
	return t.UTC().Format(dateLayout)
}

func lastModifiedText(f engine.Flag) string {
	t, ok := f.LastModified()
	if !ok {
		return notAvailable
	}
	return dateText(&t)
}

func idleDays(f engine.InactiveFlag) int {
	return int(f.IdleFor.Hours() / hoursPerDay)
}

func (v view) idleText(f engine.InactiveFlag) string {
	if f.NeverModified {
		return "never modified"
	}
	return v.printer.Sprintf("%d days", idleDays(f))
}

// pluralize returns singular when n is 1 and plural otherwise.
func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
