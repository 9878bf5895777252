package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ldaudit/ldaudit/internal/cli/pagination"
	"github.com/ldaudit/ldaudit/internal/engine"
)

const (
	slackActionEnable    = "Enable the flag in %s, or"
	slackActionArchive   = "Archive the flag and remove all code evaluating this flag, or"
	slackActionPermanent = "Only if it truly makes sense, make this a _permanent_ flag instead of a _temporary_ one"
)

// slackGroups splits inactive flags by their state in the primary environment.
type slackGroups struct {
	off, on, absent []engine.InactiveFlag
}

func groupByPrimaryState(flags []engine.InactiveFlag) slackGroups {
	var g slackGroups
	for _, f := range flags {
		state, ok := f.PrimaryState()
		switch {
		case !ok:
			g.absent = append(g.absent, f)
		case state.On:
			g.on = append(g.on, f)
		default:
			g.off = append(g.off, f)
		}
	}
	return g
}

// slackLink formats a Slack mrkdwn link.
func slackLink(url, text string) string {
	return "<" + url + "|" + text + ">"
}

func (v view) primaryLabel() string {
	if len(v.envs) == 1 {
		return v.envs[0]
	}
	return "the primary environment"
}

// renderSlack writes a Slack-ready cleanup message. refs holds reference
// counts per key and is nil when no scan ran.
func (v view) renderSlack(w io.Writer, flags []engine.InactiveFlag, total int, refs map[string]int) error {
	var b strings.Builder

	scope := "feature flags"
	if v.temporaryOnly {
		scope = "(temporary) feature flags"
	}
	b.WriteString("*:broom: Feature flags cleanup time*\n\n")
	fmt.Fprintf(&b, "> All these %s haven't been modified in ANY environment (%s) in the last %s. "+
		"That smells like an inactive flag!\n\n",
		scope, strings.Join(v.envs, ", "), v.printer.Sprintf("%d %s", v.months, pluralize(v.months, "month", "months")))
	fmt.Fprintf(&b, "*Total inactive flags: %s*\n", v.count(total))

	if total == 0 {
		b.WriteString("\nNothing to clean up. :tada:\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	groups := groupByPrimaryState(flags)
	primary := v.primaryLabel()

	if len(groups.off) > 0 {
		fmt.Fprintf(&b, "\n*Inactive flags that are toggled `off` in %s:*\n\n", primary)
		v.slackActions(&b, fmt.Sprintf(slackActionEnable, primary), slackActionArchive, slackActionPermanent)
		v.slackList(&b, groups.off, refs)
	}
	if len(groups.on) > 0 {
		fmt.Fprintf(&b, "\n*Inactive flags that are toggled `on` in %s:*\n\n", primary)
		v.slackActions(&b, slackActionArchive, slackActionPermanent)
		v.slackList(&b, groups.on, refs)
	}
	if len(groups.absent) > 0 {
		fmt.Fprintf(&b, "\n*Inactive flags not present in %s:*\n\n", strings.Join(v.envs, ", "))
		v.slackActions(&b, slackActionArchive)
		v.slackList(&b, groups.absent, refs)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (v view) slackActions(b *strings.Builder, actions ...string) {
	b.WriteString("> :hammer_and_wrench: Suggested actions:\n")
	for i, a := range actions {
		if !v.temporaryOnly && a == slackActionPermanent {
			continue
		}
		fmt.Fprintf(b, "> %c. %s\n", 'a'+rune(i), a)
	}
	b.WriteString("\n")
}

func (v view) slackList(b *strings.Builder, flags []engine.InactiveFlag, refs map[string]int) {
	for _, f := range flags {
		details := []string{maintainerText(f.Flag), v.idleText(f)}
		if refs != nil {
			n := refs[f.Key]
			details = append(details, v.printer.Sprintf("%d %s in code", n, pluralize(n, "reference", "references")))
		}
		fmt.Fprintf(b, "• %s (%s)\n", slackLink(v.flagURL(f.Key, f.PrimaryEnvironment), f.Key), strings.Join(details, ", "))
	}
}

// renderFlagListSlack writes the flag listing as a Slack bullet list.
func (v view) renderFlagListSlack(w io.Writer, flags []engine.Flag, meta pagination.Meta) error {
	var b strings.Builder
	fmt.Fprintf(&b, "*Feature flags in %s: %s*\n\n", v.project, v.count(meta.TotalItems))
	for _, f := range flags {
		fmt.Fprintf(&b, "• %s (%s)\n",
			slackLink(v.flagURL(f.Key, engine.PrimaryEnvironment(f, v.envs)), f.Key), v.envStatus(f))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
