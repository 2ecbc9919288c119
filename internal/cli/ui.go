package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/peerguard/pkg/peers"
	"github.com/matzehuels/peerguard/pkg/semver"
	"github.com/matzehuels/peerguard/pkg/update"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleName  = lipgloss.NewStyle().Foreground(colorWhite).Width(28)
	styleRange = lipgloss.NewStyle().Foreground(colorGray).Width(14)

	diffStyles = map[semver.DiffType]lipgloss.Style{
		semver.DiffPatch: lipgloss.NewStyle().Foreground(colorGreen),
		semver.DiffMinor: lipgloss.NewStyle().Foreground(colorCyan),
		semver.DiffMajor: lipgloss.NewStyle().Foreground(colorRed),
	}
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func (c *CLI) printSuccess(format string, args ...any) {
	fmt.Fprintln(c.Out, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func (c *CLI) printError(format string, args ...any) {
	fmt.Fprintln(c.Out, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func (c *CLI) printWarning(format string, args ...any) {
	fmt.Fprintln(c.Out, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (c *CLI) printInfo(format string, args ...any) {
	fmt.Fprintln(c.Out, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func (c *CLI) printDetail(format string, args ...any) {
	fmt.Fprintln(c.Out, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printKeyValue prints a labeled value.
func (c *CLI) printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Fprintln(c.Out, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

func (c *CLI) printTitle(title string) {
	fmt.Fprintln(c.Out, StyleTitle.Render(title))
}

// printJSON writes v as indented JSON.
func (c *CLI) printJSON(v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// Reports
// =============================================================================

func (c *CLI) printUpdate(u update.PackageUpdate) {
	diff := diffStyles[u.DiffType].Render(string(u.DiffType))
	marker := " "
	if u.Autofix {
		marker = styleIconSuccess.Render(iconSuccess)
	}
	fmt.Fprintf(c.Out, "%s %s %s %s %s  %s\n",
		marker,
		styleName.Render(u.Name),
		styleRange.Render(u.FromRange),
		StyleDim.Render(iconArrow),
		styleRange.Render(u.ToRange),
		diff,
	)
}

func (c *CLI) printConflict(cf peers.Conflict) {
	icon := styleIconWarning.Render(iconWarning)
	if cf.Severity == peers.SeverityError {
		icon = styleIconError.Render(iconError)
	}
	fmt.Fprintf(c.Out, "%s %s needs %s %s, found %s\n",
		icon,
		StyleValue.Render(cf.Requester),
		StyleValue.Render(cf.Peer),
		cf.RequiredRange,
		cf.ResolvedVersion,
	)
	if cf.Suggestion != "" {
		c.printDetail("%s", cf.Suggestion)
	}
}

// plural returns "1 thing" or "n things".
func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
