// ABOUTME: Terminal styling for orchestrator CLI output
// ABOUTME: Adaptive status colors and icons shared by all commands

package ui

import "github.com/charmbracelet/lipgloss"

// Semantic status colors, adaptive for light/dark terminals.
var (
	ColorPass = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#81c784"}
	ColorFail = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#e57373"}
	ColorWarn = lipgloss.AdaptiveColor{Light: "#ef6c00", Dark: "#ffb74d"}
	ColorMute = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMute)
	HeaderStyle = lipgloss.NewStyle().Bold(true)
)

// Status icons, one per step outcome.
const (
	IconPass = "✓"
	IconFail = "✗"
	IconSkip = "-"
	IconUndo = "↩"
)
