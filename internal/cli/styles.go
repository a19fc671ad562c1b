package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	primary = lipgloss.Color("#3B82F6") // SkillBridge blue
	success = lipgloss.Color("#10B981")
	errCol  = lipgloss.Color("#EF4444")
	muted   = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(success)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(errCol)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
)

func printTitle(msg string)  { fmt.Println(titleStyle.Render(msg)) }
func printStatus(msg string) { fmt.Println(mutedStyle.Render(msg)) }
func printOK(msg string)     { fmt.Println(successStyle.Render("✓ " + msg)) }

// PrintError renders a fatal CLI error.
func PrintError(msg string) { fmt.Println(errorStyle.Render("✗ " + msg)) }
