package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	roleStyles = map[string]lipgloss.Style{
		"user":      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		"assistant": lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		"system":    lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		"tool":      lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true),
	}
)
