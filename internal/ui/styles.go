package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarn      = lipgloss.Color("214") // Orange
)

// HeaderStyle for the restaurant name line.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// DateLineStyle for the date and lunch-time line.
var DateLineStyle = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// SectionTitle style for set-menu headings.
var SectionTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	MarginTop(1).
	Padding(0, 1)

// ComponentStyle for menu component lines.
var ComponentStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 2)

// AllergenStyle for the parenthesized allergen suffix.
var AllergenStyle = lipgloss.NewStyle().
	Foreground(colorMuted)

// FreshBadge marks data confirmed for today.
var FreshBadge = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

// StaleBadge marks data carried over from an earlier day.
var StaleBadge = lipgloss.NewStyle().
	Foreground(colorWarn).
	Bold(true)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)
