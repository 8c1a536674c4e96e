package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary   = lipgloss.Color("205") // Pink/magenta
	ColorSuccess   = lipgloss.Color("35")  // Green
	ColorWarning   = lipgloss.Color("214") // Gold/yellow
	ColorError     = lipgloss.Color("196") // Red
	ColorDim       = lipgloss.Color("241") // Gray
	ColorAccent    = lipgloss.Color("39")  // Blue
	ColorHighlight = lipgloss.Color("212") // Light pink
	ColorText      = lipgloss.Color("252")
)

const (
	SymbolPrompt   = "❯"
	SymbolBullet   = "●"
	SymbolArrow    = "▸"
	SymbolCheck    = "✓"
	SymbolCross    = "✗"
	SymbolPending  = "…"
	SymbolBoxOn    = "[x]"
	SymbolBoxOff   = "[ ]"
	SymbolRule     = "─"
	SymbolCursor   = "▏"
	SymbolMaskRune = '•'
)

var (
	PromptStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	HeadingStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	CaptionStyle = lipgloss.NewStyle().
			Foreground(ColorDim).
			Italic(true)

	BodyStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 1)

	PrimaryButtonStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1)

	FocusStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	FieldLabelStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	FieldValueStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Underline(true)

	PendingStyle = lipgloss.NewStyle().
			Foreground(ColorDim).
			Italic(true)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDim).
			Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	SelectorCursor = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	SelectorItemStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SelectorDim = lipgloss.NewStyle().
			Foreground(ColorDim)

	SelectorActive = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorDim)
)
