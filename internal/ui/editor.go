package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Editor is a single-line input attached to the focused surface field.
// Every keystroke changes Value; the caller writes it through to the data
// model before handling the next message.
type Editor struct {
	input  textinput.Model
	label  string
	width  int
	active bool
}

// NewEditor creates an inactive editor.
func NewEditor() Editor {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 2000
	ti.Width = 60

	return Editor{input: ti, width: 80}
}

// Open starts editing value. limit <= 0 means the default limit; mask hides
// the text.
func (e *Editor) Open(label, value string, mask bool, limit int) tea.Cmd {
	e.label = label
	e.active = true
	e.input.Reset()
	e.input.CharLimit = 2000
	if limit > 0 {
		e.input.CharLimit = limit
	}
	e.input.EchoMode = textinput.EchoNormal
	if mask {
		e.input.EchoMode = textinput.EchoPassword
		e.input.EchoCharacter = SymbolMaskRune
	}
	e.input.SetValue(value)
	e.input.CursorEnd()
	return e.input.Focus()
}

// Close stops editing.
func (e *Editor) Close() {
	e.active = false
	e.input.Blur()
}

func (e *Editor) Active() bool  { return e.active }
func (e *Editor) Value() string { return e.input.Value() }

// SetWidth sets the width of the input
func (e *Editor) SetWidth(w int) {
	e.width = w
	e.input.Width = w - len(e.label) - 6
}

// Update handles input events
func (e *Editor) Update(msg tea.Msg) (*Editor, tea.Cmd) {
	if !e.active {
		return e, nil
	}
	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	return e, cmd
}

// View renders the editor line.
func (e *Editor) View() string {
	if !e.active {
		return ""
	}
	return PromptStyle.Render(SymbolPrompt) + " " + FieldLabelStyle.Render(e.label+":") + " " + e.input.View()
}
