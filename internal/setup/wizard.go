package setup

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/yolodolo42/a2ui/internal/ui"
	"golang.org/x/term"
)

// WizardStep represents the current step in the wizard
type WizardStep int

const (
	StepWelcome WizardStep = iota
	StepTransportSelect
	StepEndpointURL
	StepToken
	StepProbing
	StepComplete
)

const totalSteps = 3 // Transport, Endpoint, Ready

// SetupResult contains the result of the setup wizard
type SetupResult struct {
	TransportKind   string
	TransportURL    string
	CredentialSaved bool
	Verified        bool
	Cancelled       bool
}

// WizardModel is the main wizard Bubbletea model
type WizardModel struct {
	step       WizardStep
	status     *SetupStatus
	dataDir    string
	configPath string
	quitting   bool

	// Transport step
	transports        []transportItem
	transportSelector ui.Selector
	selectedKind      string

	// Endpoint step
	urlInput   textinput.Model
	tokenInput textinput.Model
	urlError   string
	probing    bool
	probeError string
	verified   bool
	saveError  string

	// UI
	spinner  spinner.Model
	progress progress.Model

	// Result
	result *SetupResult
}

type transportItem struct {
	kind        string
	name        string
	description string
	recommended bool
}

type probedMsg struct {
	err error
}

func transportSelectorItems(transports []transportItem) []ui.SelectorItem {
	items := make([]ui.SelectorItem, 0, len(transports))
	for _, t := range transports {
		desc := t.description
		if t.recommended {
			desc = "recommended - " + desc
		}
		items = append(items, ui.SelectorItem{
			ID:          t.kind,
			Label:       t.name,
			Description: desc,
		})
	}
	return items
}

// NewWizard creates a new wizard model
func NewWizard(dataDir string) *WizardModel {
	configPath := ConfigPath(dataDir)
	status, _ := DetectSetupStatus(configPath, dataDir)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.PromptStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	urlInput := textinput.New()
	urlInput.Prompt = ""
	urlInput.Placeholder = "wss://agent.example.com/a2ui"
	urlInput.CharLimit = 500
	urlInput.Width = 60

	tokenInput := textinput.New()
	tokenInput.Prompt = ""
	tokenInput.Placeholder = "Paste a token, or leave empty"
	tokenInput.EchoMode = textinput.EchoPassword
	tokenInput.EchoCharacter = ui.SymbolMaskRune
	tokenInput.CharLimit = 500
	tokenInput.Width = 50

	transports := []transportItem{
		{kind: "websocket", name: "WebSocket", description: "Streams replies frame by frame", recommended: true},
		{kind: "http", name: "HTTP", description: "POST each action, reply in the response body"},
		{kind: "stdout", name: "Standard output", description: "Print actions as JSON lines for piping"},
		{kind: "none", name: "Offline", description: "Resolve actions without sending them"},
	}

	m := &WizardModel{
		step:              StepWelcome,
		status:            status,
		dataDir:           dataDir,
		configPath:        configPath,
		transports:        transports,
		transportSelector: ui.NewSelector("How do you reach your agent?", transportSelectorItems(transports)),
		spinner:           sp,
		progress:          prog,
		urlInput:          urlInput,
		tokenInput:        tokenInput,
	}

	if status.HasTransport {
		m.selectedKind = status.TransportKind
		m.urlInput.SetValue(status.TransportURL)
	}

	return m
}

// Init initializes the wizard
func (m WizardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

// Update handles messages
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keys (don't swallow Esc; selectors use it).
		if msg.Type == tea.KeyCtrlC {
			m.result = &SetupResult{Cancelled: true}
			m.quitting = true
			return m, tea.Quit
		}

		switch m.step {
		case StepWelcome:
			if msg.Type == tea.KeyEnter {
				if m.status.FromEnv && m.status.HasTransport {
					m.step = StepComplete
				} else {
					m.step = StepTransportSelect
				}
			}
			return m, nil

		case StepTransportSelect:
			return m.updateTransportSelect(msg)

		case StepEndpointURL:
			switch msg.Type {
			case tea.KeyEsc:
				m.urlInput.Blur()
				m.urlError = ""
				m.step = StepTransportSelect
				m.transportSelector = ui.NewSelector("How do you reach your agent?", transportSelectorItems(m.transports))
				return m, nil
			case tea.KeyEnter:
				return m.updateEndpointURL()
			}
			// Fall through to let input update happen

		case StepToken:
			switch msg.Type {
			case tea.KeyEsc:
				m.tokenInput.Blur()
				m.probeError = ""
				m.step = StepEndpointURL
				return m, m.urlInput.Focus()
			case tea.KeyEnter:
				m.probing = true
				m.probeError = ""
				m.step = StepProbing
				return m, tea.Batch(m.probeEndpoint(), m.spinner.Tick)
			case tea.KeyCtrlS:
				// Save without checking the endpoint.
				return m.finish(false)
			}

		case StepProbing:
			return m, nil

		case StepComplete:
			if msg.Type == tea.KeyEnter {
				m.result = &SetupResult{
					TransportKind:   m.selectedKind,
					TransportURL:    m.urlInput.Value(),
					CredentialSaved: m.tokenInput.Value() != "",
					Verified:        m.verified,
				}
				m.quitting = true
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.progress.Width = min(40, msg.Width-20)
		m.transportSelector.SetWidth(msg.Width)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case probedMsg:
		m.probing = false
		if msg.err != nil {
			m.probeError = formatProbeError(msg.err)
			m.step = StepToken
			return m, m.tokenInput.Focus()
		}
		return m.finish(true)
	}

	switch m.step {
	case StepEndpointURL:
		var cmd tea.Cmd
		m.urlInput, cmd = m.urlInput.Update(msg)
		cmds = append(cmds, cmd)
	case StepToken:
		var cmd tea.Cmd
		m.tokenInput, cmd = m.tokenInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m WizardModel) updateTransportSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, cmd := m.transportSelector.Update(msg)
	if cmd != nil {
		return m, cmd
	}

	if m.transportSelector.Active() {
		return m, nil
	}

	if m.transportSelector.Cancelled() {
		m.step = StepWelcome
		m.transportSelector = ui.NewSelector("How do you reach your agent?", transportSelectorItems(m.transports))
		return m, nil
	}

	m.selectedKind = m.transportSelector.Selected()
	switch m.selectedKind {
	case "http", "websocket":
		m.step = StepEndpointURL
		return m, m.urlInput.Focus()
	default:
		m.urlInput.SetValue("")
		return m.finish(false)
	}
}

func (m WizardModel) updateEndpointURL() (tea.Model, tea.Cmd) {
	url := strings.TrimSpace(m.urlInput.Value())
	if err := checkURL(m.selectedKind, url); err != "" {
		m.urlError = err
		return m, nil
	}
	m.urlInput.SetValue(url)
	m.urlError = ""
	m.urlInput.Blur()
	m.step = StepToken
	return m, m.tokenInput.Focus()
}

// checkURL returns a message when url does not suit the transport kind.
func checkURL(kind, url string) string {
	if url == "" {
		return "Endpoint URL is required"
	}
	switch kind {
	case "websocket":
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return "WebSocket endpoints start with ws:// or wss://"
		}
	case "http":
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return "HTTP endpoints start with http:// or https://"
		}
	}
	return ""
}

// finish persists the choices and moves to the last step.
func (m WizardModel) finish(verified bool) (tea.Model, tea.Cmd) {
	m.verified = verified
	if err := m.saveConfig(); err != nil {
		m.saveError = err.Error()
	} else if err := m.saveToken(); err != nil {
		m.saveError = err.Error()
	}
	m.step = StepComplete
	return m, nil
}

// View renders the wizard
func (m WizardModel) View() string {
	if m.quitting {
		if m.result != nil && m.result.Cancelled {
			return ui.SelectorDim.Render("\n  Setup cancelled.\n\n")
		}
		return ""
	}

	var b strings.Builder

	if m.step > StepWelcome && m.step < StepComplete {
		b.WriteString("\n")
		b.WriteString(m.renderProgress())
		b.WriteString("\n")
	}

	switch m.step {
	case StepWelcome:
		b.WriteString(m.viewWelcome())
	case StepTransportSelect:
		b.WriteString("\n" + m.transportSelector.View())
	case StepEndpointURL:
		b.WriteString(m.viewEndpointURL())
	case StepToken, StepProbing:
		b.WriteString(m.viewToken())
	case StepComplete:
		b.WriteString(m.viewComplete())
	}

	return b.String()
}

func (m WizardModel) renderProgress() string {
	var currentStep int
	switch m.step {
	case StepTransportSelect:
		currentStep = 1
	case StepEndpointURL, StepToken, StepProbing:
		currentStep = 2
	case StepComplete:
		currentStep = 3
	}

	percent := float64(currentStep) / float64(totalSteps)
	bar := m.progress.ViewAs(percent)
	labels := "  Transport     Endpoint     Ready"
	return fmt.Sprintf("  %s\n%s", bar, ui.SelectorDim.Render(labels))
}

func (m WizardModel) viewWelcome() string {
	var b strings.Builder
	b.WriteString("\n\n")

	body := ui.TitleStyle.Render("Welcome to a2ui") + "\n" +
		ui.CaptionStyle.Render("Terminal client for agent-driven interfaces") + "\n\n"
	if m.status.FromEnv && m.status.HasTransport {
		body += ui.SuccessStyle.Render(ui.SymbolCheck+" Found A2UI_TRANSPORT_URL in environment") + "\n" +
			fmt.Sprintf("  Using: %s", m.status.TransportURL)
	} else {
		body += "Let's connect you to an agent."
	}
	b.WriteString(ui.CardStyle.Render(body))
	b.WriteString("\n\n")
	b.WriteString(ui.HelpStyle.Render("  Press Enter to continue..."))
	return b.String()
}

func (m WizardModel) viewEndpointURL() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(ui.TitleStyle.Render("  Agent endpoint"))
	b.WriteString("\n\n")
	b.WriteString("  ")
	b.WriteString(m.urlInput.View())
	b.WriteString("\n")
	if m.urlError != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", ui.ErrorStyle.Render(ui.SymbolCross+" "+m.urlError)))
	}
	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("  Enter to continue • Esc back"))
	return b.String()
}

func (m WizardModel) viewToken() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(ui.TitleStyle.Render("  Access token (optional)"))
	b.WriteString("\n\n")
	b.WriteString(ui.SelectorDim.Render("  Sent as a bearer token to " + m.urlInput.Value() + "\n\n"))
	b.WriteString("  ")
	b.WriteString(m.tokenInput.View())
	b.WriteString("\n")

	if m.probing {
		b.WriteString(fmt.Sprintf("\n  %s Checking endpoint...\n", m.spinner.View()))
	} else if m.probeError != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", ui.ErrorStyle.Render(ui.SymbolCross+" "+m.probeError)))
	}

	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("  Enter to check and save • Ctrl+S save without checking • Esc back"))
	return b.String()
}

func (m WizardModel) viewComplete() string {
	var b strings.Builder
	b.WriteString("\n\n")

	endpoint := ui.SelectorDim.Render("none")
	if m.urlInput.Value() != "" {
		endpoint = m.urlInput.Value()
	}
	check := ui.SelectorDim.Render("not checked")
	if m.verified {
		check = ui.SuccessStyle.Render(ui.SymbolCheck + " reachable")
	}

	content := fmt.Sprintf(
		"%s\n\n"+
			"Transport: %s\n"+
			"Endpoint:  %s\n"+
			"Status:    %s\n\n"+
			"%s\n"+
			"  %s\n"+
			"  %s",
		ui.TitleStyle.Render("You're all set!"),
		m.selectedKind,
		endpoint,
		check,
		ui.SelectorDim.Render("Try these:"),
		"a2ui view session.jsonl",
		"a2ui replay form.jsonl --fire s1:submit --send",
	)
	if m.saveError != "" {
		content += "\n\n" + ui.ErrorStyle.Render(ui.SymbolCross+" "+m.saveError)
	}

	b.WriteString(ui.CardStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(ui.HelpStyle.Render("  Press Enter to finish..."))
	return b.String()
}

// RunWizard runs the setup wizard and returns the result
func RunWizard(dataDir string) (*SetupResult, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	m := NewWizard(dataDir)

	p := tea.NewProgram(*m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	return finalModel.(WizardModel).result, nil
}

// PrintEnvInstructions prints setup instructions for non-interactive environments
func PrintEnvInstructions() {
	fmt.Println("a2ui sends actions to an agent endpoint.")
	fmt.Println("")
	fmt.Println("Configure it with environment variables:")
	fmt.Println("  A2UI_TRANSPORT_KIND=websocket   (or http, stdout, none)")
	fmt.Println("  A2UI_TRANSPORT_URL=wss://agent.example.com/a2ui")
	fmt.Println("  A2UI_TRANSPORT_TOKEN=...        (optional)")
	fmt.Println("")
	fmt.Println("Or run 'a2ui setup' in a terminal for guided setup.")
}

// IsInteractive returns true if running in a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
