package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/yolodolo42/a2ui/internal/datamodel"
	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/render"
	"github.com/yolodolo42/a2ui/internal/session"
	"github.com/yolodolo42/a2ui/internal/surface"
	"github.com/yolodolo42/a2ui/internal/ui"
	"golang.org/x/term"
)

var viewCmd = &cobra.Command{
	Use:   "view FILE...",
	Short: "Interact with surfaces in the terminal",
	Long: `View applies the given message streams and opens an interactive surface
viewer. Tab moves between fields and buttons, enter edits a field or fires a
button, space toggles a checkbox, left/right move a slider, s switches
surfaces and q quits.

Fired actions go to the configured transport; the agent's reply stream is
applied before the surface is repainted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().String("surface", "", "Surface to show first")
}

func runView(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("view needs a terminal; use replay for non-interactive output")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := loadSettings()
	e, err := openEngine(s, true)
	if err != nil {
		return err
	}
	defer e.Close()

	for _, path := range args {
		if err := consumeFile(ctx, e, path, streamName(path), cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	m := newViewModel(e, s.TransportTimeout)
	if id, _ := cmd.Flags().GetString("surface"); id != "" {
		m.surfaceID = id
	}
	m.refresh()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// fireMsg is sent when a resolved action has been delivered and its reply applied.
type fireMsg struct {
	res session.Result
	ok  bool
	err error
}

// viewModel is the interactive surface viewer state.
type viewModel struct {
	engine   *engine
	painter  *render.Painter
	viewport viewport.Model
	spinner  spinner.Model
	editor   ui.Editor
	picker   ui.Selector

	surfaceID string
	focus     string
	frame     render.Frame
	queued    []render.Target
	status    string
	timeout   time.Duration

	busy     bool
	width    int
	height   int
	ready    bool
	quitting bool
}

func newViewModel(e *engine, timeout time.Duration) *viewModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.PromptStyle

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	m := &viewModel{
		engine:  e,
		spinner: sp,
		editor:  ui.NewEditor(),
		timeout: timeout,
		width:   80,
	}
	m.painter = &render.Painter{
		Catalog: render.Terminal(),
		Width:   m.width,
		Fire:    func(t render.Target) { m.queued = append(m.queued, t) },
	}
	return m
}

func (m *viewModel) Init() tea.Cmd {
	return nil
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.picker.Active() {
			return m, m.updatePicker(msg)
		}
		if m.editor.Active() {
			return m, m.updateEditor(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.viewportHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.viewportHeight()
		}
		m.painter.Width = msg.Width - 2
		m.editor.SetWidth(msg.Width)
		m.picker.SetWidth(msg.Width)
		m.refresh()

	case fireMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.status = ui.ErrorStyle.Render(ui.SymbolCross + " " + msg.err.Error())
		case !msg.ok:
			m.status = ui.WarningStyle.Render("no action")
		case msg.res.Sent:
			m.status = ui.SuccessStyle.Render(fmt.Sprintf("%s %s sent, %d reply messages",
				ui.SymbolCheck, msg.res.Action.Name, msg.res.Reply.Applied))
		default:
			m.status = ui.SuccessStyle.Render(fmt.Sprintf("%s %s resolved (no transport)",
				ui.SymbolCheck, msg.res.Action.Name))
		}
		m.refresh()

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *viewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.moveFocus(1)
		return m, nil
	case "shift+tab":
		m.moveFocus(-1)
		return m, nil
	case "s":
		m.openPicker()
		return m, nil
	}

	t, ok := m.frame.Find(m.focus)
	if !ok {
		return m, m.scroll(msg)
	}

	switch msg.String() {
	case "enter":
		switch t.Kind {
		case protocol.KindTextField, protocol.KindOTPInput:
			return m, m.openEditor(t)
		case protocol.KindCheckBox:
			m.toggle(t)
			return m, nil
		}
		return m, m.activate(t)
	case " ":
		if t.Kind == protocol.KindCheckBox {
			m.toggle(t)
			return m, nil
		}
	case "left", "h":
		if t.Kind == protocol.KindSlider {
			m.nudge(t, -1)
			return m, nil
		}
	case "right", "l":
		if t.Kind == protocol.KindSlider {
			m.nudge(t, 1)
			return m, nil
		}
	}
	return m, m.scroll(msg)
}

func (m *viewModel) scroll(msg tea.Msg) tea.Cmd {
	if !m.ready {
		return nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

func (m *viewModel) moveFocus(delta int) {
	n := len(m.frame.Targets)
	if n == 0 {
		return
	}
	i := 0
	for j, t := range m.frame.Targets {
		if t.Key() == m.focus {
			i = (j + delta + n) % n
			break
		}
	}
	m.focus = m.frame.Targets[i].Key()
	m.refresh()
}

// activate resolves the action on t at the moment of the gesture and
// delivers it in the background so the viewer keeps painting.
func (m *viewModel) activate(t render.Target) tea.Cmd {
	if m.busy {
		return nil
	}
	m.queued = m.queued[:0]
	m.painter.Activate(t)
	if len(m.queued) == 0 {
		return nil
	}
	trigger := m.queued[0].Trigger()
	m.queued = m.queued[:0]

	ua, ok := m.engine.Resolve(trigger)
	if !ok {
		m.status = ui.WarningStyle.Render("no action")
		return nil
	}

	m.busy = true
	m.status = ""
	e, timeout := m.engine, m.timeout
	deliver := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := e.Dispatch(ctx, ua)
		return fireMsg{res: res, ok: true, err: err}
	}
	return tea.Batch(deliver, m.spinner.Tick)
}

func (m *viewModel) props(t render.Target) (protocol.Props, bool) {
	node, ok := m.engine.Registry().Component(t.SurfaceID, t.ComponentID)
	if !ok {
		return nil, false
	}
	return node.Component.ResolveProps(m.engine.Store().Scope(t.SurfaceID, t.Scope)), true
}

func (m *viewModel) write(t render.Target, v datamodel.Value) {
	if err := m.engine.Input(t.Trigger(), v); err != nil {
		m.status = ui.ErrorStyle.Render(ui.SymbolCross + " " + err.Error())
	}
	m.refresh()
}

func (m *viewModel) toggle(t render.Target) {
	p, ok := m.props(t)
	if !ok {
		return
	}
	if cb, ok := p.(protocol.CheckBoxProps); ok {
		m.write(t, datamodel.Bool(!cb.Checked))
	}
}

func (m *viewModel) nudge(t render.Target, dir float64) {
	p, ok := m.props(t)
	if !ok {
		return
	}
	sp, ok := p.(protocol.SliderProps)
	if !ok {
		return
	}
	m.write(t, datamodel.Number(sliderStep(sp, dir)))
}

// sliderStep moves the value a twentieth of the range, clamped to it.
func sliderStep(p protocol.SliderProps, dir float64) float64 {
	step := (p.Max - p.Min) / 20
	if step <= 0 {
		step = 1
	}
	v := p.Value + dir*step
	if p.Max > p.Min {
		v = min(max(v, p.Min), p.Max)
	}
	return v
}

func (m *viewModel) openEditor(t render.Target) tea.Cmd {
	p, ok := m.props(t)
	if !ok {
		return nil
	}
	switch p := p.(type) {
	case protocol.TextFieldProps:
		label := p.Label
		if label == "" {
			label = t.ComponentID
		}
		return m.editor.Open(label, p.Value, p.FieldType == "obscured", 0)
	case protocol.OTPInputProps:
		return m.editor.Open("Code", p.Value, false, p.Length)
	}
	return nil
}

// updateEditor feeds keys to the open field and writes every change through
// to the data model.
func (m *viewModel) updateEditor(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc, tea.KeyTab:
		m.editor.Close()
		m.refresh()
		return nil
	}
	t, ok := m.frame.Find(m.focus)
	if !ok {
		m.editor.Close()
		return nil
	}
	before := m.editor.Value()
	_, cmd := m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		m.write(t, datamodel.String(after))
	}
	return cmd
}

func (m *viewModel) openPicker() {
	reg := m.engine.Registry()
	var surfaces []*surface.Surface
	for _, id := range reg.List() {
		if s, ok := reg.Get(id); ok {
			surfaces = append(surfaces, s)
		}
	}
	m.picker = ui.NewSelector("Surfaces", ui.SurfaceItems(surfaces, m.surfaceID))
	m.picker.SetWidth(m.width)
}

func (m *viewModel) updatePicker(msg tea.KeyMsg) tea.Cmd {
	_, cmd := m.picker.Update(msg)
	if !m.picker.Active() {
		if id := m.picker.Selected(); id != "" && id != m.surfaceID {
			m.surfaceID = id
			m.focus = ""
		}
		m.refresh()
	}
	return cmd
}

// refresh repaints the current surface and keeps focus on a live target.
func (m *viewModel) refresh() {
	ids := m.engine.Registry().List()
	if m.surfaceID == "" && len(ids) > 0 {
		m.surfaceID = ids[0]
	}

	f, ok := m.painter.Paint(m.engine.Registry(), m.surfaceID, m.focus)
	if ok {
		if _, found := f.Find(m.focus); !found && len(f.Targets) > 0 {
			m.focus = f.Targets[0].Key()
			f, _ = m.painter.Paint(m.engine.Registry(), m.surfaceID, m.focus)
		}
	}
	m.frame = f

	if m.ready {
		m.viewport.SetContent(m.body(ok))
	}
}

func (m *viewModel) body(painted bool) string {
	switch {
	case m.surfaceID == "":
		return ui.PendingStyle.Render("No surfaces yet.")
	case m.engine.Registry().Deleted(m.surfaceID):
		return ui.PendingStyle.Render("Surface " + m.surfaceID + " was deleted.")
	case !painted:
		return ui.PendingStyle.Render("Waiting for beginRendering on " + m.surfaceID + ".")
	}
	text := m.frame.Text
	if len(m.frame.Pending) > 0 {
		text += "\n" + ui.PendingStyle.Render("pending: "+strings.Join(m.frame.Pending, ", "))
	}
	return text
}

func (m *viewModel) viewportHeight() int {
	return max(m.height-6, 3)
}

func (m *viewModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing...\n"
	}

	var b strings.Builder
	title := ui.TitleStyle.Render("a2ui")
	if m.surfaceID != "" {
		title += " " + ui.SelectorDim.Render(ui.SymbolArrow+" "+m.surfaceID)
	}
	b.WriteString(title + "\n\n")

	if m.picker.Active() {
		b.WriteString(m.picker.View())
		return b.String()
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.editor.Active():
		b.WriteString(m.editor.View())
	case m.busy:
		b.WriteString(m.spinner.View() + " sending...")
	default:
		b.WriteString(m.status)
	}
	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("tab focus • enter edit/fire • space toggle • ←/→ slider • s surfaces • q quit"))
	return b.String()
}
