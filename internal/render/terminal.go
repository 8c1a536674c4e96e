package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/ui"
)

// Terminal returns a catalog of lipgloss renderers for every built-in kind.
// Unknown kinds render as nothing.
func Terminal() *Catalog {
	c := NewCatalog()
	c.pending = renderPending
	c.Register(protocol.KindText, RendererFunc(renderText)).
		Register(protocol.KindHeading, RendererFunc(renderHeading)).
		Register(protocol.KindImage, RendererFunc(renderImage)).
		Register(protocol.KindDivider, RendererFunc(renderDivider)).
		Register(protocol.KindButton, RendererFunc(renderButton)).
		Register(protocol.KindTextField, RendererFunc(renderTextField)).
		Register(protocol.KindCheckBox, RendererFunc(renderCheckBox)).
		Register(protocol.KindOTPInput, RendererFunc(renderOTP)).
		Register(protocol.KindSlider, RendererFunc(renderSlider)).
		Register(protocol.KindColumn, RendererFunc(renderColumn)).
		Register(protocol.KindList, RendererFunc(renderColumn)).
		Register(protocol.KindRow, RendererFunc(renderRow)).
		Register(protocol.KindCard, RendererFunc(renderCard)).
		Register(protocol.KindUnknown, RendererFunc(func(Element, []string) string { return "" }))
	return c
}

func renderPending(id string, width int) string {
	return ui.PendingStyle.Render(truncate(ui.SymbolPending+" "+id, width))
}

// marker prefixes focusable elements so focus moves do not shift layout.
func marker(focused bool) string {
	if focused {
		return ui.SelectorCursor.Render(ui.SymbolArrow) + " "
	}
	return "  "
}

func renderText(el Element, _ []string) string {
	p, _ := el.Props.(protocol.TextProps)
	style := ui.BodyStyle
	switch p.UsageHint {
	case "h1", "h2":
		style = ui.TitleStyle
	case "h3", "h4", "h5":
		style = ui.HeadingStyle
	case "caption":
		style = ui.CaptionStyle
	}
	return style.Width(el.Width).Render(p.Text)
}

func renderHeading(el Element, _ []string) string {
	p, _ := el.Props.(protocol.HeadingProps)
	style := ui.HeadingStyle
	if p.Level <= 1 {
		style = ui.TitleStyle
	}
	return style.Render(truncate(p.Text, el.Width))
}

func renderImage(el Element, _ []string) string {
	p, _ := el.Props.(protocol.ImageProps)
	return ui.CaptionStyle.Render(truncate("[image] "+p.URL, el.Width))
}

func renderDivider(el Element, _ []string) string {
	p, _ := el.Props.(protocol.DividerProps)
	if p.Axis == "vertical" {
		return ui.SelectorDim.Render("│")
	}
	return ui.SelectorDim.Render(strings.Repeat(ui.SymbolRule, el.Width))
}

func renderButton(el Element, children []string) string {
	p, _ := el.Props.(protocol.ButtonProps)
	label := p.Label
	if label == "" && len(children) > 0 {
		label = strings.TrimSpace(children[0])
	}
	if label == "" {
		label = p.Action
	}
	style := ui.ButtonStyle
	if p.Primary {
		style = ui.PrimaryButtonStyle
	}
	if el.Focused {
		style = style.Inherit(ui.FocusStyle).Reverse(true)
	}
	return marker(el.Focused) + style.Render("[ "+truncate(label, el.Width-8)+" ]")
}

func renderTextField(el Element, _ []string) string {
	p, _ := el.Props.(protocol.TextFieldProps)
	value := p.Value
	if p.FieldType == "obscured" {
		value = strings.Repeat(string(ui.SymbolMaskRune), len([]rune(value)))
	}
	if el.Focused {
		value += ui.SymbolCursor
	}
	label := ui.FieldLabelStyle.Render(p.Label + ":")
	avail := el.Width - lipgloss.Width(label) - 3
	field := ui.FieldValueStyle.Render(padRight(truncate(value, avail), min(avail, 24)))
	return marker(el.Focused) + label + " " + field
}

func renderCheckBox(el Element, _ []string) string {
	p, _ := el.Props.(protocol.CheckBoxProps)
	box := ui.SymbolBoxOff
	if p.Checked {
		box = ui.SuccessStyle.Render(ui.SymbolBoxOn)
	}
	label := truncate(p.Label, el.Width-6)
	if el.Focused {
		label = ui.FocusStyle.Render(label)
	}
	return marker(el.Focused) + box + " " + label
}

func renderOTP(el Element, _ []string) string {
	p, _ := el.Props.(protocol.OTPInputProps)
	digits := []rune(p.Value)
	var b strings.Builder
	for i := 0; i < p.Length; i++ {
		cell := " "
		if i < len(digits) {
			cell = string(digits[i])
		}
		b.WriteString("[" + cell + "]")
	}
	cells := b.String()
	if el.Focused {
		cells = ui.FocusStyle.Render(cells)
	}
	return marker(el.Focused) + cells
}

func renderSlider(el Element, _ []string) string {
	p, _ := el.Props.(protocol.SliderProps)
	track := el.Width - 24
	if track < 10 {
		track = 10
	}
	span := p.Max - p.Min
	pos := 0
	if span > 0 {
		pos = int((p.Value - p.Min) / span * float64(track))
	}
	pos = max(0, min(track, pos))
	bar := strings.Repeat("=", pos) + "o" + strings.Repeat("-", track-pos)
	if el.Focused {
		bar = ui.FocusStyle.Render(bar)
	}
	return marker(el.Focused) + fmt.Sprintf("%s %s %s  %s",
		formatNumber(p.Min), bar, formatNumber(p.Max), ui.SelectorDim.Render(formatNumber(p.Value)))
}

func renderColumn(_ Element, children []string) string {
	return stack(children)
}

func renderRow(_ Element, children []string) string {
	parts := make([]string, 0, 2*len(children))
	for i, c := range children {
		if c == "" {
			continue
		}
		if i > 0 && len(parts) > 0 {
			parts = append(parts, "  ")
		}
		parts = append(parts, c)
	}
	if len(parts) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderCard(el Element, children []string) string {
	body := stack(children)
	return ui.CardStyle.Width(max(el.Width-2, 4)).Render(body)
}

// stack joins non-empty blocks vertically.
func stack(children []string) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		if c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func truncate(s string, w int) string {
	r := []rune(s)
	if w <= 0 || len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-3]) + "..."
}
