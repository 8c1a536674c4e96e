package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yolodolo42/a2ui/internal/datamodel"
)

// Kind is the component kind tag as it appears on the wire.
type Kind string

const (
	KindText      Kind = "Text"
	KindHeading   Kind = "Heading"
	KindImage     Kind = "Image"
	KindDivider   Kind = "Divider"
	KindButton    Kind = "Button"
	KindTextField Kind = "TextField"
	KindCheckBox  Kind = "CheckBox"
	KindOTPInput  Kind = "OTPInput"
	KindSlider    Kind = "Slider"
	KindColumn    Kind = "Column"
	KindRow       Kind = "Row"
	KindCard      Kind = "Card"
	KindList      Kind = "List"
	KindUnknown   Kind = "Unknown"
)

// Component is the closed set of component kinds. Each kind resolves its own
// refs against a data model lookup.
type Component interface {
	Kind() Kind
	ChildRefs() Children
	ResolveProps(l datamodel.Lookup) Props
}

// Actionable components carry an action descriptor.
type Actionable interface {
	Component
	ActionDescriptor() Action
}

// Bindable components write user input back into the data model.
type Bindable interface {
	Component
	Binding() Ref
}

// Template expands into one child per entry of the map at DataBinding.
type Template struct {
	ComponentID string `json:"componentId"`
	DataBinding string `json:"dataBinding"`
}

// Children is either an explicit id list or a data-bound template.
type Children struct {
	Explicit []string
	Template *Template
}

func (c Children) IsZero() bool { return len(c.Explicit) == 0 && c.Template == nil }

func (c *Children) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		*c = Children{Explicit: ids}
		return nil
	}
	var w struct {
		ExplicitList []string  `json:"explicitList"`
		Template     *Template `json:"template"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Children{Explicit: w.ExplicitList, Template: w.Template}
	return nil
}

func (c Children) MarshalJSON() ([]byte, error) {
	if c.Template != nil {
		return json.Marshal(map[string]any{"template": c.Template})
	}
	return json.Marshal(map[string]any{"explicitList": c.Explicit})
}

func single(id string) Children {
	if id == "" {
		return Children{}
	}
	return Children{Explicit: []string{id}}
}

type Text struct {
	Text      Ref    `json:"text"`
	UsageHint string `json:"usageHint,omitempty"`
}

func (Text) Kind() Kind          { return KindText }
func (Text) ChildRefs() Children { return Children{} }
func (c Text) ResolveProps(l datamodel.Lookup) Props {
	return TextProps{Text: c.Text.ResolveString(l), UsageHint: c.UsageHint}
}

type Heading struct {
	Text  Ref `json:"text"`
	Level int `json:"level,omitempty"`
}

func (Heading) Kind() Kind          { return KindHeading }
func (Heading) ChildRefs() Children { return Children{} }
func (c Heading) ResolveProps(l datamodel.Lookup) Props {
	level := c.Level
	if level <= 0 {
		level = 1
	}
	return HeadingProps{Text: c.Text.ResolveString(l), Level: level}
}

type Image struct {
	URL Ref    `json:"url"`
	Fit string `json:"fit,omitempty"`
}

func (Image) Kind() Kind          { return KindImage }
func (Image) ChildRefs() Children { return Children{} }
func (c Image) ResolveProps(l datamodel.Lookup) Props {
	return ImageProps{URL: c.URL.ResolveString(l), Fit: c.Fit}
}

type Divider struct {
	Axis string `json:"axis,omitempty"`
}

func (Divider) Kind() Kind          { return KindDivider }
func (Divider) ChildRefs() Children { return Children{} }
func (c Divider) ResolveProps(datamodel.Lookup) Props {
	return DividerProps{Axis: c.Axis}
}

type Button struct {
	Child   string `json:"child,omitempty"`
	Label   Ref    `json:"label"`
	Primary bool   `json:"primary,omitempty"`
	Action  Action `json:"action"`
}

func (Button) Kind() Kind                 { return KindButton }
func (c Button) ChildRefs() Children      { return single(c.Child) }
func (c Button) ActionDescriptor() Action { return c.Action }
func (c Button) ResolveProps(l datamodel.Lookup) Props {
	return ButtonProps{Label: c.Label.ResolveString(l), Primary: c.Primary, Action: c.Action.Name}
}

type TextField struct {
	Label     Ref    `json:"label"`
	Text      Ref    `json:"text"`
	FieldType string `json:"textFieldType,omitempty"`
}

func (TextField) Kind() Kind          { return KindTextField }
func (TextField) ChildRefs() Children { return Children{} }
func (c TextField) Binding() Ref      { return c.Text }
func (c TextField) ResolveProps(l datamodel.Lookup) Props {
	return TextFieldProps{
		Label:     c.Label.ResolveString(l),
		Value:     c.Text.ResolveString(l),
		FieldType: c.FieldType,
	}
}

type CheckBox struct {
	Label Ref `json:"label"`
	Value Ref `json:"value"`
}

func (CheckBox) Kind() Kind          { return KindCheckBox }
func (CheckBox) ChildRefs() Children { return Children{} }
func (c CheckBox) Binding() Ref      { return c.Value }
func (c CheckBox) ResolveProps(l datamodel.Lookup) Props {
	return CheckBoxProps{Label: c.Label.ResolveString(l), Checked: c.Value.ResolveBool(l)}
}

type OTPInput struct {
	Length int `json:"length,omitempty"`
	Value  Ref `json:"value"`
}

func (OTPInput) Kind() Kind          { return KindOTPInput }
func (OTPInput) ChildRefs() Children { return Children{} }
func (c OTPInput) Binding() Ref      { return c.Value }
func (c OTPInput) ResolveProps(l datamodel.Lookup) Props {
	length := c.Length
	if length <= 0 {
		length = 6
	}
	return OTPInputProps{Length: length, Value: c.Value.ResolveString(l)}
}

type Slider struct {
	Value    Ref     `json:"value"`
	MinValue float64 `json:"minValue,omitempty"`
	MaxValue float64 `json:"maxValue,omitempty"`
}

func (Slider) Kind() Kind          { return KindSlider }
func (Slider) ChildRefs() Children { return Children{} }
func (c Slider) Binding() Ref      { return c.Value }
func (c Slider) ResolveProps(l datamodel.Lookup) Props {
	hi := c.MaxValue
	if hi <= c.MinValue {
		hi = c.MinValue + 100
	}
	return SliderProps{Value: c.Value.ResolveNumber(l), Min: c.MinValue, Max: hi}
}

// Layout covers the container kinds: Column, Row and List.
type Layout struct {
	kind         Kind
	Children     Children `json:"children"`
	Distribution string   `json:"distribution,omitempty"`
	Alignment    string   `json:"alignment,omitempty"`
	Direction    string   `json:"direction,omitempty"`
}

// NewLayout builds a container of the given kind.
func NewLayout(kind Kind, children Children) Layout {
	return Layout{kind: kind, Children: children}
}

func (c Layout) Kind() Kind          { return c.kind }
func (c Layout) ChildRefs() Children { return c.Children }
func (c Layout) ResolveProps(datamodel.Lookup) Props {
	return LayoutProps{Container: c.kind, Distribution: c.Distribution, Alignment: c.Alignment, Direction: c.Direction}
}

type Card struct {
	Child string `json:"child"`
}

func (Card) Kind() Kind            { return KindCard }
func (c Card) ChildRefs() Children { return single(c.Child) }
func (Card) ResolveProps(datamodel.Lookup) Props {
	return LayoutProps{Container: KindCard}
}

// Unknown keeps a component of a kind this client does not implement.
type Unknown struct {
	Name string
	Raw  json.RawMessage
}

func (Unknown) Kind() Kind          { return KindUnknown }
func (Unknown) ChildRefs() Children { return Children{} }
func (c Unknown) ResolveProps(datamodel.Lookup) Props {
	return UnknownProps{Name: c.Name}
}

// DecodeComponent decodes the {"<Kind>": {...props}} wrapper.
func DecodeComponent(data []byte) (Component, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("component: %w", err)
	}
	if len(wrapper) != 1 {
		return nil, fmt.Errorf("component: expected exactly one kind key, got %d", len(wrapper))
	}
	for name, props := range wrapper {
		return decodeKind(Kind(name), props)
	}
	return nil, nil
}

func decodeKind(kind Kind, props json.RawMessage) (Component, error) {
	if len(bytes.TrimSpace(props)) == 0 {
		props = json.RawMessage("{}")
	}
	var (
		c   Component
		err error
	)
	switch kind {
	case KindText:
		var v Text
		err = json.Unmarshal(props, &v)
		c = v
	case KindHeading:
		var v Heading
		err = json.Unmarshal(props, &v)
		c = v
	case KindImage:
		var v Image
		err = json.Unmarshal(props, &v)
		c = v
	case KindDivider:
		var v Divider
		err = json.Unmarshal(props, &v)
		c = v
	case KindButton:
		var v Button
		err = json.Unmarshal(props, &v)
		c = v
	case KindTextField:
		var v TextField
		err = json.Unmarshal(props, &v)
		c = v
	case KindCheckBox:
		var v CheckBox
		err = json.Unmarshal(props, &v)
		c = v
	case KindOTPInput:
		var v OTPInput
		err = json.Unmarshal(props, &v)
		c = v
	case KindSlider:
		var v Slider
		err = json.Unmarshal(props, &v)
		c = v
	case KindColumn, KindRow, KindList:
		v := Layout{kind: kind}
		err = json.Unmarshal(props, &v)
		c = v
	case KindCard:
		var v Card
		err = json.Unmarshal(props, &v)
		c = v
	default:
		return Unknown{Name: string(kind), Raw: props}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s props: %w", kind, err)
	}
	return c, nil
}

// EncodeComponent produces the {"<Kind>": {...props}} wrapper.
func EncodeComponent(c Component) ([]byte, error) {
	name := string(c.Kind())
	if u, ok := c.(Unknown); ok {
		raw := u.Raw
		if len(raw) == 0 {
			raw = json.RawMessage("{}")
		}
		return json.Marshal(map[string]json.RawMessage{u.Name: raw})
	}
	props, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{name: props})
}
