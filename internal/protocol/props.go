package protocol

// Props is the flat, fully resolved property set handed to a renderer.
type Props interface {
	PropsKind() Kind
}

type TextProps struct {
	Text      string
	UsageHint string
}

type HeadingProps struct {
	Text  string
	Level int
}

type ImageProps struct {
	URL string
	Fit string
}

type DividerProps struct {
	Axis string
}

type ButtonProps struct {
	Label   string
	Primary bool
	Action  string
}

type TextFieldProps struct {
	Label     string
	Value     string
	FieldType string
}

type CheckBoxProps struct {
	Label   string
	Checked bool
}

type OTPInputProps struct {
	Length int
	Value  string
}

type SliderProps struct {
	Value float64
	Min   float64
	Max   float64
}

// LayoutProps serves every container kind; Container says which.
type LayoutProps struct {
	Container    Kind
	Distribution string
	Alignment    string
	Direction    string
}

type UnknownProps struct {
	Name string
}

func (TextProps) PropsKind() Kind      { return KindText }
func (HeadingProps) PropsKind() Kind   { return KindHeading }
func (ImageProps) PropsKind() Kind     { return KindImage }
func (DividerProps) PropsKind() Kind   { return KindDivider }
func (ButtonProps) PropsKind() Kind    { return KindButton }
func (TextFieldProps) PropsKind() Kind { return KindTextField }
func (CheckBoxProps) PropsKind() Kind  { return KindCheckBox }
func (OTPInputProps) PropsKind() Kind  { return KindOTPInput }
func (SliderProps) PropsKind() Kind    { return KindSlider }
func (p LayoutProps) PropsKind() Kind  { return p.Container }
func (UnknownProps) PropsKind() Kind   { return KindUnknown }
