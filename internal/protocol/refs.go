package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/yolodolo42/a2ui/internal/datamodel"
)

// Ref is a property reference: a literal, a data model path, or a path with a
// literal fallback.
type Ref struct {
	Path    string
	Literal datamodel.Value
}

// LiteralString builds a literal string ref.
func LiteralString(s string) Ref { return Ref{Literal: datamodel.String(s)} }

// PathRef builds a data-bound ref.
func PathRef(path string) Ref { return Ref{Path: path} }

func (r Ref) IsZero() bool  { return r.Path == "" && !r.Literal.IsValid() }
func (r Ref) IsBound() bool { return r.Path != "" }

// Resolve returns the bound value, falling back to the literal. The boolean
// is false when neither yields a value.
func (r Ref) Resolve(l datamodel.Lookup) (datamodel.Value, bool) {
	if r.Path != "" && l != nil {
		if v, ok := l.Get(r.Path); ok {
			return v, true
		}
	}
	if r.Literal.IsValid() {
		return r.Literal, true
	}
	return datamodel.Value{}, false
}

// ResolveString formats the resolved value; absent resolves to "".
func (r Ref) ResolveString(l datamodel.Lookup) string {
	v, ok := r.Resolve(l)
	if !ok {
		return ""
	}
	return v.String()
}

// ResolveBool is true only for a resolved boolean true.
func (r Ref) ResolveBool(l datamodel.Lookup) bool {
	v, ok := r.Resolve(l)
	if !ok {
		return false
	}
	b, _ := v.Boolean()
	return b
}

// ResolveNumber returns the resolved number, or 0.
func (r Ref) ResolveNumber(l datamodel.Lookup) float64 {
	v, ok := r.Resolve(l)
	if !ok {
		return 0
	}
	n, _ := v.Num()
	return n
}

type refWire struct {
	Path           string   `json:"path,omitempty"`
	LiteralString  *string  `json:"literalString,omitempty"`
	LiteralNumber  *float64 `json:"literalNumber,omitempty"`
	LiteralBoolean *bool    `json:"literalBoolean,omitempty"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}

	// Bare scalars are accepted as literals.
	if data[0] != '{' {
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		v, err := datamodel.FromInterface(raw)
		if err != nil {
			return fmt.Errorf("invalid literal: %w", err)
		}
		*r = Ref{Literal: v}
		return nil
	}

	var w refWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Ref{Path: w.Path}
	switch {
	case w.LiteralString != nil:
		out.Literal = datamodel.String(*w.LiteralString)
	case w.LiteralNumber != nil:
		out.Literal = datamodel.Number(*w.LiteralNumber)
	case w.LiteralBoolean != nil:
		out.Literal = datamodel.Bool(*w.LiteralBoolean)
	}
	*r = out
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	w := refWire{Path: r.Path}
	switch r.Literal.Kind() {
	case datamodel.KindString:
		s, _ := r.Literal.Str()
		w.LiteralString = &s
	case datamodel.KindNumber:
		n, _ := r.Literal.Num()
		w.LiteralNumber = &n
	case datamodel.KindBool:
		b, _ := r.Literal.Boolean()
		w.LiteralBoolean = &b
	}
	return json.Marshal(w)
}

// ContextEntry is one key of an action's context.
type ContextEntry struct {
	Key   string `json:"key"`
	Value Ref    `json:"value"`
}

// Action is the declarative action descriptor on an interactive component.
type Action struct {
	Name    string         `json:"name"`
	Context []ContextEntry `json:"context,omitempty"`
}

func (a Action) IsZero() bool { return a.Name == "" }

// UnmarshalJSON accepts context either as a list of {key, value} entries or
// as a map of key to ref. Map keys are ordered lexically.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w struct {
		Name    string          `json:"name"`
		Context json.RawMessage `json:"context"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Action{Name: w.Name}

	ctx := bytes.TrimSpace(w.Context)
	switch {
	case len(ctx) == 0 || bytes.Equal(ctx, []byte("null")):
	case ctx[0] == '[':
		if err := json.Unmarshal(ctx, &out.Context); err != nil {
			return fmt.Errorf("action %q context: %w", w.Name, err)
		}
	default:
		var m map[string]Ref
		if err := json.Unmarshal(ctx, &m); err != nil {
			return fmt.Errorf("action %q context: %w", w.Name, err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out.Context = append(out.Context, ContextEntry{Key: k, Value: m[k]})
		}
	}
	*a = out
	return nil
}
