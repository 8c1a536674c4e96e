package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yolodolo42/a2ui/internal/datamodel"
)

// ErrMalformedMessage marks inbound messages that cannot be classified or
// decoded. They are logged and dropped, never fatal.
var ErrMalformedMessage = errors.New("malformed message")

// MessageType discriminates inbound messages.
type MessageType string

const (
	TypeSurfaceUpdate   MessageType = "surfaceUpdate"
	TypeDataModelUpdate MessageType = "dataModelUpdate"
	TypeBeginRendering  MessageType = "beginRendering"
	TypeDeleteSurface   MessageType = "deleteSurface"
)

// MessageTypes lists the known inbound types.
func MessageTypes() []MessageType {
	return []MessageType{TypeSurfaceUpdate, TypeDataModelUpdate, TypeBeginRendering, TypeDeleteSurface}
}

func (t MessageType) known() bool {
	for _, k := range MessageTypes() {
		if t == k {
			return true
		}
	}
	return false
}

// ComponentDef is one component entry of a surfaceUpdate.
type ComponentDef struct {
	ID        string
	Component Component
}

func (d *ComponentDef) UnmarshalJSON(data []byte) error {
	var w struct {
		ID        string          `json:"id"`
		Component json.RawMessage `json:"component"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return fmt.Errorf("component without id")
	}
	c, err := DecodeComponent(w.Component)
	if err != nil {
		return fmt.Errorf("component %q: %w", w.ID, err)
	}
	*d = ComponentDef{ID: w.ID, Component: c}
	return nil
}

func (d ComponentDef) MarshalJSON() ([]byte, error) {
	c, err := EncodeComponent(d.Component)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID        string          `json:"id"`
		Component json.RawMessage `json:"component"`
	}{d.ID, c})
}

type SurfaceUpdate struct {
	SurfaceID  string         `json:"surfaceId"`
	Components []ComponentDef `json:"components"`
}

// ContentEntry is one key of a dataModelUpdate. Exactly one value field is
// expected; when several are set, string wins over number over boolean over
// map.
type ContentEntry struct {
	Key          string         `json:"key"`
	ValueString  *string        `json:"valueString,omitempty"`
	ValueNumber  *float64       `json:"valueNumber,omitempty"`
	ValueBoolean *bool          `json:"valueBoolean,omitempty"`
	ValueMap     []ContentEntry `json:"valueMap,omitempty"`
}

// Value converts the entry. The boolean is false when no value field is set.
func (e ContentEntry) Value() (datamodel.Value, bool) {
	switch {
	case e.ValueString != nil:
		return datamodel.String(*e.ValueString), true
	case e.ValueNumber != nil:
		return datamodel.Number(*e.ValueNumber), true
	case e.ValueBoolean != nil:
		return datamodel.Bool(*e.ValueBoolean), true
	case e.ValueMap != nil:
		m := make(map[string]datamodel.Value, len(e.ValueMap))
		for _, child := range e.ValueMap {
			if v, ok := child.Value(); ok && child.Key != "" {
				m[child.Key] = v
			}
		}
		return datamodel.Map(m), true
	default:
		return datamodel.Value{}, false
	}
}

// ContentFromValue is the inverse of ContentEntry.Value.
func ContentFromValue(key string, v datamodel.Value) ContentEntry {
	e := ContentEntry{Key: key}
	switch v.Kind() {
	case datamodel.KindString:
		s, _ := v.Str()
		e.ValueString = &s
	case datamodel.KindNumber:
		n, _ := v.Num()
		e.ValueNumber = &n
	case datamodel.KindBool:
		b, _ := v.Boolean()
		e.ValueBoolean = &b
	case datamodel.KindMap:
		fields, _ := v.Fields()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		datamodel.SortKeys(keys)
		e.ValueMap = make([]ContentEntry, 0, len(keys))
		for _, k := range keys {
			e.ValueMap = append(e.ValueMap, ContentFromValue(k, fields[k]))
		}
	}
	return e
}

type DataModelUpdate struct {
	SurfaceID string         `json:"surfaceId"`
	Path      string         `json:"path,omitempty"`
	Contents  []ContentEntry `json:"contents"`
}

// Entries converts the contents, skipping entries without a key or value.
func (u DataModelUpdate) Entries() []datamodel.Entry {
	out := make([]datamodel.Entry, 0, len(u.Contents))
	for _, c := range u.Contents {
		v, ok := c.Value()
		if !ok || c.Key == "" {
			continue
		}
		out = append(out, datamodel.Entry{Key: c.Key, Value: v})
	}
	return out
}

type BeginRendering struct {
	SurfaceID       string `json:"surfaceId"`
	Root            string `json:"root,omitempty"`
	RootComponentID string `json:"rootComponentId,omitempty"`
}

// RootID returns the root component id, accepting either field name.
func (b BeginRendering) RootID() string {
	if b.Root != "" {
		return b.Root
	}
	return b.RootComponentID
}

type DeleteSurface struct {
	SurfaceID string `json:"surfaceId"`
}

// Envelope is one decoded inbound message. Exactly one payload is set,
// matching Type.
type Envelope struct {
	Type      MessageType
	MessageID string

	SurfaceUpdate   *SurfaceUpdate
	DataModelUpdate *DataModelUpdate
	BeginRendering  *BeginRendering
	DeleteSurface   *DeleteSurface
}

// SurfaceID returns the addressed surface.
func (e Envelope) SurfaceID() string {
	switch {
	case e.SurfaceUpdate != nil:
		return e.SurfaceUpdate.SurfaceID
	case e.DataModelUpdate != nil:
		return e.DataModelUpdate.SurfaceID
	case e.BeginRendering != nil:
		return e.BeginRendering.SurfaceID
	case e.DeleteSurface != nil:
		return e.DeleteSurface.SurfaceID
	default:
		return ""
	}
}

// Decode parses one inbound message in either the flat form
// ({"type": "surfaceUpdate", "surfaceId": ...}) or the keyed form
// ({"surfaceUpdate": {"surfaceId": ...}}). Every failure wraps
// ErrMalformedMessage.
func Decode(data []byte) (Envelope, error) {
	var head struct {
		Type      MessageType `json:"type"`
		MessageID string      `json:"messageId"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	typ, payload := head.Type, json.RawMessage(data)
	if typ == "" {
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(data, &keyed); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		for _, t := range MessageTypes() {
			raw, ok := keyed[string(t)]
			if !ok {
				continue
			}
			if typ != "" {
				return Envelope{}, fmt.Errorf("%w: more than one message type", ErrMalformedMessage)
			}
			typ, payload = t, raw
		}
		if typ == "" {
			return Envelope{}, fmt.Errorf("%w: missing type discriminator", ErrMalformedMessage)
		}
	}
	if !typ.known() {
		return Envelope{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, typ)
	}

	env := Envelope{Type: typ, MessageID: head.MessageID}
	var err error
	switch typ {
	case TypeSurfaceUpdate:
		env.SurfaceUpdate = &SurfaceUpdate{}
		err = json.Unmarshal(payload, env.SurfaceUpdate)
	case TypeDataModelUpdate:
		env.DataModelUpdate = &DataModelUpdate{}
		err = json.Unmarshal(payload, env.DataModelUpdate)
	case TypeBeginRendering:
		env.BeginRendering = &BeginRendering{}
		err = json.Unmarshal(payload, env.BeginRendering)
		if err == nil && env.BeginRendering.RootID() == "" {
			err = fmt.Errorf("beginRendering without root")
		}
	case TypeDeleteSurface:
		env.DeleteSurface = &DeleteSurface{}
		err = json.Unmarshal(payload, env.DeleteSurface)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, typ, err)
	}
	if env.SurfaceID() == "" {
		return Envelope{}, fmt.Errorf("%w: %s without surfaceId", ErrMalformedMessage, typ)
	}
	return env, nil
}

// MarshalJSON writes the flat form.
func (e Envelope) MarshalJSON() ([]byte, error) {
	var payload any
	switch e.Type {
	case TypeSurfaceUpdate:
		payload = e.SurfaceUpdate
	case TypeDataModelUpdate:
		payload = e.DataModelUpdate
	case TypeBeginRendering:
		payload = e.BeginRendering
	case TypeDeleteSurface:
		payload = e.DeleteSurface
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, e.Type)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(e.Type)
	if e.MessageID != "" {
		fields["messageId"], _ = json.Marshal(e.MessageID)
	}
	return json.Marshal(fields)
}

// UserAction is the resolved, outbound record of one user gesture.
type UserAction struct {
	Name              string         `json:"name"`
	SurfaceID         string         `json:"surfaceId"`
	SourceComponentID string         `json:"sourceComponentId"`
	Context           map[string]any `json:"context"`
	Timestamp         time.Time      `json:"timestamp"`
}

// Lookup returns a context value. present is true for keys that were
// resolved, including those whose path was absent (value nil).
func (a UserAction) Lookup(key string) (value any, present bool) {
	value, present = a.Context[key]
	return value, present
}
