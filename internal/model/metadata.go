package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DocumentMetadata is the normalized, format-agnostic view of document
// properties. Fields the source format does not expose stay zero; anything
// without a direct equivalent lands in Properties under a processor-specific
// key. Consumers must not assume a given property key exists.
type DocumentMetadata struct {
	Title      string               `json:"title,omitempty"`
	Author     string               `json:"author,omitempty"`
	Subject    string               `json:"subject,omitempty"`
	Creator    string               `json:"creator,omitempty"`
	Producer   string               `json:"producer,omitempty"`
	CreatedAt  *time.Time           `json:"createdAt,omitempty"`
	ModifiedAt *time.Time           `json:"modifiedAt,omitempty"`
	PageCount  int                  `json:"pageCount"`
	Properties map[string]MetaValue `json:"properties,omitempty"`
}

// SetProperty stores a custom property, allocating the bag on first use.
func (m *DocumentMetadata) SetProperty(key string, v MetaValue) {
	if m.Properties == nil {
		m.Properties = make(map[string]MetaValue)
	}
	m.Properties[key] = v
}

// Property looks up a custom property; ok is false when the key is absent.
func (m *DocumentMetadata) Property(key string) (MetaValue, bool) {
	v, ok := m.Properties[key]
	return v, ok
}

// MetaKind tags the dynamic type held by a MetaValue.
type MetaKind int

const (
	KindString MetaKind = iota
	KindInt
	KindFloat
	KindBool
	KindStrings
)

// MetaValue is a tagged value for the custom-property bag. It keeps the bag
// schema-less on the wire while avoiding untyped interface{} in code.
type MetaValue struct {
	Kind    MetaKind
	Str     string
	Int     int64
	Float   float64
	Bool    bool
	Strings []string
}

func String(s string) MetaValue    { return MetaValue{Kind: KindString, Str: s} }
func Int(i int64) MetaValue        { return MetaValue{Kind: KindInt, Int: i} }
func Float(f float64) MetaValue    { return MetaValue{Kind: KindFloat, Float: f} }
func Bool(b bool) MetaValue        { return MetaValue{Kind: KindBool, Bool: b} }
func Strings(s []string) MetaValue { return MetaValue{Kind: KindStrings, Strings: s} }

// MarshalJSON encodes the value as its natural JSON form.
func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindStrings:
		return json.Marshal(v.Strings)
	}
	return nil, fmt.Errorf("unknown meta value kind %d", v.Kind)
}

// UnmarshalJSON decodes a scalar or string array back into a tagged value.
// Whole JSON numbers decode as ints, everything else numeric as float.
func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = String(s)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}
	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*v = Int(i)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Float(f)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*v = Strings(list)
		return nil
	}
	return fmt.Errorf("unsupported meta value: %s", string(data))
}
