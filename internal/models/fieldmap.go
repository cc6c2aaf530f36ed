package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Reserved keys inside a characteristics block.
const (
	SizeKey   = "size"
	NestedKey = "characteristics"
)

// FieldKind identifies the variant held by a FieldValue.
type FieldKind int

const (
	KindScalar FieldKind = iota
	KindTypedArray
	KindNested
	KindSize
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindTypedArray:
		return "typed_array"
	case KindNested:
		return "nested"
	case KindSize:
		return "size"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldValue is one entry of a FieldMap. The set of variants is closed:
// Scalar, *TypedArray, *FieldMap and BlockSize.
type FieldValue interface {
	Kind() FieldKind
}

// Scalar is a single text value taken from an inline "key: value" pair.
type Scalar string

func (Scalar) Kind() FieldKind { return KindScalar }

// TypedArray is a field declared as "name: datatype[count]" and filled by the
// bracketed value lines that follow it. Count is advisory.
type TypedArray struct {
	Datatype  string   `json:"datatype" cbor:"datatype"`
	Count     int      `json:"count" cbor:"count"`
	CountText string   `json:"countText,omitempty" cbor:"countText,omitempty"`
	Values    []string `json:"values" cbor:"values"`
}

// NewTypedArray creates an empty typed array.
func NewTypedArray(datatype string, count int) *TypedArray {
	return &TypedArray{
		Datatype: datatype,
		Count:    count,
		Values:   []string{},
	}
}

func (*TypedArray) Kind() FieldKind { return KindTypedArray }

// Append adds decoded values in order.
func (t *TypedArray) Append(values ...string) {
	t.Values = append(t.Values, values...)
}

// BlockSize records the "size: N, data count: N, entry count: N" annotation
// printed at the top of a characteristics block.
type BlockSize struct {
	Size       int `json:"size" cbor:"size"`
	DataCount  int `json:"dataCount" cbor:"dataCount"`
	EntryCount int `json:"entryCount" cbor:"entryCount"`
}

func (BlockSize) Kind() FieldKind { return KindSize }

// FieldMap is an insertion-ordered mapping of field names to values for one
// characteristics block. The zero value is not usable; use NewFieldMap.
type FieldMap struct {
	keys   []string
	values map[string]FieldValue
}

// NewFieldMap creates an empty FieldMap.
func NewFieldMap() *FieldMap {
	return &FieldMap{values: make(map[string]FieldValue)}
}

// Set stores v under name. An existing name keeps its original position.
func (m *FieldMap) Set(name string, v FieldValue) {
	if _, exists := m.values[name]; !exists {
		m.keys = append(m.keys, name)
	}
	m.values[name] = v
}

// Get returns the value stored under name.
func (m *FieldMap) Get(name string) (FieldValue, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[name]
	return v, ok
}

// Delete removes name, preserving the order of the remaining keys.
func (m *FieldMap) Delete(name string) {
	if _, ok := m.values[name]; !ok {
		return
	}
	delete(m.values, name)
	for i, k := range m.keys {
		if k == name {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries, reserved ones included.
func (m *FieldMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the field names in insertion order.
func (m *FieldMap) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *FieldMap) Range(fn func(name string, v FieldValue) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Scalar returns the scalar stored under name.
func (m *FieldMap) Scalar(name string) (string, bool) {
	v, ok := m.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(Scalar)
	return string(s), ok
}

// TypedArray returns the typed array stored under name.
func (m *FieldMap) TypedArray(name string) (*TypedArray, bool) {
	v, ok := m.Get(name)
	if !ok {
		return nil, false
	}
	t, ok := v.(*TypedArray)
	return t, ok
}

// SetSize stores the block size annotation under the reserved size key.
func (m *FieldMap) SetSize(size BlockSize) {
	m.Set(SizeKey, size)
}

// Size returns the block size annotation, if one was recorded.
func (m *FieldMap) Size() (BlockSize, bool) {
	v, ok := m.Get(SizeKey)
	if !ok {
		return BlockSize{}, false
	}
	s, ok := v.(BlockSize)
	return s, ok
}

// Nested returns the nested characteristics sub-map, or nil.
func (m *FieldMap) Nested() *FieldMap {
	v, ok := m.Get(NestedKey)
	if !ok {
		return nil
	}
	nested, _ := v.(*FieldMap)
	return nested
}

// OpenNested returns the nested characteristics sub-map, creating it when
// absent. Nesting never goes deeper than one level.
func (m *FieldMap) OpenNested() *FieldMap {
	if nested := m.Nested(); nested != nil {
		return nested
	}
	nested := NewFieldMap()
	m.Set(NestedKey, nested)
	return nested
}

func (*FieldMap) Kind() FieldKind { return KindNested }

// CheckSize compares the declared entry count against the typed fields
// actually collected. ok is true when no size was declared.
func (m *FieldMap) CheckSize() (declared, actual int, ok bool) {
	size, hasSize := m.Size()
	if !hasSize {
		return 0, 0, true
	}
	m.Range(func(_ string, v FieldValue) bool {
		if v.Kind() == KindTypedArray {
			actual++
		}
		return true
	})
	return size.EntryCount, actual, size.EntryCount == actual
}

// MarshalJSON renders the map as a JSON object in insertion order.
func (m *FieldMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		val, err := marshalNoEscape(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// fieldEntry is the CBOR wire form of one FieldMap entry.
type fieldEntry struct {
	Name   string      `cbor:"n"`
	Kind   FieldKind   `cbor:"k"`
	Text   string      `cbor:"t,omitempty"`
	Array  *TypedArray `cbor:"a,omitempty"`
	Nested *FieldMap   `cbor:"m,omitempty"`
	Size   *BlockSize  `cbor:"s,omitempty"`
}

// MarshalCBOR encodes the map as an ordered entry list.
func (m *FieldMap) MarshalCBOR() ([]byte, error) {
	if m == nil {
		return cbor.Marshal(nil)
	}
	entries := make([]fieldEntry, 0, len(m.keys))
	for _, k := range m.keys {
		e := fieldEntry{Name: k, Kind: m.values[k].Kind()}
		switch v := m.values[k].(type) {
		case Scalar:
			e.Text = string(v)
		case *TypedArray:
			e.Array = v
		case *FieldMap:
			e.Nested = v
		case BlockSize:
			size := v
			e.Size = &size
		}
		entries = append(entries, e)
	}
	return cbor.Marshal(entries)
}

// UnmarshalCBOR rebuilds the map from its ordered entry list.
func (m *FieldMap) UnmarshalCBOR(data []byte) error {
	var entries []fieldEntry
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return err
	}
	m.keys = nil
	m.values = make(map[string]FieldValue, len(entries))
	for _, e := range entries {
		switch e.Kind {
		case KindScalar:
			m.Set(e.Name, Scalar(e.Text))
		case KindTypedArray:
			if e.Array == nil {
				e.Array = NewTypedArray("", 0)
			}
			if e.Array.Values == nil {
				e.Array.Values = []string{}
			}
			m.Set(e.Name, e.Array)
		case KindNested:
			if e.Nested == nil {
				e.Nested = NewFieldMap()
			}
			m.Set(e.Name, e.Nested)
		case KindSize:
			if e.Size != nil {
				m.Set(e.Name, *e.Size)
			}
		default:
			return fmt.Errorf("field %q: unknown kind %d", e.Name, int(e.Kind))
		}
	}
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
