package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a JSON object that remembers field insertion order. Overwriting a
// field keeps its position; deleting and re-adding moves it to the end.
type Object struct {
	keys   []string
	fields map[string]json.RawMessage
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{fields: map[string]json.RawMessage{}}
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return len(o.keys)
}

// Keys returns the field names in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Has reports whether the field exists.
func (o *Object) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Get decodes the field into out. It reports false when the field is absent.
func (o *Object) Get(key string, out any) (bool, error) {
	raw, ok := o.fields[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode field %q: %w", key, err)
	}
	return true, nil
}

// Set encodes v into the field.
func (o *Object) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode field %q: %w", key, err)
	}
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = raw
	return nil
}

// Delete removes the field if present.
func (o *Object) Delete(key string) {
	if _, ok := o.fields[key]; !ok {
		return
	}
	delete(o.fields, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// MarshalJSON writes the fields in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(o.fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving field order. null decodes to an empty object.
func (o *Object) UnmarshalJSON(data []byte) error {
	o.keys = nil
	o.fields = map[string]json.RawMessage{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("storage: object must be a JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("storage: unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode field %q: %w", key, err)
		}
		if _, dup := o.fields[key]; !dup {
			o.keys = append(o.keys, key)
		}
		o.fields[key] = raw
	}
	_, err = dec.Token()
	return err
}

// DecodeObject parses a stored object; empty input is an empty object.
func DecodeObject(data []byte) (*Object, error) {
	obj := NewObject()
	if len(data) == 0 {
		return obj, nil
	}
	if err := obj.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return obj, nil
}

// EncodeObject serialises obj; a nil object encodes as {}.
func EncodeObject(obj *Object) ([]byte, error) {
	if obj == nil {
		return []byte("{}"), nil
	}
	return obj.MarshalJSON()
}
