// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// A Property is one named configuration value of a circuit. The value
// is one of bool, int, string or Direction; the type is fixed at
// construction and Set enforces it.
//
type Property struct {
	Name  string
	Value any
}

// A PropertyStore is an ordered set of circuit properties. The order is
// the declaration order of the behavior's defaults and is preserved so
// that property editors and serialized output stay stable.
//
// The zero value is an empty store. A nil *PropertyStore behaves as an
// empty read-only store.
//
type PropertyStore struct {
	props []Property
}

// NewProperties returns a store holding the given properties in order.
//
func NewProperties(props ...Property) *PropertyStore {
	return &PropertyStore{props: props}
}

// Clone returns a deep copy of the store.
func (s *PropertyStore) Clone() *PropertyStore {
	if s == nil {
		return &PropertyStore{}
	}
	c := &PropertyStore{props: make([]Property, len(s.props))}
	copy(c.props, s.props)
	return c
}

func (s *PropertyStore) find(name string) *Property {
	if s == nil {
		return nil
	}
	for i := range s.props {
		if s.props[i].Name == name {
			return &s.props[i]
		}
	}
	return nil
}

// Get returns the value of the named property.
func (s *PropertyStore) Get(name string) (v any, ok bool) {
	p := s.find(name)
	if p == nil {
		return nil, false
	}
	return p.Value, true
}

// Bool returns the named bool property, or def if absent or of another
// type.
func (s *PropertyStore) Bool(name string, def bool) bool {
	if p := s.find(name); p != nil {
		if v, ok := p.Value.(bool); ok {
			return v
		}
	}
	return def
}

// Int returns the named int property, or def.
func (s *PropertyStore) Int(name string, def int) int {
	if p := s.find(name); p != nil {
		if v, ok := p.Value.(int); ok {
			return v
		}
	}
	return def
}

// String returns the named string property, or def.
func (s *PropertyStore) String(name string, def string) string {
	if p := s.find(name); p != nil {
		if v, ok := p.Value.(string); ok {
			return v
		}
	}
	return def
}

// Direction returns the named Direction property, or def.
func (s *PropertyStore) Direction(name string, def Direction) Direction {
	if p := s.find(name); p != nil {
		if v, ok := p.Value.(Direction); ok {
			return v
		}
	}
	return def
}

// Set updates the named property. The new value must have the same type
// as the current one; setting an unknown property is an error.
//
func (s *PropertyStore) Set(name string, v any) error {
	p := s.find(name)
	if p == nil {
		return errors.Errorf("unknown property %q", name)
	}
	if !sameKind(p.Value, v) {
		return errors.Errorf("property %q: cannot assign %T to %T", name, v, p.Value)
	}
	p.Value = v
	return nil
}

func sameKind(a, b any) bool {
	switch a.(type) {
	case bool:
		_, ok := b.(bool)
		return ok
	case int:
		_, ok := b.(int)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	case Direction:
		_, ok := b.(Direction)
		return ok
	}
	return false
}

// Each calls fn for every property in declaration order.
func (s *PropertyStore) Each(fn func(name string, v any)) {
	if s == nil {
		return
	}
	for i := range s.props {
		fn(s.props[i].Name, s.props[i].Value)
	}
}

// Len returns the number of properties.
func (s *PropertyStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.props)
}

// Save serializes the store to raw JSON values keyed by property name.
//
func (s *PropertyStore) Save() map[string]json.RawMessage {
	if s == nil || len(s.props) == 0 {
		return nil
	}
	m := make(map[string]json.RawMessage, len(s.props))
	for i := range s.props {
		raw, err := json.Marshal(s.props[i].Value)
		if err != nil {
			continue
		}
		m[s.props[i].Name] = raw
	}
	return m
}

// Load applies serialized values to the store's existing properties.
// Unknown names and values that fail to decode into the property's
// current type are skipped, leaving the default in place.
//
func (s *PropertyStore) Load(data map[string]json.RawMessage) {
	if s == nil {
		return
	}
	for i := range s.props {
		raw, ok := data[s.props[i].Name]
		if !ok {
			continue
		}
		switch s.props[i].Value.(type) {
		case bool:
			var v bool
			if json.Unmarshal(raw, &v) == nil {
				s.props[i].Value = v
			}
		case int:
			var v int
			if json.Unmarshal(raw, &v) == nil {
				s.props[i].Value = v
			}
		case string:
			var v string
			if json.Unmarshal(raw, &v) == nil {
				s.props[i].Value = v
			}
		case Direction:
			var v Direction
			if json.Unmarshal(raw, &v) == nil {
				s.props[i].Value = v
			}
		}
	}
}
