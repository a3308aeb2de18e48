// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	sim "github.com/db47h/tilesim"
)

// LoadDefaults reads a YAML document of per-type property defaults and
// applies it to a preview registry:
//
//	clock:
//	  period_ms: 100
//	not:
//	  dir: left
//
// Unknown types and properties are skipped; type-mismatched values are
// an error.
//
func LoadDefaults(r io.Reader, previews sim.Previews) error {
	var doc map[string]map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return errors.Wrap(err, "decoding property defaults")
	}

	for ty, props := range doc {
		p, ok := previews[ty]
		if !ok {
			continue
		}
		for name, raw := range props {
			if _, ok := p.Props.Get(name); !ok {
				continue
			}
			v, err := coerce(p, name, raw)
			if err != nil {
				return errors.Wrapf(err, "%s.%s", ty, name)
			}
			if err := p.Props.Set(name, v); err != nil {
				return errors.Wrapf(err, "%s.%s", ty, name)
			}
		}
	}
	return nil
}

// coerce maps YAML scalar types onto the property's current type.
func coerce(p *sim.Preview, name string, raw any) (any, error) {
	cur, _ := p.Props.Get(name)
	switch cur.(type) {
	case sim.Direction:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.Errorf("expected direction, got %T", raw)
		}
		var d sim.Direction
		if err := d.UnmarshalJSON([]byte(`"` + s + `"`)); err != nil {
			return nil, err
		}
		return d, nil
	case int:
		if n, ok := raw.(int); ok {
			return n, nil
		}
		return nil, errors.Errorf("expected int, got %T", raw)
	default:
		return raw, nil
	}
}
