// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib

import (
	sim "github.com/db47h/tilesim"
)

// Registry returns a preview registry holding every part in the
// library, with default properties.
//
func Registry() sim.Previews {
	r := make(sim.Previews)
	r.Add(&sim.Preview{Type: "not", Props: NotDefaults(), New: func() sim.Behavior { return Not{} }})
	r.Add(&sim.Preview{Type: "and", New: newAnd})
	r.Add(&sim.Preview{Type: "or", New: newOr})
	r.Add(&sim.Preview{Type: "xor", New: newXor})
	r.Add(&sim.Preview{Type: "nand", New: newNand})
	r.Add(&sim.Preview{Type: "nor", New: newNor})
	r.Add(&sim.Preview{Type: "xnor", New: newXnor})
	r.Add(&sim.Preview{Type: "button", New: func() sim.Behavior { return Button{} }})
	r.Add(&sim.Preview{Type: "clock", Props: ClockDefaults(), New: func() sim.Behavior { return Clock{} }})
	r.Add(&sim.Preview{Type: "freqmeter", New: NewFreqMeter})
	r.Add(&sim.Preview{Type: "pull", Props: PullDefaults(), New: func() sim.Behavior { return Pull{} }})
	r.Add(&sim.Preview{Type: "constant", Props: ConstantDefaults(), New: func() sim.Behavior { return Constant{} }})
	r.Add(&sim.Preview{Type: "script", Props: ScriptDefaults(), New: NewScript})
	return r
}
