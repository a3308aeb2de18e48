// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib

import (
	sim "github.com/db47h/tilesim"
)

// propValue is the level a Constant drives.
const propValue = "value"

// Constant is a 1x1 part driving a fixed level onto its output.
//
//	Pins: out (output)
//	Properties: value
//
type Constant struct{}

// ConstantDefaults returns the default property set of Constant.
func ConstantDefaults() *sim.PropertyStore {
	return sim.NewProperties(sim.Property{Name: propValue, Value: true})
}

func (Constant) Size(props *sim.PropertyStore) sim.Size { return sim.Size{W: 1, H: 1} }

func (Constant) CreatePins(props *sim.PropertyStore) []sim.PinDesc {
	return []sim.PinDesc{
		{Name: pOut, Pos: sim.Pt(0, 0), Dir: sim.PinOutside},
	}
}

func (Constant) UpdateSignals(ctx *sim.StateContext, changed int) {
	ctx.WritePin(0, sim.BoolState(ctx.Props().Bool(propValue, true)))
}
