// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib

import (
	sim "github.com/db47h/tilesim"
)

// propHigh selects pull level: true pulls up, false pulls down.
const propHigh = "high"

// Pull is a 1x1 pull resistor. Its single custom pin folds a weak
// default level into the connected wire: an otherwise undriven wire
// reads the pull level instead of StateNone, while any real driver
// wins.
//
//	Pins: out (custom)
//	Properties: high
//
type Pull struct{}

// PullDefaults returns the default property set of Pull.
func PullDefaults() *sim.PropertyStore {
	return sim.NewProperties(sim.Property{Name: propHigh, Value: true})
}

func (Pull) Size(props *sim.PropertyStore) sim.Size { return sim.Size{W: 1, H: 1} }

func (Pull) CreatePins(props *sim.PropertyStore) []sim.PinDesc {
	return []sim.PinDesc{
		{Name: pOut, Pos: sim.Pt(0, 0), Dir: sim.PinCustom},
	}
}

func (Pull) UpdateSignals(ctx *sim.StateContext, changed int) {}

func (Pull) MutatePinState(ctx *sim.StateContext, pin int, v *sim.WireState) {
	if *v == sim.StateNone {
		*v = sim.BoolState(ctx.Props().Bool(propHigh, true))
	}
}
