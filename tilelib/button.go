// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib

import (
	"encoding/json"

	sim "github.com/db47h/tilesim"
)

// Button is a 3x3 manual toggle driving its output pin high while
// pressed. The pressed flag is per simulation state and survives
// serialization.
//
//	Pins: out (output)
//
type Button struct{}

func (Button) Size(props *sim.PropertyStore) sim.Size { return sim.Size{W: 3, H: 3} }

func (Button) CreatePins(props *sim.PropertyStore) []sim.PinDesc {
	return []sim.PinDesc{
		{Name: pOut, Pos: sim.Pt(2, 1), Dir: sim.PinOutside},
	}
}

func (Button) UpdateSignals(ctx *sim.StateContext, changed int) {
	pressed, _ := ctx.Internal().(bool)
	ctx.WritePin(0, sim.BoolState(pressed))
}

// Toggle flips the button in the given state.
func (b Button) Toggle(ctx *sim.StateContext) {
	pressed, _ := ctx.Internal().(bool)
	ctx.SetInternal(!pressed)
	b.UpdateSignals(ctx, -1)
}

func (Button) SaveInternal(internal any) json.RawMessage {
	pressed, _ := internal.(bool)
	raw, _ := json.Marshal(pressed)
	return raw
}

func (Button) LoadInternal(data json.RawMessage) (any, error) {
	var pressed bool
	if err := json.Unmarshal(data, &pressed); err != nil {
		return nil, err
	}
	return pressed, nil
}
