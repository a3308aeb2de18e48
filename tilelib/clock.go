// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib

import (
	"time"

	sim "github.com/db47h/tilesim"
)

// propPeriod is the clock half-period in milliseconds.
const propPeriod = "period_ms"

// Clock is a 2x1 oscillator toggling its output every period.
//
//	Pins: out (output)
//	Properties: period_ms
//
type Clock struct{}

// ClockDefaults returns the default property set of Clock.
func ClockDefaults() *sim.PropertyStore {
	return sim.NewProperties(sim.Property{Name: propPeriod, Value: 500})
}

func (Clock) Size(props *sim.PropertyStore) sim.Size { return sim.Size{W: 2, H: 1} }

func (Clock) CreatePins(props *sim.PropertyStore) []sim.PinDesc {
	return []sim.PinDesc{
		{Name: pOut, Pos: sim.Pt(1, 0), Dir: sim.PinOutside},
	}
}

func (Clock) UpdateSignals(ctx *sim.StateContext, changed int) {
	high, _ := ctx.Internal().(bool)
	ctx.WritePin(0, sim.BoolState(high))
}

func (c Clock) Update(ctx *sim.StateContext) {
	high, _ := ctx.Internal().(bool)
	ctx.SetInternal(!high)
	c.UpdateSignals(ctx, -1)
}

func (Clock) UpdateInterval(ctx *sim.StateContext) (time.Duration, bool) {
	ms := ctx.Props().Int(propPeriod, 500)
	if ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
