// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package tilelib provides a library of placeable circuit behaviors
// for tilesim boards: logic gates, input devices, clocks, measurement
// parts and a scripted behavior.
//
package tilelib

import (
	sim "github.com/db47h/tilesim"
)

// common pin names
const (
	pA   = "a"
	pB   = "b"
	pIn  = "in"
	pOut = "out"
)

// propDir is the orientation property shared by directional parts.
const propDir = "dir"

// directional resolves the common "dir" property.
func direction(props *sim.PropertyStore) sim.Direction {
	return props.Direction(propDir, sim.Right)
}

// Not is a 2x1 inverter: out = !in.
//
//	Pins: in (input), out (output)
//	Properties: dir
//
type Not struct{}

var notSize = sim.Size{W: 2, H: 1}

// NotDefaults returns the default property set of Not.
func NotDefaults() *sim.PropertyStore {
	return sim.NewProperties(sim.Property{Name: propDir, Value: sim.Right})
}

// notLayout normalizes the dir property against the part's native
// Right orientation.
func notLayout(props *sim.PropertyStore) (sim.Direction, sim.Size) {
	d := direction(props).RotateCCWBy(sim.Right)
	return d, d.RotateSize(notSize)
}

func (Not) Size(props *sim.PropertyStore) sim.Size {
	_, sz := notLayout(props)
	return sz
}

func (Not) CreatePins(props *sim.PropertyStore) []sim.PinDesc {
	d, sz := notLayout(props)
	return []sim.PinDesc{
		{Name: pIn, Pos: d.RotatePos(sim.Pt(0, 0), sz), Dir: sim.PinInside},
		{Name: pOut, Pos: d.RotatePos(sim.Pt(1, 0), sz), Dir: sim.PinOutside},
	}
}

func (Not) UpdateSignals(ctx *sim.StateContext, changed int) {
	ctx.WritePin(1, invert(ctx.PinWireValue(0)))
}

func (Not) PropChanged(name string) (resize, recreatePins bool) {
	return name == propDir, name == propDir
}

func (Not) ApplyProps(props *sim.PropertyStore, changed string) {}

func invert(v sim.WireState) sim.WireState {
	switch v {
	case sim.StateTrue:
		return sim.StateFalse
	case sim.StateFalse:
		return sim.StateTrue
	default:
		return sim.StateError
	}
}

// Gate is a 3x2 two-input gate. Undriven or conflicting inputs yield
// StateError on the output.
//
//	Pins: a, b (inputs), out (output)
//
type Gate struct {
	fn func(a, b bool) bool
}

var gateSize = sim.Size{W: 3, H: 2}

func (g *Gate) Size(props *sim.PropertyStore) sim.Size { return gateSize }

func (g *Gate) CreatePins(props *sim.PropertyStore) []sim.PinDesc {
	return []sim.PinDesc{
		{Name: pA, Pos: sim.Pt(0, 0), Dir: sim.PinInside},
		{Name: pB, Pos: sim.Pt(0, 1), Dir: sim.PinInside},
		{Name: pOut, Pos: sim.Pt(2, 0), Dir: sim.PinOutside},
	}
}

func (g *Gate) UpdateSignals(ctx *sim.StateContext, changed int) {
	a, aok := ctx.PinWireValue(0).Bool()
	b, bok := ctx.PinWireValue(1).Bool()
	if !aok || !bok {
		ctx.WritePin(2, sim.StateError)
		return
	}
	ctx.WritePin(2, sim.BoolState(g.fn(a, b)))
}

func newGate(fn func(a, b bool) bool) func() sim.Behavior {
	return func() sim.Behavior { return &Gate{fn: fn} }
}

var (
	newAnd  = newGate(func(a, b bool) bool { return a && b })
	newOr   = newGate(func(a, b bool) bool { return a || b })
	newXor  = newGate(func(a, b bool) bool { return a != b })
	newNand = newGate(func(a, b bool) bool { return !(a && b) })
	newNor  = newGate(func(a, b bool) bool { return !(a || b) })
	newXnor = newGate(func(a, b bool) bool { return a == b })
)
