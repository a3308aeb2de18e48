// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib

import (
	"time"

	sim "github.com/db47h/tilesim"
)

// freqWindow is the number of rising edges the meter averages over.
const freqWindow = 64

// freqState is the meter's per-state data: the last seen input level
// and a ring of rising edge timestamps.
type freqState struct {
	last  sim.WireState
	edges []time.Time
	head  int
}

// FreqMeter is a 5x3 frequency meter recording rising edges on its
// input. It drives nothing.
//
//	Pins: in (input)
//
type FreqMeter struct {
	// now is overridable for tests.
	now func() time.Time
}

// NewFreqMeter returns a frequency meter behavior.
func NewFreqMeter() sim.Behavior { return &FreqMeter{now: time.Now} }

func (*FreqMeter) Size(props *sim.PropertyStore) sim.Size { return sim.Size{W: 5, H: 3} }

func (*FreqMeter) CreatePins(props *sim.PropertyStore) []sim.PinDesc {
	return []sim.PinDesc{
		{Name: pIn, Pos: sim.Pt(0, 1), Dir: sim.PinInside},
	}
}

func (m *FreqMeter) InitState(ctx *sim.StateContext) {
	ctx.SetInternal(&freqState{})
}

func (m *FreqMeter) UpdateSignals(ctx *sim.StateContext, changed int) {
	fs, _ := ctx.Internal().(*freqState)
	if fs == nil {
		fs = &freqState{}
		ctx.SetInternal(fs)
	}
	v := ctx.PinWireValue(0)
	if v == sim.StateTrue && fs.last != sim.StateTrue {
		if len(fs.edges) < freqWindow {
			fs.edges = append(fs.edges, m.now())
		} else {
			fs.edges[fs.head] = m.now()
			fs.head = (fs.head + 1) % freqWindow
		}
	}
	fs.last = v
}

// Hz returns the measured frequency over the recorded edge window, or
// 0 when fewer than two edges were seen.
func (m *FreqMeter) Hz(ctx *sim.StateContext) float64 {
	fs, _ := ctx.Internal().(*freqState)
	if fs == nil || len(fs.edges) < 2 {
		return 0
	}
	oldest := fs.edges[0]
	if len(fs.edges) == freqWindow {
		oldest = fs.edges[fs.head]
	}
	newest := fs.edges[(fs.head+len(fs.edges)-1)%len(fs.edges)]
	span := newest.Sub(oldest)
	if span <= 0 {
		return 0
	}
	return float64(len(fs.edges)-1) / span.Seconds()
}
