// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib

import (
	"testing"
	"time"

	sim "github.com/db47h/tilesim"
)

// Test_freqmeter feeds the meter a 100Hz square wave through a fake
// clock and checks the measured frequency.
func Test_freqmeter(t *testing.T) {
	now := time.Unix(0, 0)
	m := &FreqMeter{now: func() time.Time { return now }}

	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(-3, 1), Length: 3})
	s := b.NewState()

	mid, err := b.PlaceCircuit(sim.Pt(0, 0), &sim.Preview{
		Type: "freqmeter",
		New:  func() sim.Behavior { return m },
	})
	if err != nil {
		t.Fatal(err)
	}
	did, err := b.PlaceCircuit(sim.Pt(-3, 1), &sim.Preview{
		Type:  "constant",
		Props: ConstantDefaults(),
		New:   func() sim.Behavior { return Constant{} },
	})
	if err != nil {
		t.Fatal(err)
	}

	// 20 rising edges, 10ms apart
	level := true
	for i := 0; i < 39; i++ {
		now = now.Add(5 * time.Millisecond)
		level = !level
		if err := b.SetCircuitProperty(did, "value", level); err != nil {
			t.Fatal(err)
		}
	}

	var hz float64
	s.Interact(mid, func(ctx *sim.StateContext) { hz = m.Hz(ctx) })
	if hz < 99 || hz > 101 {
		t.Fatalf("measured %g Hz, expected 100", hz)
	}
}

func Test_freqmeter_no_edges(t *testing.T) {
	m := &FreqMeter{now: time.Now}
	b := sim.NewBoard()
	s := b.NewState()
	id, err := b.PlaceCircuit(sim.Pt(0, 0), &sim.Preview{
		Type: "freqmeter",
		New:  func() sim.Behavior { return m },
	})
	if err != nil {
		t.Fatal(err)
	}
	var hz float64
	s.Interact(id, func(ctx *sim.StateContext) { hz = m.Hz(ctx) })
	if hz != 0 {
		t.Fatalf("idle meter measured %g Hz", hz)
	}
}
