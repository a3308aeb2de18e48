// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib_test

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	sim "github.com/db47h/tilesim"
	"github.com/db47h/tilesim/tilelib"
)

func trace(t *testing.T, err error) {
	t.Helper()
	if err, ok := err.(interface {
		StackTrace() errors.StackTrace
	}); ok {
		for _, f := range err.StackTrace() {
			t.Logf("%+v ", f)
		}
	}
}

func place(t *testing.T, b *sim.Board, pos sim.Point, p *sim.Preview) int {
	t.Helper()
	id, err := b.PlaceCircuit(pos, p)
	if err != nil {
		trace(t, err)
		t.Fatal(err)
	}
	return id
}

// gateBoard wires a two-input gate to a pair of constants and an
// output probe wire.
func gateBoard(t *testing.T, gate string) (b *sim.Board, s *sim.State, ca, cb, out int) {
	t.Helper()
	r := tilelib.Registry()
	b = sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(-3, 0), Length: 3})
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(-3, 1), Length: 3})
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(2, 0), Length: 3})
	s = b.NewState()
	place(t, b, sim.Pt(0, 0), r[gate])
	ca = place(t, b, sim.Pt(-3, 0), r["constant"])
	cb = place(t, b, sim.Pt(-3, 1), r["constant"])
	out, _ = b.WiresAt(sim.Pt(4, 0)).One()
	return b, s, ca, cb, out
}

func Test_gates(t *testing.T) {
	td := []struct {
		gate string
		out  [4]sim.WireState // a,b = FF, FT, TF, TT
	}{
		{"and", [4]sim.WireState{sim.StateFalse, sim.StateFalse, sim.StateFalse, sim.StateTrue}},
		{"or", [4]sim.WireState{sim.StateFalse, sim.StateTrue, sim.StateTrue, sim.StateTrue}},
		{"xor", [4]sim.WireState{sim.StateFalse, sim.StateTrue, sim.StateTrue, sim.StateFalse}},
		{"nand", [4]sim.WireState{sim.StateTrue, sim.StateTrue, sim.StateTrue, sim.StateFalse}},
		{"nor", [4]sim.WireState{sim.StateTrue, sim.StateFalse, sim.StateFalse, sim.StateFalse}},
		{"xnor", [4]sim.WireState{sim.StateTrue, sim.StateFalse, sim.StateFalse, sim.StateTrue}},
	}

	for _, test := range td {
		t.Run(test.gate, func(t *testing.T) {
			b, s, ca, cb, out := gateBoard(t, test.gate)
			for i, want := range test.out {
				a, bv := i&2 != 0, i&1 != 0
				if err := b.SetCircuitProperty(ca, "value", a); err != nil {
					t.Fatal(err)
				}
				if err := b.SetCircuitProperty(cb, "value", bv); err != nil {
					t.Fatal(err)
				}
				if got := s.ReadWire(out); got != want {
					t.Fatalf("%s(%v, %v) = %v, expected %v", test.gate, a, bv, got, want)
				}
			}
		})
	}
}

func Test_gate_undriven_input(t *testing.T) {
	r := tilelib.Registry()
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(-3, 0), Length: 3})
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(2, 0), Length: 3})
	s := b.NewState()
	place(t, b, sim.Pt(0, 0), r["and"])
	place(t, b, sim.Pt(-3, 0), r["constant"])

	out, _ := b.WiresAt(sim.Pt(4, 0)).One()
	if got := s.ReadWire(out); got != sim.StateError {
		t.Fatalf("and with undriven b input: %v", got)
	}
}

func Test_not(t *testing.T) {
	r := tilelib.Registry()
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(-3, 0), Length: 3})
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(1, 0), Length: 3})
	s := b.NewState()
	place(t, b, sim.Pt(0, 0), r["not"])
	c := place(t, b, sim.Pt(-3, 0), r["constant"])

	out, _ := b.WiresAt(sim.Pt(3, 0)).One()
	if got := s.ReadWire(out); got != sim.StateFalse {
		t.Fatalf("not(true) = %v", got)
	}
	if err := b.SetCircuitProperty(c, "value", false); err != nil {
		t.Fatal(err)
	}
	if got := s.ReadWire(out); got != sim.StateTrue {
		t.Fatalf("not(false) = %v", got)
	}
}

// Rotating a Not via its dir property resizes the footprint and moves
// the pins.
func Test_not_rotation(t *testing.T) {
	r := tilelib.Registry()
	b := sim.NewBoard()
	id := place(t, b, sim.Pt(0, 0), r["not"])

	// native orientation is right: 2x1
	if _, _, ok := b.CircuitAt(sim.Pt(1, 0)); !ok {
		t.Fatal("missing footprint tile (1,0)")
	}
	if _, _, ok := b.CircuitAt(sim.Pt(0, 1)); ok {
		t.Fatal("unexpected footprint tile (0,1)")
	}

	if err := b.SetCircuitProperty(id, "dir", sim.Up); err != nil {
		trace(t, err)
		t.Fatal(err)
	}
	// 1x2 now
	if _, _, ok := b.CircuitAt(sim.Pt(0, 1)); !ok {
		t.Fatal("missing footprint tile (0,1) after rotation")
	}
	if _, _, ok := b.CircuitAt(sim.Pt(1, 0)); ok {
		t.Fatal("stale footprint tile (1,0) after rotation")
	}
}

func Test_button(t *testing.T) {
	r := tilelib.Registry()
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(2, 1), Length: 3})
	s := b.NewState()
	id := place(t, b, sim.Pt(0, 0), r["button"])
	out, _ := b.WiresAt(sim.Pt(4, 1)).One()

	if got := s.ReadWire(out); got != sim.StateFalse {
		t.Fatalf("released button drives %v", got)
	}
	s.Interact(id, func(ctx *sim.StateContext) { tilelib.Button{}.Toggle(ctx) })
	if got := s.ReadWire(out); got != sim.StateTrue {
		t.Fatalf("pressed button drives %v", got)
	}

	// internal state round trip
	raw := tilelib.Button{}.SaveInternal(true)
	v, err := tilelib.Button{}.LoadInternal(raw)
	if err != nil {
		t.Fatal(err)
	}
	if pressed, _ := v.(bool); !pressed {
		t.Fatal("internal round trip lost the pressed flag")
	}
}

func Test_clock(t *testing.T) {
	r := tilelib.Registry()
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(1, 0), Length: 3})
	id := place(t, b, sim.Pt(0, 0), r["clock"])
	s := b.NewState()
	out, _ := b.WiresAt(sim.Pt(3, 0)).One()

	if got := s.ReadWire(out); got != sim.StateFalse {
		t.Fatalf("initial clock level %v", got)
	}
	if _, ok := s.NextTick(); !ok {
		t.Fatal("clock scheduled no tick")
	}

	now := time.Now()
	s.RunTicks(now.Add(time.Hour))
	if got := s.ReadWire(out); got != sim.StateTrue {
		t.Fatalf("clock level after tick: %v", got)
	}

	// a non-positive period stops the oscillation
	if err := b.SetCircuitProperty(id, "period_ms", 0); err != nil {
		t.Fatal(err)
	}
	s.RunTicks(now.Add(2 * time.Hour))
	if _, ok := s.NextTick(); ok {
		t.Fatal("stopped clock still scheduled")
	}
}

func Test_pull(t *testing.T) {
	r := tilelib.Registry()
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 3})
	s := b.NewState()
	id := place(t, b, sim.Pt(3, 0), r["pull"])
	wid, _ := b.WiresAt(sim.Pt(1, 0)).One()

	if got := s.ReadWire(wid); got != sim.StateTrue {
		t.Fatalf("pulled up wire reads %v", got)
	}
	if err := b.SetCircuitProperty(id, "high", false); err != nil {
		t.Fatal(err)
	}
	// property change alone does not touch the wire; reattach a driver
	// to force a wire pass
	c := place(t, b, sim.Pt(0, 0), r["constant"])
	if got := s.ReadWire(wid); got != sim.StateTrue {
		t.Fatalf("driven wire reads %v", got)
	}
	b.RemoveCircuit(c)
	if got := s.ReadWire(wid); got != sim.StateFalse {
		t.Fatalf("pulled down wire reads %v", got)
	}
}

func Test_script(t *testing.T) {
	r := tilelib.Registry()
	r["script"].Props.Set("code",
		`function update(inputs) {
			if (inputs[0] === 2) { return [1]; }
			if (inputs[0] === 1) { return [2]; }
			return [3];
		}`)

	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(-3, 0), Length: 3})
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(1, 0), Length: 3})
	s := b.NewState()
	place(t, b, sim.Pt(0, 0), r["script"])
	c := place(t, b, sim.Pt(-3, 0), r["constant"])

	out, _ := b.WiresAt(sim.Pt(3, 0)).One()
	if got := s.ReadWire(out); got != sim.StateFalse {
		t.Fatalf("script(true) = %v", got)
	}
	if err := b.SetCircuitProperty(c, "value", false); err != nil {
		t.Fatal(err)
	}
	if got := s.ReadWire(out); got != sim.StateTrue {
		t.Fatalf("script(false) = %v", got)
	}
}

func Test_script_errors(t *testing.T) {
	_ = tilelib.Registry()
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(1, 0), Length: 3})
	s := b.NewState()

	broken := &sim.Preview{
		Type: "script",
		Props: sim.NewProperties(
			sim.Property{Name: "code", Value: "this is not javascript ("},
			sim.Property{Name: "inputs", Value: 1},
			sim.Property{Name: "outputs", Value: 1},
		),
		New: tilelib.NewScript,
	}
	place(t, b, sim.Pt(0, 0), broken)

	out, _ := b.WiresAt(sim.Pt(3, 0)).One()
	if got := s.ReadWire(out); got != sim.StateError {
		t.Fatalf("broken script drives %v", got)
	}
}

func Test_load_defaults(t *testing.T) {
	r := tilelib.Registry()
	doc := `
clock:
  period_ms: 100
not:
  dir: left
unknown_type:
  foo: 1
constant:
  unknown_prop: true
`
	if err := tilelib.LoadDefaults(strings.NewReader(doc), r); err != nil {
		trace(t, err)
		t.Fatal(err)
	}
	if got := r["clock"].Props.Int("period_ms", 0); got != 100 {
		t.Fatalf("clock period = %d", got)
	}
	if got := r["not"].Props.Direction("dir", sim.Up); got != sim.Left {
		t.Fatalf("not dir = %v", got)
	}

	// type mismatches are an error
	bad := "clock:\n  period_ms: soon\n"
	if err := tilelib.LoadDefaults(strings.NewReader(bad), r); err == nil {
		t.Fatal("mismatched default accepted")
	}
}
