// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim_test

import (
	"math/rand"
	"testing"

	sim "github.com/db47h/tilesim"
	"github.com/pkg/errors"
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

func checkBoard(t *testing.T, b *sim.Board) {
	t.Helper()
	if err := b.CheckConsistency(); err != nil {
		trace(t, err)
		t.Fatal(err)
	}
}

// wirePoints returns a wire's point set.
func wirePoints(b *sim.Board, id int) map[sim.Point]bool {
	pts := make(map[sim.Point]bool)
	b.EachWirePoint(id, func(pos sim.Point, pt sim.WirePoint) bool {
		pts[pos] = true
		return true
	})
	return pts
}

func Test_place_wire_part(t *testing.T) {
	td := []struct {
		name  string
		parts []sim.WirePart
		wires int // distinct wire ids over all touched tiles
	}{
		{"single", []sim.WirePart{{Pos: sim.Pt(0, 0), Length: 4}}, 1},
		{"disjoint", []sim.WirePart{
			{Pos: sim.Pt(0, 0), Length: 2},
			{Pos: sim.Pt(0, 2), Length: 2},
		}, 2},
		{"collinear overlap", []sim.WirePart{
			{Pos: sim.Pt(0, 0), Length: 4},
			{Pos: sim.Pt(2, 0), Length: 4},
		}, 1},
		{"touching endpoints", []sim.WirePart{
			{Pos: sim.Pt(0, 0), Length: 3},
			{Pos: sim.Pt(3, 0), Length: 3, Vertical: true},
		}, 1},
		{"unanchored crossing stays separate", []sim.WirePart{
			{Pos: sim.Pt(0, 0), Length: 4},
			{Pos: sim.Pt(2, -2), Length: 4, Vertical: true},
		}, 2},
	}

	for _, test := range td {
		t.Run(test.name, func(t *testing.T) {
			b := sim.NewBoard()
			for _, p := range test.parts {
				if _, ok := b.PlaceWirePart(p); !ok {
					t.Fatalf("placing %+v failed", p)
				}
				checkBoard(t, b)
			}
			ids := make(map[int]bool)
			for _, p := range test.parts {
				for i := 0; i <= p.Length; i++ {
					if id, ok := b.WiresAt(p.At(i)).One(); ok {
						ids[id] = true
					}
				}
			}
			if len(ids) != test.wires {
				t.Fatalf("got %d wires, expected %d", len(ids), test.wires)
			}
		})
	}
}

func Test_place_wire_part_zero_length(t *testing.T) {
	b := sim.NewBoard()
	if _, ok := b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 0}); ok {
		t.Fatal("zero-length part placed")
	}
	// a part fully contained in an existing run must collapse too
	if _, ok := b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 6}); !ok {
		t.Fatal("placing failed")
	}
	id0, _ := b.WiresAt(sim.Pt(0, 0)).One()
	if _, ok := b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 6}); ok {
		t.Fatal("fully redundant part placed")
	}
	id1, _ := b.WiresAt(sim.Pt(0, 0)).One()
	if id0 != id1 {
		t.Fatalf("redundant placement changed wire id %d -> %d", id0, id1)
	}
	checkBoard(t, b)
}

// A vertical wire drawn through a horizontal one with an anchor at the
// crossing shares its wire id; toggling the crossing splits it back
// into one horizontal and one vertical wire.
func Test_crossing_toggle(t *testing.T) {
	b := sim.NewBoard()
	if _, ok := b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 4}); !ok {
		t.Fatal("placing horizontal failed")
	}
	// vertical in two strokes meeting at (2,0): the shared endpoint
	// anchors the crossing and merges everything into one wire
	if _, ok := b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(2, -2), Length: 2, Vertical: true}); !ok {
		t.Fatal("placing vertical (upper) failed")
	}
	if _, ok := b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(2, 0), Length: 2, Vertical: true}); !ok {
		t.Fatal("placing vertical (lower) failed")
	}
	checkBoard(t, b)

	h, ok := b.WiresAt(sim.Pt(1, 0)).One()
	if !ok {
		t.Fatal("no wire at (1,0)")
	}
	v, ok := b.WiresAt(sim.Pt(2, 1)).One()
	if !ok {
		t.Fatal("no wire at (2,1)")
	}
	if h != v {
		t.Fatalf("expected one wire, got %d and %d", h, v)
	}

	b.TryToggleIntersection(sim.Pt(2, 0))
	checkBoard(t, b)

	h, _ = b.WiresAt(sim.Pt(1, 0)).One()
	v, _ = b.WiresAt(sim.Pt(2, 1)).One()
	if h == v {
		t.Fatal("toggle did not split the crossing")
	}
}

// A toggle at a T junction would orphan the stem run, so it must be
// refused.
func Test_toggle_refuses_tee(t *testing.T) {
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 4})
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(2, 0), Length: 3, Vertical: true})
	checkBoard(t, b)

	h, _ := b.WiresAt(sim.Pt(1, 0)).One()
	v, _ := b.WiresAt(sim.Pt(2, 2)).One()
	if h != v {
		t.Fatal("setup: stem not merged")
	}

	b.TryToggleIntersection(sim.Pt(2, 0))
	checkBoard(t, b)

	h2, _ := b.WiresAt(sim.Pt(1, 0)).One()
	v2, _ := b.WiresAt(sim.Pt(2, 2)).One()
	if h2 != h || v2 != v {
		t.Fatal("tee toggle changed connectivity")
	}
	if tw := b.WiresAt(sim.Pt(2, 0)); !tw.Anchor {
		t.Fatal("tee anchor removed")
	}
}

// Merging two wires through an explicit intersection and removing it
// again must partition the points back to the original sets.
func Test_merge_split_inverse(t *testing.T) {
	b := sim.NewBoard()
	a, ok := b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 4})
	if !ok {
		t.Fatal("placing horizontal failed")
	}
	w, ok := b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(2, -2), Length: 4, Vertical: true})
	if !ok {
		t.Fatal("placing vertical failed")
	}
	ptsA, ptsB := wirePoints(b, a), wirePoints(b, w)

	merged, ok := b.CreateWireIntersection(sim.Pt(2, 0))
	if !ok {
		t.Fatal("creating intersection failed")
	}
	checkBoard(t, b)
	if n := b.WirePointCount(merged); n != len(ptsA)+len(ptsB)+1 {
		t.Fatalf("merged wire has %d points, expected %d", n, len(ptsA)+len(ptsB)+1)
	}

	b.TryToggleIntersection(sim.Pt(2, 0))
	checkBoard(t, b)

	h, ok := b.WiresAt(sim.Pt(1, 0)).One()
	if !ok {
		t.Fatal("no wire at (1,0) after split")
	}
	v, ok := b.WiresAt(sim.Pt(2, 1)).One()
	if !ok {
		t.Fatal("no wire at (2,1) after split")
	}
	if h == v {
		t.Fatal("split did not sever the crossing")
	}
	gotH, gotV := wirePoints(b, h), wirePoints(b, v)
	if !samePoints(gotH, ptsA) || !samePoints(gotV, ptsB) {
		t.Fatalf("split partition mismatch: %v / %v, expected %v / %v", gotH, gotV, ptsA, ptsB)
	}
}

func samePoints(a, b map[sim.Point]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for p := range a {
		if !b[p] {
			return false
		}
	}
	return true
}

func Test_toggle_idempotence(t *testing.T) {
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 4})
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(2, -2), Length: 4, Vertical: true})
	b.CreateWireIntersection(sim.Pt(2, 0))
	checkBoard(t, b)

	before, _ := b.WiresAt(sim.Pt(0, 0)).One()
	if v, _ := b.WiresAt(sim.Pt(2, -2)).One(); v != before {
		t.Fatal("setup: wires not merged")
	}

	b.TryToggleIntersection(sim.Pt(2, 0))
	checkBoard(t, b)
	h, _ := b.WiresAt(sim.Pt(0, 0)).One()
	v, _ := b.WiresAt(sim.Pt(2, -2)).One()
	if h == v {
		t.Fatal("first toggle did not split")
	}

	b.TryToggleIntersection(sim.Pt(2, 0))
	checkBoard(t, b)
	h, _ = b.WiresAt(sim.Pt(0, 0)).One()
	v, _ = b.WiresAt(sim.Pt(2, -2)).One()
	if h != v {
		t.Fatal("second toggle did not merge back")
	}
}

func Test_find_node(t *testing.T) {
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 6})

	td := []struct {
		name     string
		from     sim.Point
		vertical bool
		forward  bool
		want     sim.Point
		ok       bool
	}{
		{"backward mid", sim.Pt(3, 0), false, false, sim.Pt(0, 0), true},
		{"forward mid", sim.Pt(3, 0), false, true, sim.Pt(6, 0), true},
		{"forward from anchor", sim.Pt(0, 0), false, true, sim.Pt(6, 0), true},
		{"vertical none", sim.Pt(3, 0), true, false, sim.Point{}, false},
		{"off wire", sim.Pt(3, 1), false, false, sim.Point{}, false},
	}
	for _, test := range td {
		t.Run(test.name, func(t *testing.T) {
			pos, _, ok := b.FindNode(test.from, test.vertical, test.forward)
			if ok != test.ok {
				t.Fatalf("ok = %v, expected %v", ok, test.ok)
			}
			if ok && pos != test.want {
				t.Fatalf("found %v, expected %v", pos, test.want)
			}
		})
	}
}

// Randomized placements and toggles must never break the distance
// pointer invariant.
func Test_invariant_random(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := sim.NewBoard()

	for i := 0; i < 300; i++ {
		switch rng.Intn(4) {
		case 0, 1:
			part := sim.WirePart{
				Pos:      sim.Pt(rng.Intn(24)-8, rng.Intn(24)-8),
				Length:   rng.Intn(8) + 1,
				Vertical: rng.Intn(2) == 1,
			}
			b.PlaceWirePart(part)
		case 2:
			b.TryToggleIntersection(sim.Pt(rng.Intn(24)-8, rng.Intn(24)-8))
		case 3:
			b.CreateWireIntersection(sim.Pt(rng.Intn(24)-8, rng.Intn(24)-8))
		}
		if err := b.CheckConsistency(); err != nil {
			trace(t, err)
			t.Fatalf("after op %d: %v", i, err)
		}
	}
}

func Test_wires_at(t *testing.T) {
	b := sim.NewBoard()
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(0, 0), Length: 4})
	b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(2, -2), Length: 4, Vertical: true})

	// the unanchored crossing sees both wires
	tw := b.WiresAt(sim.Pt(2, 0))
	if tw.Count() != 2 {
		t.Fatalf("expected 2 wires at crossing, got %d", tw.Count())
	}
	if tw.Anchor {
		t.Fatal("crossing reported as anchor")
	}

	// anchors report themselves
	tw = b.WiresAt(sim.Pt(0, 0))
	if !tw.Anchor || tw.Count() != 1 {
		t.Fatalf("anchor query: %+v", tw)
	}

	// empty tile
	if tw := b.WiresAt(sim.Pt(100, 100)); tw.Count() != 0 {
		t.Fatalf("empty tile reports wires: %+v", tw)
	}
}

// A viewport scan reports per-tile wire and circuit records bounded by
// the rectangle, with distance pointers usable for segment drawing.
func Test_viewport_scan(t *testing.T) {
	b := sim.NewBoard()
	wid, ok := b.PlaceWirePart(sim.WirePart{Pos: sim.Pt(12, 0), Length: 8})
	if !ok {
		t.Fatal("wire placement failed")
	}
	cid := place(t, b, sim.Pt(15, 3), driverPreview(false))

	// the rectangle covers the run between the anchors, across the
	// chunk boundary at x=16
	var tiles []sim.Point
	b.EachWireNodeInRect(sim.Pt(14, -1), sim.Pt(18, 1), func(pos sim.Point, n sim.WireNode) {
		tiles = append(tiles, pos)
		if _, anchor := n.WireID(); anchor {
			t.Errorf("unexpected anchor at %v", pos)
		}
		if d := n.LeftDist(); d != pos.X-12 {
			t.Errorf("tile %v left dist %d", pos, d)
		}
	})
	if len(tiles) != 5 {
		t.Fatalf("scan reported %d tiles: %v", len(tiles), tiles)
	}
	for _, pos := range tiles {
		if pos.Y != 0 || pos.X < 14 || pos.X > 18 {
			t.Fatalf("tile %v outside the rectangle", pos)
		}
	}

	n := b.WireNodeAt(sim.Pt(12, 0))
	if id, anchor := n.WireID(); !anchor || id != wid {
		t.Fatalf("anchor tile reports wire %d, anchor %v", id, anchor)
	}
	if !b.WireNodeAt(sim.Pt(13, 5)).IsEmpty() {
		t.Fatal("empty tile reports wire data")
	}

	found := 0
	b.EachCircuitTileInRect(sim.Pt(10, 2), sim.Pt(20, 4), func(pos sim.Point, id int, off sim.Point) {
		found++
		if id != cid || pos != sim.Pt(15, 3) || off != sim.Pt(0, 0) {
			t.Errorf("circuit tile %v id %d off %v", pos, id, off)
		}
	})
	if found != 1 {
		t.Fatalf("circuit scan reported %d tiles", found)
	}
}
