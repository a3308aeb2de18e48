// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim

// tileRef holds an optional wire or circuit id inside a tile node. The
// zero value means "none"; ids are stored off by one so that freshly
// allocated chunks need no initialization pass.
type tileRef uint32

func makeRef(id int) tileRef { return tileRef(id + 1) }

func (r tileRef) get() (int, bool) {
	if r == 0 {
		return 0, false
	}
	return int(r - 1), true
}

func (r tileRef) is(id int) bool {
	w, ok := r.get()
	return ok && w == id
}

// A WireNode is the per-tile wire record of the spatial index.
//
// A node is either an anchor (wire set: the tile carries an explicit
// wire point) or a plain segment cell. left and up are distance
// pointers: the Manhattan distance back to the nearest anchor in that
// axis, 0 when the tile has no segment in that axis. For any cell with
// left=d>0, the cell d steps to the left is an anchor and the cells in
// between carry strictly decreasing pointers.
//
type WireNode struct {
	wire tileRef
	left int
	up   int
}

// IsEmpty reports whether the tile carries no wire data at all.
func (n WireNode) IsEmpty() bool { return n.wire == 0 && n.left == 0 && n.up == 0 }

// WireID returns the anchor's wire id, if the tile is an anchor.
func (n WireNode) WireID() (int, bool) { return n.wire.get() }

// LeftDist returns the distance pointer toward the previous anchor on
// the horizontal axis (0 = no segment).
func (n WireNode) LeftDist() int { return n.left }

// UpDist returns the distance pointer toward the previous anchor on
// the vertical axis (0 = no segment).
func (n WireNode) UpDist() int { return n.up }

// dist returns the distance pointer for one axis.
func (n WireNode) dist(vertical bool) int {
	if vertical {
		return n.up
	}
	return n.left
}

// A WirePoint is one anchor record in a wire's point map. Left and Up
// record whether a segment extends from this anchor toward the previous
// anchor in that direction. Pin, when non-nil, is the circuit pin
// attached at this anchor; the pin is owned by its circuit, the wire
// point only references it.
//
type WirePoint struct {
	Left, Up bool
	Pin      *Pin
}

// A Wire is a connected set of anchors sharing one logic value. A wire
// with no points is invalid and is freed by the board as soon as its
// last point is removed.
//
type Wire struct {
	ID     int
	Points map[Point]WirePoint
}

func newWire(id int) *Wire {
	return &Wire{ID: id, Points: make(map[Point]WirePoint)}
}

// A WirePart is an axis-aligned wire segment to be placed on a board:
// Length tiles starting at Pos, extending right or down.
//
type WirePart struct {
	Pos      Point
	Length   int
	Vertical bool
}

// End returns the last tile covered by the part.
func (p WirePart) End() Point { return p.Pos.step(p.Vertical, p.Length) }

// At returns the i-th tile covered by the part, 0 <= i <= Length.
func (p WirePart) At(i int) Point { return p.Pos.step(p.Vertical, i) }

// TileWires is the result of a wires-at-tile query: the wires reachable
// from a tile, either because the tile is an anchor itself or by
// following the tile's distance pointers to the nearest anchor on each
// axis.
//
type TileWires struct {
	Left, Up       int
	HasLeft, HasUp bool
	// Anchor reports that the tile is itself an anchor; the wire id is
	// then in Left.
	Anchor bool
}

// Count returns the number of distinct wires found (0, 1 or 2).
func (t TileWires) Count() int {
	switch {
	case !t.HasLeft && !t.HasUp:
		return 0
	case t.HasLeft && t.HasUp && t.Left != t.Up:
		return 2
	default:
		return 1
	}
}

// One returns the single wire reachable from the tile. ok is false when
// the tile reaches no wire or two distinct ones.
func (t TileWires) One() (id int, ok bool) {
	if t.Count() != 1 {
		return 0, false
	}
	if t.HasLeft {
		return t.Left, true
	}
	return t.Up, true
}

// foundNode is the result of walking distance pointers from a tile to
// the nearest anchor in one direction.
type foundNode struct {
	node WireNode
	wire int
	pos  Point
	dist int
}
