// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim

import (
	"sync"

	"github.com/pkg/errors"
)

// A Board holds the wire topology, the circuit registry and the two
// tile index layers, and fans mutations out to the simulation states
// attached to it.
//
// A single RWMutex guards the topology: every mutation runs its whole
// multi-step algorithm under the write lock so that no reader observes
// a half-updated graph. Simulation state updates are collected during
// the mutation and triggered after the lock is released, because they
// call into circuit behaviors which in turn read the board.
//
type Board struct {
	mu sync.RWMutex

	wireNodes    Grid[WireNode]
	circuitNodes Grid[CircuitNode]

	wires    SlotVec[Wire]
	circuits SlotVec[Circuit]

	states StateCollection
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{}
}

// updateSet collects the simulation state updates a topology mutation
// must trigger once the board lock is released.
type updateSet struct {
	wires []int
	pins  []PinID
}

func (u *updateSet) addWire(id int) {
	for _, w := range u.wires {
		if w == id {
			return
		}
	}
	u.wires = append(u.wires, id)
}

func (u *updateSet) addPin(id PinID) {
	for _, p := range u.pins {
		if p == id {
			return
		}
	}
	u.pins = append(u.pins, id)
}

// flush triggers the collected updates. The board lock must not be
// held.
func (b *Board) flush(u *updateSet) {
	for _, id := range u.wires {
		b.states.updateWire(id)
	}
	for _, id := range u.pins {
		b.states.updatePinWire(id)
	}
}

// PlaceWirePart places an axis-aligned wire segment, connecting,
// merging and anchoring as needed. It returns the id of the wire the
// segment ended up in. ok is false when the segment collapses to
// nothing (zero length, or fully absorbed by existing wires).
//
func (b *Board) PlaceWirePart(part WirePart) (id int, ok bool) {
	var u updateSet
	b.mu.Lock()
	id, ok = b.placeWirePart(part, &u)
	b.mu.Unlock()
	b.flush(&u)
	return id, ok
}

// CreateWireIntersection turns the tile at pos into an anchor,
// merging the two wires crossing there if necessary. It returns the
// resulting wire id.
//
func (b *Board) CreateWireIntersection(pos Point) (id int, ok bool) {
	var u updateSet
	b.mu.Lock()
	if n := b.wireNodes.Get(pos); n != nil {
		id, ok = b.createWireIntersectionAtNode(pos, *n, -1, &u)
	}
	b.mu.Unlock()
	b.flush(&u)
	return id, ok
}

// RemoveIntersection removes the anchor at pos. When split is true and
// the anchor joined two crossing runs, the owning wire is re-examined
// for connectivity and split into independent wires if severed.
// Anchors carrying a connected pin are never removed.
//
func (b *Board) RemoveIntersection(pos Point, split bool) {
	var u updateSet
	b.mu.Lock()
	if n := b.wireNodes.Get(pos); n != nil {
		b.removeIntersectionAtNode(pos, *n, split, &u)
	}
	b.mu.Unlock()
	b.flush(&u)
}

// TryToggleIntersection toggles the tile at pos between a merged
// anchor and a plain crossing. The toggle only applies to symmetric
// crossings: both axes must extend to both sides (or the tile must be
// a crossing anchor), and pin anchors are left alone.
//
func (b *Board) TryToggleIntersection(pos Point) {
	var u updateSet
	b.mu.Lock()
	b.tryToggleIntersection(pos, &u)
	b.mu.Unlock()
	b.flush(&u)
}

// WiresAt reports the wires reachable from pos.
func (b *Board) WiresAt(pos Point) TileWires {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.wiresAt(pos)
}

// PinAt returns the id of the circuit pin placed at pos.
func (b *Board) PinAt(pos Point) (PinID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if p := b.pinAt(pos); p != nil {
		return p.ID, true
	}
	return PinID{}, false
}

// PinWire returns the id of the wire the given pin is connected to.
func (b *Board) PinWire(id PinID) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c := b.circuits.Get(id.Circuit)
	if c == nil || id.Index < 0 || id.Index >= len(c.Pins) {
		return 0, false
	}
	if w := c.Pins[id.Index].wire; w >= 0 {
		return w, true
	}
	return 0, false
}

// CircuitAt returns the circuit covering pos and the tile's offset
// from the circuit origin.
//
func (b *Board) CircuitAt(pos Point) (id int, off Point, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := b.circuitNodes.Get(pos)
	if n == nil {
		return 0, Point{}, false
	}
	id, ok = n.circuit.get()
	return id, n.off, ok
}

// WireNodeAt returns a copy of the wire tile record at pos. Tiles
// carrying no wire data return the zero WireNode.
func (b *Board) WireNodeAt(pos Point) WireNode {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n := b.wireNodes.Get(pos); n != nil {
		return *n
	}
	return WireNode{}
}

// EachWireNodeInRect calls fn for every non-empty wire tile with
// tl <= pos <= br. Only the occupied chunks intersecting the rectangle
// are visited, so a viewport scan costs no more than the tiles it can
// draw. The board lock is held for the whole walk; fn must not call
// back into the board.
//
func (b *Board) EachWireNodeInRect(tl, br Point, fn func(pos Point, n WireNode)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.wireNodes.EachInRect(tl, br, func(p Point, n *WireNode) {
		if !n.IsEmpty() {
			fn(p, *n)
		}
	})
}

// EachCircuitTileInRect calls fn for every tile covered by a circuit
// with tl <= pos <= br, giving the covering circuit's id and the
// tile's offset from its origin. The board lock is held for the whole
// walk; fn must not call back into the board.
//
func (b *Board) EachCircuitTileInRect(tl, br Point, fn func(pos Point, id int, off Point)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.circuitNodes.EachInRect(tl, br, func(p Point, n *CircuitNode) {
		if id, ok := n.circuit.get(); ok {
			fn(p, id, n.off)
		}
	})
}

// FindNode follows distance pointers from pos along one axis and
// returns the nearest anchor in the given direction.
//
func (b *Board) FindNode(pos Point, vertical, forward bool) (anchor Point, wire int, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := b.wireNodes.Get(pos)
	if n == nil {
		return Point{}, 0, false
	}
	f, ok := b.findNodeFromNode(*n, pos, vertical, forward)
	if !ok {
		return Point{}, 0, false
	}
	return f.pos, f.wire, true
}

// WirePointCount returns the number of anchors of a wire, or 0 for a
// freed id.
func (b *Board) WirePointCount(id int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if w := b.wires.Get(id); w != nil {
		return len(w.Points)
	}
	return 0
}

// EachWirePoint calls fn for every anchor of the wire, in unspecified
// order, until fn returns false.
//
func (b *Board) EachWirePoint(id int, fn func(pos Point, pt WirePoint) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	w := b.wires.Get(id)
	if w == nil {
		return
	}
	for pos, pt := range w.Points {
		if !fn(pos, pt) {
			return
		}
	}
}

// wiresAt resolves the wires reachable from pos. Lock held.
func (b *Board) wiresAt(pos Point) TileWires {
	n := b.wireNodes.Get(pos)
	if n == nil {
		return TileWires{}
	}
	return b.wiresAtNode(pos, *n)
}

func (b *Board) wiresAtNode(pos Point, n WireNode) TileWires {
	if id, ok := n.wire.get(); ok {
		return TileWires{Left: id, HasLeft: true, Anchor: true}
	}
	var tw TileWires
	if n.up > 0 {
		if t := b.wireNodes.Get(pos.step(true, -n.up)); t != nil {
			if id, ok := t.wire.get(); ok {
				tw.Up, tw.HasUp = id, true
			}
		}
	}
	if n.left > 0 {
		if t := b.wireNodes.Get(pos.step(false, -n.left)); t != nil {
			if id, ok := t.wire.get(); ok {
				tw.Left, tw.HasLeft = id, true
			}
		}
	}
	return tw
}

// findNodeFromNode walks distance pointers from pos to the nearest
// anchor along one axis. Backward walks are O(1) through the node's
// own pointer; forward walks follow the strictly increasing pointer
// run until it ends or reaches an anchor.
//
func (b *Board) findNodeFromNode(n WireNode, pos Point, vertical, forward bool) (foundNode, bool) {
	pointer := n.dist(vertical)

	if forward {
		start := pointer
		if n.wire != 0 {
			start = 0
		}
		for i := 1; ; i++ {
			tp := pos.step(vertical, i)
			t := b.wireNodes.Get(tp)
			if t == nil || t.dist(vertical) != start+i {
				return foundNode{}, false
			}
			if id, ok := t.wire.get(); ok {
				return foundNode{node: *t, wire: id, pos: tp, dist: i}, true
			}
		}
	}

	if pointer == 0 {
		return foundNode{}, false
	}
	tp := pos.step(vertical, -pointer)
	t := b.wireNodes.Get(tp)
	if t == nil {
		return foundNode{}, false
	}
	id, ok := t.wire.get()
	if !ok {
		return foundNode{}, false
	}
	return foundNode{node: *t, wire: id, pos: tp, dist: pointer}, true
}

// nodeNeighboringAnchors returns the positions of the up to four
// anchors reachable from pos along both axes, restricted to the given
// wire id (-1 for any).
//
func (b *Board) nodeNeighboringAnchors(pos Point, wire int) []Point {
	n := b.wireNodes.Get(pos)
	if n == nil {
		return nil
	}
	var out []Point
	for i := 0; i < 4; i++ {
		vertical := i&1 == 1
		forward := i&2 == 2
		if f, ok := b.findNodeFromNode(*n, pos, vertical, forward); ok {
			if wire < 0 || f.wire == wire {
				out = append(out, f.pos)
			}
		}
	}
	return out
}

// createWire allocates an empty wire.
func (b *Board) createWire() int {
	id := b.wires.FirstFree()
	b.wires.Set(id, newWire(id))
	return id
}

// addWirePoint inserts (or refreshes) the anchor record at pos in the
// wire's point map and attaches pin, if any.
func (b *Board) addWirePoint(id int, pos Point, left, up bool, pin *Pin, u *updateSet) {
	w := b.wires.Get(id)
	if w == nil {
		return
	}
	w.Points[pos] = WirePoint{Left: left, Up: up, Pin: pin}
	if pin != nil && pin.wire != id {
		pin.wire = id
		u.addPin(pin.ID)
	}
}

// removeWirePoint removes the anchor record at pos, detaching its pin.
// A wire losing its last point is freed.
func (b *Board) removeWirePoint(id int, pos Point, u *updateSet) {
	w := b.wires.Get(id)
	if w == nil {
		return
	}
	pt, ok := w.Points[pos]
	if !ok {
		return
	}
	delete(w.Points, pos)
	if pt.Pin != nil {
		pt.Pin.wire = -1
		u.addPin(pt.Pin.ID)
	}
	if len(w.Points) == 0 {
		b.wires.Remove(id)
	}
}

// fixPointers rewrites the distance pointer run extending from pos in
// the positive direction of one axis, remapping pointers that read
// from+i to to+i (or to a constant to when an anchor removal leaves no
// previous anchor on the run). The walk stops at the first cell that
// is not part of the run and after updating an anchor's own pointer.
//
func (b *Board) fixPointers(pos Point, vertical bool, from, to int, removal bool) {
	increment := to > 0 || !removal
	for i := 1; ; i++ {
		n := b.wireNodes.Get(pos.step(vertical, i))
		if n == nil {
			return
		}
		var ptr *int
		if vertical {
			ptr = &n.up
		} else {
			ptr = &n.left
		}
		if *ptr != from+i {
			return
		}
		if increment {
			*ptr = to + i
		} else {
			*ptr = to
		}
		if n.wire != 0 {
			return
		}
	}
}

// setWirePoint sets or clears the anchor at pos, keeping the distance
// pointer runs on both axes consistent. wire < 0 clears the anchor.
// When update is set, the affected wires are queued for state
// recomputation. Returns the previous owning wire.
//
func (b *Board) setWirePoint(pos Point, wire int, u *updateSet, update bool) (prev int, hadPrev bool) {
	n := b.wireNodes.GetOrCreate(pos)
	prev, hadPrev = n.wire.get()
	if (hadPrev && prev == wire) || (!hadPrev && wire < 0) {
		return prev, hadPrev
	}

	left, up := n.left, n.up

	if wire >= 0 {
		n.wire = makeRef(wire)
		b.fixPointers(pos, false, left, 0, false)
		b.fixPointers(pos, true, up, 0, false)
	} else {
		n.wire = 0
		b.fixPointers(pos, false, 0, left, true)
		b.fixPointers(pos, true, 0, up, true)
	}

	if hadPrev {
		b.removeWirePoint(prev, pos, u)
		if update {
			u.addWire(prev)
		}
	}
	if wire >= 0 {
		b.addWirePoint(wire, pos, left > 0, up > 0, b.pinAt(pos), u)
		if update {
			u.addWire(wire)
		}
	}
	return prev, hadPrev
}

// setNodeWires repoints the anchor tiles at the given positions to
// wire, without touching point maps.
func (b *Board) setNodeWires(positions map[Point]struct{}, wire int) {
	for pos := range positions {
		if n := b.wireNodes.Get(pos); n != nil && n.wire != 0 {
			n.wire = makeRef(wire)
		}
	}
}

// mergeWires migrates every point of wire with into wire id, repoints
// the absorbed anchors' tiles and pins, and frees with.
func (b *Board) mergeWires(id, with int, u *updateSet) {
	if id == with || !b.wires.Exists(id) {
		return
	}
	w := b.wires.Remove(with)
	if w == nil {
		return
	}
	dst := b.wires.Get(id)
	for pos, pt := range w.Points {
		if n := b.wireNodes.Get(pos); n != nil && n.wire != 0 {
			n.wire = makeRef(id)
		}
		if pt.Pin != nil {
			pt.Pin.wire = id
			u.addPin(pt.Pin.ID)
		}
		dst.Points[pos] = pt
	}
}

// optimizeWirePart trims a requested segment by the runs that already
// exist at either end, so that placement never writes duplicate
// anchors over existing collinear wire. ok is false when trimming
// collapses the segment.
//
func (b *Board) optimizeWirePart(part WirePart) (WirePart, bool) {
	pos, length := part.Pos, part.Length

	if n := b.wireNodes.Get(pos); n != nil && n.wire == 0 {
		if f, ok := b.findNodeFromNode(*n, pos, part.Vertical, true); ok {
			length -= f.dist
			pos = f.pos
		}
	}

	end := pos.step(part.Vertical, length)
	if n := b.wireNodes.Get(end); n != nil {
		if f, ok := b.findNodeFromNode(*n, end, part.Vertical, false); ok {
			length -= f.dist
		}
	}

	if length <= 0 {
		return WirePart{}, false
	}
	return WirePart{Pos: pos, Length: length, Vertical: part.Vertical}, true
}

// placeWirePart is the core placement algorithm. Lock held.
//
// The segment is trimmed against existing runs, scanned for crossed
// pins and wires, resolved to a single target wire (allocating or
// merging), then written tile by tile: endpoints and crossing tiles
// become anchors, the rest carry distance pointers back to the last
// anchor written.
//
func (b *Board) placeWirePart(part WirePart, u *updateSet) (int, bool) {
	part, ok := b.optimizeWirePart(part)
	if !ok {
		return 0, false
	}

	pins := make(map[Point]*Pin)
	for i := 0; i <= part.Length; i++ {
		pos := part.At(i)
		if p := b.pinAt(pos); p != nil {
			pins[pos] = p
		}
	}

	crossed := make(map[int]struct{})
	for i := 0; i <= part.Length; i++ {
		pos := part.At(i)
		n := b.wireNodes.Get(pos)
		if n == nil {
			continue
		}
		if i == 0 || i == part.Length {
			tw := b.wiresAtNode(pos, *n)
			if tw.HasLeft {
				crossed[tw.Left] = struct{}{}
			}
			if tw.HasUp {
				crossed[tw.Up] = struct{}{}
			}
		} else if id, ok := n.wire.get(); ok {
			crossed[id] = struct{}{}
		}
	}

	var wireID int
	switch len(crossed) {
	case 0:
		wireID = b.createWire()
	case 1:
		for id := range crossed {
			wireID = id
		}
	default:
		// Survivor: the crossed wire with the most points; the lowest
		// id wins exact ties. Each/id order makes this deterministic.
		wireID = -1
		best := -1
		b.wires.Each(func(id int, w *Wire) bool {
			if _, ok := crossed[id]; ok && len(w.Points) > best {
				best = len(w.Points)
				wireID = id
			}
			return true
		})
		b.wires.Each(func(id int, w *Wire) bool {
			if _, ok := crossed[id]; ok && id != wireID {
				b.mergeWires(wireID, id, u)
			}
			return true
		})
	}

	b.setWirePoint(part.Pos, wireID, u, false)
	b.setWirePoint(part.End(), wireID, u, false)

	dist := 0
	for i := 0; i <= part.Length; i++ {
		pos := part.At(i)
		n := b.wireNodes.GetOrCreate(pos)

		if i > 0 {
			if part.Vertical {
				n.up = dist
			} else {
				n.left = dist
			}
		}

		_, crossedPin := pins[pos]
		point := crossedPin || n.wire != 0

		if point {
			dist = 1
		} else {
			dist++
		}
		if i == 0 || i == part.Length || point {
			n.wire = makeRef(wireID)
			b.addWirePoint(wireID, pos, n.left > 0, n.up > 0, pins[pos], u)
		}
	}

	u.addWire(wireID)
	return wireID, true
}

// createWireIntersectionAtNode makes pos an anchor. want selects the
// target wire (-1 derives it from the runs crossing pos, merging the
// two crossing wires when they differ: the larger point set survives,
// the lower id on ties).
//
func (b *Board) createWireIntersectionAtNode(pos Point, n WireNode, want int, u *updateSet) (int, bool) {
	if id, ok := n.wire.get(); ok {
		return id, true
	}
	if n.up == 0 && n.left == 0 {
		return 0, false
	}

	wire := want
	if wire < 0 {
		var upWire, leftWire = -1, -1
		if f, ok := b.findNodeFromNode(n, pos, true, false); ok {
			upWire = f.wire
		}
		if f, ok := b.findNodeFromNode(n, pos, false, false); ok {
			leftWire = f.wire
		}
		switch {
		case upWire < 0 && leftWire < 0:
			return 0, false
		case upWire < 0:
			wire = leftWire
		case leftWire < 0 || upWire == leftWire:
			wire = upWire
		default:
			lw, uw := b.wires.Get(leftWire), b.wires.Get(upWire)
			if lw == nil || uw == nil {
				return 0, false
			}
			big, small := upWire, leftWire
			if len(lw.Points) > len(uw.Points) ||
				(len(lw.Points) == len(uw.Points) && leftWire < upWire) {
				big, small = leftWire, upWire
			}
			b.mergeWires(big, small, u)
			wire = big
		}
	}

	b.setWirePoint(pos, wire, u, true)
	return wire, true
}

// removeIntersectionAtNode clears the anchor at pos. Pin anchors and
// tiles without an anchor or arms are left alone. When split is set
// and the anchor joined both axes, the owning wire is re-split.
//
func (b *Board) removeIntersectionAtNode(pos Point, n WireNode, split bool, u *updateSet) {
	id, ok := n.wire.get()
	if !ok || (n.up == 0 && n.left == 0) {
		return
	}
	if w := b.wires.Get(id); w != nil {
		if pt, ok := w.Points[pos]; ok && pt.Pin != nil {
			return
		}
	}

	split = split && n.up > 0 && n.left > 0

	prev, hadPrev := b.setWirePoint(pos, -1, u, !split)
	if split && hadPrev {
		b.splitWires(prev, u)
	}
}

// tryToggleIntersection flips pos between merged anchor and plain
// crossing. Only symmetric nodes toggle: each axis must either extend
// to both sides of pos or to neither.
//
func (b *Board) tryToggleIntersection(pos Point, u *updateSet) {
	np := b.wireNodes.Get(pos)
	if np == nil || np.IsEmpty() {
		return
	}
	n := *np

	center := n.wire != 0
	left := n.left > 0
	up := n.up > 0

	right := false
	if center || left {
		want := n.left + 1
		if center {
			want = 1
		}
		if t := b.wireNodes.Get(pos.step(false, 1)); t != nil && t.left == want {
			right = true
		}
	}
	down := false
	if center || up {
		want := n.up + 1
		if center {
			want = 1
		}
		if t := b.wireNodes.Get(pos.step(true, 1)); t != nil && t.up == want {
			down = true
		}
	}

	if up != down || left != right {
		return
	}

	if center {
		b.removeIntersectionAtNode(pos, n, true, u)
	} else {
		b.createWireIntersectionAtNode(pos, n, -1, u)
	}
}

// nearestPoint returns the anchor position nearest to from along one
// axis direction among the given point set.
func nearestPoint(points map[Point]WirePoint, from Point, vertical, forward bool) (Point, bool) {
	var best Point
	bestDist := 0
	for p := range points {
		if vertical && p.X != from.X || !vertical && p.Y != from.Y {
			continue
		}
		d := p.X - from.X
		if vertical {
			d = p.Y - from.Y
		}
		if !forward {
			d = -d
		}
		if d <= 0 {
			continue
		}
		if bestDist == 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist > 0
}

// nearestPoint2 is nearestPoint over the union of two point sets.
func nearestPoint2(a, b map[Point]WirePoint, from Point, vertical, forward bool) (Point, bool) {
	pa, oka := nearestPoint(a, from, vertical, forward)
	pb, okb := nearestPoint(b, from, vertical, forward)
	switch {
	case !oka:
		return pb, okb
	case !okb:
		return pa, true
	}
	da, db := pa.X-from.X, pb.X-from.X
	if vertical {
		da, db = pa.Y-from.Y, pb.Y-from.Y
	}
	if !forward {
		da, db = -da, -db
	}
	if db < da {
		return pb, true
	}
	return pa, true
}

// splitWire extracts the given positions out of wire id into a freshly
// allocated wire. Extension flags are recomputed on both sides of the
// cut: a retained anchor whose nearest previous anchor moved away
// loses its flag toward it, and a moved anchor keeps a flag only if
// the neighbor it points at moved with it. Attached pins migrate to
// the new wire.
//
func (b *Board) splitWire(id int, group map[Point]struct{}, u *updateSet) (int, bool) {
	w := b.wires.Get(id)
	if w == nil {
		return 0, false
	}

	moved := make(map[Point]WirePoint, len(group))
	for pos := range group {
		if pt, ok := w.Points[pos]; ok {
			moved[pos] = pt
			delete(w.Points, pos)
		}
	}
	if len(moved) == 0 {
		return 0, false
	}

	newID := b.wires.FirstFree()
	nw := newWire(newID)

	for pos, pt := range moved {
		if r, ok := nearestPoint(w.Points, pos, false, true); ok {
			if rp := w.Points[r]; rp.Left {
				rp.Left = false
				w.Points[r] = rp
			}
		}
		if d, ok := nearestPoint(w.Points, pos, true, true); ok {
			if dp := w.Points[d]; dp.Up {
				dp.Up = false
				w.Points[d] = dp
			}
		}

		left := pt.Left
		if left {
			n, ok := nearestPoint2(w.Points, moved, pos, false, false)
			_, in := group[n]
			left = ok && in
		}
		up := pt.Up
		if up {
			n, ok := nearestPoint2(w.Points, moved, pos, true, false)
			_, in := group[n]
			up = ok && in
		}

		if pt.Pin != nil {
			pt.Pin.wire = newID
			u.addPin(pt.Pin.ID)
		}
		nw.Points[pos] = WirePoint{Left: left, Up: up, Pin: pt.Pin}
	}

	b.wires.Set(newID, nw)

	if len(w.Points) == 0 {
		b.wires.Remove(id)
	}
	return newID, true
}

// splitWires re-derives the connected components of wire id after its
// connectivity may have been severed, extracting every component but
// the largest into its own wire. The largest component keeps the
// original id; exact ties are broken by the component holding the
// smallest (Y, X) lexicographic position.
//
func (b *Board) splitWires(id int, u *updateSet) {
	w := b.wires.Get(id)
	if w == nil {
		return
	}

	remaining := make(map[Point]struct{}, len(w.Points))
	for pos := range w.Points {
		remaining[pos] = struct{}{}
	}

	var groups []map[Point]struct{}
	var queue []Point
	for len(remaining) > 0 {
		group := make(map[Point]struct{})
		var start Point
		first := true
		for pos := range remaining {
			if first || pointLess(pos, start) {
				start = pos
				first = false
			}
		}
		queue = append(queue[:0], start)

		for len(queue) > 0 {
			pos := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			if _, ok := remaining[pos]; !ok {
				continue
			}
			delete(remaining, pos)
			group[pos] = struct{}{}

			for _, np := range b.nodeNeighboringAnchors(pos, id) {
				if _, ok := remaining[np]; ok {
					queue = append(queue, np)
				}
			}
		}
		groups = append(groups, group)
	}

	if len(groups) <= 1 {
		return
	}

	keep := 0
	for i := 1; i < len(groups); i++ {
		if len(groups[i]) > len(groups[keep]) {
			keep = i
		} else if len(groups[i]) == len(groups[keep]) &&
			pointLess(minPoint(groups[i]), minPoint(groups[keep])) {
			keep = i
		}
	}

	u.addWire(id)
	for i, group := range groups {
		if i == keep {
			continue
		}
		if newID, ok := b.splitWire(id, group, u); ok {
			b.setNodeWires(group, newID)
			u.addWire(newID)
		}
	}
}

func pointLess(a, b Point) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

func minPoint(group map[Point]struct{}) Point {
	var min Point
	first := true
	for p := range group {
		if first || pointLess(p, min) {
			min = p
			first = false
		}
	}
	return min
}

// pinAt resolves the circuit pin placed at pos. Lock held.
func (b *Board) pinAt(pos Point) *Pin {
	n := b.circuitNodes.Get(pos)
	if n == nil {
		return nil
	}
	id, ok := n.circuit.get()
	if !ok {
		return nil
	}
	c := b.circuits.Get(id)
	if c == nil {
		return nil
	}
	for _, p := range c.Pins {
		if p.Pos == n.off {
			return p
		}
	}
	return nil
}

// CanPlaceCircuitAt reports whether a footprint of the given size fits
// at pos without overlapping an existing circuit.
//
func (b *Board) CanPlaceCircuitAt(pos Point, size Size) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.canPlaceAt(pos, size, -1)
}

// canPlaceAt checks the footprint for occupancy, ignoring tiles owned
// by circuit ignore (for in-place resizing).
func (b *Board) canPlaceAt(pos Point, size Size, ignore int) bool {
	for j := 0; j < size.H; j++ {
		for i := 0; i < size.W; i++ {
			n := b.circuitNodes.Get(pos.Add(Pt(i, j)))
			if n == nil {
				continue
			}
			if id, ok := n.circuit.get(); ok && id != ignore {
				return false
			}
		}
	}
	return true
}

// PlaceCircuit instantiates a circuit from preview at pos, writes its
// footprint into the tile index, connects its pins to the wires
// crossing them and initializes it in every simulation state. The
// operation is rejected without partial writes when the footprint
// overlaps an existing circuit.
//
func (b *Board) PlaceCircuit(pos Point, preview *Preview) (int, error) {
	var u updateSet

	b.mu.Lock()
	circ, err := b.placeCircuit(pos, preview, &u)
	b.mu.Unlock()
	if err != nil {
		return 0, err
	}

	b.flush(&u)
	b.states.initCircuit(circ)
	return circ.ID, nil
}

func (b *Board) placeCircuit(pos Point, preview *Preview, u *updateSet) (*Circuit, error) {
	impl := preview.New()
	props := preview.Props.Clone()
	if w, ok := impl.(PropWatcher); ok {
		w.ApplyProps(props, "")
	}
	size := impl.Size(props)
	if size.W <= 0 || size.H <= 0 {
		return nil, errors.Errorf("circuit %q has empty footprint", preview.Type)
	}
	if !b.canPlaceAt(pos, size, -1) {
		return nil, errors.Errorf("cannot place %q at %v: overlaps existing circuit", preview.Type, pos)
	}

	id := b.circuits.FirstFree()
	circ := &Circuit{
		ID:    id,
		Type:  preview.Type,
		Pos:   pos,
		Size:  size,
		Pins:  makePins(id, impl.CreatePins(props)),
		Impl:  impl,
		Props: props,
	}
	b.circuits.Set(id, circ)

	b.writeCircuitNodes(circ)
	b.connectPins(circ, u)
	return circ, nil
}

func (b *Board) writeCircuitNodes(c *Circuit) {
	for j := 0; j < c.Size.H; j++ {
		for i := 0; i < c.Size.W; i++ {
			n := b.circuitNodes.GetOrCreate(c.Pos.Add(Pt(i, j)))
			n.circuit = makeRef(c.ID)
			n.off = Pt(i, j)
		}
	}
}

func (b *Board) clearCircuitNodes(c *Circuit, size Size) {
	for j := 0; j < size.H; j++ {
		for i := 0; i < size.W; i++ {
			if n := b.circuitNodes.Get(c.Pos.Add(Pt(i, j))); n != nil && n.circuit.is(c.ID) {
				*n = CircuitNode{}
			}
		}
	}
}

// connectPins attaches every pin crossing existing wire runs, turning
// the crossed tile into an anchor.
func (b *Board) connectPins(c *Circuit, u *updateSet) {
	for _, pin := range c.Pins {
		gpos := c.Pos.Add(pin.Pos)
		n := b.wireNodes.Get(gpos)
		if n == nil {
			continue
		}
		id, ok := b.createWireIntersectionAtNode(gpos, *n, -1, u)
		if !ok {
			continue
		}
		if w := b.wires.Get(id); w != nil {
			if pt, ok := w.Points[gpos]; ok {
				pt.Pin = pin
				w.Points[gpos] = pt
			}
		}
		if pin.wire != id {
			pin.wire = id
			u.addPin(pin.ID)
		}
		u.addWire(id)
	}
}

// disconnectPins drops every pin's wire association, keeping the
// anchors in place.
func (b *Board) disconnectPins(c *Circuit, u *updateSet) {
	for _, pin := range c.Pins {
		if pin.wire < 0 {
			continue
		}
		gpos := c.Pos.Add(pin.Pos)
		if w := b.wires.Get(pin.wire); w != nil {
			if pt, ok := w.Points[gpos]; ok && pt.Pin == pin {
				pt.Pin = nil
				w.Points[gpos] = pt
			}
			u.addWire(pin.wire)
		}
		pin.wire = -1
		u.addPin(pin.ID)
	}
}

// RemoveCircuit removes a circuit, dropping all of its pins' wire
// associations first. Removing a freed id is a no-op.
//
func (b *Board) RemoveCircuit(id int) {
	var u updateSet

	b.mu.Lock()
	c := b.circuits.Get(id)
	if c == nil {
		b.mu.Unlock()
		return
	}
	b.disconnectPins(c, &u)
	b.clearCircuitNodes(c, c.Size)
	b.circuits.Remove(id)
	b.mu.Unlock()

	b.flush(&u)
	b.states.dropCircuit(id)
}

// SetCircuitProperty updates one property of a placed circuit. When
// the behavior reports that the change affects its footprint or pin
// layout, the circuit is resized and its pins are regenerated and
// rewired; all previously obtained pin ids for this circuit become
// invalid. A resize that would overlap another circuit is rejected and
// the property left unchanged.
//
func (b *Board) SetCircuitProperty(id int, name string, value any) error {
	var u updateSet

	b.mu.Lock()
	err := b.setCircuitProperty(id, name, value, &u)
	b.mu.Unlock()
	if err != nil {
		return err
	}

	b.flush(&u)
	b.states.updateCircuitSignals(id, -1)
	return nil
}

func (b *Board) setCircuitProperty(id int, name string, value any, u *updateSet) error {
	c := b.circuits.Get(id)
	if c == nil {
		return errors.Errorf("no circuit %d", id)
	}

	old, _ := c.Props.Get(name)
	if err := c.Props.Set(name, value); err != nil {
		return err
	}

	w, ok := c.Impl.(PropWatcher)
	if !ok {
		return nil
	}
	resize, recreate := w.PropChanged(name)

	if resize {
		w.ApplyProps(c.Props, name)
		newSize := c.Impl.Size(c.Props)
		if newSize != c.Size && !b.canPlaceAt(c.Pos, newSize, id) {
			c.Props.Set(name, old)
			w.ApplyProps(c.Props, name)
			return errors.Errorf("resizing %q would overlap existing circuit", c.Type)
		}
		b.disconnectPins(c, u)
		b.clearCircuitNodes(c, c.Size)
		c.Size = newSize
		b.writeCircuitNodes(c)
		c.Pins = makePins(id, c.Impl.CreatePins(c.Props))
		b.connectPins(c, u)
		return nil
	}

	w.ApplyProps(c.Props, name)
	if recreate {
		b.disconnectPins(c, u)
		c.Pins = makePins(id, c.Impl.CreatePins(c.Props))
		b.connectPins(c, u)
	}
	return nil
}
