// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim

import (
	"encoding/json"
	"sort"
	"time"
)

// WirePointData is the serialized form of one wire anchor.
type WirePointData struct {
	Pos  Point
	Left bool `json:",omitempty"`
	Up   bool `json:",omitempty"`
}

// WireData is the serialized form of one wire: its id and its anchors
// with connectivity flags. Distance pointers are a derived cache and
// are never persisted; loading re-derives them from the point lists.
//
type WireData struct {
	ID     int
	Points []WirePointData
}

// CircuitData is the serialized form of one circuit: type tag,
// position, the wires each named pin connects to, the property values,
// optional behavior parameters, per-state internal data and pending
// update interval.
//
type CircuitData struct {
	Type     string
	Pos      Point
	PinWires map[string]int             `json:",omitempty"`
	Props    map[string]json.RawMessage `json:",omitempty"`
	Params   json.RawMessage            `json:",omitempty"`
	Internal json.RawMessage            `json:",omitempty"`
	Interval time.Duration              `json:",omitempty"`
}

// BoardData is the serialized form of a whole board.
type BoardData struct {
	Wires    []WireData
	Circuits []CircuitData
}

// Save serializes the board. When state is non-nil, each circuit's
// per-state internal data and pending update interval are captured
// from it. Output is deterministic: wires sorted by id, points by
// row-major position, circuits by id.
//
func (b *Board) Save(state *State) *BoardData {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data := &BoardData{}

	b.wires.Each(func(id int, w *Wire) bool {
		wd := WireData{ID: id, Points: make([]WirePointData, 0, len(w.Points))}
		for pos, pt := range w.Points {
			wd.Points = append(wd.Points, WirePointData{Pos: pos, Left: pt.Left, Up: pt.Up})
		}
		sort.Slice(wd.Points, func(i, j int) bool {
			return pointLess(wd.Points[i].Pos, wd.Points[j].Pos)
		})
		data.Wires = append(data.Wires, wd)
		return true
	})

	b.circuits.Each(func(id int, c *Circuit) bool {
		cd := CircuitData{
			Type:  c.Type,
			Pos:   c.Pos,
			Props: c.Props.Save(),
		}
		for _, p := range c.Pins {
			if wid, ok := p.Wire(); ok {
				if cd.PinWires == nil {
					cd.PinWires = make(map[string]int)
				}
				cd.PinWires[p.Name] = wid
			}
		}
		if sv, ok := c.Impl.(ParamSaver); ok {
			cd.Params = sv.SaveParams()
		}
		if state != nil {
			state.mu.Lock()
			if sv, ok := c.Impl.(InternalSaver); ok {
				if cs := state.circuits[id]; cs != nil && cs.internal != nil {
					cd.Internal = sv.SaveInternal(cs.internal)
				}
			}
			if at, ok := state.updates[id]; ok {
				if d := time.Until(at); d > 0 {
					cd.Interval = d
				}
			}
			state.mu.Unlock()
		}
		data.Circuits = append(data.Circuits, cd)
		return true
	})

	return data
}

// Load rebuilds a board from serialized data. Wire ids are preserved;
// circuit ids are assigned fresh, in record order. Tile index
// contents, including all distance pointer runs, are re-derived from
// the wire point lists. Malformed records are recovered locally, never
// by failing the whole load: unknown circuit type tags and duplicated
// wire ids are skipped (the first record wins), and corrupt property
// or parameter blobs fall back to defaults.
//
func Load(data *BoardData, previews Previews) (*Board, error) {
	b := NewBoard()
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, wd := range data.Wires {
		if wd.ID < 0 || len(wd.Points) == 0 {
			continue
		}
		if b.wires.Exists(wd.ID) {
			// first record wins
			continue
		}
		w := newWire(wd.ID)
		for _, pd := range wd.Points {
			w.Points[pd.Pos] = WirePoint{Left: pd.Left, Up: pd.Up}
		}
		b.wires.Set(wd.ID, w)
		b.rebuildWireNodes(w)
	}

	for _, cd := range data.Circuits {
		p, ok := previews[cd.Type]
		if !ok {
			continue
		}
		b.loadCircuit(cd, p)
	}

	return b, nil
}

// rebuildWireNodes writes a wire's anchors into the tile index and
// reconstructs the distance pointer runs between consecutive anchors
// implied by the Left/Up flags.
func (b *Board) rebuildWireNodes(w *Wire) {
	for pos := range w.Points {
		b.wireNodes.GetOrCreate(pos).wire = makeRef(w.ID)
	}
	for pos, pt := range w.Points {
		if pt.Left {
			if prev, ok := nearestPoint(w.Points, pos, false, false); ok {
				for x := prev.X + 1; x <= pos.X; x++ {
					b.wireNodes.GetOrCreate(Pt(x, pos.Y)).left = x - prev.X
				}
			}
		}
		if pt.Up {
			if prev, ok := nearestPoint(w.Points, pos, true, false); ok {
				for y := prev.Y + 1; y <= pos.Y; y++ {
					b.wireNodes.GetOrCreate(Pt(pos.X, y)).up = y - prev.Y
				}
			}
		}
	}
}

// loadCircuit restores one circuit record. Lock held.
func (b *Board) loadCircuit(cd CircuitData, p *Preview) {
	impl := p.New()
	props := p.Props.Clone()
	props.Load(cd.Props)
	if w, ok := impl.(PropWatcher); ok {
		w.ApplyProps(props, "")
	}
	if cd.Params != nil {
		if ld, ok := impl.(ParamLoader); ok {
			// a corrupt blob keeps the behavior at its defaults
			_ = ld.LoadParams(cd.Params)
		}
	}

	size := impl.Size(props)
	if size.W <= 0 || size.H <= 0 || !b.canPlaceAt(cd.Pos, size, -1) {
		return
	}

	id := b.circuits.FirstFree()
	circ := &Circuit{
		ID:    id,
		Type:  cd.Type,
		Pos:   cd.Pos,
		Size:  size,
		Pins:  makePins(id, impl.CreatePins(props)),
		Impl:  impl,
		Props: props,
	}
	b.circuits.Set(id, circ)
	b.writeCircuitNodes(circ)

	for name, wid := range cd.PinWires {
		pin := circ.pinNamed(name)
		w := b.wires.Get(wid)
		if pin == nil || w == nil {
			continue
		}
		gpos := cd.Pos.Add(pin.Pos)
		pt, ok := w.Points[gpos]
		if !ok {
			continue
		}
		pt.Pin = pin
		w.Points[gpos] = pt
		pin.wire = wid
	}
}

// LoadState restores the per-state circuit internals and update
// deadlines captured by Save into a state attached to the loaded
// board, then runs a full signal pass. The board must have been built
// by Load from the same BoardData, so circuit records match circuits
// by (type, position).
//
func (b *Board) LoadState(data *BoardData, s *State, now time.Time) {
	type loaded struct {
		c        *Circuit
		internal any
		interval time.Duration
	}
	var restore []loaded

	b.mu.RLock()
	b.circuits.Each(func(id int, c *Circuit) bool {
		for _, cd := range data.Circuits {
			if cd.Type != c.Type || cd.Pos != c.Pos {
				continue
			}
			l := loaded{c: c, interval: cd.Interval}
			if cd.Internal != nil {
				if ld, ok := c.Impl.(InternalLoader); ok {
					if v, err := ld.LoadInternal(cd.Internal); err == nil {
						l.internal = v
					}
				}
			}
			restore = append(restore, l)
			break
		}
		return true
	})
	b.mu.RUnlock()

	for _, l := range restore {
		s.mu.Lock()
		if l.internal != nil {
			s.getCircuitState(l.c.ID).internal = l.internal
		}
		if l.interval > 0 {
			s.updates[l.c.ID] = now.Add(l.interval)
		}
		s.mu.Unlock()
		s.enqueue(task{kind: taskCircuit, id: l.c.ID, pin: -1})
	}
}
