// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// A Direction is one of the four cardinal orientations a circuit can be
// placed in. Up is the behavior's native orientation.
//
type Direction int

const (
	Up Direction = iota
	Left
	Down
	Right
)

var dirNames = [...]string{"up", "left", "down", "right"}

func (d Direction) String() string {
	if d < Up || d > Right {
		return "up"
	}
	return dirNames[d]
}

// Horizontal reports whether d is Left or Right.
func (d Direction) Horizontal() bool { return d == Left || d == Right }

// MarshalJSON implements json.Marshaler.
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "direction")
	}
	for i, n := range dirNames {
		if n == s {
			*d = Direction(i)
			return nil
		}
	}
	return errors.Errorf("invalid direction %q", s)
}

// RotateCCWBy returns d rotated counterclockwise by o quarter turns.
// Behaviors whose native orientation is not Up normalize their "dir"
// property with this before laying out pins.
func (d Direction) RotateCCWBy(o Direction) Direction {
	return Direction(((int(d)-int(o))%4 + 4) % 4)
}

// RotatePos maps a local position within a footprint to its position
// after rotating the footprint from Up to d. size is the rotated
// footprint (see RotateSize).
//
func (d Direction) RotatePos(pos Point, size Size) Point {
	switch d {
	case Left:
		return Pt(pos.Y, size.H-pos.X-1)
	case Down:
		return Pt(size.W-pos.X-1, size.H-pos.Y-1)
	case Right:
		return Pt(size.W-pos.Y-1, pos.X)
	default:
		return pos
	}
}

// RotateSize returns the footprint size after rotating from Up to d.
func (d Direction) RotateSize(size Size) Size {
	if d.Horizontal() {
		return Size{W: size.H, H: size.W}
	}
	return size
}

// PinDir classifies how a pin interacts with its wire.
//
//	PinInside   the pin reads the wire (circuit input)
//	PinOutside  the pin drives the wire (circuit output)
//	PinCustom   the pin participates in wire value folding through the
//	            behavior's MutatePinState hook (e.g. pull resistors)
//	PinDynamic  the direction is chosen per simulation state at run
//	            time, starting from a declared default
//
type PinDir int

const (
	PinInside PinDir = iota
	PinOutside
	PinCustom
	PinDynamic
)

// A PinID identifies a pin as (owning circuit id, pin index). External
// references to pins are always by id, resolved through the board's
// circuit registry at use time.
//
type PinID struct {
	Circuit int
	Index   int
}

// A PinDesc describes one pin of a behavior's layout: name, position
// local to the circuit origin, and direction class. DynDefault is the
// starting direction for PinDynamic pins.
//
type PinDesc struct {
	Name       string
	Pos        Point
	Dir        PinDir
	DynDefault PinDir
}

// A Pin is a circuit's electrical terminal. Pins are owned by their
// circuit and stored inline in its pin list; wire points and the tile
// index refer to them non-owningly.
//
type Pin struct {
	ID         PinID
	Name       string
	Pos        Point // local to the circuit origin
	Dir        PinDir
	DynDefault PinDir

	wire int // connected wire id, -1 when unconnected
}

// Wire returns the id of the wire the pin is connected to. The
// association changes whenever the board is mutated; callers that may
// race with mutations must use Board.PinWire, which resolves it under
// the board lock.
func (p *Pin) Wire() (int, bool) {
	if p.wire < 0 {
		return 0, false
	}
	return p.wire, true
}

// direction resolves the pin's effective direction for a simulation
// state, honoring per-state overrides of PinDynamic pins.
func (p *Pin) direction(s *State) PinDir {
	if p.Dir != PinDynamic {
		return p.Dir
	}
	if s != nil {
		if d, ok := s.pinDirOverride(p.ID); ok {
			return d
		}
	}
	return p.DynDefault
}

// A Behavior implements one circuit type: it reports the circuit's
// footprint and pin layout for a given property set, and recomputes
// output pin values when input signals change. Behaviors must be safe
// for concurrent use by multiple simulation states; per-run data lives
// in the state (see StateContext.Internal), never in the behavior.
//
type Behavior interface {
	// Size returns the circuit footprint in tiles.
	Size(props *PropertyStore) Size

	// CreatePins returns the pin layout. It is called at creation and
	// again whenever a property change requests pin regeneration; all
	// previously issued pin references become invalid.
	CreatePins(props *PropertyStore) []PinDesc

	// UpdateSignals recomputes outputs. changedPin is the index of the
	// input that changed, or -1 when all inputs must be considered.
	UpdateSignals(ctx *StateContext, changedPin int)
}

// Updater is implemented by behaviors that want periodic updates.
// After each Update call the engine re-derives the interval, so a
// behavior may change its period or stop updates by returning false.
//
type Updater interface {
	Update(ctx *StateContext)
	UpdateInterval(ctx *StateContext) (time.Duration, bool)
}

// Initer is implemented by behaviors that set up per-state data when a
// circuit first joins a simulation state.
type Initer interface {
	InitState(ctx *StateContext)
}

// ParamSaver is implemented by behaviors with serializable parameters
// (not simulation state).
type ParamSaver interface {
	SaveParams() json.RawMessage
}

// ParamLoader restores parameters saved by SaveParams.
type ParamLoader interface {
	LoadParams(data json.RawMessage) error
}

// InternalSaver is implemented by behaviors whose per-state internal
// data survives serialization (e.g. a toggle flag).
type InternalSaver interface {
	SaveInternal(internal any) json.RawMessage
}

// InternalLoader restores per-state internal data saved by
// SaveInternal.
type InternalLoader interface {
	LoadInternal(data json.RawMessage) (any, error)
}

// CustomPinHandler is implemented by behaviors declaring PinCustom
// pins. MutatePinState folds the pin's contribution into a wire value
// being recomputed.
type CustomPinHandler interface {
	MutatePinState(ctx *StateContext, pin int, v *WireState)
}

// PropWatcher is implemented by behaviors whose layout depends on
// properties. PropChanged reports what a change to the named property
// invalidates; ApplyProps lets the behavior cache derived values.
type PropWatcher interface {
	PropChanged(name string) (resize, recreatePins bool)
	ApplyProps(props *PropertyStore, changed string)
}

// A Circuit is one placed circuit instance. Size is fixed after
// creation except through SetCircuitProperty, which may resize and
// regenerate pins.
//
type Circuit struct {
	ID    int
	Type  string
	Pos   Point
	Size  Size
	Pins  []*Pin
	Impl  Behavior
	Props *PropertyStore
}

// makePins instantiates Pin objects from a behavior's descriptors.
func makePins(id int, descs []PinDesc) []*Pin {
	pins := make([]*Pin, len(descs))
	for i, d := range descs {
		pins[i] = &Pin{
			ID:         PinID{Circuit: id, Index: i},
			Name:       d.Name,
			Pos:        d.Pos,
			Dir:        d.Dir,
			DynDefault: d.DynDefault,
			wire:       -1,
		}
	}
	return pins
}

// pinNamed returns the circuit's pin with the given name.
func (c *Circuit) pinNamed(name string) *Pin {
	for _, p := range c.Pins {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// A CircuitNode is the per-tile circuit record of the spatial index:
// the covering circuit and the tile's offset from the circuit origin.
//
type CircuitNode struct {
	circuit tileRef
	off     Point
}

// CircuitID returns the covering circuit's id.
func (n CircuitNode) CircuitID() (int, bool) { return n.circuit.get() }

// Offset returns the tile's offset from the circuit's origin.
func (n CircuitNode) Offset() Point { return n.off }

// A Preview is a placeable circuit template: a type tag, a behavior
// factory and the default property set. Editing a preview's properties
// configures circuits created from it.
//
type Preview struct {
	Type  string
	Props *PropertyStore
	New   func() Behavior
}

// Size returns the footprint a circuit created from this preview will
// occupy.
func (p *Preview) Size() Size {
	b := p.New()
	if w, ok := b.(PropWatcher); ok {
		w.ApplyProps(p.Props, "")
	}
	return b.Size(p.Props)
}

// Previews is a registry of circuit types keyed by type tag, used to
// resolve type tags during deserialization.
//
type Previews map[string]*Preview

// Add registers p, replacing any previous preview with the same type
// tag.
func (r Previews) Add(p *Preview) { r[p.Type] = p }
