// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim

import (
	"sync"
	"time"
)

// A WireState is a 4-valued logic level.
//
//	StateNone   no driver asserts a value
//	StateFalse  driven low
//	StateTrue   driven high
//	StateError  two or more drivers disagree
//
type WireState uint8

const (
	StateNone WireState = iota
	StateFalse
	StateTrue
	StateError
)

var stateNames = [...]string{"none", "false", "true", "error"}

func (s WireState) String() string {
	if int(s) >= len(stateNames) {
		return "error"
	}
	return stateNames[s]
}

// Combine folds another driver's assertion into s: StateNone is the
// identity, StateError absorbs, and disagreeing boolean values yield
// StateError.
//
func (s WireState) Combine(o WireState) WireState {
	switch {
	case s == StateNone:
		return o
	case o == StateNone:
		return s
	case s == o:
		return s
	default:
		return StateError
	}
}

// Bool returns the boolean value of s. ok is false for StateNone and
// StateError.
func (s WireState) Bool() (v, ok bool) {
	switch s {
	case StateFalse:
		return false, true
	case StateTrue:
		return true, true
	}
	return false, false
}

// BoolState returns StateTrue or StateFalse for v.
func BoolState(v bool) WireState {
	if v {
		return StateTrue
	}
	return StateFalse
}

// taskBudget bounds one propagation drain. An oscillating circuit
// (e.g. a NOT gate feeding itself) exhausts the budget instead of
// hanging the caller; leftover tasks are dropped.
const taskBudget = 10000

type taskKind uint8

const (
	taskWire taskKind = iota
	taskCircuit
	taskPin
)

type task struct {
	kind taskKind
	id   int // wire id or circuit id
	pin  int // changed pin index, -1 for all
}

// circuitState is the per-state record of one circuit: last seen pin
// values, per-state direction overrides for dynamic pins, and the
// behavior's opaque internal data.
type circuitState struct {
	pins     map[int]WireState
	dirs     map[int]PinDir
	internal any
}

func newCircuitState() *circuitState {
	return &circuitState{
		pins: make(map[int]WireState),
		dirs: make(map[int]PinDir),
	}
}

// A State is one simulation run over a board: wire values, per-circuit
// pin values and internal data, and the propagation queue. A board may
// host several independent states concurrently; they share the
// topology but never the values.
//
// Propagation is a FIFO task queue drained on the calling goroutine:
// any mutation entry point enqueues its update and drains the queue
// unless a drain is already in progress higher up the stack, in which
// case the running drain picks the task up.
//
type State struct {
	board *Board

	mu       sync.Mutex
	wires    map[int]WireState
	circuits map[int]*circuitState
	updates  map[int]time.Time
	queue    []task
	draining bool
}

func newState(b *Board) *State {
	return &State{
		board:    b,
		wires:    make(map[int]WireState),
		circuits: make(map[int]*circuitState),
		updates:  make(map[int]time.Time),
	}
}

// NewState creates a simulation state, attaches it to the board and
// synchronizes it with the current topology.
//
func (b *Board) NewState() *State {
	s := newState(b)
	b.states.add(s)

	b.mu.RLock()
	var wires []int
	b.wires.Each(func(id int, w *Wire) bool {
		wires = append(wires, id)
		return true
	})
	var circuits []*Circuit
	b.circuits.Each(func(id int, c *Circuit) bool {
		circuits = append(circuits, c)
		return true
	})
	b.mu.RUnlock()

	for _, id := range wires {
		s.enqueue(task{kind: taskWire, id: id})
	}
	for _, c := range circuits {
		s.initCircuit(c)
	}
	return s
}

// Release detaches the state from its board. The state stays readable
// but no longer receives topology updates.
func (s *State) Release() { s.board.states.remove(s) }

// ReadWire returns the wire's current value. Freed or never-driven
// wires read as StateNone.
//
func (s *State) ReadWire(id int) WireState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wires[id]
}

// ReadPin returns the last value seen on a pin.
func (s *State) ReadPin(id PinID) WireState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs := s.circuits[id.Circuit]; cs != nil {
		return cs.pins[id.Index]
	}
	return StateNone
}

func (s *State) pinDirOverride(id PinID) (PinDir, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs := s.circuits[id.Circuit]; cs != nil {
		d, ok := cs.dirs[id.Index]
		return d, ok
	}
	return 0, false
}

func (s *State) getCircuitState(id int) *circuitState {
	cs := s.circuits[id]
	if cs == nil {
		cs = newCircuitState()
		s.circuits[id] = cs
	}
	return cs
}

func (s *State) enqueue(t task) {
	s.mu.Lock()
	s.queue = append(s.queue, t)
	s.mu.Unlock()
	s.run()
}

// run drains the task queue. Reentrant calls (from behaviors invoked
// while draining) return immediately; the outer drain processes
// whatever they enqueued.
func (s *State) run() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for budget := taskBudget; budget > 0 && len(s.queue) > 0; budget-- {
		t := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.process(t)
		s.mu.Lock()
	}
	s.queue = s.queue[:0]
	s.draining = false
	s.mu.Unlock()
}

func (s *State) process(t task) {
	switch t.kind {
	case taskWire:
		s.processWire(t.id)
	case taskCircuit:
		s.processCircuit(t.id, t.pin)
	case taskPin:
		s.processPin(PinID{Circuit: t.id, Index: t.pin})
	}
}

// processWire recomputes a wire's value by folding the outputs of all
// connected driving pins, applies custom pin mutators, and feeds the
// result back into connected inputs.
func (s *State) processWire(id int) {
	b := s.board

	type customPin struct {
		circuit *Circuit
		index   int
	}
	var (
		pins    []*Pin
		circs   []*Circuit
		customs []customPin
	)

	b.mu.RLock()
	w := b.wires.Get(id)
	if w == nil {
		b.mu.RUnlock()
		s.mu.Lock()
		delete(s.wires, id)
		s.mu.Unlock()
		return
	}
	for _, pt := range w.Points {
		if pt.Pin == nil {
			continue
		}
		pins = append(pins, pt.Pin)
		circs = append(circs, b.circuits.Get(pt.Pin.ID.Circuit))
	}
	b.mu.RUnlock()

	value := StateNone
	for i, p := range pins {
		switch p.direction(s) {
		case PinOutside:
			value = value.Combine(s.ReadPin(p.ID))
		case PinCustom:
			if c := circs[i]; c != nil {
				customs = append(customs, customPin{circuit: c, index: p.ID.Index})
			}
		}
	}
	for _, cp := range customs {
		if h, ok := cp.circuit.Impl.(CustomPinHandler); ok {
			h.MutatePinState(&StateContext{State: s, Circuit: cp.circuit}, cp.index, &value)
		}
	}

	s.mu.Lock()
	prev, existed := s.wires[id]
	s.wires[id] = value
	s.mu.Unlock()
	if existed && prev == value {
		return
	}

	for _, p := range pins {
		if p.direction(s) == PinInside {
			s.setPinInput(p.ID, value)
		}
	}
}

// setPinInput records a new input value on a pin and notifies the
// owning circuit if it changed.
func (s *State) setPinInput(id PinID, v WireState) {
	s.mu.Lock()
	cs := s.getCircuitState(id.Circuit)
	if cs.pins[id.Index] == v {
		s.mu.Unlock()
		return
	}
	cs.pins[id.Index] = v
	s.mu.Unlock()
	s.enqueue(task{kind: taskCircuit, id: id.Circuit, pin: id.Index})
}

// processPin re-reads a pin's input from its connected wire, used when
// the pin's wire association changed.
func (s *State) processPin(id PinID) {
	p, wid := s.board.pinByID(id)
	if p == nil {
		return
	}
	v := StateNone
	if wid >= 0 {
		v = s.ReadWire(wid)
	}
	switch p.direction(s) {
	case PinInside, PinCustom:
		s.setPinInput(id, v)
	}
}

func (s *State) processCircuit(id, pin int) {
	b := s.board
	b.mu.RLock()
	c := b.circuits.Get(id)
	b.mu.RUnlock()
	if c == nil {
		return
	}
	c.Impl.UpdateSignals(&StateContext{State: s, Circuit: c}, pin)
}

// initCircuit sets up the circuit's per-state record, runs the
// behavior's state initialization and a full signal pass, and
// registers its periodic update if it wants one.
func (s *State) initCircuit(c *Circuit) {
	s.mu.Lock()
	s.getCircuitState(c.ID)
	s.mu.Unlock()

	ctx := &StateContext{State: s, Circuit: c}
	if in, ok := c.Impl.(Initer); ok {
		in.InitState(ctx)
	}
	c.Impl.UpdateSignals(ctx, -1)
	if up, ok := c.Impl.(Updater); ok {
		if d, ok := up.UpdateInterval(ctx); ok {
			s.mu.Lock()
			s.updates[c.ID] = time.Now().Add(d)
			s.mu.Unlock()
		}
	}
}

func (s *State) dropCircuit(id int) {
	s.mu.Lock()
	delete(s.circuits, id)
	delete(s.updates, id)
	s.mu.Unlock()
}

// RunTicks fires the periodic update of every circuit whose deadline
// has passed at now, re-deriving each circuit's next deadline from the
// behavior afterwards. Ticks fire at-or-after their deadline on the
// next RunTicks call, never exactly on time.
//
func (s *State) RunTicks(now time.Time) {
	s.mu.Lock()
	var due []int
	for id, at := range s.updates {
		if !at.After(now) {
			due = append(due, id)
			delete(s.updates, id)
		}
	}
	s.mu.Unlock()

	for _, id := range due {
		b := s.board
		b.mu.RLock()
		c := b.circuits.Get(id)
		b.mu.RUnlock()
		if c == nil {
			continue
		}
		up, ok := c.Impl.(Updater)
		if !ok {
			continue
		}
		ctx := &StateContext{State: s, Circuit: c}
		up.Update(ctx)
		if d, ok := up.UpdateInterval(ctx); ok {
			s.mu.Lock()
			s.updates[id] = now.Add(d)
			s.mu.Unlock()
		}
	}
}

// NextTick returns the earliest pending periodic deadline.
func (s *State) NextTick() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var min time.Time
	ok := false
	for _, at := range s.updates {
		if !ok || at.Before(min) {
			min = at
			ok = true
		}
	}
	return min, ok
}

// Interact runs fn with a context for the given circuit on this
// state, letting callers invoke behavior-specific operations such as
// toggling a button. It reports whether the circuit exists.
//
func (s *State) Interact(id int, fn func(*StateContext)) bool {
	b := s.board
	b.mu.RLock()
	c := b.circuits.Get(id)
	b.mu.RUnlock()
	if c == nil {
		return false
	}
	fn(&StateContext{State: s, Circuit: c})
	return true
}

// pinByID resolves a pin reference and the id of its connected wire,
// -1 when unconnected. The wire id is captured under the board lock:
// merges, splits and pin regeneration rewrite it under the write lock,
// so it must not be re-read from the pin once the lock is released.
func (b *Board) pinByID(id PinID) (p *Pin, wire int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c := b.circuits.Get(id.Circuit)
	if c == nil || id.Index < 0 || id.Index >= len(c.Pins) {
		return nil, -1
	}
	p = c.Pins[id.Index]
	return p, p.wire
}

// A StateContext gives a behavior access to one circuit's slice of one
// simulation state. Contexts are cheap and transient; behaviors must
// not retain them across calls.
//
type StateContext struct {
	State   *State
	Circuit *Circuit
}

// ReadPin returns the last value seen on pin i.
func (ctx *StateContext) ReadPin(i int) WireState {
	return ctx.State.ReadPin(PinID{Circuit: ctx.Circuit.ID, Index: i})
}

// WritePin asserts a new output value on pin i, propagating to the
// connected wire if the value changed.
//
func (ctx *StateContext) WritePin(i int, v WireState) {
	s := ctx.State
	id := PinID{Circuit: ctx.Circuit.ID, Index: i}

	s.mu.Lock()
	cs := s.getCircuitState(id.Circuit)
	if cs.pins[id.Index] == v {
		s.mu.Unlock()
		return
	}
	cs.pins[id.Index] = v
	s.mu.Unlock()

	if _, wid := s.board.pinByID(id); wid >= 0 {
		s.enqueue(task{kind: taskWire, id: wid, pin: -1})
	}
}

// PinWireValue returns the current value of the wire connected to pin
// i, or StateNone when unconnected.
func (ctx *StateContext) PinWireValue(i int) WireState {
	if _, wid := ctx.State.board.pinByID(PinID{Circuit: ctx.Circuit.ID, Index: i}); wid >= 0 {
		return ctx.State.ReadWire(wid)
	}
	return StateNone
}

// SetPinDirection overrides the effective direction of dynamic pin i
// for this state.
//
func (ctx *StateContext) SetPinDirection(i int, d PinDir) {
	s := ctx.State
	id := PinID{Circuit: ctx.Circuit.ID, Index: i}

	s.mu.Lock()
	cs := s.getCircuitState(id.Circuit)
	if cur, ok := cs.dirs[id.Index]; ok && cur == d {
		s.mu.Unlock()
		return
	}
	cs.dirs[id.Index] = d
	s.mu.Unlock()

	p, wid := s.board.pinByID(id)
	if p == nil {
		return
	}
	switch d {
	case PinOutside:
		s.enqueue(task{kind: taskCircuit, id: id.Circuit, pin: id.Index})
	default:
		if wid >= 0 {
			s.enqueue(task{kind: taskWire, id: wid, pin: -1})
		} else {
			s.setPinInput(id, StateNone)
		}
	}
}

// Internal returns the behavior's per-state data.
func (ctx *StateContext) Internal() any {
	s := ctx.State
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs := s.circuits[ctx.Circuit.ID]; cs != nil {
		return cs.internal
	}
	return nil
}

// SetInternal replaces the behavior's per-state data.
func (ctx *StateContext) SetInternal(v any) {
	s := ctx.State
	s.mu.Lock()
	s.getCircuitState(ctx.Circuit.ID).internal = v
	s.mu.Unlock()
}

// SetUpdateInterval schedules (or cancels, ok=false) the circuit's
// next periodic update.
func (ctx *StateContext) SetUpdateInterval(d time.Duration, ok bool) {
	s := ctx.State
	s.mu.Lock()
	if ok {
		s.updates[ctx.Circuit.ID] = time.Now().Add(d)
	} else {
		delete(s.updates, ctx.Circuit.ID)
	}
	s.mu.Unlock()
}

// Props returns the circuit's property store.
func (ctx *StateContext) Props() *PropertyStore { return ctx.Circuit.Props }

// A StateCollection fans topology updates out to every attached
// simulation state.
//
type StateCollection struct {
	mu     sync.RWMutex
	states []*State
}

func (sc *StateCollection) add(s *State) {
	sc.mu.Lock()
	sc.states = append(sc.states, s)
	sc.mu.Unlock()
}

func (sc *StateCollection) remove(s *State) {
	sc.mu.Lock()
	for i, t := range sc.states {
		if t == s {
			sc.states = append(sc.states[:i], sc.states[i+1:]...)
			break
		}
	}
	sc.mu.Unlock()
}

func (sc *StateCollection) snapshot() []*State {
	sc.mu.RLock()
	out := make([]*State, len(sc.states))
	copy(out, sc.states)
	sc.mu.RUnlock()
	return out
}

func (sc *StateCollection) updateWire(id int) {
	for _, s := range sc.snapshot() {
		s.enqueue(task{kind: taskWire, id: id, pin: -1})
	}
}

func (sc *StateCollection) updatePinWire(id PinID) {
	for _, s := range sc.snapshot() {
		s.enqueue(task{kind: taskPin, id: id.Circuit, pin: id.Index})
	}
}

func (sc *StateCollection) updateCircuitSignals(id, pin int) {
	for _, s := range sc.snapshot() {
		s.enqueue(task{kind: taskCircuit, id: id, pin: pin})
	}
}

func (sc *StateCollection) initCircuit(c *Circuit) {
	for _, s := range sc.snapshot() {
		s.initCircuit(c)
	}
}

func (sc *StateCollection) dropCircuit(id int) {
	for _, s := range sc.snapshot() {
		s.dropCircuit(id)
	}
}
