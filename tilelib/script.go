// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilelib

import (
	"strconv"
	"sync"

	"github.com/dop251/goja"
	"github.com/pkg/errors"

	sim "github.com/db47h/tilesim"
)

// Script properties.
const (
	propCode    = "code"
	propInputs  = "inputs"
	propOutputs = "outputs"
)

// Script is a circuit behavior driven by a user JavaScript function.
// The code property must define (or evaluate to) a function
//
//	update(inputs) -> outputs
//
// taking the input pin values as an array of integers (0 none,
// 1 false, 2 true, 3 error) and returning the output values the same
// way. Input pins sit in the left column, outputs in the right one.
// A script that fails to compile or throws drives StateError on every
// output.
//
type Script struct {
	mu  sync.Mutex
	vm  *goja.Runtime
	fn  goja.Callable
	err error
	src string
}

// ScriptDefaults returns the default property set of Script.
func ScriptDefaults() *sim.PropertyStore {
	return sim.NewProperties(
		sim.Property{Name: propCode, Value: "function update(inputs) { return []; }"},
		sim.Property{Name: propInputs, Value: 1},
		sim.Property{Name: propOutputs, Value: 1},
	)
}

// NewScript returns an empty scripted behavior.
func NewScript() sim.Behavior { return &Script{} }

func pinCount(props *sim.PropertyStore, name string) int {
	n := props.Int(name, 1)
	if n < 0 {
		return 0
	}
	return n
}

func (s *Script) Size(props *sim.PropertyStore) sim.Size {
	h := pinCount(props, propInputs)
	if o := pinCount(props, propOutputs); o > h {
		h = o
	}
	if h < 1 {
		h = 1
	}
	return sim.Size{W: 2, H: h}
}

func (s *Script) CreatePins(props *sim.PropertyStore) []sim.PinDesc {
	in, out := pinCount(props, propInputs), pinCount(props, propOutputs)
	pins := make([]sim.PinDesc, 0, in+out)
	for i := 0; i < in; i++ {
		pins = append(pins, sim.PinDesc{Name: "in" + strconv.Itoa(i), Pos: sim.Pt(0, i), Dir: sim.PinInside})
	}
	for i := 0; i < out; i++ {
		pins = append(pins, sim.PinDesc{Name: "out" + strconv.Itoa(i), Pos: sim.Pt(1, i), Dir: sim.PinOutside})
	}
	return pins
}

func (s *Script) PropChanged(name string) (resize, recreatePins bool) {
	switch name {
	case propInputs, propOutputs:
		return true, true
	}
	return false, false
}

func (s *Script) ApplyProps(props *sim.PropertyStore, changed string) {
	if changed != "" && changed != propCode {
		return
	}
	s.compile(props.String(propCode, ""))
}

func (s *Script) compile(src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src == s.src && (s.fn != nil || s.err != nil) {
		return
	}
	s.src = src
	s.vm = goja.New()
	s.fn = nil
	s.err = nil

	v, err := s.vm.RunString(src)
	if err != nil {
		s.err = errors.Wrap(err, "script compile")
		return
	}
	if fn, ok := goja.AssertFunction(s.vm.Get("update")); ok {
		s.fn = fn
		return
	}
	if fn, ok := goja.AssertFunction(v); ok {
		s.fn = fn
		return
	}
	s.err = errors.New("script defines no update function")
}

// Err returns the script's compile or last run error.
func (s *Script) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Script) UpdateSignals(ctx *sim.StateContext, changed int) {
	in := pinCount(ctx.Props(), propInputs)
	out := pinCount(ctx.Props(), propOutputs)

	inputs := make([]int, in)
	for i := 0; i < in; i++ {
		inputs[i] = int(ctx.PinWireValue(i))
	}

	values, err := s.call(inputs, out)
	if err != nil {
		for i := 0; i < out; i++ {
			ctx.WritePin(in+i, sim.StateError)
		}
		return
	}
	for i := 0; i < out; i++ {
		ctx.WritePin(in+i, values[i])
	}
}

// call runs the script function under the vm lock. goja runtimes are
// not goroutine safe, and one behavior may serve several states.
func (s *Script) call(inputs []int, out int) ([]sim.WireState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fn == nil {
		if s.err == nil {
			s.err = errors.New("script not compiled")
		}
		return nil, s.err
	}

	res, err := s.fn(goja.Undefined(), s.vm.ToValue(inputs))
	if err != nil {
		s.err = errors.Wrap(err, "script update")
		return nil, s.err
	}

	values := make([]sim.WireState, out)
	raw, ok := res.Export().([]any)
	if !ok {
		return nil, errors.New("script update did not return an array")
	}
	for i := 0; i < out; i++ {
		v := sim.StateNone
		if i < len(raw) {
			if n, ok := raw[i].(int64); ok && n >= 0 && n <= 3 {
				v = sim.WireState(n)
			} else if f, ok := raw[i].(float64); ok && f >= 0 && f <= 3 {
				v = sim.WireState(int(f))
			} else {
				v = sim.StateError
			}
		}
		values[i] = v
	}
	return values, nil
}
