// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim

import (
	"github.com/pkg/errors"
)

// CheckConsistency verifies the structural invariants tying the wire
// registry to the tile index:
//
//   - every wire point is an anchor tile owned by that wire, and every
//     anchor tile is a point of an existing wire;
//   - every nonzero distance pointer lands on an anchor of a run of
//     strictly decreasing pointers with no anchor in between;
//   - every pin reference points back at a registered circuit pin
//     connected to the referencing wire.
//
// It is meant for tests and debug builds; a non-nil error indicates a
// bug in the mutation algorithms, not a user error.
//
func (b *Board) CheckConsistency() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var err error
	b.wires.Each(func(id int, w *Wire) bool {
		if len(w.Points) == 0 {
			err = errors.Errorf("wire %d has no points", id)
			return false
		}
		for pos, pt := range w.Points {
			n := b.wireNodes.Get(pos)
			if n == nil || !n.wire.is(id) {
				err = errors.Errorf("wire %d point %v is not an anchor of the wire", id, pos)
				return false
			}
			if pt.Left && n.left == 0 {
				err = errors.Errorf("wire %d point %v has Left flag but no left run", id, pos)
				return false
			}
			if pt.Up && n.up == 0 {
				err = errors.Errorf("wire %d point %v has Up flag but no up run", id, pos)
				return false
			}
			if pt.Pin != nil {
				p := b.pinAt(pos)
				if p != pt.Pin {
					err = errors.Errorf("wire %d point %v references a pin not placed there", id, pos)
					return false
				}
				if pt.Pin.wire != id {
					err = errors.Errorf("wire %d point %v pin %v points at wire %d", id, pos, pt.Pin.ID, pt.Pin.wire)
					return false
				}
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	b.wireNodes.Each(func(pos Point, n *WireNode) {
		if err != nil {
			return
		}
		if id, ok := n.wire.get(); ok {
			w := b.wires.Get(id)
			if w == nil {
				err = errors.Errorf("anchor %v references freed wire %d", pos, id)
				return
			}
			if _, ok := w.Points[pos]; !ok {
				err = errors.Errorf("anchor %v missing from wire %d point map", pos, id)
				return
			}
		}
		if e := b.checkRun(pos, *n, false); e != nil {
			err = e
			return
		}
		if e := b.checkRun(pos, *n, true); e != nil {
			err = e
		}
	})
	return err
}

// checkRun validates one distance pointer: walking d steps backward
// lands on an anchor, through non-anchor cells with strictly
// decreasing pointers.
func (b *Board) checkRun(pos Point, n WireNode, vertical bool) error {
	d := n.dist(vertical)
	if d == 0 {
		return nil
	}
	for i := 1; i < d; i++ {
		t := b.wireNodes.Get(pos.step(vertical, -i))
		if t == nil || t.dist(vertical) != d-i {
			return errors.Errorf("broken %s run at %v: offset %d", axisName(vertical), pos, i)
		}
		if t.wire != 0 {
			return errors.Errorf("%s run at %v crosses an anchor before its end", axisName(vertical), pos)
		}
	}
	t := b.wireNodes.Get(pos.step(vertical, -d))
	if t == nil || t.wire == 0 {
		return errors.Errorf("%s run at %v does not end on an anchor", axisName(vertical), pos)
	}
	return nil
}

func axisName(vertical bool) string {
	if vertical {
		return "up"
	}
	return "left"
}
