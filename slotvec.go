// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim

// A SlotVec is a growable store handing out stable small-integer ids.
// Freed slots are reused by the next allocation, so ids stay dense but
// are only valid until removed. Callers must treat a nil Get result as
// "this id has been freed" and give up rather than fail.
//
type SlotVec[T any] struct {
	items []*T
}

// FirstFree returns the lowest unoccupied id.
func (v *SlotVec[T]) FirstFree() int {
	for i, it := range v.items {
		if it == nil {
			return i
		}
	}
	return len(v.items)
}

// Get returns the item stored under id, or nil.
func (v *SlotVec[T]) Get(id int) *T {
	if id < 0 || id >= len(v.items) {
		return nil
	}
	return v.items[id]
}

// Exists reports whether id is occupied.
func (v *SlotVec[T]) Exists(id int) bool { return v.Get(id) != nil }

// Set stores item under id, growing the store as needed.
func (v *SlotVec[T]) Set(id int, item *T) {
	for len(v.items) <= id {
		v.items = append(v.items, nil)
	}
	v.items[id] = item
}

// Remove frees id and returns the removed item, or nil if the id was
// already free.
func (v *SlotVec[T]) Remove(id int) *T {
	if id < 0 || id >= len(v.items) {
		return nil
	}
	it := v.items[id]
	v.items[id] = nil
	return it
}

// Len returns the number of occupied slots.
func (v *SlotVec[T]) Len() int {
	n := 0
	for _, it := range v.items {
		if it != nil {
			n++
		}
	}
	return n
}

// Each calls fn for every occupied slot in id order until fn returns
// false.
func (v *SlotVec[T]) Each(fn func(id int, item *T) bool) {
	for i, it := range v.items {
		if it != nil && !fn(i, it) {
			return
		}
	}
}
