// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim_test

import (
	"encoding/json"
	"testing"

	sim "github.com/db47h/tilesim"
)

func Test_property_store(t *testing.T) {
	ps := sim.NewProperties(
		sim.Property{Name: "dir", Value: sim.Right},
		sim.Property{Name: "period", Value: 500},
		sim.Property{Name: "label", Value: "clk"},
		sim.Property{Name: "on", Value: true},
	)

	if got := ps.Direction("dir", sim.Up); got != sim.Right {
		t.Fatalf("dir = %v", got)
	}
	if got := ps.Int("period", 0); got != 500 {
		t.Fatalf("period = %d", got)
	}
	if got := ps.String("label", ""); got != "clk" {
		t.Fatalf("label = %q", got)
	}
	if got := ps.Bool("on", false); got != true {
		t.Fatalf("on = %v", got)
	}
	// absent and mistyped lookups fall back to the default
	if got := ps.Int("nope", 7); got != 7 {
		t.Fatalf("absent = %d", got)
	}
	if got := ps.Bool("period", true); got != true {
		t.Fatalf("mistyped = %v", got)
	}

	if err := ps.Set("period", 250); err != nil {
		t.Fatal(err)
	}
	if err := ps.Set("period", "fast"); err == nil {
		t.Fatal("type change accepted")
	}
	if err := ps.Set("nope", 1); err == nil {
		t.Fatal("unknown property accepted")
	}

	// clones do not share storage
	c := ps.Clone()
	c.Set("period", 1000)
	if got := ps.Int("period", 0); got != 250 {
		t.Fatalf("clone aliases the original: %d", got)
	}

	// declaration order is stable
	var names []string
	ps.Each(func(name string, v any) { names = append(names, name) })
	want := []string{"dir", "period", "label", "on"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("order %v, expected %v", names, want)
		}
	}
}

func Test_property_store_serialization(t *testing.T) {
	ps := sim.NewProperties(
		sim.Property{Name: "dir", Value: sim.Left},
		sim.Property{Name: "period", Value: 250},
	)

	data := ps.Save()
	back := sim.NewProperties(
		sim.Property{Name: "dir", Value: sim.Up},
		sim.Property{Name: "period", Value: 500},
	)
	back.Load(data)
	if got := back.Direction("dir", sim.Up); got != sim.Left {
		t.Fatalf("dir = %v", got)
	}
	if got := back.Int("period", 0); got != 250 {
		t.Fatalf("period = %d", got)
	}

	// corrupt and unknown entries are skipped
	back.Load(map[string]json.RawMessage{
		"period": json.RawMessage(`"soon"`),
		"extra":  json.RawMessage(`1`),
	})
	if got := back.Int("period", 0); got != 250 {
		t.Fatalf("corrupt entry applied: %d", got)
	}
}

func Test_nil_property_store(t *testing.T) {
	var ps *sim.PropertyStore
	if ps.Len() != 0 {
		t.Fatal("nil store has length")
	}
	if got := ps.Bool("x", true); got != true {
		t.Fatal("nil store lookup")
	}
	if ps.Save() != nil {
		t.Fatal("nil store saved data")
	}
	ps.Load(nil)
	c := ps.Clone()
	if c == nil || c.Len() != 0 {
		t.Fatal("nil store clone")
	}
}
