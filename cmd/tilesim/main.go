// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command tilesim builds a small demo board, simulates it for a while
// and round-trips it through a bbolt board store.
//
package main

import (
	"flag"
	"log"
	"time"

	sim "github.com/db47h/tilesim"
	"github.com/db47h/tilesim/boltstore"
	"github.com/db47h/tilesim/tilelib"
)

var (
	dbFile  = flag.String("db", "boards.db", "board database file")
	name    = flag.String("board", "demo", "board name")
	runFor  = flag.Duration("run", 2*time.Second, "simulation run time")
	verbose = flag.Bool("v", false, "verbose store logging")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	previews := tilelib.Registry()
	previews["clock"].Props.Set("period_ms", 200)

	board := sim.NewBoard()
	state := board.NewState()

	// clock -> wire -> NOT -> wire -> frequency meter
	clock, err := board.PlaceCircuit(sim.Pt(0, 0), previews["clock"])
	if err != nil {
		log.Fatal(err)
	}
	not, err := board.PlaceCircuit(sim.Pt(5, 0), previews["not"])
	if err != nil {
		log.Fatal(err)
	}
	meter, err := board.PlaceCircuit(sim.Pt(10, -1), previews["freqmeter"])
	if err != nil {
		log.Fatal(err)
	}
	if _, ok := board.PlaceWirePart(sim.WirePart{Pos: sim.Pt(1, 0), Length: 4}); !ok {
		log.Fatal("placing clock wire failed")
	}
	if _, ok := board.PlaceWirePart(sim.WirePart{Pos: sim.Pt(6, 0), Length: 4}); !ok {
		log.Fatal("placing output wire failed")
	}
	log.Printf("placed clock=%d not=%d meter=%d", clock, not, meter)

	deadline := time.Now().Add(*runFor)
	for now := time.Now(); now.Before(deadline); now = time.Now() {
		state.RunTicks(now)
		next, ok := state.NextTick()
		if !ok {
			break
		}
		time.Sleep(time.Until(next))
	}
	report(board, state)
	state.Interact(meter, func(ctx *sim.StateContext) {
		if m, ok := ctx.Circuit.Impl.(*tilelib.FreqMeter); ok {
			log.Printf("meter: %.2f Hz", m.Hz(ctx))
		}
	})

	store, err := boltstore.Open(*dbFile)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
	store.Debug = *verbose

	if err := store.SaveBoard(*name, board.Save(state)); err != nil {
		log.Fatal(err)
	}
	data, err := store.LoadBoard(*name)
	if err != nil {
		log.Fatal(err)
	}
	loaded, err := sim.Load(data, previews)
	if err != nil {
		log.Fatal(err)
	}
	ls := loaded.NewState()
	loaded.LoadState(data, ls, time.Now())
	log.Printf("board %q round-tripped through %s", *name, *dbFile)
	report(loaded, ls)
}

func report(b *sim.Board, s *sim.State) {
	for _, pos := range []sim.Point{sim.Pt(3, 0), sim.Pt(8, 0)} {
		if w, ok := b.WiresAt(pos).One(); ok {
			log.Printf("wire %d at %v: %v", w, pos, s.ReadWire(w))
		}
	}
}
