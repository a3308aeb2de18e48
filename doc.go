/*
Package tilesim implements the core of a grid-based digital logic
simulator: an unbounded chunked tile board on which wires and circuits
are placed, a wire topology tracking connectivity through per-tile
distance pointers, and a signal engine propagating 4-valued logic
levels through any number of independent simulation states.

A Board holds the editable topology. Wires are drawn as axis-aligned
parts and merge or split automatically as segments touch, cross over
anchors, or have intersections toggled. Circuits are placed from
Preview templates; their Behavior implementations (see package tilelib
for a standard set) declare pin layouts and recompute output signals
when inputs change.

Simulation values live outside the topology in State objects, so a
single board can drive several concurrent runs. Boards serialize to
BoardData with all derived tile data omitted; package boltstore
persists these in a bbolt database.

*/
package tilesim
