// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tilesim

// ChunkSize is the edge length, in tiles, of a grid chunk.
const ChunkSize = 16

// A Point is a tile position on the board grid. Coordinates may be
// negative; the grid is unbounded.
//
type Point struct {
	X, Y int
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int) Point { return Point{x, y} }

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// step returns p moved d tiles along the given axis.
func (p Point) step(vertical bool, d int) Point {
	if vertical {
		return Point{p.X, p.Y + d}
	}
	return Point{p.X + d, p.Y}
}

// A Size is a circuit footprint in tiles.
//
type Size struct {
	W, H int
}

// split maps a tile coordinate to its chunk coordinate and local offset.
// The shift floors for negative coordinates, so chunk -1 covers tiles
// -16..-1.
func split(v int) (c, l int) {
	return v >> 4, v & (ChunkSize - 1)
}

type chunkKey struct {
	X, Y int
}

type chunk[T any] struct {
	cells [ChunkSize][ChunkSize]T
}

// A Grid is a sparse, unbounded 2D tile map stored as fixed-size square
// chunks. The zero value is an empty grid ready for use. An absent cell
// is equivalent to a zero-valued one.
//
// Chunks are never reclaimed, even when all their cells return to the
// zero value. Boards only grow their sparse footprint.
//
type Grid[T any] struct {
	chunks map[chunkKey]*chunk[T]
	rows   map[int]rowSpan
}

// rowSpan is the occupied chunk-column range of one chunk row.
type rowSpan struct {
	Min, Max int
}

// Get returns the cell at p, or nil if its chunk has never been
// allocated. It never allocates.
//
func (g *Grid[T]) Get(p Point) *T {
	cx, lx := split(p.X)
	cy, ly := split(p.Y)
	c := g.chunks[chunkKey{cx, cy}]
	if c == nil {
		return nil
	}
	return &c.cells[lx][ly]
}

// GetOrCreate returns the cell at p, allocating its chunk if needed.
//
func (g *Grid[T]) GetOrCreate(p Point) *T {
	cx, lx := split(p.X)
	cy, ly := split(p.Y)
	k := chunkKey{cx, cy}
	c := g.chunks[k]
	if c == nil {
		if g.chunks == nil {
			g.chunks = make(map[chunkKey]*chunk[T])
			g.rows = make(map[int]rowSpan)
		}
		c = new(chunk[T])
		g.chunks[k] = c
		if s, ok := g.rows[cy]; ok {
			if cx < s.Min {
				s.Min = cx
			}
			if cx > s.Max {
				s.Max = cx
			}
			g.rows[cy] = s
		} else {
			g.rows[cy] = rowSpan{cx, cx}
		}
	}
	return &c.cells[lx][ly]
}

// ChunkRowSpan returns the chunk-column range occupied by chunk row cy.
// Viewport-bounded consumers intersect this with their visible range
// instead of probing every chunk coordinate.
//
func (g *Grid[T]) ChunkRowSpan(cy int) (min, max int, ok bool) {
	s, ok := g.rows[cy]
	return s.Min, s.Max, ok
}

// EachInRect calls fn for every allocated cell with tl <= pos <= br,
// row by row. Cells of unallocated chunks are skipped, so the cost is
// bounded by the occupied chunks intersecting the rectangle, not by its
// area. fn must not mutate the grid.
//
func (g *Grid[T]) EachInRect(tl, br Point, fn func(p Point, t *T)) {
	ctlX, _ := split(tl.X)
	ctlY, _ := split(tl.Y)
	cbrX, _ := split(br.X)
	cbrY, _ := split(br.Y)
	for cy := ctlY; cy <= cbrY; cy++ {
		min, max, ok := g.ChunkRowSpan(cy)
		if !ok {
			continue
		}
		if min < ctlX {
			min = ctlX
		}
		if max > cbrX {
			max = cbrX
		}
		for cx := min; cx <= max; cx++ {
			c := g.chunks[chunkKey{cx, cy}]
			if c == nil {
				continue
			}
			for ly := 0; ly < ChunkSize; ly++ {
				y := cy*ChunkSize + ly
				if y < tl.Y {
					continue
				}
				if y > br.Y {
					break
				}
				for lx := 0; lx < ChunkSize; lx++ {
					x := cx*ChunkSize + lx
					if x < tl.X {
						continue
					}
					if x > br.X {
						break
					}
					fn(Point{x, y}, &c.cells[lx][ly])
				}
			}
		}
	}
}

// Each calls fn for every cell of every allocated chunk, in
// unspecified order. fn must not mutate the grid.
//
func (g *Grid[T]) Each(fn func(p Point, t *T)) {
	for k, c := range g.chunks {
		for ly := 0; ly < ChunkSize; ly++ {
			for lx := 0; lx < ChunkSize; lx++ {
				fn(Point{k.X*ChunkSize + lx, k.Y*ChunkSize + ly}, &c.cells[lx][ly])
			}
		}
	}
}

// A Lookaround is a cursor over a grid cell giving access to cells at
// arbitrary relative offsets without re-hashing the chunk map for every
// neighbor: the last chunk touched is cached.
//
type Lookaround[T any] struct {
	g   *Grid[T]
	pos Point
	key chunkKey
	c   *chunk[T]
}

// Look returns a cursor centered on p.
func (g *Grid[T]) Look(p Point) Lookaround[T] {
	cx, _ := split(p.X)
	cy, _ := split(p.Y)
	k := chunkKey{cx, cy}
	return Lookaround[T]{g: g, pos: p, key: k, c: g.chunks[k]}
}

// Get returns the cell at offset (dx, dy) from the cursor center, or
// nil if its chunk has never been allocated.
func (l *Lookaround[T]) Get(dx, dy int) *T {
	x, y := l.pos.X+dx, l.pos.Y+dy
	cx, lx := split(x)
	cy, ly := split(y)
	if k := (chunkKey{cx, cy}); k != l.key {
		l.key = k
		l.c = l.g.chunks[k]
	}
	if l.c == nil {
		return nil
	}
	return &l.c.cells[lx][ly]
}
