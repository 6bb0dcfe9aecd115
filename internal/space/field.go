package space

import (
	"fmt"
	"math"
)

type bucketKey struct {
	col int
	row int
}

type placement struct {
	key bucketKey
	at  Point
}

// Field is a continuous 2D space with bucketed lookup. Objects are stored in
// insertion order within each bucket so neighbour queries are deterministic.
//
// The field never moves objects by itself: agents own their positions and
// mirror them in with Place.
type Field struct {
	width  float64
	height float64
	bucket float64

	buckets map[bucketKey][]Positioned
	where   map[Positioned]placement
}

// NewField creates a field of the given dimensions. bucketSize is the
// discretization used for neighbour lookup and is normally the cell diameter.
func NewField(width, height, bucketSize float64) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("field dimensions must be positive, got %vx%v", width, height)
	}
	if bucketSize <= 0 {
		return nil, fmt.Errorf("bucket size must be positive, got %v", bucketSize)
	}
	return &Field{
		width:   width,
		height:  height,
		bucket:  bucketSize,
		buckets: make(map[bucketKey][]Positioned),
		where:   make(map[Positioned]placement),
	}, nil
}

// Width returns the current field width.
func (f *Field) Width() float64 { return f.width }

// Height returns the current field height.
func (f *Field) Height() float64 { return f.height }

// Resize changes the field dimensions. Existing positions are preserved.
func (f *Field) Resize(width, height float64) {
	f.width = width
	f.height = height
}

// Len returns the number of objects in the field.
func (f *Field) Len() int { return len(f.where) }

// Contains reports whether obj is currently placed.
func (f *Field) Contains(obj Positioned) bool {
	_, ok := f.where[obj]
	return ok
}

// Place puts obj at p, moving it if it is already in the field.
func (f *Field) Place(obj Positioned, p Point) {
	key := f.keyFor(p)
	if old, ok := f.where[obj]; ok {
		if old.key == key {
			f.where[obj] = placement{key: key, at: p}
			return
		}
		f.removeFromBucket(obj, old.key)
	}
	f.buckets[key] = append(f.buckets[key], obj)
	f.where[obj] = placement{key: key, at: p}
}

// Remove takes obj out of the field. Removing an absent object is a no-op.
func (f *Field) Remove(obj Positioned) {
	old, ok := f.where[obj]
	if !ok {
		return
	}
	f.removeFromBucket(obj, old.key)
	delete(f.where, obj)
}

// Location returns where obj was last placed.
func (f *Field) Location(obj Positioned) (Point, bool) {
	pl, ok := f.where[obj]
	return pl.at, ok
}

// NeighborsWithinRadius returns every object within r of p, including any
// object at p itself. With toroidalY the Y axis wraps at the field height.
func (f *Field) NeighborsWithinRadius(p Point, r float64, toroidalY bool) []Positioned {
	if r < 0 {
		return nil
	}
	minCol := int(math.Floor((p.X - r) / f.bucket))
	maxCol := int(math.Floor((p.X + r) / f.bucket))
	rows := f.rowsFor(p.Y, r, toroidalY)

	var out []Positioned
	r2 := r * r
	for col := minCol; col <= maxCol; col++ {
		for _, row := range rows {
			for _, obj := range f.buckets[bucketKey{col: col, row: row}] {
				at := f.where[obj].at
				dx := at.X - p.X
				dy := at.Y - p.Y
				if toroidalY {
					dy = DeltaY(p.Y, at.Y, f.height)
				}
				if dx*dx+dy*dy <= r2 {
					out = append(out, obj)
				}
			}
		}
	}
	return out
}

func (f *Field) rowsFor(y, r float64, toroidal bool) []int {
	minRow := int(math.Floor((y - r) / f.bucket))
	maxRow := int(math.Floor((y + r) / f.bucket))
	if !toroidal {
		rows := make([]int, 0, maxRow-minRow+1)
		for row := minRow; row <= maxRow; row++ {
			rows = append(rows, row)
		}
		return rows
	}

	nRows := int(math.Ceil(f.height / f.bucket))
	if nRows < 1 {
		nRows = 1
	}
	if maxRow-minRow+1 >= nRows {
		rows := make([]int, nRows)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}

	seen := make(map[int]bool, maxRow-minRow+1)
	rows := make([]int, 0, maxRow-minRow+1)
	for row := minRow; row <= maxRow; row++ {
		wrapped := ((row % nRows) + nRows) % nRows
		if !seen[wrapped] {
			seen[wrapped] = true
			rows = append(rows, wrapped)
		}
	}
	return rows
}

func (f *Field) keyFor(p Point) bucketKey {
	return bucketKey{
		col: int(math.Floor(p.X / f.bucket)),
		row: int(math.Floor(p.Y / f.bucket)),
	}
}

func (f *Field) removeFromBucket(obj Positioned, key bucketKey) {
	objs := f.buckets[key]
	for i, o := range objs {
		if o == obj {
			objs = append(objs[:i], objs[i+1:]...)
			break
		}
	}
	if len(objs) == 0 {
		delete(f.buckets, key)
		return
	}
	f.buckets[key] = objs
}
