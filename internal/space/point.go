// Package space provides the continuous spatial field and the discrete
// overlay lattice that agents live on.
//
// The tissue is a cylinder cut open along its length: the Y axis
// (circumference) is toroidal while the X axis (tract length) is bounded.
package space

import "math"

// Point is a continuous position in field units.
type Point struct {
	X float64
	Y float64
}

// Positioned is anything that occupies a point in the field.
type Positioned interface {
	Position() Point
}

// WrapY folds y into [0, height).
func WrapY(y, height float64) float64 {
	if height <= 0 {
		return y
	}
	y = math.Mod(y, height)
	if y < 0 {
		y += height
	}
	return y
}

// DeltaY returns the shortest signed Y offset from a to b on a circumference
// of the given height.
func DeltaY(a, b, height float64) float64 {
	d := b - a
	if height <= 0 {
		return d
	}
	half := height / 2
	for d > half {
		d -= height
	}
	for d < -half {
		d += height
	}
	return d
}

// Distance is the plain Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// ToroidalDistance is the Euclidean distance between a and b with the Y
// axis wrapped at height.
func ToroidalDistance(a, b Point, height float64) float64 {
	return math.Hypot(b.X-a.X, DeltaY(a.Y, b.Y, height))
}
