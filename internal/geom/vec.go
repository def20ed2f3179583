package geom

import (
	"fmt"
	"math"
)

// Vec3 is a position or scale in world units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Length returns the Euclidean norm.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 {
	return v.Sub(o).Length()
}

// Quantize snaps each axis to the nearest multiple of step. A zero or
// negative step leaves the vector unchanged.
func (v Vec3) Quantize(step float64) Vec3 {
	if step <= 0 {
		return v
	}
	return Vec3{
		X: snap(v.X, step),
		Y: snap(v.Y, step),
		Z: snap(v.Z, step),
	}
}

// snap rounds to the nearest multiple of step. math.Round yields negative
// zero for small negative inputs, which would format as "-0.0" and split
// the origin bucket in two; normalize it away.
func snap(v, step float64) float64 {
	q := math.Round(v/step) * step
	if q == 0 {
		return 0
	}
	return q
}

// QuantizedKey renders the quantized position as a stable map key, so
// nearby positions collapse onto one cache bucket.
func (v Vec3) QuantizedKey(step float64) string {
	q := v.Quantize(step)
	return fmt.Sprintf("%.1f:%.1f:%.1f", q.X, q.Y, q.Z)
}
