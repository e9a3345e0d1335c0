package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// R4AA represents an R4 axis angle: a rotation axis (rx, ry, rz) on the unit
// sphere and a rotation theta around that axis.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA creates an empty R4AA struct.
func NewR4AA() *R4AA {
	return &R4AA{Theta: 0, RX: 0, RY: 0, RZ: 1}
}

// ToR3 converts an R4 angle axis to R3, where theta is multiplied into each
// unit-sphere component.
func (r4 *R4AA) ToR3() r3.Vector {
	return r3.Vector{X: r4.RX * r4.Theta, Y: r4.RY * r4.Theta, Z: r4.RZ * r4.Theta}
}

// ToQuat converts an R4 axis angle to a unit quaternion
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/angleToQuaternion/index.htm
func (r4 *R4AA) ToQuat() quat.Number {
	sinA := math.Sin(r4.Theta / 2)
	// Ensure that point xyz is on the unit sphere
	r4.Normalize()

	ax := r4.RX * sinA
	ay := r4.RY * sinA
	az := r4.RZ * sinA
	w := math.Cos(r4.Theta / 2)
	return quat.Number{Real: w, Imag: ax, Jmag: ay, Kmag: az}
}

// Normalize scales the x, y, and z components of a R4 axis angle to be on the unit sphere.
func (r4 *R4AA) Normalize() {
	norm := math.Sqrt(r4.RX*r4.RX + r4.RY*r4.RY + r4.RZ*r4.RZ)
	if norm == 0.0 { // prevent division by 0
		panic("cannot normalize R4AA, divide by zero")
	}
	r4.RX /= norm
	r4.RY /= norm
	r4.RZ /= norm
}

// R3ToR4 converts an R3 angle axis to R4.
func R3ToR4(aa r3.Vector) *R4AA {
	if aa == (r3.Vector{}) {
		return NewR4AA()
	}
	theta := aa.Norm()
	return &R4AA{Theta: theta, RX: aa.X / theta, RY: aa.Y / theta, RZ: aa.Z / theta}
}
