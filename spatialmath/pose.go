// Package spatialmath defines spatial mathematical operations, in particular
// the rigid transforms (SE(3)) relating camera and world coordinate frames.
package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid transform: a rotation followed by a translation,
// mapping points from one coordinate frame into another.
type Pose struct {
	rotation    quat.Number
	translation r3.Vector
}

// NewZeroPose returns the identity transform.
func NewZeroPose() *Pose {
	return &Pose{rotation: quat.Number{Real: 1}}
}

// NewPose returns a Pose from a rotation quaternion and a translation. The
// quaternion is normalized so that repeated composition does not drift.
func NewPose(rotation quat.Number, translation r3.Vector) *Pose {
	n := quat.Abs(rotation)
	if n == 0 {
		rotation = quat.Number{Real: 1}
	} else if n != 1 {
		rotation = quat.Scale(1./n, rotation)
	}
	return &Pose{rotation: rotation, translation: translation}
}

// NewPoseFromAxisAngle returns a Pose rotating by the given axis angle and
// translating by the given point.
func NewPoseFromAxisAngle(translation r3.Vector, aa *R4AA) *Pose {
	if aa == nil || aa.Theta == 0 {
		return &Pose{rotation: quat.Number{Real: 1}, translation: translation}
	}
	return &Pose{rotation: aa.ToQuat(), translation: translation}
}

// Rotation returns the rotation quaternion of the pose.
func (p *Pose) Rotation() quat.Number {
	return p.rotation
}

// Translation returns the translation of the pose.
func (p *Pose) Translation() r3.Vector {
	return p.translation
}

// TransformPoint rotates then translates the given point.
func (p *Pose) TransformPoint(pt r3.Vector) r3.Vector {
	pq := quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}
	rotated := quat.Mul(quat.Mul(p.rotation, pq), quat.Conj(p.rotation))
	return r3.Vector{
		X: rotated.Imag + p.translation.X,
		Y: rotated.Jmag + p.translation.Y,
		Z: rotated.Kmag + p.translation.Z,
	}
}

// Compose returns the pose equivalent to applying o first, then p.
func (p *Pose) Compose(o *Pose) *Pose {
	return &Pose{
		rotation:    quat.Mul(p.rotation, o.rotation),
		translation: p.TransformPoint(o.translation),
	}
}

// Invert returns the inverse transform, such that p.Compose(p.Invert()) is
// the identity.
func (p *Pose) Invert() *Pose {
	inv := quat.Conj(p.rotation)
	tq := quat.Number{Imag: -p.translation.X, Jmag: -p.translation.Y, Kmag: -p.translation.Z}
	rotated := quat.Mul(quat.Mul(inv, tq), quat.Conj(inv))
	return &Pose{
		rotation:    inv,
		translation: r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag},
	}
}
