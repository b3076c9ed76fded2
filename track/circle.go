// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package track

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Circle describes a trajectory in the transverse plane passing through
// a reference point Ref.
//
// The center of the circle is located at:
//
//	Ref + (cos(Theta), sin(Theta)) / R
//
// Theta is in [0, π) and R is the signed curvature (in 1/cm).
// R == 0 describes a straight line going through Ref, with normal
// (cos(Theta), sin(Theta)).
type Circle struct {
	Theta float64
	R     float64
	Ref   r2.Vec
}

// FromCenter returns the circle with the provided center and radius,
// expressed with respect to the reference point ref.
// ref is expected to lie on the circle.
func FromCenter(center r2.Vec, radius float64, ref r2.Vec) Circle {
	v := r2.Sub(center, ref)
	var (
		theta = math.Atan2(v.Y, v.X)
		r     = 1 / radius
	)
	switch {
	case theta < 0:
		theta += math.Pi
		r = -r
	case theta >= math.Pi:
		theta -= math.Pi
		r = -r
	}
	return Circle{Theta: theta, R: r, Ref: ref}
}

// IsLine returns whether the trajectory is a straight line.
func (c Circle) IsLine() bool { return c.R == 0 }

// Normal returns the unit vector (cos(Theta), sin(Theta)).
func (c Circle) Normal() r2.Vec {
	sin, cos := math.Sincos(c.Theta)
	return r2.Vec{X: cos, Y: sin}
}

// Center returns the center of the circle.
// The center of a straight line is at infinity.
func (c Circle) Center() r2.Vec {
	if c.IsLine() {
		return r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	}
	return r2.Add(c.Ref, r2.Scale(1/c.R, c.Normal()))
}

// Radius returns the radius of the circle.
func (c Circle) Radius() float64 {
	if c.IsLine() {
		return math.Inf(1)
	}
	return math.Abs(1 / c.R)
}

// Distance returns the signed distance from p to the trajectory.
// The distance is positive outside the circle.
// Only the absolute value is meaningful for straight lines.
func (c Circle) Distance(p r2.Vec) float64 {
	var (
		q = r2.Sub(p, c.Ref)
		n = c.Normal()
	)
	if c.IsLine() {
		return -r2.Dot(q, n)
	}
	// |q-center| - radius, rewritten to stay accurate at small curvatures.
	var (
		ar  = math.Abs(c.R)
		sg  = math.Copysign(1, c.R)
		num = ar*r2.Norm2(q) - 2*sg*r2.Dot(q, n)
		den = r2.Norm(r2.Sub(r2.Scale(c.R, q), n)) + 1
	)
	return num / den
}

// CurvatureSign returns the local curvature sign of the point p with
// respect to the circle: +1 when a particle starting at Ref and passing
// through p turns clockwise (positive charge), -1 when it turns
// counter-clockwise (negative charge) and 0 when undecided.
func (c Circle) CurvatureSign(p r2.Vec) int {
	if c.IsLine() {
		return 0
	}
	cross := r2.Cross(r2.Sub(p, c.Ref), c.Normal()) / c.R
	switch {
	case cross < 0:
		return +1
	case cross > 0:
		return -1
	}
	return 0
}

// POCA returns the point of the trajectory closest to the origin.
func (c Circle) POCA() r2.Vec {
	n := c.Normal()
	if c.IsLine() {
		return r2.Scale(r2.Dot(c.Ref, n), n)
	}
	center := c.Center()
	dist := r2.Norm(center)
	if dist == 0 {
		return c.Ref
	}
	return r2.Sub(center, r2.Scale(c.Radius()/dist, center))
}

// Rebase returns the same trajectory expressed with respect to ref.
// ref is expected to lie on the trajectory.
func (c Circle) Rebase(ref r2.Vec) Circle {
	if c.IsLine() {
		return Circle{Theta: c.Theta, Ref: ref}
	}
	return FromCenter(c.Center(), c.Radius(), ref)
}

var inf = math.Inf(1)
