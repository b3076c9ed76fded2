// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fit provides fast circle fits for track candidates.
package fit // import "github.com/go-lpc/legendre/fit"

import (
	"errors"
	"math"
	"sort"

	"github.com/go-lpc/legendre/track"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// DefaultSigma is the drift length resolution (in cm) used for hits and
// fitters without an explicit one.
const DefaultSigma = 0.015

var (
	// ErrDegenerate is returned when the hits do not constrain a trajectory.
	ErrDegenerate = errors.New("fit: degenerate hit configuration")
)

// Fitter fits circles to sets of hits.
//
// The first stage is a fit of a circle passing through the origin,
// performed as a straight line fit in conformal space.
// Each refinement pass moves the measurement of every hit to the side of
// its drift circle facing the current trajectory, and fits again.
// When Free is set, a last stage fits a circle with a free center and
// radius, which is kept if it describes the hits better.
type Fitter struct {
	Sigma  float64 // drift length resolution for hits without one (cm)
	Passes int     // number of left/right refinement passes
	Free   bool    // enable the free circle fit
}

// Result is the outcome of a fit.
type Result struct {
	Circle track.Circle
	Chi2   float64
	NDF    int
}

type point struct {
	pos r2.Vec
	sig float64
}

// Fit fits a trajectory to the provided hits.
// The guess is only used for the direction of single-hit candidates.
// Fit does not depend on the order of the hits.
func (f Fitter) Fit(hits []*track.Hit, guess track.Circle) (Result, error) {
	hits = sorted(hits)

	pts := make([]point, len(hits))
	for i, h := range hits {
		if !(r2.Norm2(h.Pos)-h.Drift*h.Drift > 0) {
			return Result{}, ErrDegenerate
		}
		pts[i] = point{pos: h.Pos, sig: f.sigma(h)}
	}

	circ, err := f.conformal(pts, guess)
	if err != nil {
		return Result{}, err
	}
	for i := 0; i < f.Passes; i++ {
		circ, err = f.conformal(f.project(hits, circ), circ)
		if err != nil {
			return Result{}, err
		}
	}

	res := Result{
		Circle: circ,
		Chi2:   f.Chi2(hits, circ),
		NDF:    len(hits) - 2,
	}

	if f.Free && len(hits) >= 3 {
		circ, ok := f.free(f.project(hits, circ))
		for i := 0; ok && i < f.Passes; i++ {
			next, good := f.free(f.project(hits, circ))
			if !good {
				break
			}
			circ = next
		}
		if ok {
			chi2 := f.Chi2(hits, circ)
			if chi2 < res.Chi2 {
				res = Result{Circle: circ, Chi2: chi2, NDF: len(hits) - 3}
			}
		}
	}

	if !finite(res.Circle.Theta, res.Circle.R, res.Chi2) {
		return Result{}, ErrDegenerate
	}
	return res, nil
}

// Chi2 returns the χ² of the hits with respect to the circle.
// The residual of a hit is the difference between its distance to the
// trajectory and its drift length.
func (f Fitter) Chi2(hits []*track.Hit, c track.Circle) float64 {
	chi2 := 0.0
	for _, h := range hits {
		v := f.Residual(h, c)
		chi2 += v * v
	}
	return chi2
}

// Residual returns the normalized residual of a hit with respect to c.
func (f Fitter) Residual(h *track.Hit, c track.Circle) float64 {
	return (math.Abs(c.Distance(h.Pos)) - h.Drift) / f.sigma(h)
}

func (f Fitter) sigma(h *track.Hit) float64 {
	switch {
	case h.Sigma > 0:
		return h.Sigma
	case f.Sigma > 0:
		return f.Sigma
	}
	return DefaultSigma
}

// project returns, for each hit, the point of its drift circle closest
// to the trajectory c.
func (f Fitter) project(hits []*track.Hit, c track.Circle) []point {
	pts := make([]point, len(hits))
	for i, h := range hits {
		pts[i] = point{pos: h.Pos, sig: f.sigma(h)}
		if h.Drift == 0 {
			continue
		}
		var u r2.Vec
		switch {
		case c.IsLine():
			u = c.Normal()
			if r2.Dot(r2.Sub(h.Pos, c.Ref), u) < 0 {
				u = r2.Scale(-1, u)
			}
		default:
			v := r2.Sub(h.Pos, c.Center())
			n := r2.Norm(v)
			if n == 0 {
				continue
			}
			u = r2.Scale(1/n, v)
			if n < c.Radius() {
				u = r2.Scale(-1, u)
			}
		}
		pts[i].pos = r2.Sub(h.Pos, r2.Scale(h.Drift, u))
	}
	return pts
}

func (f Fitter) conformal(pts []point, guess track.Circle) (track.Circle, error) {
	n := len(pts)
	if n == 0 {
		return track.Circle{}, ErrDegenerate
	}

	var (
		xs = make([]float64, n)
		ys = make([]float64, n)
		ws = make([]float64, n)
	)
	for i, p := range pts {
		rho2 := r2.Norm2(p.pos)
		if !(rho2 > 0) {
			return track.Circle{}, ErrDegenerate
		}
		sig := 2 * p.sig / rho2
		xs[i] = 2 * p.pos.X / rho2
		ys[i] = 2 * p.pos.Y / rho2
		ws[i] = 1 / (sig * sig)
	}

	if n == 1 {
		if !finite(guess.Theta) {
			return track.Circle{}, ErrDegenerate
		}
		sin, cos := math.Sincos(guess.Theta)
		return track.Circle{Theta: guess.Theta, R: xs[0]*cos + ys[0]*sin}, nil
	}

	// normalize weights so the weighted covariances are well defined.
	floats.Scale(float64(n)/floats.Sum(ws), ws)

	var (
		mx  = stat.Mean(xs, ws)
		my  = stat.Mean(ys, ws)
		sxx = stat.Covariance(xs, xs, ws)
		syy = stat.Covariance(ys, ys, ws)
		sxy = stat.Covariance(xs, ys, ws)
	)
	if sxx+syy <= 1e-20*(mx*mx+my*my) {
		return track.Circle{}, ErrDegenerate
	}

	// the normal to the line is orthogonal to the major axis.
	theta := 0.5*math.Atan2(2*sxy, sxx-syy) + 0.5*math.Pi
	if theta >= math.Pi {
		theta -= math.Pi
	}
	sin, cos := math.Sincos(theta)
	return track.Circle{Theta: theta, R: mx*cos + my*sin}, nil
}

// free performs a weighted algebraic circle fit:
//
//	x² + y² + a x + b y + c = 0
//
// The reference point of the returned circle is its point of closest
// approach to the origin.
func (f Fitter) free(pts []point) (track.Circle, bool) {
	var (
		n  = float64(len(pts))
		sw = 0.0
		mx = 0.0
		my = 0.0
	)
	for _, p := range pts {
		w := 1 / (p.sig * p.sig)
		sw += w
		mx += w * p.pos.X
		my += w * p.pos.Y
	}
	mx /= sw
	my /= sw

	var (
		a = make([]float64, 9)
		b = make([]float64, 3)
	)
	for _, p := range pts {
		var (
			w   = n / (p.sig * p.sig * sw)
			u   = p.pos.X - mx
			v   = p.pos.Y - my
			z   = u*u + v*v
			row = [3]float64{u, v, 1}
		)
		for i := range row {
			for j := range row {
				a[3*i+j] += w * row[i] * row[j]
			}
			b[i] -= w * z * row[i]
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(3, a)); !ok {
		return track.Circle{}, false
	}
	var sol mat.VecDense
	err := chol.SolveVecTo(&sol, mat.NewVecDense(3, b))
	if err != nil {
		return track.Circle{}, false
	}

	var (
		cx   = -0.5 * sol.AtVec(0)
		cy   = -0.5 * sol.AtVec(1)
		rad2 = cx*cx + cy*cy - sol.AtVec(2)
	)
	if !(rad2 > 0) || !finite(cx, cy, rad2) {
		return track.Circle{}, false
	}

	var (
		center = r2.Vec{X: cx + mx, Y: cy + my}
		radius = math.Sqrt(rad2)
		dist   = r2.Norm(center)
		poca   = r2.Vec{X: center.X + radius, Y: center.Y}
	)
	if dist > 0 {
		poca = r2.Sub(center, r2.Scale(radius/dist, center))
	}
	return track.FromCenter(center, radius, poca), true
}

func sorted(hits []*track.Hit) []*track.Hit {
	o := make([]*track.Hit, len(hits))
	copy(o, hits)
	sort.SliceStable(o, func(i, j int) bool {
		a, b := o[i], o[j]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		if a.Pos.X != b.Pos.X {
			return a.Pos.X < b.Pos.X
		}
		return a.Pos.Y < b.Pos.Y
	})
	return o
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
