// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fit

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/go-lpc/legendre/track"
	"gonum.org/v1/gonum/spatial/r2"
)

// arc returns n hits on the circle of the provided center and radius,
// with polar angles (around the center) in [phi1, phi2].
func arc(n int, center r2.Vec, radius, phi1, phi2, drift float64) []*track.Hit {
	hs := make([]track.Hit, n)
	for i := range hs {
		phi := phi1 + (phi2-phi1)*float64(i)/float64(n-1)
		d := drift
		if i%2 == 1 {
			d = -drift
		}
		sin, cos := math.Sincos(phi)
		hs[i] = track.Hit{
			Index: i,
			Pos: r2.Vec{
				X: center.X + (radius+d)*cos,
				Y: center.Y + (radius+d)*sin,
			},
			Drift: drift,
			Axial: true,
		}
	}
	pool := track.NewPool(hs)
	ids := make([]track.HitID, n)
	for i := range ids {
		ids[i] = track.HitID(i)
	}
	return pool.Hits(ids)
}

func TestFitThroughOrigin(t *testing.T) {
	for _, tc := range []struct {
		name  string
		theta float64
		r     float64
		drift float64
		eps   float64 // relative tolerance on the curvature
	}{
		{"positive", 0.8, 0.01, 0, 1e-9},
		{"negative", 2.1, -0.004, 0, 1e-9},
		{"drift", 1.3, 0.006, 0.3, 5e-2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var (
				c      = track.Circle{Theta: tc.theta, R: tc.r}
				center = c.Center()
				phi0   = math.Atan2(-center.Y, -center.X) // angle of the origin
				hits   = arc(12, center, c.Radius(), phi0+0.2, phi0+1.0, tc.drift)
				f      = Fitter{Sigma: 0.01}
			)

			res, err := f.Fit(hits, track.Circle{})
			if err != nil {
				t.Fatalf("could not fit: %+v", err)
			}
			if math.Abs(res.Circle.Theta-tc.theta) > 1e-2 || math.Abs(res.Circle.R-tc.r) > tc.eps*math.Abs(tc.r) {
				t.Fatalf("invalid fit: got=%+v, want=%+v", res.Circle, c)
			}
			if got, want := res.NDF, len(hits)-2; got != want {
				t.Fatalf("invalid ndf: got=%d, want=%d", got, want)
			}
			if tc.drift == 0 && res.Chi2 > 1e-6 {
				t.Fatalf("invalid chi2: got=%v", res.Chi2)
			}
		})
	}
}

func TestFitIdempotent(t *testing.T) {
	var (
		c      = track.Circle{Theta: 0.5, R: 0.008}
		center = c.Center()
		phi0   = math.Atan2(-center.Y, -center.X)
		hits   = arc(15, center, c.Radius(), phi0+0.1, phi0+0.9, 0.2)
		rnd    = rand.New(rand.NewSource(42))
	)
	for _, h := range hits {
		h.Pos.X += 0.01 * rnd.NormFloat64()
		h.Pos.Y += 0.01 * rnd.NormFloat64()
	}
	// hit positions were modified: refresh the conformal transforms.
	hs := make([]track.Hit, len(hits))
	for i, h := range hits {
		hs[i] = *h
	}
	pool := track.NewPool(hs)
	ids := make([]track.HitID, len(hs))
	for i := range ids {
		ids[i] = track.HitID(i)
	}
	hits = pool.Hits(ids)

	for _, free := range []bool{false, true} {
		f := Fitter{Free: free}
		ref, err := f.Fit(hits, track.Circle{})
		if err != nil {
			t.Fatalf("could not fit: %+v", err)
		}
		again, err := f.Fit(hits, ref.Circle)
		if err != nil {
			t.Fatalf("could not refit: %+v", err)
		}
		if !reflect.DeepEqual(ref, again) {
			t.Fatalf("refit is not idempotent:\ngot= %+v\nwant=%+v", again, ref)
		}

		rev := make([]*track.Hit, len(hits))
		for i, h := range hits {
			rev[len(hits)-1-i] = h
		}
		rnd.Shuffle(len(rev), func(i, j int) { rev[i], rev[j] = rev[j], rev[i] })
		perm, err := f.Fit(rev, track.Circle{})
		if err != nil {
			t.Fatalf("could not fit permuted hits: %+v", err)
		}
		if !reflect.DeepEqual(ref, perm) {
			t.Fatalf("fit depends on hit order:\ngot= %+v\nwant=%+v", perm, ref)
		}
	}
}

func TestFitLine(t *testing.T) {
	const theta = 0.7
	hs := make([]track.Hit, 10)
	for i := range hs {
		// points on the line through the origin, normal to theta.
		s := 20 + 8*float64(i)
		hs[i] = track.Hit{
			Index: i,
			Pos:   r2.Vec{X: -s * math.Sin(theta), Y: s * math.Cos(theta)},
			Axial: true,
		}
	}
	pool := track.NewPool(hs)
	hits := pool.Hits([]track.HitID{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	res, err := Fitter{}.Fit(hits, track.Circle{})
	if err != nil {
		t.Fatalf("could not fit line: %+v", err)
	}
	if math.Abs(res.Circle.R) > 1e-12 {
		t.Fatalf("invalid curvature: got=%v, want=0", res.Circle.R)
	}
	if math.Abs(res.Circle.Theta-theta) > 1e-9 {
		t.Fatalf("invalid theta: got=%v, want=%v", res.Circle.Theta, theta)
	}
}

func TestFitSingleHit(t *testing.T) {
	pool := track.NewPool([]track.Hit{{Pos: r2.Vec{X: 30, Y: 40}, Axial: true}})
	hits := pool.Hits([]track.HitID{0})

	guess := track.Circle{Theta: 0.3, R: 0.01}
	res, err := Fitter{}.Fit(hits, guess)
	if err != nil {
		t.Fatalf("could not fit: %+v", err)
	}
	if got, want := res.Circle.Theta, guess.Theta; got != want {
		t.Fatalf("invalid theta: got=%v, want=%v", got, want)
	}
	if d := res.Circle.Distance(hits[0].Pos); math.Abs(d) > 1e-9 {
		t.Fatalf("circle does not go through the hit: d=%v", d)
	}

	_, err = Fitter{}.Fit(hits, track.Circle{Theta: math.NaN()})
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrDegenerate)
	}
}

func TestFitDegenerate(t *testing.T) {
	pool := track.NewPool([]track.Hit{
		{Index: 0, Pos: r2.Vec{X: 30, Y: 40}, Axial: true},
		{Index: 1, Pos: r2.Vec{X: 30, Y: 40}, Axial: true},
		{Index: 2, Pos: r2.Vec{X: 30, Y: 40}, Axial: true},
		{Index: 3, Pos: r2.Vec{X: 0.1, Y: 0}, Drift: 0.5, Axial: true},
	})

	for _, tc := range []struct {
		name string
		ids  []track.HitID
	}{
		{"empty", nil},
		{"coincident", []track.HitID{0, 1, 2}},
		{"ill-defined", []track.HitID{0, 3}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Fitter{Free: true}.Fit(pool.Hits(tc.ids), track.Circle{})
			if !errors.Is(err, ErrDegenerate) {
				t.Fatalf("invalid error: got=%v, want=%v", err, ErrDegenerate)
			}
		})
	}
}

func TestFitFree(t *testing.T) {
	var (
		center = r2.Vec{X: 60, Y: 0}
		radius = 55.0
		hits   = arc(20, center, radius, 2.2, 4.0, 0)
	)

	conf, err := Fitter{}.Fit(hits, track.Circle{})
	if err != nil {
		t.Fatalf("could not fit: %+v", err)
	}

	res, err := Fitter{Free: true}.Fit(hits, track.Circle{})
	if err != nil {
		t.Fatalf("could not fit: %+v", err)
	}
	if !(res.Chi2 < conf.Chi2) {
		t.Fatalf("free fit did not improve: free=%v, conformal=%v", res.Chi2, conf.Chi2)
	}
	if got, want := res.NDF, len(hits)-3; got != want {
		t.Fatalf("invalid ndf: got=%d, want=%d", got, want)
	}

	got := res.Circle.Center()
	if math.Abs(got.X-center.X) > 1e-6 || math.Abs(got.Y-center.Y) > 1e-6 {
		t.Fatalf("invalid center: got=%v, want=%v", got, center)
	}
	if got, want := res.Circle.Radius(), radius; math.Abs(got-want) > 1e-6 {
		t.Fatalf("invalid radius: got=%v, want=%v", got, want)
	}
	if got, want := res.Circle.Ref, (r2.Vec{X: 5, Y: 0}); math.Abs(got.X-want.X) > 1e-6 || math.Abs(got.Y-want.Y) > 1e-6 {
		t.Fatalf("invalid reference point: got=%v, want=%v", got, want)
	}
}

func TestResidual(t *testing.T) {
	pool := track.NewPool([]track.Hit{
		{Pos: r2.Vec{X: 20, Y: 0.5}, Drift: 0.5, Sigma: 0.1},
		{Pos: r2.Vec{X: 20, Y: 0.5}, Drift: 0.3},
	})
	line := track.Circle{Theta: math.Pi / 2}

	f := Fitter{Sigma: 0.2}
	if got, want := f.Residual(pool.Hit(0), line), 0.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("invalid residual: got=%v, want=%v", got, want)
	}
	if got, want := f.Residual(pool.Hit(1), line), 1.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("invalid residual: got=%v, want=%v", got, want)
	}
	if got, want := (Fitter{}).Residual(pool.Hit(1), line), 0.2/DefaultSigma; math.Abs(got-want) > 1e-9 {
		t.Fatalf("invalid residual: got=%v, want=%v", got, want)
	}
}

func TestFitPasses(t *testing.T) {
	var (
		c      = track.Circle{Theta: 1.3, R: 0.006}
		center = c.Center()
		phi0   = math.Atan2(-center.Y, -center.X)
		hits   = arc(12, center, c.Radius(), phi0+0.2, phi0+1.0, 0.3)
	)

	raw, err := Fitter{Sigma: 0.01}.Fit(hits, track.Circle{})
	if err != nil {
		t.Fatalf("could not fit: %+v", err)
	}

	for _, free := range []bool{false, true} {
		f := Fitter{Sigma: 0.01, Passes: 3, Free: free}
		res, err := f.Fit(hits, track.Circle{})
		if err != nil {
			t.Fatalf("could not fit: %+v", err)
		}
		if !(res.Chi2 < raw.Chi2) {
			t.Fatalf("refinement did not improve the fit: got=%v, raw=%v", res.Chi2, raw.Chi2)
		}
		if res.Chi2 > 1e-6 {
			t.Fatalf("invalid chi2: got=%v", res.Chi2)
		}
		got := res.Circle.Center()
		if math.Abs(got.X-center.X) > 1e-4 || math.Abs(got.Y-center.Y) > 1e-4 {
			t.Fatalf("invalid center: got=%v, want=%v", got, center)
		}
	}
}
