// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package track

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestCharge(t *testing.T) {
	for _, tc := range []struct {
		c     Charge
		valid bool
		str   string
		sign  int
	}{
		{Positive, true, "positive", +1},
		{Negative, true, "negative", -1},
		{Curler, true, "curler", 0},
		{TwoTracks, true, "two_tracks", 0},
		{Charge(0), false, "Charge(0)", 0},
		{Charge(42), false, "Charge(42)", 0},
	} {
		t.Run(tc.str, func(t *testing.T) {
			if got, want := tc.c.Valid(), tc.valid; got != want {
				t.Fatalf("invalid validity: got=%v, want=%v", got, want)
			}
			if got, want := tc.c.String(), tc.str; got != want {
				t.Fatalf("invalid string: got=%q, want=%q", got, want)
			}
			if got, want := tc.c.Sign(), tc.sign; got != want {
				t.Fatalf("invalid sign: got=%d, want=%d", got, want)
			}
		})
	}
}

func TestConformal(t *testing.T) {
	p := NewPool([]Hit{
		{Index: 0, Pos: r2.Vec{X: 3, Y: 4}, Drift: 0, Axial: true},
		{Index: 1, Pos: r2.Vec{X: 3, Y: 4}, Drift: 1, Axial: true},
		{Index: 2, Pos: r2.Vec{X: 0.5, Y: 0}, Drift: 1, Axial: true},
	})

	pos, d := p.Hit(0).Conformal()
	if got, want := pos, (r2.Vec{X: 6. / 25, Y: 8. / 25}); math.Abs(got.X-want.X) > 1e-15 || math.Abs(got.Y-want.Y) > 1e-15 {
		t.Fatalf("invalid conformal position: got=%v, want=%v", got, want)
	}
	if d != 0 {
		t.Fatalf("invalid conformal drift: got=%v, want=0", d)
	}

	_, d = p.Hit(1).Conformal()
	if got, want := d, 2./24; got != want {
		t.Fatalf("invalid conformal drift: got=%v, want=%v", got, want)
	}

	if got, want := p.Hit(2).Usage(), UsedBad; got != want {
		t.Fatalf("invalid usage for ill-defined hit: got=%v, want=%v", got, want)
	}
}

func TestPoolMark(t *testing.T) {
	hits := make([]Hit, 6)
	for i := range hits {
		hits[i] = Hit{
			Index: i,
			Pos:   r2.Vec{X: 20 + float64(i), Y: 1},
			Axial: i < 4,
		}
	}
	p := NewPool(hits)

	if got, want := p.Unused(true), []HitID{0, 1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid axial pool: got=%v, want=%v", got, want)
	}
	if got, want := p.Unused(false), []HitID{4, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid stereo pool: got=%v, want=%v", got, want)
	}

	err := p.Mark([]HitID{0, 1}, UsedInTrack)
	if err != nil {
		t.Fatalf("could not mark hits: %+v", err)
	}
	err = p.Mark([]HitID{0, 1, 2}, UsedInTrack)
	if err != nil {
		t.Fatalf("could not re-mark hits: %+v", err)
	}
	err = p.Mark([]HitID{3}, UsedBad)
	if err != nil {
		t.Fatalf("could not mark hit as bad: %+v", err)
	}

	for _, tc := range []struct {
		name string
		ids  []HitID
		u    Usage
	}{
		{"used-to-bad", []HitID{4, 0}, UsedBad},
		{"bad-to-used", []HitID{3}, UsedInTrack},
		{"reset", []HitID{1}, NotUsed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := p.Mark(tc.ids, tc.u)
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("invalid error: got=%v, want=%v", err, ErrUsage)
			}
		})
	}

	// failed transitions must not modify any hit.
	if got, want := p.Hit(4).Usage(), NotUsed; got != want {
		t.Fatalf("invalid usage: got=%v, want=%v", got, want)
	}

	if got, want := p.Count(UsedInTrack), 3; got != want {
		t.Fatalf("invalid used count: got=%d, want=%d", got, want)
	}
	if got, want := p.Count(NotUsed), 2; got != want {
		t.Fatalf("invalid free count: got=%d, want=%d", got, want)
	}
	if got, want := p.Unused(true), []HitID(nil); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid axial pool: got=%v, want=%v", got, want)
	}
}

func TestUnion(t *testing.T) {
	got := Union([]HitID{3, 1, 2}, []HitID{2, 5, 3, 4})
	want := []HitID{3, 1, 2, 5, 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid union: got=%v, want=%v", got, want)
	}

	cand := Candidate{Hits: got, Chi2: 4, NDF: 2}
	if !cand.Contains(5) || cand.Contains(0) {
		t.Fatalf("invalid membership")
	}
	if got, want := cand.ReducedChi2(), 2.0; got != want {
		t.Fatalf("invalid chi2/ndf: got=%v, want=%v", got, want)
	}
	cand.NDF = 0
	if got := cand.ReducedChi2(); !math.IsInf(got, +1) {
		t.Fatalf("invalid chi2/ndf: got=%v, want=+Inf", got)
	}
}
