// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/legendre/finder"
	"github.com/go-lpc/legendre/internal/xcnv"
	"github.com/go-lpc/legendre/track"
	"go-hep.org/x/hep/lcio"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestDump(t *testing.T) {
	tmp, err := os.MkdirTemp("", "trk-dump-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	fname := filepath.Join(tmp, "reco.slcio")
	{
		w, err := lcio.Create(fname)
		if err != nil {
			t.Fatalf("could not create LCIO file: %+v", err)
		}
		defer w.Close()

		evt := lcio.Event{RunNumber: 1, EventNumber: 0, Detector: xcnv.Detector}
		evt.Add(xcnv.HitsName, xcnv.HitContainer([]track.Hit{
			{Index: 0, Pos: r2.Vec{X: 20}, Axial: true, Layer: 0, Wire: 0, NWires: 160},
			{Index: 1, Pos: r2.Vec{X: 21}, Axial: true, Layer: 1, Wire: 0, NWires: 160},
			{Index: 2, Pos: r2.Vec{X: 30}, Axial: false, Layer: 8, Wire: 0, NWires: 160},
		}))
		err = xcnv.AddTracks(&evt, xcnv.TracksName, xcnv.HitsName, []finder.Track{
			{Hits: []int{0, 1}, Theta: 1.5, R: 0.0078125, Charge: track.Positive, Chi2: 3.5, NDF: 1},
		})
		if err != nil {
			t.Fatalf("could not add tracks: %+v", err)
		}
		err = xcnv.AddTracks(&evt, xcnv.MCTracksName, xcnv.HitsName, []finder.Track{
			{Hits: []int{0, 1, 2}, Charge: track.Positive},
		})
		if err != nil {
			t.Fatalf("could not add truth tracks: %+v", err)
		}

		err = w.WriteEvent(&evt)
		if err != nil {
			t.Fatalf("could not write event: %+v", err)
		}
		err = w.Close()
		if err != nil {
			t.Fatalf("could not close LCIO file: %+v", err)
		}
	}

	for _, tc := range []struct {
		name string
		opts options
		want string
	}{
		{
			name: "default",
			opts: options{hits: xcnv.HitsName, tracks: xcnv.TracksName, truth: xcnv.MCTracksName},
			want: `=== run 1 event 0 ===
hits:    3
trk[000]: charge=positive theta=+1.5000 r=+0.00781 chi2/ndf=   3.5/1 hits=   2 (axial=2)
truth: 1/1 matched
`,
		},
		{
			name: "hits",
			opts: options{hits: xcnv.HitsName, tracks: xcnv.TracksName, ids: true},
			want: `=== run 1 event 0 ===
hits:    3
trk[000]: charge=positive theta=+1.5000 r=+0.00781 chi2/ndf=   3.5/1 hits=   2 (axial=2)
  [0 1]
`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := new(bytes.Buffer)
			err := process(out, fname, tc.opts)
			if err != nil {
				t.Fatalf("could not dump file: %+v", err)
			}
			if got, want := out.String(), tc.want; got != want {
				t.Fatalf("invalid output:\ngot:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestMatched(t *testing.T) {
	var (
		mcs = []finder.Track{
			{Hits: []int{0, 1, 2, 3}},
			{Hits: []int{4, 5, 6, 7}},
			{Hits: []int{8, 9}},
		}
		trks = []finder.Track{
			{Hits: []int{0, 1, 2}},
			{Hits: []int{4, 5, 8}},
			{Hits: []int{6, 7, 9}},
		}
	)
	if got, want := matched(mcs, trks), 1; got != want {
		t.Fatalf("invalid number of matched tracks: got=%d, want=%d", got, want)
	}
}
