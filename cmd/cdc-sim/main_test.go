// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/legendre/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func TestSim(t *testing.T) {
	tmp, err := os.MkdirTemp("", "cdc-sim-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	oname := filepath.Join(tmp, "sim.slcio")
	err = xmain([]string{"-o", oname, "-n", "5", "-p", "3", "-run", "42"})
	if err != nil {
		t.Fatalf("could not generate events: %+v", err)
	}

	r, err := lcio.Open(oname)
	if err != nil {
		t.Fatalf("could not open LCIO file: %+v", err)
	}
	defer r.Close()

	n := 0
	for r.Next() {
		evt := r.Event()
		if got, want := evt.RunNumber, int32(42); got != want {
			t.Fatalf("invalid run number: got=%d, want=%d", got, want)
		}
		hits, err := xcnv.Hits(&evt, xcnv.HitsName)
		if err != nil {
			t.Fatalf("could not read hits: %+v", err)
		}
		ps, err := xcnv.Particles(&evt, xcnv.MCParticles)
		if err != nil {
			t.Fatalf("could not read particles: %+v", err)
		}
		if got, want := len(ps), 3; got != want {
			t.Fatalf("invalid number of particles: got=%d, want=%d", got, want)
		}
		trks, err := xcnv.Tracks(&evt, xcnv.MCTracksName, xcnv.HitsName)
		if err != nil {
			t.Fatalf("could not read truth tracks: %+v", err)
		}
		if got, want := len(trks), len(ps); got != want {
			t.Fatalf("invalid number of truth tracks: got=%d, want=%d", got, want)
		}
		nhits := 50 // noise
		for _, trk := range trks {
			nhits += len(trk.Hits)
		}
		if got, want := len(hits), nhits; got != want {
			t.Fatalf("invalid number of hits: got=%d, want=%d", got, want)
		}
		n++
	}
	if got, want := n, 5; got != want {
		t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
	}
}
