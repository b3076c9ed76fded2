// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqm

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/go-lpc/legendre/finder"
	"github.com/go-lpc/legendre/track"
)

func TestDQM(t *testing.T) {
	var (
		dqm = New()
		res = finder.Result{
			Tracks: []finder.Track{
				{Hits: make([]int, 40), Theta: 1, R: +0.005, Charge: track.Positive, Chi2: 38, NDF: 38},
				{Hits: make([]int, 30), Theta: 2, R: -0.010, Charge: track.Negative, Chi2: 56, NDF: 28},
			},
			Unused: make([]int, 10),
		}
	)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dqm.Fill(res, 80)
		}()
	}
	wg.Wait()

	if got, want := dqm.Events, int64(10); got != want {
		t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
	}
	if got, want := dqm.Tracks.Entries(), int64(10); got != want {
		t.Fatalf("invalid tracks entries: got=%d, want=%d", got, want)
	}
	if got, want := dqm.Hits.Entries(), int64(20); got != want {
		t.Fatalf("invalid hits entries: got=%d, want=%d", got, want)
	}
	if got, want := dqm.Chi2.XMean(), 1.5; got != want {
		t.Fatalf("invalid chi2/ndf mean: got=%v, want=%v", got, want)
	}
	if got, want := dqm.Unused.XMean(), 0.125; got != want {
		t.Fatalf("invalid unused fraction mean: got=%v, want=%v", got, want)
	}

	buf := new(bytes.Buffer)
	err := dqm.WriteYODA(buf)
	if err != nil {
		t.Fatalf("could not write YODA: %+v", err)
	}
	for _, name := range []string{"tracks", "hits", "curvature", "theta", "chi2ndf", "unused"} {
		if !strings.Contains(buf.String(), name) {
			t.Fatalf("missing histogram %q in YODA output", name)
		}
	}
	if got, want := strings.Count(buf.String(), "BEGIN YODA_HISTO1D"), 6; got != want {
		t.Fatalf("invalid number of histograms: got=%d, want=%d", got, want)
	}
}
