// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dqm holds data quality monitoring histograms of the track finder.
package dqm // import "github.com/go-lpc/legendre/internal/dqm"

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-lpc/legendre/finder"
	"go-hep.org/x/hep/hbook"
)

// DQM holds data quality histograms.
// DQM is safe for concurrent use.
type DQM struct {
	mu sync.Mutex

	Tracks *hbook.H1D // number of tracks per event
	Hits   *hbook.H1D // number of hits per track
	Curv   *hbook.H1D // curvature of tracks (cm^-1)
	Theta  *hbook.H1D // direction of tracks (rad)
	Chi2   *hbook.H1D // reduced chi2 of tracks
	Unused *hbook.H1D // fraction of unused hits per event

	Events int64
}

func New() *DQM {
	dqm := &DQM{
		Tracks: hbook.NewH1D(50, 0, 50),
		Hits:   hbook.NewH1D(150, 0, 150),
		Curv:   hbook.NewH1D(100, -0.05, +0.05),
		Theta:  hbook.NewH1D(100, 0, 3.2),
		Chi2:   hbook.NewH1D(100, 0, 10),
		Unused: hbook.NewH1D(50, 0, 1),
	}
	for _, v := range []struct {
		h    *hbook.H1D
		name string
	}{
		{dqm.Tracks, "tracks"},
		{dqm.Hits, "hits"},
		{dqm.Curv, "curvature"},
		{dqm.Theta, "theta"},
		{dqm.Chi2, "chi2ndf"},
		{dqm.Unused, "unused"},
	} {
		v.h.Annotation()["name"] = v.name
	}
	return dqm
}

// Fill fills the histograms with the result of the track finding of an
// event made of nhits hits.
func (dqm *DQM) Fill(res finder.Result, nhits int) {
	dqm.mu.Lock()
	defer dqm.mu.Unlock()

	dqm.Events++
	dqm.Tracks.Fill(float64(len(res.Tracks)), 1)
	for _, trk := range res.Tracks {
		dqm.Hits.Fill(float64(len(trk.Hits)), 1)
		dqm.Curv.Fill(trk.R, 1)
		dqm.Theta.Fill(trk.Theta, 1)
		if trk.NDF > 0 {
			dqm.Chi2.Fill(trk.Chi2/float64(trk.NDF), 1)
		}
	}
	if nhits > 0 {
		dqm.Unused.Fill(float64(len(res.Unused))/float64(nhits), 1)
	}
}

// WriteYODA writes all the histograms in the YODA format to w.
func (dqm *DQM) WriteYODA(w io.Writer) error {
	dqm.mu.Lock()
	defer dqm.mu.Unlock()

	for _, h := range []*hbook.H1D{
		dqm.Tracks, dqm.Hits, dqm.Curv, dqm.Theta, dqm.Chi2, dqm.Unused,
	} {
		raw, err := h.MarshalYODA()
		if err != nil {
			return fmt.Errorf("dqm: could not marshal histogram %q: %w", h.Name(), err)
		}
		_, err = w.Write(raw)
		if err != nil {
			return fmt.Errorf("dqm: could not write histogram %q: %w", h.Name(), err)
		}
	}
	return nil
}
