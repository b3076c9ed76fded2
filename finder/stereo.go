// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package finder

import (
	"fmt"
	"math"

	"github.com/go-lpc/legendre/track"
)

// assignStereo attaches every free stereo hit to the closest compatible
// candidate, if any.
func (drv *driver) assignStereo() error {
	for _, id := range drv.pool.Unused(false) {
		cand := drv.stereoCandidate(drv.pool.Hit(id))
		if cand == nil {
			continue
		}
		err := drv.pool.Mark([]track.HitID{id}, track.UsedInTrack)
		if err != nil {
			return fmt.Errorf("finder: could not assign stereo hit: %w", err)
		}
		cand.Hits = append(cand.Hits, id)
		drv.stats.Stereo++
	}
	return nil
}

func (drv *driver) stereoCandidate(h *track.Hit) *track.Candidate {
	var (
		best *track.Candidate
		chi2 = drv.cfg.resStereo
	)
	for _, cand := range drv.cands {
		dist := math.Abs(cand.Circle.Distance(h.Pos))
		if dist > drv.cfg.precut {
			continue
		}
		if cand.Charge != track.Curler {
			sign := cand.Circle.CurvatureSign(h.Pos)
			if sign != 0 && sign != cand.Charge.Sign() {
				continue
			}
		}
		v := math.Abs(dist-h.Drift) / drv.sigma(h)
		if v < chi2 {
			best = cand
			chi2 = v
		}
	}
	return best
}
