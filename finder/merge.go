// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package finder

import (
	"fmt"
	"math"

	"github.com/go-lpc/legendre/fit"
	"github.com/go-lpc/legendre/track"
)

// overlap returns the number of hits compatible with the trajectory c.
func (drv *driver) overlap(c track.Circle, ids []track.HitID) int {
	n := 0
	for _, id := range ids {
		h := drv.pool.Hit(id)
		d := math.Abs(c.Distance(h.Pos)) - h.Drift
		if d < drv.cfg.overlapSigmas*drv.sigma(h) {
			n++
		}
	}
	return n
}

// mergeable returns whether the combined fit of two candidates is
// statistically compatible with their separate fits.
func (cfg *config) mergeable(a, b *track.Candidate, res fit.Result) bool {
	lim := math.Sqrt(a.Chi2) + math.Sqrt(b.Chi2)
	lim = cfg.mergeFactor * lim * lim
	if res.Chi2 < lim {
		return true
	}
	return res.NDF > 0 && res.Chi2 < float64(res.NDF)
}

// merge tries to merge a new candidate into one of the committed ones.
// The best compatible candidate is selected.
func (drv *driver) merge(cand *track.Candidate) (bool, error) {
	var (
		best *track.Candidate
		ids  []track.HitID
		comb fit.Result
	)
	for _, old := range drv.cands {
		var (
			nab = drv.overlap(old.Circle, cand.Hits)
			nba = drv.overlap(cand.Circle, old.Hits)
		)
		if nab <= drv.cfg.overlapHits && nba <= drv.cfg.overlapHits {
			continue
		}

		union := track.Union(old.Hits, cand.Hits)
		res, err := drv.fitHits(union, old.Circle)
		if err != nil {
			return false, err
		}
		if res == nil || !drv.cfg.mergeable(old, cand, *res) {
			continue
		}
		if best != nil && !(reduced(*res) < reduced(comb)) {
			continue
		}
		best = old
		ids = union
		comb = *res
	}

	if best == nil {
		return false, nil
	}

	err := drv.pool.Mark(cand.Hits, track.UsedInTrack)
	if err != nil {
		return false, fmt.Errorf("finder: could not merge candidate: %w", err)
	}
	drv.update(best, ids, comb)
	drv.debugf(
		"merge: theta=%.4f r=%+.5f hits=%d chi2/ndf=%.2f",
		best.Circle.Theta, best.Circle.R, len(best.Hits), best.ReducedChi2(),
	)
	return true, nil
}

// mergeCurlers merges pairs of candidates belonging to the same trajectory,
// as long as their combined fit is good enough.
func (drv *driver) mergeCurlers() error {
	cut := drv.cfg.curlerMerge
	if cut <= 0 {
		return nil
	}

	for {
		var (
			bi, bj = -1, -1
			ids    []track.HitID
			comb   fit.Result
		)
		for i, a := range drv.cands {
			for j := i + 1; j < len(drv.cands); j++ {
				b := drv.cands[j]
				union := track.Union(a.Hits, b.Hits)
				res, err := drv.fitHits(union, a.Circle)
				if err != nil {
					return err
				}
				if res == nil || res.NDF <= 0 {
					continue
				}
				v := reduced(*res)
				if !(v < cut) {
					continue
				}
				if bi >= 0 && !(v < reduced(comb)) {
					continue
				}
				bi, bj = i, j
				ids = union
				comb = *res
			}
		}

		if bi < 0 {
			return nil
		}

		drv.update(drv.cands[bi], ids, comb)
		drv.cands = append(drv.cands[:bj], drv.cands[bj+1:]...)
		drv.stats.Curlers++
		drv.debugf("curler merge: %d candidates left", len(drv.cands))
	}
}

// update sets the hits and the trajectory of a merged candidate.
func (drv *driver) update(cand *track.Candidate, ids []track.HitID, res fit.Result) {
	cand.Hits = ids
	cand.Circle = res.Circle
	cand.Chi2 = res.Chi2
	cand.NDF = res.NDF

	npos, nneg := drv.signs(res.Circle, ids)
	switch {
	case nneg == 0:
		cand.Charge = track.Positive
	case npos == 0:
		cand.Charge = track.Negative
	default:
		cand.Charge = track.Curler
	}
}

func reduced(res fit.Result) float64 {
	if res.NDF <= 0 {
		return math.Inf(1)
	}
	return res.Chi2 / float64(res.NDF)
}
