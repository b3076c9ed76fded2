// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package finder

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-lpc/legendre/fit"
	"github.com/go-lpc/legendre/hough"
	"github.com/go-lpc/legendre/track"
)

// driver holds the state of the track finding for a single event.
type driver struct {
	cfg  *config
	srch *hough.Searcher
	fit  fit.Fitter

	pool  *track.Pool
	cands []*track.Candidate

	limit float64 // number of votes requested from the next search
	stats Stats

	step func(drv *driver) // called after each search iteration
}

func (f *Finder) newDriver(hits []track.Hit) *driver {
	return &driver{
		cfg:  &f.cfg,
		srch: f.srch,
		fit:  f.fit,
		pool: track.NewPool(hits),
	}
}

func (drv *driver) debugf(format string, args ...interface{}) {
	if !drv.cfg.verbose {
		return
	}
	drv.cfg.msg.Printf(format, args...)
}

// search runs the stepped Hough search until the requested number of votes
// can not be lowered anymore or not enough axial hits are left.
func (drv *driver) search() error {
	thr := float64(drv.cfg.threshold)
	drv.limit = math.Max(float64(drv.cfg.initHits), thr)

	for {
		ids := drv.pool.Unused(true)
		if len(ids) < drv.cfg.threshold {
			drv.debugf("exhausted: %d axial hits left", len(ids))
			return nil
		}

		drv.stats.Iterations++
		res := drv.srch.Search(drv.items(ids), int(math.Ceil(drv.limit)))
		drv.debugf(
			"iter=%d limit=%.2f hits=%d found=%d",
			drv.stats.Iterations, drv.limit, len(ids), len(res.IDs),
		)

		n := 0
		if len(res.IDs) >= drv.cfg.threshold {
			var err error
			n, err = drv.accept(res)
			if err != nil {
				return err
			}
		}

		if drv.step != nil {
			drv.step(drv)
		}

		if n == 0 {
			if !drv.lower() {
				drv.debugf("exhausted: limit=%.2f", drv.limit)
				return nil
			}
			continue
		}
		drv.limit = math.Max(float64(n)*drv.cfg.stepScale, thr)
	}
}

// lower lowers the number of requested votes, down to the threshold.
// lower returns false when the threshold was already reached.
func (drv *driver) lower() bool {
	thr := float64(drv.cfg.threshold)
	if drv.limit <= thr {
		return false
	}
	drv.limit = math.Max(drv.limit*drv.cfg.stepScale, thr)
	drv.stats.Lowered++
	return true
}

func (drv *driver) items(ids []track.HitID) []hough.Item {
	items := make([]hough.Item, len(ids))
	for i, id := range ids {
		pos, d := drv.pool.Hit(id).Conformal()
		items[i] = hough.Item{ID: int(id), X: pos.X, Y: pos.Y, D: d}
	}
	return items
}

// accept processes the result of a Hough search and returns the number of
// committed hits.
func (drv *driver) accept(res hough.Result) (int, error) {
	ids := make([]track.HitID, len(res.IDs))
	for i, id := range res.IDs {
		ids[i] = track.HitID(id)
	}
	guess := track.Circle{Theta: res.Theta, R: res.R}
	return drv.dispatch(ids, guess, drv.hypothesis(guess, ids))
}

func (drv *driver) dispatch(ids []track.HitID, guess track.Circle, charge track.Charge) (int, error) {
	switch charge {
	case track.Positive, track.Negative, track.Curler:
		return drv.commit(ids, guess, charge)

	case track.TwoTracks:
		pos, neg := drv.split(guess, ids)
		n := 0
		for _, half := range []struct {
			ids    []track.HitID
			charge track.Charge
		}{
			{pos, track.Positive},
			{neg, track.Negative},
		} {
			if len(half.ids) < drv.cfg.threshold {
				continue
			}
			v, err := drv.commit(half.ids, guess, half.charge)
			if err != nil {
				return n, err
			}
			n += v
		}
		return n, nil

	default:
		return 0, fmt.Errorf("%w: %v", ErrChargeHypothesis, charge)
	}
}

// commit fits a candidate, merges it with an already committed one or
// appends it to the list of candidates.
// commit returns the number of hits of the candidate.
func (drv *driver) commit(ids []track.HitID, guess track.Circle, charge track.Charge) (int, error) {
	cand, err := drv.build(ids, guess, charge)
	if err != nil || cand == nil {
		return 0, err
	}

	if drv.cfg.earlyMerge {
		ok, err := drv.merge(cand)
		if err != nil {
			return 0, err
		}
		if ok {
			drv.stats.Merged++
			return len(cand.Hits), nil
		}
	}

	err = drv.pool.Mark(cand.Hits, track.UsedInTrack)
	if err != nil {
		return 0, fmt.Errorf("finder: could not commit candidate: %w", err)
	}
	drv.cands = append(drv.cands, cand)
	drv.stats.Committed++
	drv.debugf(
		"commit: theta=%.4f r=%+.5f charge=%v hits=%d chi2/ndf=%.2f",
		cand.Circle.Theta, cand.Circle.R, cand.Charge, len(cand.Hits), cand.ReducedChi2(),
	)
	return len(cand.Hits), nil
}

// build fits a candidate and removes its outliers.
// build returns a nil candidate when the hits do not make a valid one.
// The hits of a discarded candidate are left untouched, except for the
// outliers which are marked as bad.
func (drv *driver) build(ids []track.HitID, guess track.Circle, charge track.Charge) (*track.Candidate, error) {
	res, err := drv.fitHits(ids, guess)
	if err != nil {
		return nil, err
	}
	if res == nil {
		drv.stats.Degenerate++
		return nil, nil
	}

	if cut := drv.cfg.outlierCut; cut > 0 {
		var keep, bad []track.HitID
		for _, id := range ids {
			v := drv.fit.Residual(drv.pool.Hit(id), res.Circle)
			if math.Abs(v) > cut {
				bad = append(bad, id)
				continue
			}
			keep = append(keep, id)
		}
		if len(bad) > 0 {
			err = drv.pool.Mark(bad, track.UsedBad)
			if err != nil {
				return nil, fmt.Errorf("finder: could not reject outliers: %w", err)
			}
			drv.debugf("rejected %d outliers", len(bad))
			if len(keep) < drv.cfg.threshold {
				drv.stats.Discarded++
				return nil, nil
			}
			ids = keep
			res, err = drv.fitHits(ids, res.Circle)
			if err != nil {
				return nil, err
			}
			if res == nil {
				drv.stats.Degenerate++
				return nil, nil
			}
		}
	}

	if charge != track.Curler {
		switch c := drv.hypothesis(res.Circle, ids); c {
		case track.Positive, track.Negative:
			charge = c
		}
	}

	return &track.Candidate{
		Circle: res.Circle,
		Charge: charge,
		Hits:   ids,
		Chi2:   res.Chi2,
		NDF:    res.NDF,
	}, nil
}

// fitHits fits the provided hits.
// fitHits returns a nil result for degenerate hit configurations.
// Degenerate fits are only counted in the statistics by callers
// building a new candidate.
func (drv *driver) fitHits(ids []track.HitID, guess track.Circle) (*fit.Result, error) {
	res, err := drv.fit.Fit(drv.pool.Hits(ids), guess)
	switch {
	case errors.Is(err, fit.ErrDegenerate):
		drv.debugf("degenerate fit with %d hits", len(ids))
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("finder: could not fit candidate: %w", err)
	}
	return &res, nil
}

func (drv *driver) sigma(h *track.Hit) float64 {
	if h.Sigma > 0 {
		return h.Sigma
	}
	return drv.cfg.sigma
}

func (drv *driver) result() Result {
	var res Result
	res.Tracks = make([]Track, 0, len(drv.cands))
	for _, c := range drv.cands {
		hits := order(drv.pool.Hits(c.Hits), c.Charge)
		trk := Track{
			Hits:   make([]int, len(hits)),
			Theta:  c.Circle.Theta,
			R:      c.Circle.R,
			Ref:    c.Circle.Ref,
			Charge: c.Charge,
			Chi2:   c.Chi2,
			NDF:    c.NDF,
		}
		for i, h := range hits {
			trk.Hits[i] = h.Index
			if h.Axial {
				trk.Axial++
			}
		}
		res.Tracks = append(res.Tracks, trk)
	}

	for i := 0; i < drv.pool.Len(); i++ {
		h := drv.pool.Hit(track.HitID(i))
		switch h.Usage() {
		case track.NotUsed:
			res.Unused = append(res.Unused, h.Index)
		case track.UsedBad:
			res.Bad = append(res.Bad, h.Index)
		}
	}
	res.Stats = drv.stats
	return res
}
