// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package finder finds tracks in a cylindrical drift chamber.
//
// Axial hits are grouped into track candidates with a stepped fast Hough
// search: the most populated trajectory with at least a given number of
// hits is extracted, fitted and committed, its hits are removed from the
// search, and the number of requested hits is progressively lowered until
// no more candidates can be found.
// Candidates are then merged, stereo hits are attached to the closest
// compatible candidate and the hits of each candidate are sorted.
package finder // import "github.com/go-lpc/legendre/finder"

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-lpc/legendre/fit"
	"github.com/go-lpc/legendre/hough"
	"github.com/go-lpc/legendre/track"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrConfig is returned for invalid finder configurations.
	ErrConfig = errors.New("finder: invalid configuration")

	// ErrChargeHypothesis is returned when a candidate carries an
	// unknown charge hypothesis.
	ErrChargeHypothesis = errors.New("finder: invalid charge hypothesis")
)

// Finder finds tracks.
// A Finder is immutable and may be used concurrently.
type Finder struct {
	cfg  config
	srch *hough.Searcher
	fit  fit.Fitter
	msg  *log.Logger
}

// New creates a new track finder.
func New(opts ...Option) (*Finder, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	srch, err := hough.New(cfg.hough)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	return &Finder{
		cfg:  cfg,
		srch: srch,
		fit: fit.Fitter{
			Sigma:  cfg.sigma,
			Passes: cfg.passes,
			Free:   cfg.free,
		},
		msg: cfg.msg,
	}, nil
}

// Threshold returns the minimal number of axial hits of a track.
func (f *Finder) Threshold() int { return f.cfg.threshold }

// Track is a track candidate found by a Finder.
type Track struct {
	Hits   []int // indices of the hits, in fit seeding order
	Axial  int   // number of axial hits
	Theta  float64
	R      float64
	Ref    r2.Vec
	Charge track.Charge
	Chi2   float64
	NDF    int
}

// Circle returns the trajectory of the track.
func (trk Track) Circle() track.Circle {
	return track.Circle{Theta: trk.Theta, R: trk.R, Ref: trk.Ref}
}

// Stats holds counters about an event.
type Stats struct {
	Iterations int // number of Hough searches
	Lowered    int // number of times the requested number of votes was lowered
	Committed  int // number of standalone candidates
	Merged     int // number of candidates merged into an earlier one
	Curlers    int // number of curler merges
	Degenerate int // number of candidates discarded by a degenerate fit
	Discarded  int // number of candidates failing quality checks
	Stereo     int // number of assigned stereo hits
}

// Result is the outcome of a track finding.
type Result struct {
	Tracks []Track
	Unused []int // indices of the hits not used by any track
	Bad    []int // indices of the hits rejected by the finder
	Stats  Stats
}

// Find finds tracks among the provided hits.
// The hit index fields identify hits in the returned tracks.
func (f *Finder) Find(hits []track.Hit) (Result, error) {
	drv := f.newDriver(hits)

	err := drv.search()
	if err != nil {
		return Result{}, fmt.Errorf("finder: could not find axial candidates: %w", err)
	}

	err = drv.mergeCurlers()
	if err != nil {
		return Result{}, fmt.Errorf("finder: could not merge curlers: %w", err)
	}

	err = drv.assignStereo()
	if err != nil {
		return Result{}, fmt.Errorf("finder: could not assign stereo hits: %w", err)
	}

	return drv.result(), nil
}
