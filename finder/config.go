// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package finder

import (
	"fmt"
	"log"
	"os"

	"github.com/go-lpc/legendre/fit"
	"github.com/go-lpc/legendre/hough"
)

type config struct {
	threshold int     // minimal number of axial hits of a candidate
	initHits  int     // initial number of votes requested
	stepScale float64 // scale factor applied to the number of votes requested

	hough hough.Config

	resStereo float64 // maximal normalized residual of stereo hits
	precut    float64 // maximal distance of stereo hits to a candidate (cm)

	sigma      float64 // default drift length resolution (cm)
	passes     int     // number of left/right fit refinement passes
	free       bool    // enable free circle fits
	outlierCut float64 // maximal normalized residual of axial hits

	earlyMerge    bool
	overlapHits   int     // minimal overlap to try a merge
	overlapSigmas float64 // compatibility window of overlapping hits
	mergeFactor   float64

	curlerMerge float64 // maximal χ²/NDF of merged curlers

	msg     *log.Logger
	verbose bool
}

func newConfig() config {
	return config{
		threshold:     10,
		initHits:      48,
		stepScale:     0.75,
		hough:         hough.DefaultConfig(),
		resStereo:     2,
		precut:        5,
		sigma:         fit.DefaultSigma,
		passes:        3,
		free:          true,
		outlierCut:    20,
		earlyMerge:    true,
		overlapHits:   3,
		overlapSigmas: 3,
		mergeFactor:   3,
		curlerMerge:   2,
		msg:           log.New(os.Stdout, "finder: ", 0),
	}
}

func (cfg config) validate() error {
	switch {
	case cfg.threshold < 1:
		return fmt.Errorf("%w: invalid threshold %d", ErrConfig, cfg.threshold)
	case cfg.initHits < 1:
		return fmt.Errorf("%w: invalid initial number of axial hits %d", ErrConfig, cfg.initHits)
	case !(cfg.stepScale > 0 && cfg.stepScale < 1):
		return fmt.Errorf("%w: invalid step scale %v", ErrConfig, cfg.stepScale)
	case !(cfg.resStereo > 0):
		return fmt.Errorf("%w: invalid stereo resolution %v", ErrConfig, cfg.resStereo)
	case cfg.precut < 0:
		return fmt.Errorf("%w: invalid stereo precut %v", ErrConfig, cfg.precut)
	case !(cfg.sigma > 0):
		return fmt.Errorf("%w: invalid hit resolution %v", ErrConfig, cfg.sigma)
	case cfg.passes < 0:
		return fmt.Errorf("%w: invalid number of fit passes %d", ErrConfig, cfg.passes)
	case cfg.outlierCut < 0:
		return fmt.Errorf("%w: invalid outlier cut %v", ErrConfig, cfg.outlierCut)
	case cfg.overlapHits < 0 || cfg.overlapSigmas < 0:
		return fmt.Errorf("%w: invalid overlap (hits=%d, sigmas=%v)", ErrConfig, cfg.overlapHits, cfg.overlapSigmas)
	case !(cfg.mergeFactor > 0):
		return fmt.Errorf("%w: invalid merge factor %v", ErrConfig, cfg.mergeFactor)
	case cfg.curlerMerge < 0:
		return fmt.Errorf("%w: invalid curler merge cut %v", ErrConfig, cfg.curlerMerge)
	case cfg.msg == nil:
		return fmt.Errorf("%w: nil logger", ErrConfig)
	}
	return nil
}

// Option configures a Finder.
type Option func(cfg *config)

// WithThreshold sets the minimal number of axial hits of a track candidate.
func WithThreshold(n int) Option {
	return func(cfg *config) {
		cfg.threshold = n
	}
}

// WithInitialAxialHits sets the number of votes requested by the first
// search iteration.
func WithInitialAxialHits(n int) Option {
	return func(cfg *config) {
		cfg.initHits = n
	}
}

// WithStepScale sets the factor applied to the number of requested votes
// between iterations.
func WithStepScale(v float64) Option {
	return func(cfg *config) {
		cfg.stepScale = v
	}
}

// WithMaxLevel sets the maximal depth of the Hough search.
func WithMaxLevel(n int) Option {
	return func(cfg *config) {
		cfg.hough.MaxLevel = n
	}
}

// WithCurvatureRange sets the range of curvatures (in 1/cm) explored by
// the Hough search.
func WithCurvatureRange(min, max float64) Option {
	return func(cfg *config) {
		cfg.hough.RMin = min
		cfg.hough.RMax = max
	}
}

// WithCurlers enables the reconstruction of curling tracks.
func WithCurlers(v bool) Option {
	return func(cfg *config) {
		cfg.hough.Curlers = v
	}
}

// WithCurlerCurvature sets the curvature (in 1/cm) above which a track
// curls inside the chamber.
func WithCurlerCurvature(v float64) Option {
	return func(cfg *config) {
		cfg.hough.CurlerCurvature = v
	}
}

// WithVariableBinning enables coarser Hough bins at large curvatures.
func WithVariableBinning(v bool) Option {
	return func(cfg *config) {
		cfg.hough.VariableBinning = v
	}
}

// WithResolutionStereo sets the maximal normalized residual of a stereo
// hit assigned to a candidate.
func WithResolutionStereo(v float64) Option {
	return func(cfg *config) {
		cfg.resStereo = v
	}
}

// WithStereoPrecut sets the maximal distance (in cm) between a stereo hit
// and a candidate.
func WithStereoPrecut(v float64) Option {
	return func(cfg *config) {
		cfg.precut = v
	}
}

// WithHitResolution sets the drift length resolution (in cm) of hits
// without one.
func WithHitResolution(v float64) Option {
	return func(cfg *config) {
		cfg.sigma = v
	}
}

// WithFitPasses sets the number of left/right refinement passes of fits.
func WithFitPasses(n int) Option {
	return func(cfg *config) {
		cfg.passes = n
	}
}

// WithFreeFit enables circle fits not constrained to the origin.
func WithFreeFit(v bool) Option {
	return func(cfg *config) {
		cfg.free = v
	}
}

// WithOutlierCut sets the normalized residual above which an axial hit is
// removed from its candidate and marked as bad. Zero disables the cut.
func WithOutlierCut(v float64) Option {
	return func(cfg *config) {
		cfg.outlierCut = v
	}
}

// WithEarlyMerge enables merging new candidates into already found ones.
func WithEarlyMerge(v bool) Option {
	return func(cfg *config) {
		cfg.earlyMerge = v
	}
}

// WithOverlap sets the number of hits two candidates must share before a
// merge is tried, and the window (in units of hit resolution) used to
// decide whether a hit is shared.
func WithOverlap(hits int, sigmas float64) Option {
	return func(cfg *config) {
		cfg.overlapHits = hits
		cfg.overlapSigmas = sigmas
	}
}

// WithMergeChi2Factor sets the factor k of the merge acceptance:
//
//	χ²(a ∪ b) < k (√χ²(a) + √χ²(b))²
func WithMergeChi2Factor(v float64) Option {
	return func(cfg *config) {
		cfg.mergeFactor = v
	}
}

// WithCurlerMerge sets the maximal χ²/NDF of two candidates merged
// after the search. Zero disables curler merging.
func WithCurlerMerge(v float64) Option {
	return func(cfg *config) {
		cfg.curlerMerge = v
	}
}

// WithLogger sets the logger of the finder.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithVerbose enables per-iteration messages.
func WithVerbose(v bool) Option {
	return func(cfg *config) {
		cfg.verbose = v
	}
}
