// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"github.com/go-lpc/legendre/finder"
)

// Params is a named set of track finder parameters.
type Params struct {
	Tag string `json:"tag"`

	Threshold int     `json:"threshold"`
	InitHits  int     `json:"init_hits"`
	StepScale float64 `json:"step_scale"`

	MaxLevel int     `json:"max_level"`
	RMin     float64 `json:"rmin"` // cm^-1
	RMax     float64 `json:"rmax"` // cm^-1
	Curlers  bool    `json:"curlers"`

	ResStereo float64 `json:"res_stereo"`
	Precut    float64 `json:"precut"` // cm
	Sigma     float64 `json:"sigma"`  // cm

	EarlyMerge  bool    `json:"early_merge"`
	FreeFit     bool    `json:"free_fit"`
	OutlierCut  float64 `json:"outlier_cut"`
	CurlerMerge float64 `json:"curler_merge"`
}

// Options returns the finder options described by the parameter set.
func (ps Params) Options() []finder.Option {
	return []finder.Option{
		finder.WithThreshold(ps.Threshold),
		finder.WithInitialAxialHits(ps.InitHits),
		finder.WithStepScale(ps.StepScale),
		finder.WithMaxLevel(ps.MaxLevel),
		finder.WithCurvatureRange(ps.RMin, ps.RMax),
		finder.WithCurlers(ps.Curlers),
		finder.WithResolutionStereo(ps.ResStereo),
		finder.WithStereoPrecut(ps.Precut),
		finder.WithHitResolution(ps.Sigma),
		finder.WithEarlyMerge(ps.EarlyMerge),
		finder.WithFreeFit(ps.FreeFit),
		finder.WithOutlierCut(ps.OutlierCut),
		finder.WithCurlerMerge(ps.CurlerMerge),
	}
}

// Layer describes a layer of sense wires.
type Layer struct {
	ID     int     `json:"id"`
	Radius float64 `json:"radius"` // cm
	NWires int     `json:"nwires"`
	Stereo bool    `json:"stereo"`
	Phi0   float64 `json:"phi0"` // azimuth of the wire 0 (rad)
}
