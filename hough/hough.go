// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hough implements a fast Hough transform over the (theta, r)
// parameter space of circles passing through the origin.
//
// Hits are given in conformal space, where such circles become the straight
// lines:
//
//	r = X cos(theta) + Y sin(theta)
//
// A hit with a conformal drift length D is compatible with the two curves
// r = X cos(theta) + Y sin(theta) ± D.
//
// The parameter space is recursively divided into 2x2 sub-boxes, and only
// the boxes with enough votes are further refined.
package hough // import "github.com/go-lpc/legendre/hough"

import (
	"fmt"
	"math"
	"sort"
)

// Config configures a Hough searcher.
type Config struct {
	MaxLevel int     // maximum number of subdivisions
	RMin     float64 // minimal signed curvature (1/cm)
	RMax     float64 // maximal signed curvature (1/cm)

	// Curlers enables the search in the region of curvatures
	// beyond CurlerCurvature.
	Curlers         bool
	CurlerCurvature float64

	// VariableBinning stops the subdivision earlier for boxes at
	// large |r|, where the hits of low momentum tracks are spread
	// over wider bins.
	VariableBinning bool
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() Config {
	return Config{
		MaxLevel:        12,
		RMin:            -0.15,
		RMax:            +0.15,
		Curlers:         false,
		CurlerCurvature: 0.0177,
		VariableBinning: true,
	}
}

// NBinsTheta returns the number of theta bins used by the lookup table.
func (cfg Config) NBinsTheta() int {
	return 1 << (cfg.MaxLevel + 3)
}

func (cfg Config) validate() error {
	switch {
	case cfg.MaxLevel < 1 || cfg.MaxLevel > 20:
		return fmt.Errorf("hough: invalid max level %d", cfg.MaxLevel)
	case !(cfg.RMin < cfg.RMax):
		return fmt.Errorf("hough: invalid curvature range [%v, %v]", cfg.RMin, cfg.RMax)
	case cfg.CurlerCurvature < 0:
		return fmt.Errorf("hough: invalid curler curvature %v", cfg.CurlerCurvature)
	}
	return nil
}

// Item is a hit, in conformal space, taking part to the vote.
type Item struct {
	ID int     // user provided identifier
	X  float64 // conformal position
	Y  float64
	D  float64 // conformal drift length
}

// Box is a rectangle in the (theta, r) parameter space.
type Box struct {
	ThetaMin, ThetaMax float64
	RMin, RMax         float64
}

// Contains returns whether (theta, r) is inside the box.
func (b Box) Contains(theta, r float64) bool {
	return b.ThetaMin <= theta && theta <= b.ThetaMax &&
		b.RMin <= r && r <= b.RMax
}

// Result is the outcome of a search.
type Result struct {
	IDs   []int   // identifiers of the items supporting the box
	Theta float64 // center of the box
	R     float64
	Box   Box
	Level int
}

// Searcher runs fast Hough searches.
// A Searcher is immutable and safe for concurrent use.
type Searcher struct {
	cfg   Config
	nbins int
	tbl   *table
}

// New creates a new searcher.
func New(cfg Config) (*Searcher, error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	}
	nbins := cfg.NBinsTheta()
	return &Searcher{
		cfg:   cfg,
		nbins: nbins,
		tbl:   newTable(nbins),
	}, nil
}

// Config returns the configuration of the searcher.
func (s *Searcher) Config() Config { return s.cfg }

// Search returns the most populated box at maximal depth, provided it holds
// at least limit votes. An empty result is returned otherwise.
func (s *Searcher) Search(items []Item, limit int) Result {
	if limit < 1 {
		limit = 1
	}
	if len(items) < limit {
		return Result{}
	}

	sr := search{
		s:     s,
		items: items,
		limit: limit,
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sr.node(idx, 1, 0, s.nbins, s.cfg.RMin, s.cfg.RMax)

	if len(sr.best) == 0 {
		return Result{}
	}

	res := sr.res
	res.IDs = make([]int, len(sr.best))
	for i, j := range sr.best {
		res.IDs[i] = items[j].ID
	}
	return res
}

type search struct {
	s     *Searcher
	items []Item
	limit int

	best []int // indices of the items of the best leaf so far
	res  Result
}

type child struct {
	it, ir int
	votes  []int
}

func (sr *search) node(idx []int, level, t0, t2 int, r0, r2 float64) {
	cfg := &sr.s.cfg
	if !cfg.Curlers && sr.isCurler(r0, r2) {
		return
	}

	var (
		t1 = (t0 + t2) / 2
		r1 = 0.5 * (r0 + r2)
		ts = [3]int{t0, t1, t2}
		rs = [3]float64{r0, r1, r2}
		cs = [4]child{{it: 0, ir: 0}, {it: 0, ir: 1}, {it: 1, ir: 0}, {it: 1, ir: 1}}
	)

	for _, i := range idx {
		mask := sr.vote(&sr.items[i], ts, rs)
		for k := range cs {
			if mask[cs[k].it][cs[k].ir] {
				cs[k].votes = append(cs[k].votes, i)
			}
		}
	}

	// process the most voted boxes first.
	sort.SliceStable(cs[:], func(i, j int) bool {
		return len(cs[i].votes) > len(cs[j].votes)
	})

	for _, c := range cs {
		n := len(c.votes)
		if n < sr.limit || n <= len(sr.best) {
			continue
		}
		var (
			ct0, ct2 = ts[c.it], ts[c.it+1]
			cr0, cr2 = rs[c.ir], rs[c.ir+1]
		)
		if ct2 == ct0 {
			// theta bins can not be split further.
			ct2 = ct0 + 1
		}

		rmean := 0.5 * (cr0 + cr2)
		if level < cfg.MaxLevel-sr.levelDiff(rmean) {
			sr.node(c.votes, level+1, ct0, ct2, cr0, cr2)
			continue
		}

		if !cfg.Curlers && math.Abs(rmean) > cfg.CurlerCurvature && cfg.CurlerCurvature > 0 {
			continue
		}
		sr.leaf(c.votes, level, ct0, ct2, cr0, cr2)
	}
}

func (sr *search) leaf(votes []int, level, t0, t2 int, r0, r2 float64) {
	step := math.Pi / float64(sr.s.nbins)
	sr.best = append(sr.best[:0], votes...)
	sr.res = Result{
		Theta: 0.5 * float64(t0+t2) * step,
		R:     0.5 * (r0 + r2),
		Box: Box{
			ThetaMin: float64(t0) * step,
			ThetaMax: float64(t2) * step,
			RMin:     r0,
			RMax:     r2,
		},
		Level: level,
	}
}

// vote returns, for each of the 2x2 sub-boxes, whether one of the two
// curves of the item crosses it.
func (sr *search) vote(it *Item, ts [3]int, rs [3]float64) [2][2]bool {
	var (
		tbl = sr.s.tbl
		lo  [3][3]float64 // r_box - (r_hit - D)
		hi  [3][3]float64 // r_box - (r_hit + D)
	)
	for i, t := range ts {
		rt := it.X*tbl.cos[t] + it.Y*tbl.sin[t]
		for j, r := range rs {
			lo[i][j] = r - (rt - it.D)
			hi[i][j] = r - (rt + it.D)
		}
	}

	var mask [2][2]bool
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			mask[i][j] = !sameSign(lo[i][j], lo[i][j+1], lo[i+1][j], lo[i+1][j+1]) ||
				!sameSign(hi[i][j], hi[i][j+1], hi[i+1][j], hi[i+1][j+1])
		}
	}
	return mask
}

func (sr *search) isCurler(r0, r2 float64) bool {
	rc := sr.s.cfg.CurlerCurvature
	if rc <= 0 {
		return false
	}
	return (r0 > rc && r2 > rc) || (r0 < -rc && r2 < -rc)
}

func (sr *search) levelDiff(r float64) int {
	if !sr.s.cfg.VariableBinning {
		return 0
	}
	if math.Abs(r) > sr.s.cfg.RMax/4 {
		return 3
	}
	return 0
}

func sameSign(v1, v2, v3, v4 float64) bool {
	return (v1 > 0 && v2 > 0 && v3 > 0 && v4 > 0) ||
		(v1 < 0 && v2 < 0 && v3 < 0 && v4 < 0)
}
