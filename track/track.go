// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package track holds the data model of the drift chamber track finder:
// hits, their usage state, circular trajectories and track candidates.
package track // import "github.com/go-lpc/legendre/track"

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrUsage is returned for an illegal usage transition.
	ErrUsage = errors.New("track: invalid usage transition")
)

// Usage describes whether a hit has been claimed by a track candidate.
type Usage uint8

const (
	NotUsed     Usage = iota // hit is free
	UsedInTrack              // hit belongs to a committed candidate
	UsedBad                  // hit was rejected and can not be used anymore
)

func (u Usage) String() string {
	switch u {
	case NotUsed:
		return "not_used"
	case UsedInTrack:
		return "used_in_track"
	case UsedBad:
		return "used_bad"
	}
	return fmt.Sprintf("Usage(%d)", uint8(u))
}

// Charge is the charge hypothesis of a track candidate.
type Charge int8

const (
	Positive  Charge = 1
	Negative  Charge = -1
	Curler    Charge = 2
	TwoTracks Charge = 3
)

// Valid returns whether c is one of the known charge hypotheses.
func (c Charge) Valid() bool {
	switch c {
	case Positive, Negative, Curler, TwoTracks:
		return true
	}
	return false
}

func (c Charge) String() string {
	switch c {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	case Curler:
		return "curler"
	case TwoTracks:
		return "two_tracks"
	}
	return fmt.Sprintf("Charge(%d)", int8(c))
}

// Sign returns the charge sign of a positive or negative hypothesis,
// and 0 otherwise.
func (c Charge) Sign() int {
	switch c {
	case Positive:
		return +1
	case Negative:
		return -1
	}
	return 0
}

// HitID is a handle to a hit stored in a Pool.
type HitID int32

// Hit is a single drift chamber measurement.
//
// The drift length is the radius of the drift circle around the wire,
// Sigma is the resolution on that drift length.
// All lengths are in cm.
type Hit struct {
	Index  int    // index of the hit in the input collection
	Pos    r2.Vec // wire position
	Drift  float64
	Sigma  float64
	Axial  bool
	Layer  int // layer identifier, radially ordered
	Wire   int // wire index inside its layer
	NWires int // number of wires of the layer

	usage Usage
	conf  r2.Vec  // conformal position
	cdrft float64 // conformal drift length
}

// Usage returns the usage state of the hit.
func (h *Hit) Usage() Usage { return h.usage }

// Conformal returns the conformal transform of the hit position and of its
// drift length, computed with respect to the origin:
//
//	(X, Y, D) = (2x, 2y, 2d) / (x² + y² - d²)
//
// In that space, circles through the origin become straight lines.
func (h *Hit) Conformal() (pos r2.Vec, drift float64) {
	return h.conf, h.cdrft
}

// Radius returns the radial distance of the hit wire from the origin.
func (h *Hit) Radius() float64 {
	return r2.Norm(h.Pos)
}

func (h *Hit) init() bool {
	den := r2.Norm2(h.Pos) - h.Drift*h.Drift
	if !(den > 0) {
		h.conf = r2.Vec{}
		h.cdrft = 0
		return false
	}
	h.conf = r2.Scale(2/den, h.Pos)
	h.cdrft = 2 * h.Drift / den
	return true
}
