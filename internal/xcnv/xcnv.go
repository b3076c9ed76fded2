// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert drift chamber hits and track
// candidates to/from LCIO and to/from TDAQ frames.
package xcnv // import "github.com/go-lpc/legendre/internal/xcnv"

// Detector is the name of the detector stored in LCIO headers.
const Detector = "CDC"

// Default LCIO collection names.
const (
	HitsName      = "CDCHits"
	TracksName    = "CDCTracks"
	MCParticles   = "MCParticle"
	MCTracksName  = "MCTracks"
	nwiresParName = "NWires"
)
