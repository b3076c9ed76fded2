// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package finder

import (
	"math"

	"github.com/go-lpc/legendre/track"
)

// signs returns the number of hits with a positive and a negative local
// curvature sign with respect to c.
func (drv *driver) signs(c track.Circle, ids []track.HitID) (npos, nneg int) {
	for _, id := range ids {
		switch c.CurvatureSign(drv.pool.Hit(id).Pos) {
		case +1:
			npos++
		case -1:
			nneg++
		}
	}
	return npos, nneg
}

// hypothesis returns the charge hypothesis of the hits with respect to
// the trajectory c.
//
// Hits on a single side of the trajectory make a positive or a negative
// track. Hits on both sides of a curling trajectory make a curler when
// curlers are reconstructed, and two tracks of opposite charges otherwise.
func (drv *driver) hypothesis(c track.Circle, ids []track.HitID) track.Charge {
	npos, nneg := drv.signs(c, ids)
	switch {
	case nneg == 0:
		return track.Positive
	case npos == 0:
		return track.Negative
	case drv.cfg.hough.Curlers && math.Abs(c.R) > drv.cfg.hough.CurlerCurvature:
		return track.Curler
	}
	return track.TwoTracks
}

// split splits hits by local curvature sign.
// Undecided hits go with the largest group.
func (drv *driver) split(c track.Circle, ids []track.HitID) (pos, neg []track.HitID) {
	var zero []track.HitID
	for _, id := range ids {
		switch c.CurvatureSign(drv.pool.Hit(id).Pos) {
		case +1:
			pos = append(pos, id)
		case -1:
			neg = append(neg, id)
		default:
			zero = append(zero, id)
		}
	}
	if len(pos) >= len(neg) {
		pos = append(pos, zero...)
	} else {
		neg = append(neg, zero...)
	}
	return pos, neg
}
