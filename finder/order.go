// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package finder

import (
	"math"
	"sort"

	"github.com/go-lpc/legendre/track"
)

// order sorts hits by increasing radius.
// Hits of a same layer at the same radius are sorted by wire index,
// increasing for positive and decreasing for negative tracks. Layers where
// the hits go across the wire 0 are handled as a continuous sequence.
func order(hits []*track.Hit, charge track.Charge) []*track.Hit {
	o := make([]*track.Hit, len(hits))
	copy(o, hits)
	sort.SliceStable(o, func(i, j int) bool {
		ri, rj := o[i].Radius(), o[j].Radius()
		if ri != rj {
			return ri < rj
		}
		return o[i].Layer < o[j].Layer
	})

	for beg := 0; beg < len(o); {
		end := beg + 1
		for end < len(o) && sameLayer(o[beg], o[end]) {
			end++
		}
		orderLayer(o[beg:end], charge)
		beg = end
	}
	return o
}

// sameLayer returns whether two hits sit on the same layer.
// Radii are compared up to rounding of the wire positions.
func sameLayer(a, b *track.Hit) bool {
	if a.Layer != b.Layer {
		return false
	}
	ra, rb := a.Radius(), b.Radius()
	return math.Abs(ra-rb) <= 1e-9*math.Max(1, math.Max(ra, rb))
}

func orderLayer(hits []*track.Hit, charge track.Charge) {
	if len(hits) < 2 {
		return
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Wire < hits[j].Wire
	})

	if nwires := hits[0].NWires; nwires > 0 {
		// start right after the largest gap between consecutive wires.
		var (
			n    = len(hits)
			gap  = hits[0].Wire + nwires - hits[n-1].Wire
			head = 0
		)
		for i := 1; i < n; i++ {
			if v := hits[i].Wire - hits[i-1].Wire; v > gap {
				gap = v
				head = i
			}
		}
		if head > 0 {
			rotated := append(append([]*track.Hit{}, hits[head:]...), hits[:head]...)
			copy(hits, rotated)
		}
	}

	if charge == track.Negative {
		for i, j := 0, len(hits)-1; i < j; i, j = i+1, j-1 {
			hits[i], hits[j] = hits[j], hits[i]
		}
	}
}
