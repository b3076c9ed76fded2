// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package track

// Candidate is a group of hits consistent with a common trajectory.
// A candidate only records membership: hits are owned by a Pool.
type Candidate struct {
	Circle Circle
	Charge Charge
	Hits   []HitID
	Chi2   float64
	NDF    int
}

// Contains returns whether the hit id is part of the candidate.
func (c *Candidate) Contains(id HitID) bool {
	for _, v := range c.Hits {
		if v == id {
			return true
		}
	}
	return false
}

// ReducedChi2 returns χ²/NDF, or +Inf when NDF is not positive.
func (c *Candidate) ReducedChi2() float64 {
	if c.NDF <= 0 {
		return inf
	}
	return c.Chi2 / float64(c.NDF)
}

// Union returns the handles of the hits of a and b, without duplicates.
// The hits of a come first.
func Union(a, b []HitID) []HitID {
	o := make([]HitID, 0, len(a)+len(b))
	set := make(map[HitID]struct{}, len(a)+len(b))
	for _, ids := range [][]HitID{a, b} {
		for _, id := range ids {
			if _, dup := set[id]; dup {
				continue
			}
			set[id] = struct{}{}
			o = append(o, id)
		}
	}
	return o
}
