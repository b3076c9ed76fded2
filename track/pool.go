// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package track

import (
	"fmt"
)

// Pool owns all the hits of an event.
// Candidates refer to hits through HitID handles.
type Pool struct {
	hits []Hit
}

// NewPool creates a new pool from the provided hits.
// Hits are copied. Hits for which the conformal transform is undefined
// are marked as UsedBad.
func NewPool(hits []Hit) *Pool {
	p := &Pool{hits: make([]Hit, 0, len(hits))}
	for _, h := range hits {
		p.Add(h)
	}
	return p
}

// Add adds a copy of h to the pool and returns its handle.
func (p *Pool) Add(h Hit) HitID {
	h.usage = NotUsed
	if !h.init() {
		h.usage = UsedBad
	}
	id := HitID(len(p.hits))
	p.hits = append(p.hits, h)
	return id
}

// Len returns the number of hits in the pool.
func (p *Pool) Len() int { return len(p.hits) }

// Hit returns the hit associated with id.
func (p *Pool) Hit(id HitID) *Hit { return &p.hits[id] }

// Hits returns the hits associated with ids.
func (p *Pool) Hits(ids []HitID) []*Hit {
	o := make([]*Hit, len(ids))
	for i, id := range ids {
		o[i] = &p.hits[id]
	}
	return o
}

// Mark sets the usage of all the ids hits to u.
// Only NotUsed hits may change state. Marking a hit with its current
// state is a no-op.
// Mark checks all transitions before modifying any hit.
func (p *Pool) Mark(ids []HitID, u Usage) error {
	for _, id := range ids {
		cur := p.hits[id].usage
		if cur == u {
			continue
		}
		if cur != NotUsed || u == NotUsed {
			return fmt.Errorf(
				"%w: hit %d (index=%d) from %v to %v",
				ErrUsage, id, p.hits[id].Index, cur, u,
			)
		}
	}
	for _, id := range ids {
		p.hits[id].usage = u
	}
	return nil
}

// Unused returns the handles of all NotUsed hits of the requested kind.
func (p *Pool) Unused(axial bool) []HitID {
	var ids []HitID
	for i := range p.hits {
		h := &p.hits[i]
		if h.usage != NotUsed || h.Axial != axial {
			continue
		}
		ids = append(ids, HitID(i))
	}
	return ids
}

// Count returns the number of hits with usage u.
func (p *Pool) Count(u Usage) int {
	n := 0
	for i := range p.hits {
		if p.hits[i].usage == u {
			n++
		}
	}
	return n
}
