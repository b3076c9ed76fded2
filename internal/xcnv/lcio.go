// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"math"

	"github.com/go-lpc/legendre/finder"
	"github.com/go-lpc/legendre/internal/simu"
	"github.com/go-lpc/legendre/track"
	"go-hep.org/x/hep/lcio"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	typeAxial  = 0
	typeStereo = 1

	pionMass = 0.13957 // GeV
)

// HitContainer converts hits into a LCIO collection.
// The i-th element of the collection is the i-th hit.
//
// Layer and wire indices are packed into CellID0 (layer<<16 | wire), the
// drift length and its resolution into EDep and EDepErr, and the number
// of wires of each layer is stored in the NWires collection parameter.
func HitContainer(hits []track.Hit) *lcio.TrackerHitContainer {
	var (
		coll = &lcio.TrackerHitContainer{
			Hits: make([]lcio.TrackerHit, len(hits)),
		}
		nwires []int32
	)
	for i, h := range hits {
		typ := int32(typeAxial)
		if !h.Axial {
			typ = typeStereo
		}
		coll.Hits[i] = lcio.TrackerHit{
			CellID0: int32(h.Layer<<16 | h.Wire&0xffff),
			Type:    typ,
			Pos:     [3]float64{h.Pos.X, h.Pos.Y, 0},
			EDep:    float32(h.Drift),
			EDepErr: float32(h.Sigma),
		}
		if h.Layer >= len(nwires) {
			nwires = append(nwires, make([]int32, h.Layer+1-len(nwires))...)
		}
		nwires[h.Layer] = int32(h.NWires)
	}
	if len(nwires) > 0 {
		coll.Params.Ints = map[string][]int32{
			nwiresParName: nwires,
		}
	}
	return coll
}

func container(evt *lcio.Event, name string) (*lcio.TrackerHitContainer, error) {
	v := evt.Get(name)
	coll, ok := v.(*lcio.TrackerHitContainer)
	if !ok || coll == nil {
		return nil, fmt.Errorf("xcnv: no tracker hit collection %q (got=%T)", name, v)
	}
	return coll, nil
}

// Hits returns the hits stored in the named LCIO collection.
// The index of a hit is its position in the collection.
func Hits(evt *lcio.Event, name string) ([]track.Hit, error) {
	coll, err := container(evt, name)
	if err != nil {
		return nil, err
	}

	nwires := coll.Params.Ints[nwiresParName]
	hits := make([]track.Hit, len(coll.Hits))
	for i, h := range coll.Hits {
		var (
			layer = int(uint32(h.CellID0) >> 16)
			wire  = int(h.CellID0 & 0xffff)
		)
		hits[i] = track.Hit{
			Index: i,
			Pos:   r2.Vec{X: h.Pos[0], Y: h.Pos[1]},
			Drift: float64(h.EDep),
			Sigma: float64(h.EDepErr),
			Axial: h.Type == typeAxial,
			Layer: layer,
			Wire:  wire,
		}
		if layer < len(nwires) {
			hits[i].NWires = int(nwires[layer])
		}
	}
	return hits, nil
}

// AddTracks adds the track candidates to the event, under the provided
// name. Candidates refer to the hits of the named hit collection, which
// must already be part of the event.
func AddTracks(evt *lcio.Event, name, hits string, trks []finder.Track) error {
	coll, err := container(evt, hits)
	if err != nil {
		return err
	}

	bit := uint(lcio.BitsTrHits)
	out := &lcio.TrackContainer{
		Flags:  lcio.Flags(1) << bit,
		Tracks: make([]lcio.Track, len(trks)),
	}
	for i, trk := range trks {
		o := &out.Tracks[i]
		o.Type = int32(trk.Charge)
		o.Chi2 = float32(trk.Chi2)
		o.NdF = int32(trk.NDF)
		o.States = []lcio.TrackState{{
			Phi:   float32(trk.Theta),
			Omega: float32(trk.R),
			Ref:   [3]float32{float32(trk.Ref.X), float32(trk.Ref.Y), 0},
		}}
		o.Hits = make([]*lcio.TrackerHit, len(trk.Hits))
		for j, idx := range trk.Hits {
			if idx < 0 || idx >= len(coll.Hits) {
				return fmt.Errorf(
					"xcnv: track %d refers to an invalid hit (idx=%d, n=%d)",
					i, idx, len(coll.Hits),
				)
			}
			o.Hits[j] = &coll.Hits[idx]
		}
	}
	evt.Add(name, out)
	return nil
}

// Tracks returns the track candidates stored in the named LCIO collection,
// with hit indices referring to the named hit collection.
func Tracks(evt *lcio.Event, name, hits string) ([]finder.Track, error) {
	coll, err := container(evt, hits)
	if err != nil {
		return nil, err
	}

	v := evt.Get(name)
	tcoll, ok := v.(*lcio.TrackContainer)
	if !ok || tcoll == nil {
		return nil, fmt.Errorf("xcnv: no track collection %q (got=%T)", name, v)
	}

	index := make(map[*lcio.TrackerHit]int, len(coll.Hits))
	for i := range coll.Hits {
		index[&coll.Hits[i]] = i
	}

	trks := make([]finder.Track, len(tcoll.Tracks))
	for i, t := range tcoll.Tracks {
		if len(t.States) == 0 {
			return nil, fmt.Errorf("xcnv: track %d has no track state", i)
		}
		charge := track.Charge(t.Type)
		if !charge.Valid() {
			return nil, fmt.Errorf("xcnv: track %d has an invalid charge %d", i, t.Type)
		}
		st := t.States[0]
		trk := finder.Track{
			Hits:   make([]int, len(t.Hits)),
			Theta:  float64(st.Phi),
			R:      float64(st.Omega),
			Ref:    r2.Vec{X: float64(st.Ref[0]), Y: float64(st.Ref[1])},
			Charge: charge,
			Chi2:   float64(t.Chi2),
			NDF:    int(t.NdF),
		}
		for j, h := range t.Hits {
			idx, ok := index[h]
			if !ok {
				return nil, fmt.Errorf("xcnv: track %d refers to a hit outside of %q", i, hits)
			}
			trk.Hits[j] = idx
			if coll.Hits[idx].Type == typeAxial {
				trk.Axial++
			}
		}
		trks[i] = trk
	}
	return trks, nil
}

// AddParticles adds the generated particles to the event, under the
// provided name.
func AddParticles(evt *lcio.Event, name string, ps []simu.Particle) {
	coll := &lcio.McParticleContainer{
		Particles: make([]lcio.McParticle, len(ps)),
	}
	for i, p := range ps {
		sin, cos := math.Sincos(p.Phi0)
		coll.Particles[i] = lcio.McParticle{
			PDG:       int32(211 * p.Charge),
			GenStatus: 1,
			Charge:    float32(p.Charge),
			Mass:      pionMass,
			P:         [3]float64{p.Pt * cos, p.Pt * sin, 0},
		}
	}
	evt.Add(name, coll)
}

// Particles returns the generated particles stored in the named LCIO
// collection.
func Particles(evt *lcio.Event, name string) ([]simu.Particle, error) {
	v := evt.Get(name)
	coll, ok := v.(*lcio.McParticleContainer)
	if !ok || coll == nil {
		return nil, fmt.Errorf("xcnv: no MC particle collection %q (got=%T)", name, v)
	}
	ps := make([]simu.Particle, len(coll.Particles))
	for i, p := range coll.Particles {
		ps[i] = simu.Particle{
			Charge: int(p.Charge),
			Pt:     math.Hypot(p.P[0], p.P[1]),
			Phi0:   math.Atan2(p.P[1], p.P[0]),
		}
	}
	return ps, nil
}

// TruthTracks returns the ideal track candidates of a generated event,
// one per particle.
func TruthTracks(ps []simu.Particle, evt simu.Event) []finder.Track {
	trks := make([]finder.Track, len(ps))
	for i, p := range ps {
		c := p.Circle()
		trk := finder.Track{
			Hits:   append([]int(nil), evt.Truth[i]...),
			Theta:  c.Theta,
			R:      c.R,
			Ref:    c.Ref,
			Charge: track.Positive,
		}
		if p.Charge < 0 {
			trk.Charge = track.Negative
		}
		for _, idx := range trk.Hits {
			if evt.Hits[idx].Axial {
				trk.Axial++
			}
		}
		trks[i] = trk
	}
	return trks
}
