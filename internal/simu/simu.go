// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package simu generates drift chamber events for charged particles
// coming out of the origin.
package simu // import "github.com/go-lpc/legendre/internal/simu"

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-lpc/legendre/track"
	"gonum.org/v1/gonum/spatial/r2"
)

// Bz is the magnetic field (in T) along the chamber axis.
const Bz = 1.5

// Layer describes a layer of sense wires.
type Layer struct {
	ID     int
	Radius float64 // cm
	NWires int
	Stereo bool
	Phi0   float64 // azimuth of the wire 0 (rad)
}

// Cell returns the azimuthal size of a cell (rad).
func (lay Layer) Cell() float64 {
	return 2 * math.Pi / float64(lay.NWires)
}

// Wire returns the position of the wire w.
func (lay Layer) Wire(w int) r2.Vec {
	sin, cos := math.Sincos(lay.Phi0 + float64(w)*lay.Cell())
	return r2.Vec{X: lay.Radius * cos, Y: lay.Radius * sin}
}

// Geometry describes a drift chamber.
type Geometry struct {
	Layers []Layer
}

// DefaultGeometry returns a chamber made of 9 superlayers and 56 layers,
// between 16.8 cm and 111.2 cm.
// Superlayers alternate between axial and stereo wires.
func DefaultGeometry() Geometry {
	var (
		geo   Geometry
		wires = []int{160, 160, 192, 224, 256, 288, 320, 352, 384}
	)
	for sl, nwires := range wires {
		var (
			nlayers = 6
			r0      = 25.0 + 11*float64(sl-1)
			dr      = 1.8
		)
		if sl == 0 {
			nlayers = 8
			r0 = 16.8
			dr = 1.0
		}
		if sl == len(wires)-1 {
			r0 = 111.2 - 5*dr
		}
		for i := 0; i < nlayers; i++ {
			lay := Layer{
				ID:     len(geo.Layers),
				Radius: r0 + float64(i)*dr,
				NWires: nwires,
				Stereo: sl%2 == 1,
			}
			if i%2 == 1 {
				lay.Phi0 = 0.5 * lay.Cell()
			}
			geo.Layers = append(geo.Layers, lay)
		}
	}
	return geo
}

// FromLayers returns the chamber made of the provided layers.
// Layer identifiers must match their position, radii must increase.
func FromLayers(layers []Layer) (Geometry, error) {
	for i, lay := range layers {
		switch {
		case lay.ID != i:
			return Geometry{}, fmt.Errorf("simu: invalid layer id %d at position %d", lay.ID, i)
		case lay.NWires <= 0:
			return Geometry{}, fmt.Errorf("simu: invalid number of wires for layer %d (n=%d)", i, lay.NWires)
		case !(lay.Radius > 0):
			return Geometry{}, fmt.Errorf("simu: invalid radius for layer %d (r=%v)", i, lay.Radius)
		case i > 0 && lay.Radius <= layers[i-1].Radius:
			return Geometry{}, fmt.Errorf("simu: layer %d not sorted by radius", i)
		}
	}
	return Geometry{Layers: append([]Layer(nil), layers...)}, nil
}

// Particle is a charged particle produced at the origin.
type Particle struct {
	Charge int     // +1 or -1
	Pt     float64 // transverse momentum (GeV)
	Phi0   float64 // initial azimuth of the momentum (rad)
}

// Radius returns the radius of curvature of the particle (cm).
func (p Particle) Radius() float64 {
	return 100 * p.Pt / (0.299792458 * Bz)
}

// Circle returns the trajectory of the particle.
func (p Particle) Circle() track.Circle {
	var (
		radius = p.Radius()
		phi    = p.Phi0 - float64(p.Charge)*0.5*math.Pi
		sin    = math.Sin(phi)
		cos    = math.Cos(phi)
	)
	return track.FromCenter(r2.Vec{X: radius * cos, Y: radius * sin}, radius, r2.Vec{})
}

// Event is a generated event.
type Event struct {
	Hits  []track.Hit
	Truth [][]int // indices of the hits of each particle
}

// Generator generates events.
type Generator struct {
	Geom  Geometry
	Sigma float64 // drift length resolution (cm)
	Noise int     // number of noise hits per event
	Rand  *rand.Rand
}

// New returns a generator with the default geometry.
func New(seed int64) *Generator {
	return &Generator{
		Geom: DefaultGeometry(),
		Rand: rand.New(rand.NewSource(seed)),
	}
}

// Particles generates n particles with random charges, transverse
// momenta in [ptMin, ptMax) and azimuths.
func (gen *Generator) Particles(n int, ptMin, ptMax float64) []Particle {
	ps := make([]Particle, n)
	for i := range ps {
		ps[i] = Particle{
			Charge: 2*gen.Rand.Intn(2) - 1,
			Pt:     ptMin + (ptMax-ptMin)*gen.Rand.Float64(),
			Phi0:   2 * math.Pi * gen.Rand.Float64(),
		}
	}
	return ps
}

// Event generates the hits of the provided particles, followed by noise
// hits. Particles are followed until they turn back towards the axis.
func (gen *Generator) Event(ps []Particle) Event {
	var evt Event
	evt.Truth = make([][]int, len(ps))
	for i, p := range ps {
		for _, lay := range gen.Geom.Layers {
			for _, h := range gen.cross(p, lay) {
				h.Index = len(evt.Hits)
				evt.Truth[i] = append(evt.Truth[i], h.Index)
				evt.Hits = append(evt.Hits, h)
			}
		}
	}

	for i := 0; i < gen.Noise && len(gen.Geom.Layers) > 0; i++ {
		var (
			lay = gen.Geom.Layers[gen.Rand.Intn(len(gen.Geom.Layers))]
			w   = gen.Rand.Intn(lay.NWires)
		)
		evt.Hits = append(evt.Hits, gen.hit(lay, w, 0.5*lay.Cell()*lay.Radius*gen.Rand.Float64()))
		evt.Hits[len(evt.Hits)-1].Index = len(evt.Hits) - 1
	}
	return evt
}

// cross returns the hits left by a particle crossing a layer.
func (gen *Generator) cross(p Particle, lay Layer) []track.Hit {
	radius := p.Radius()
	if lay.Radius >= 2*radius {
		return nil
	}

	var (
		circ  = p.Circle()
		c     = circ.Center()
		alpha = math.Acos(lay.Radius / (2 * radius))
		phi   = math.Atan2(c.Y, c.X) + float64(p.Charge)*alpha
		cell  = lay.Cell()
		half  = 0.5 * cell * lay.Radius
		w0    = int(math.Floor((phi-lay.Phi0)/cell + 0.5))
	)

	var hits []track.Hit
	for _, dw := range []int{-1, 0, +1} {
		w := mod(w0+dw, lay.NWires)
		d := math.Abs(circ.Distance(lay.Wire(w)))
		if d > half && dw != 0 {
			continue
		}
		hits = append(hits, gen.hit(lay, w, d))
	}
	return hits
}

func (gen *Generator) hit(lay Layer, w int, drift float64) track.Hit {
	if gen.Sigma > 0 {
		drift = math.Abs(drift + gen.Sigma*gen.Rand.NormFloat64())
	}
	return track.Hit{
		Pos:    lay.Wire(w),
		Drift:  drift,
		Sigma:  gen.Sigma,
		Axial:  !lay.Stereo,
		Layer:  lay.ID,
		Wire:   w,
		NWires: lay.NWires,
	}
}

func mod(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
