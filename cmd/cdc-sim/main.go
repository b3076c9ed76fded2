// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cdc-sim generates drift chamber events and stores them in a
// LCIO file.
//
// Usage: cdc-sim [OPTIONS]
//
// Example:
//
//	$> cdc-sim -o sim.slcio -n 1000 -p 4 -noise 50
//	cdc-sim: processing event 0...
//	cdc-sim: processing event 100...
//	[...]
//	cdc-sim: generated 1000 events
package main // import "github.com/go-lpc/legendre/cmd/cdc-sim"

import (
	"compress/flate"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-lpc/legendre/conddb"
	"github.com/go-lpc/legendre/internal/simu"
	"github.com/go-lpc/legendre/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func main() {
	log.SetPrefix("cdc-sim: ")
	log.SetFlags(0)

	err := xmain(os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type config struct {
	oname string
	run   int32
	nevts int
	nps   int
	ptMin float64
	ptMax float64
	noise int
	sigma float64
	seed  int64
	db    string
}

func xmain(args []string) error {
	var (
		fset = flag.NewFlagSet("cdc-sim", flag.ExitOnError)

		oname = fset.String("o", "out.slcio", "path to output LCIO file")
		run   = fset.Int("run", 1, "run number")
		nevts = fset.Int("n", 100, "number of events to generate")
		nps   = fset.Int("p", 4, "number of particles per event")
		ptMin = fset.Float64("pt-min", 0.3, "minimal transverse momentum (GeV)")
		ptMax = fset.Float64("pt-max", 3, "maximal transverse momentum (GeV)")
		noise = fset.Int("noise", 50, "number of noise hits per event")
		sigma = fset.Float64("sigma", 0.015, "drift length resolution (cm)")
		seed  = fset.Int64("seed", 1234, "seed of the random generator")
		db    = fset.String("db", "", "name of the condition database holding the chamber geometry")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: cdc-sim [OPTIONS]

ex:
 $> cdc-sim -o sim.slcio -n 1000 -p 4 -noise 50

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return fmt.Errorf("could not parse input arguments: %w", err)
	}

	return process(config{
		oname: *oname,
		run:   int32(*run),
		nevts: *nevts,
		nps:   *nps,
		ptMin: *ptMin,
		ptMax: *ptMax,
		noise: *noise,
		sigma: *sigma,
		seed:  *seed,
		db:    *db,
	})
}

func process(cfg config) error {
	gen := simu.New(cfg.seed)
	gen.Noise = cfg.noise
	gen.Sigma = cfg.sigma

	if cfg.db != "" {
		geo, err := geometry(cfg.db)
		if err != nil {
			return err
		}
		gen.Geom = geo
	}

	w, err := lcio.Create(cfg.oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(flate.BestCompression)

	err = generate(w, gen, cfg)
	if err != nil {
		return fmt.Errorf("could not generate events: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output file: %w", err)
	}
	return nil
}

func geometry(dbname string) (simu.Geometry, error) {
	db, err := conddb.Open(dbname)
	if err != nil {
		return simu.Geometry{}, fmt.Errorf("could not open condition db: %w", err)
	}
	defer db.Close()

	rows, err := db.Layers(context.Background())
	if err != nil {
		return simu.Geometry{}, fmt.Errorf("could not retrieve chamber geometry: %w", err)
	}

	layers := make([]simu.Layer, len(rows))
	for i, row := range rows {
		layers[i] = simu.Layer{
			ID:     row.ID,
			Radius: row.Radius,
			NWires: row.NWires,
			Stereo: row.Stereo,
			Phi0:   row.Phi0,
		}
	}
	return simu.FromLayers(layers)
}

func generate(w *lcio.Writer, gen *simu.Generator, cfg config) error {
	nwires := make([]int32, len(gen.Geom.Layers))
	for i, lay := range gen.Geom.Layers {
		nwires[i] = int32(lay.NWires)
	}
	err := w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: cfg.run,
		Detector:  xcnv.Detector,
		Descr:     "simulated drift chamber events",
		Params: lcio.Params{
			Ints: map[string][]int32{
				"NWires": nwires,
			},
			Floats: map[string][]float32{
				"Bz":    {simu.Bz},
				"Sigma": {float32(cfg.sigma)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("could not write run header: %w", err)
	}

	for i := 0; i < cfg.nevts; i++ {
		if i%100 == 0 {
			log.Printf("processing event %d...", i)
		}
		var (
			ps  = gen.Particles(cfg.nps, cfg.ptMin, cfg.ptMax)
			sim = gen.Event(ps)
			evt = lcio.Event{
				RunNumber:   cfg.run,
				EventNumber: int32(i),
				Detector:    xcnv.Detector,
			}
		)
		evt.Add(xcnv.HitsName, xcnv.HitContainer(sim.Hits))
		xcnv.AddParticles(&evt, xcnv.MCParticles, ps)
		err = xcnv.AddTracks(&evt, xcnv.MCTracksName, xcnv.HitsName, xcnv.TruthTracks(ps, sim))
		if err != nil {
			return fmt.Errorf("could not add truth tracks to event %d: %w", i, err)
		}

		err = w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write event %d: %w", i, err)
		}
	}
	log.Printf("generated %d events", cfg.nevts)

	return nil
}
