// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command trk-sql inspects the finder parameters and the chamber geometry
// stored in the condition database.
package main // import "github.com/go-lpc/legendre/cmd/trk-sql"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/legendre/conddb"
	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetPrefix("trk-sql: ")
	log.SetFlags(0)

	var (
		dbname = flag.String("db", "cdcsrv", "name of the condition database")
		tag    = flag.String("tag", "", "tag of the finder parameters to inspect")
		layers = flag.Bool("layers", false, "display all the layers")
	)

	flag.Parse()

	log.Printf("db:  %q", *dbname)
	log.Printf("tag: %q", *tag)

	db, err := conddb.Open(*dbname)
	if err != nil {
		log.Fatalf("could not open condition db: %+v", err)
	}
	defer db.Close()

	err = doQuery(os.Stdout, db, *tag, *layers)
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

type condDB interface {
	LastTag(ctx context.Context) (string, error)
	Params(ctx context.Context, tag string) (conddb.Params, error)
	Layers(ctx context.Context) ([]conddb.Layer, error)
}

func doQuery(w io.Writer, db condDB, tag string, all bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if tag == "" {
		v, err := db.LastTag(ctx)
		if err != nil {
			return fmt.Errorf("could not get last tag value: %w", err)
		}
		tag = v
	}
	fmt.Fprintf(w, "tag: %q\n", tag)

	ps, err := db.Params(ctx, tag)
	if err != nil {
		return fmt.Errorf("could not get finder params (tag=%q): %w", tag, err)
	}
	fmt.Fprintf(w, "threshold:    %d\n", ps.Threshold)
	fmt.Fprintf(w, "init-hits:    %d\n", ps.InitHits)
	fmt.Fprintf(w, "step-scale:   %g\n", ps.StepScale)
	fmt.Fprintf(w, "max-level:    %d\n", ps.MaxLevel)
	fmt.Fprintf(w, "curvature:    [%g, %g]\n", ps.RMin, ps.RMax)
	fmt.Fprintf(w, "curlers:      %v\n", ps.Curlers)
	fmt.Fprintf(w, "res-stereo:   %g\n", ps.ResStereo)
	fmt.Fprintf(w, "precut:       %g\n", ps.Precut)
	fmt.Fprintf(w, "sigma:        %g\n", ps.Sigma)
	fmt.Fprintf(w, "early-merge:  %v\n", ps.EarlyMerge)
	fmt.Fprintf(w, "free-fit:     %v\n", ps.FreeFit)
	fmt.Fprintf(w, "outlier-cut:  %g\n", ps.OutlierCut)
	fmt.Fprintf(w, "curler-merge: %g\n", ps.CurlerMerge)

	layers, err := db.Layers(ctx)
	if err != nil {
		return fmt.Errorf("could not retrieve layers: %w", err)
	}
	var nwires, stereo int
	for _, lay := range layers {
		nwires += lay.NWires
		if lay.Stereo {
			stereo++
		}
	}
	fmt.Fprintf(w, "layers: %d (stereo=%d, wires=%d)\n", len(layers), stereo, nwires)
	if !all {
		return nil
	}
	for i, lay := range layers {
		kind := "axial"
		if lay.Stereo {
			kind = "stereo"
		}
		fmt.Fprintf(w, "row[%02d]: id=%02d r=%6.2f wires=%3d phi0=%.4f %s\n",
			i, lay.ID, lay.Radius, lay.NWires, lay.Phi0, kind,
		)
	}

	return nil
}
