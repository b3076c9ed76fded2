// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cdc-trkfnd finds tracks in drift chamber events stored in LCIO
// files.
//
// Each input file is rewritten into the output directory, with the found
// track candidates added to every event. Input files are processed
// concurrently.
//
// Usage: cdc-trkfnd [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> cdc-trkfnd -o ./reco -j 4 -dqm dqm.yoda ./sim-*.slcio
//	cdc-trkfnd: processing "./sim-001.slcio"...
//	cdc-trkfnd: processing "./sim-002.slcio"...
//	[...]
//	cdc-trkfnd: processed 4000 events (tracks=15893)
package main // import "github.com/go-lpc/legendre/cmd/cdc-trkfnd"

import (
	"compress/flate"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/go-lpc/legendre/conddb"
	"github.com/go-lpc/legendre/finder"
	"github.com/go-lpc/legendre/internal/dqm"
	"github.com/go-lpc/legendre/internal/xcnv"
	"go-hep.org/x/hep/lcio"
	"golang.org/x/sync/errgroup"
)

const usage = `cdc-trkfnd finds tracks in drift chamber events stored in LCIO files.

Usage: cdc-trkfnd [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> cdc-trkfnd -o ./reco -j 4 -dqm dqm.yoda ./sim-*.slcio

options:
`

func main() {
	log.SetPrefix("cdc-trkfnd: ")
	log.SetFlags(0)

	err := xmain(os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(args []string) error {
	var (
		fset = flag.NewFlagSet("cdc-trkfnd", flag.ExitOnError)

		odir   = fset.String("o", ".", "output directory")
		njobs  = fset.Int("j", runtime.NumCPU(), "number of files processed concurrently")
		hits   = fset.String("hits", xcnv.HitsName, "name of the input hit collection")
		tracks = fset.String("tracks", xcnv.TracksName, "name of the output track collection")
		oyoda  = fset.String("dqm", "", "path to output DQM YODA file")
		dbname = fset.String("db", "", "name of the condition database holding finder parameters")
		tag    = fset.String("tag", "", "tag of the finder parameters (default: most recent)")
		verb   = fset.Bool("v", false, "enable verbose mode")

		thr     = fset.Int("thr", 10, "minimal number of axial hits of a track")
		ninit   = fset.Int("init", 48, "number of axial hits requested by the first search")
		step    = fset.Float64("step", 0.75, "scale factor of the number of requested axial hits")
		lvl     = fset.Int("max-level", 12, "maximal depth of the Hough search")
		curlers = fset.Bool("curlers", false, "enable the reconstruction of curlers")
		stereo  = fset.Float64("res-stereo", 2, "maximal normalized residual of stereo hits")
		sigma   = fset.Float64("sigma", 0.015, "default drift length resolution (cm)")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return fmt.Errorf("could not parse input arguments: %w", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		return fmt.Errorf("missing path to input LCIO file")
	}

	var opts []finder.Option
	if *dbname != "" {
		ps, err := params(*dbname, *tag)
		if err != nil {
			return err
		}
		log.Printf("finder parameters: %q", ps.Tag)
		opts = append(opts, ps.Options()...)
	}

	// explicit flags override the condition database.
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "thr":
			opts = append(opts, finder.WithThreshold(*thr))
		case "init":
			opts = append(opts, finder.WithInitialAxialHits(*ninit))
		case "step":
			opts = append(opts, finder.WithStepScale(*step))
		case "max-level":
			opts = append(opts, finder.WithMaxLevel(*lvl))
		case "curlers":
			opts = append(opts, finder.WithCurlers(*curlers))
		case "res-stereo":
			opts = append(opts, finder.WithResolutionStereo(*stereo))
		case "sigma":
			opts = append(opts, finder.WithHitResolution(*sigma))
		}
	})
	opts = append(opts,
		finder.WithVerbose(*verb),
		finder.WithLogger(log.New(os.Stdout, "cdc-trkfnd: ", 0)),
	)

	f, err := finder.New(opts...)
	if err != nil {
		return fmt.Errorf("could not create track finder: %w", err)
	}

	err = os.MkdirAll(*odir, 0755)
	if err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	job := job{
		f:      f,
		dqm:    dqm.New(),
		hits:   *hits,
		tracks: *tracks,
	}
	err = job.run(context.Background(), *odir, fset.Args(), *njobs)
	if err != nil {
		return err
	}
	log.Printf("processed %d events (tracks=%d)", job.nevts, job.ntrks)

	if *oyoda != "" {
		err = job.writeDQM(*oyoda)
		if err != nil {
			return err
		}
	}

	return nil
}

func params(dbname, tag string) (conddb.Params, error) {
	db, err := conddb.Open(dbname)
	if err != nil {
		return conddb.Params{}, fmt.Errorf("could not open condition db: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if tag == "" {
		tag, err = db.LastTag(ctx)
		if err != nil {
			return conddb.Params{}, fmt.Errorf("could not retrieve last finder parameters tag: %w", err)
		}
	}

	ps, err := db.Params(ctx, tag)
	if err != nil {
		return ps, fmt.Errorf("could not retrieve finder parameters: %w", err)
	}
	return ps, nil
}

type job struct {
	f   *finder.Finder
	dqm *dqm.DQM

	hits   string // name of the hit collection
	tracks string // name of the track collection

	nevts int64
	ntrks int64
}

func (job *job) run(ctx context.Context, odir string, fnames []string, njobs int) error {
	grp, ctx := errgroup.WithContext(ctx)
	if njobs > 0 {
		grp.SetLimit(njobs)
	}

	for _, fname := range fnames {
		var (
			iname = fname
			oname = filepath.Join(odir, filepath.Base(fname))
		)
		if abs(iname) == abs(oname) {
			return fmt.Errorf("output file %q would overwrite its input", oname)
		}
		grp.Go(func() error {
			err := job.process(ctx, oname, iname)
			if err != nil {
				return fmt.Errorf("could not process %q: %w", iname, err)
			}
			return nil
		})
	}

	return grp.Wait()
}

func abs(fname string) string {
	v, err := filepath.Abs(fname)
	if err != nil {
		return fname
	}
	return v
}

func (job *job) process(ctx context.Context, oname, iname string) error {
	log.Printf("processing %q...", iname)

	r, err := lcio.Open(iname)
	if err != nil {
		return fmt.Errorf("could not open input LCIO file: %w", err)
	}
	defer r.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(flate.BestCompression)

	i := 0
	for r.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i == 0 {
			rhdr := r.RunHeader()
			err := w.WriteRunHeader(&rhdr)
			if err != nil {
				return fmt.Errorf("could not write run header: %w", err)
			}
		}

		evt := r.Event()
		hits, err := xcnv.Hits(&evt, job.hits)
		if err != nil {
			return fmt.Errorf("could not read hits of event %d: %w", evt.EventNumber, err)
		}

		res, err := job.f.Find(hits)
		if err != nil {
			return fmt.Errorf("could not find tracks of event %d: %w", evt.EventNumber, err)
		}
		job.dqm.Fill(res, len(hits))

		err = xcnv.AddTracks(&evt, job.tracks, job.hits, res.Tracks)
		if err != nil {
			return fmt.Errorf("could not store tracks of event %d: %w", evt.EventNumber, err)
		}

		err = w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write event %d: %w", evt.EventNumber, err)
		}
		atomic.AddInt64(&job.nevts, 1)
		atomic.AddInt64(&job.ntrks, int64(len(res.Tracks)))
		i++
	}

	err = r.Err()
	if err != nil && err != io.EOF {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}

func (job *job) writeDQM(fname string) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create DQM file: %w", err)
	}
	defer f.Close()

	err = job.dqm.WriteYODA(f)
	if err != nil {
		return fmt.Errorf("could not write DQM file: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close DQM file: %w", err)
	}
	return nil
}
