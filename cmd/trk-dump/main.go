// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// trk-dump displays the track candidates stored in LCIO files.
//
// Usage: trk-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> trk-dump ./reco/sim-001.slcio
//	=== run 1 event 0 ===
//	hits:  412
//	trk[000]: charge=positive theta=+1.7823 r=+0.00412 chi2/ndf=  35.4/38 hits=  55 (axial=40)
//	trk[001]: charge=negative theta=+0.3371 r=-0.00721 chi2/ndf=  41.2/42 hits=  61 (axial=44)
//	truth: 2/2 matched
//	[...]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/legendre/finder"
	"github.com/go-lpc/legendre/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

const usage = `trk-dump displays the track candidates stored in LCIO files.

Usage: trk-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> trk-dump ./reco/sim-001.slcio
 === run 1 event 0 ===
 hits:  412
 trk[000]: charge=positive theta=+1.7823 r=+0.00412 chi2/ndf=  35.4/38 hits=  55 (axial=40)
 trk[001]: charge=negative theta=+0.3371 r=-0.00721 chi2/ndf=  41.2/42 hits=  61 (axial=44)
 truth: 2/2 matched
 [...]

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("trk-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("trk-dump", flag.ExitOnError)

		hits   = fset.String("hits", xcnv.HitsName, "name of the hit collection")
		tracks = fset.String("tracks", xcnv.TracksName, "name of the track collection")
		truth  = fset.String("truth", xcnv.MCTracksName, "name of the truth track collection")
		nhits  = fset.Bool("v", false, "display the hits of each track")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input LCIO file")
	}

	opts := options{
		hits:   *hits,
		tracks: *tracks,
		truth:  *truth,
		ids:    *nhits,
	}
	for _, fname := range fset.Args() {
		err := process(w, fname, opts)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

type options struct {
	hits   string
	tracks string
	truth  string
	ids    bool // display hit indices
}

func process(w io.Writer, fname string, opts options) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	for r.Next() {
		evt := r.Event()
		err := dump(wbuf, &evt, opts)
		if err != nil {
			return fmt.Errorf("could not dump event %d: %w", evt.EventNumber, err)
		}
	}

	err = r.Err()
	if err != nil && err != io.EOF {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	return wbuf.Flush()
}

func dump(w io.Writer, evt *lcio.Event, opts options) error {
	fmt.Fprintf(w, "=== run %d event %d ===\n", evt.RunNumber, evt.EventNumber)

	hits, err := xcnv.Hits(evt, opts.hits)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "hits: % 4d\n", len(hits))

	trks, err := xcnv.Tracks(evt, opts.tracks, opts.hits)
	if err != nil {
		return err
	}
	for i, trk := range trks {
		fmt.Fprintf(w,
			"trk[%03d]: charge=%v theta=%+.4f r=%+.5f chi2/ndf=% 6.1f/%d hits=% 4d (axial=%d)\n",
			i, trk.Charge, trk.Theta, trk.R, trk.Chi2, trk.NDF, len(trk.Hits), trk.Axial,
		)
		if opts.ids {
			fmt.Fprintf(w, "  %v\n", trk.Hits)
		}
	}

	if opts.truth == "" || !evt.Has(opts.truth) {
		return nil
	}
	mcs, err := xcnv.Tracks(evt, opts.truth, opts.hits)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "truth: %d/%d matched\n", matched(mcs, trks), len(mcs))
	return nil
}

// matched returns the number of truth tracks with more than half of their
// hits in a single track candidate.
func matched(mcs, trks []finder.Track) int {
	owner := make(map[int]int)
	for i, trk := range trks {
		for _, idx := range trk.Hits {
			owner[idx] = i
		}
	}

	n := 0
	for _, mc := range mcs {
		votes := make(map[int]int)
		for _, idx := range mc.Hits {
			if i, ok := owner[idx]; ok {
				votes[i]++
			}
		}
		for _, v := range votes {
			if 2*v > len(mc.Hits) {
				n++
				break
			}
		}
	}
	return n
}
