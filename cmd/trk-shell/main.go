// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command trk-shell is an interactive browser of drift chamber events
// stored in LCIO files, running the track finder on demand.
//
// Example:
//
//	$> trk-shell ./sim.slcio
//	trk> next
//	event 0: hits=412
//	trk> find
//	trk[000]: charge=positive theta=+1.7823 r=+0.00412 chi2/ndf=  35.4/38 hits=  55 (axial=40)
//	[...]
//	trk> set thr 12
//	trk> quit
package main // import "github.com/go-lpc/legendre/cmd/trk-shell"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-lpc/legendre/finder"
	"github.com/go-lpc/legendre/internal/xcnv"
	"github.com/go-lpc/legendre/track"
	"github.com/peterh/liner"
	"go-hep.org/x/hep/lcio"
)

func main() {
	log.SetPrefix("trk-shell: ")
	log.SetFlags(0)

	var (
		hits = flag.String("hits", xcnv.HitsName, "name of the hit collection")
		hist = flag.String("history", filepath.Join(os.TempDir(), ".trk-shell.history"), "path to the history file")
	)
	flag.Parse()

	sh := newShell(os.Stdout, *hits)
	defer sh.Close()

	if flag.NArg() > 0 {
		err := sh.exec("open " + flag.Arg(0))
		if err != nil {
			log.Fatalf("%+v", err)
		}
	}

	err := loop(sh, *hist)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func loop(sh *shell, hist string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(func(line string) []string {
		var cmds []string
		for _, name := range sh.names() {
			if strings.HasPrefix(name, line) {
				cmds = append(cmds, name)
			}
		}
		return cmds
	})

	if f, err := os.Open(hist); err == nil {
		_, _ = term.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.Create(hist)
		if err != nil {
			log.Printf("could not save history: %+v", err)
			return
		}
		defer f.Close()
		_, _ = term.WriteHistory(f)
	}()

	for {
		line, err := term.Prompt("trk> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		err = sh.exec(line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintf(sh.w, "error: %+v\n", err)
		}
	}
}

var errQuit = errors.New("quit")

type shell struct {
	w     io.Writer
	coll  string // name of the hit collection
	fname string
	r     *lcio.Reader

	ievt int // index of the current event
	evt  *lcio.Event
	hits []track.Hit

	params map[string]string // finder parameters
	f      *finder.Finder

	cmds map[string]func(args []string) error
}

func newShell(w io.Writer, coll string) *shell {
	sh := &shell{
		w:      w,
		coll:   coll,
		ievt:   -1,
		params: make(map[string]string),
	}
	sh.cmds = map[string]func(args []string) error{
		"open":  sh.cmdOpen,
		"next":  sh.cmdNext,
		"goto":  sh.cmdGoto,
		"find":  sh.cmdFind,
		"set":   sh.cmdSet,
		"show":  sh.cmdShow,
		"help":  sh.cmdHelp,
		"quit":  func([]string) error { return errQuit },
		"close": func([]string) error { return sh.Close() },
	}
	return sh
}

func (sh *shell) names() []string {
	names := make([]string, 0, len(sh.cmds))
	for name := range sh.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (sh *shell) Close() error {
	if sh.r == nil {
		return nil
	}
	err := sh.r.Close()
	sh.r = nil
	sh.evt = nil
	sh.hits = nil
	sh.ievt = -1
	return err
}

func (sh *shell) exec(line string) error {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return nil
	}
	cmd, ok := sh.cmds[toks[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", toks[0])
	}
	return cmd(toks[1:])
}

func (sh *shell) cmdOpen(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open FILE")
	}
	_ = sh.Close()

	r, err := lcio.Open(args[0])
	if err != nil {
		return fmt.Errorf("could not open %q: %w", args[0], err)
	}
	sh.r = r
	sh.fname = args[0]
	return nil
}

func (sh *shell) read() error {
	if sh.r == nil {
		return fmt.Errorf("no opened file")
	}
	if !sh.r.Next() {
		err := sh.r.Err()
		if err != nil && err != io.EOF {
			return fmt.Errorf("could not read event: %w", err)
		}
		return fmt.Errorf("no more events")
	}
	evt := sh.r.Event()
	hits, err := xcnv.Hits(&evt, sh.coll)
	if err != nil {
		return err
	}
	sh.ievt++
	sh.evt = &evt
	sh.hits = hits
	return nil
}

func (sh *shell) cmdNext(args []string) error {
	err := sh.read()
	if err != nil {
		return err
	}
	return sh.cmdShow(nil)
}

func (sh *shell) cmdGoto(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: goto EVENT-INDEX")
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 0 {
		return fmt.Errorf("invalid event index %q", args[0])
	}
	if sh.r == nil {
		return fmt.Errorf("no opened file")
	}

	if i <= sh.ievt {
		err = sh.cmdOpen([]string{sh.fname})
		if err != nil {
			return err
		}
	}
	for sh.ievt < i {
		err = sh.read()
		if err != nil {
			return err
		}
	}
	return sh.cmdShow(nil)
}

func (sh *shell) newFinder() (*finder.Finder, error) {
	if sh.f != nil {
		return sh.f, nil
	}

	opts := []finder.Option{finder.WithLogger(log.New(sh.w, "finder: ", 0))}
	for k, v := range sh.params {
		opt, err := option(k, v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	f, err := finder.New(opts...)
	if err != nil {
		return nil, err
	}
	sh.f = f
	return f, nil
}

func option(k, v string) (finder.Option, error) {
	switch k {
	case "thr", "init", "max-level":
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", k, err)
		}
		switch k {
		case "thr":
			return finder.WithThreshold(n), nil
		case "init":
			return finder.WithInitialAxialHits(n), nil
		default:
			return finder.WithMaxLevel(n), nil
		}
	case "step", "res-stereo", "sigma":
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", k, err)
		}
		switch k {
		case "step":
			return finder.WithStepScale(x), nil
		case "res-stereo":
			return finder.WithResolutionStereo(x), nil
		default:
			return finder.WithHitResolution(x), nil
		}
	case "curlers", "verbose":
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", k, err)
		}
		if k == "curlers" {
			return finder.WithCurlers(b), nil
		}
		return finder.WithVerbose(b), nil
	}
	return nil, fmt.Errorf("unknown parameter %q", k)
}

func (sh *shell) cmdSet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set PARAMETER VALUE")
	}
	_, err := option(args[0], args[1])
	if err != nil {
		return err
	}
	sh.params[args[0]] = args[1]
	sh.f = nil
	return nil
}

func (sh *shell) cmdFind(args []string) error {
	if sh.evt == nil {
		return fmt.Errorf("no current event")
	}
	f, err := sh.newFinder()
	if err != nil {
		return fmt.Errorf("could not create track finder: %w", err)
	}
	res, err := f.Find(sh.hits)
	if err != nil {
		return fmt.Errorf("could not find tracks: %w", err)
	}
	for i, trk := range res.Tracks {
		fmt.Fprintf(sh.w,
			"trk[%03d]: charge=%v theta=%+.4f r=%+.5f chi2/ndf=% 6.1f/%d hits=% 4d (axial=%d)\n",
			i, trk.Charge, trk.Theta, trk.R, trk.Chi2, trk.NDF, len(trk.Hits), trk.Axial,
		)
	}
	fmt.Fprintf(sh.w, "tracks=%d unused=%d bad=%d iterations=%d\n",
		len(res.Tracks), len(res.Unused), len(res.Bad), res.Stats.Iterations,
	)
	return nil
}

func (sh *shell) cmdShow(args []string) error {
	if len(args) == 1 && args[0] == "params" {
		keys := make([]string, 0, len(sh.params))
		for k := range sh.params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(sh.w, "%s=%s\n", k, sh.params[k])
		}
		return nil
	}

	if sh.evt == nil {
		return fmt.Errorf("no current event")
	}
	axial := 0
	for _, h := range sh.hits {
		if h.Axial {
			axial++
		}
	}
	fmt.Fprintf(sh.w, "event %d: hits=%d (axial=%d)\n", sh.ievt, len(sh.hits), axial)
	return nil
}

func (sh *shell) cmdHelp(args []string) error {
	fmt.Fprintf(sh.w, `commands:
  open FILE        open a LCIO file
  next             read the next event
  goto N           read the N-th event
  find             run the track finder on the current event
  set PARAM VALUE  set a finder parameter (thr, init, step, max-level, res-stereo, sigma, curlers, verbose)
  show [params]    display the current event or the finder parameters
  close            close the current file
  quit             quit the shell
`)
	return nil
}
