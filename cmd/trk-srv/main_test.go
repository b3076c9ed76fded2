// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/legendre/internal/simu"
	"github.com/go-lpc/legendre/internal/xcnv"
)

func TestProcess(t *testing.T) {
	srv := newServer("trk-srv")
	err := srv.configure([]byte(`{"threshold": 12, "init_hits": 40, "step_scale": 0.5,
		"max_level": 12, "rmin": -0.15, "rmax": 0.15, "res_stereo": 2,
		"precut": 5, "sigma": 0.015, "early_merge": true, "free_fit": true,
		"outlier_cut": 20, "curler_merge": 2}`))
	if err != nil {
		t.Fatalf("could not configure server: %+v", err)
	}

	err = srv.init()
	if err != nil {
		t.Fatalf("could not initialize server: %+v", err)
	}
	if got, want := srv.f.Threshold(), 12; got != want {
		t.Fatalf("invalid threshold: got=%d, want=%d", got, want)
	}

	gen := simu.New(1234)
	evt := gen.Event([]simu.Particle{
		{Charge: +1, Pt: 1, Phi0: 1},
		{Charge: -1, Pt: 1, Phi0: 4},
	})

	buf := new(bytes.Buffer)
	err = xcnv.EncodeHits(buf, 7, evt.Hits)
	if err != nil {
		t.Fatalf("could not encode hits: %+v", err)
	}

	out, err := srv.process(buf.Bytes())
	if err != nil {
		t.Fatalf("could not process event: %+v", err)
	}

	id, trks, err := xcnv.DecodeTracks(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("could not decode tracks: %+v", err)
	}
	if got, want := id, int64(7); got != want {
		t.Fatalf("invalid event number: got=%d, want=%d", got, want)
	}
	if got, want := len(trks), 2; got != want {
		t.Fatalf("invalid number of tracks: got=%d, want=%d", got, want)
	}
	if got, want := srv.n, 1; got != want {
		t.Fatalf("invalid number of processed events: got=%d, want=%d", got, want)
	}

	_, err = srv.process(buf.Bytes()[:10])
	if err == nil {
		t.Fatalf("expected an error for a truncated frame")
	}
}

func TestConfigure(t *testing.T) {
	srv := newServer("trk-srv")
	for _, tc := range []struct {
		name string
		raw  string
		err  bool
	}{
		{"empty", "", false},
		{"blank", " \n", false},
		{"invalid-json", "{", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := srv.configure([]byte(tc.raw))
			switch {
			case err != nil && !tc.err:
				t.Fatalf("could not configure: %+v", err)
			case err == nil && tc.err:
				t.Fatalf("expected an error")
			}
		})
	}

	err := srv.configure([]byte(`{"threshold": 0}`))
	if err != nil {
		t.Fatalf("could not configure: %+v", err)
	}
	err = srv.init()
	if err == nil {
		t.Fatalf("expected an error for an invalid configuration")
	}
}

func TestRunLoop(t *testing.T) {
	gen := simu.New(42)
	evt := gen.Event([]simu.Particle{{Charge: +1, Pt: 1, Phi0: 2}})

	buf := new(bytes.Buffer)
	err := xcnv.EncodeHits(buf, 3, evt.Hits)
	if err != nil {
		t.Fatalf("could not encode hits: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tctx := tdaq.Context{Ctx: ctx}

	srv := newServer("trk-srv")

	// hits may arrive before the finder is initialized.
	err = srv.hits(tctx, tdaq.Frame{Body: buf.Bytes()})
	if err != nil {
		t.Fatalf("could not queue hits: %+v", err)
	}

	_, err = srv.process(buf.Bytes())
	if err == nil {
		t.Fatalf("expected an error before initialization")
	}

	err = srv.init()
	if err != nil {
		t.Fatalf("could not initialize server: %+v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = srv.run(tctx)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			if err := srv.init(); err != nil {
				t.Errorf("could not reset server: %+v", err)
				return
			}
		}
	}()

	var dst tdaq.Frame
	err = srv.tracks(tctx, &dst)
	if err != nil {
		t.Fatalf("could not retrieve tracks: %+v", err)
	}

	id, trks, err := xcnv.DecodeTracks(bytes.NewReader(dst.Body))
	if err != nil {
		t.Fatalf("could not decode tracks: %+v", err)
	}
	if got, want := id, int64(3); got != want {
		t.Fatalf("invalid event number: got=%d, want=%d", got, want)
	}
	if len(trks) == 0 {
		t.Fatalf("no track found")
	}

	cancel()
	wg.Wait()
}
