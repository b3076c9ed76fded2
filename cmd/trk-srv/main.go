// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command trk-srv starts a TDAQ process finding tracks in the hits of
// drift chamber events.
//
// Hits are received on the /hits input end-point, track candidates are
// sent on the /tracks output end-point.
// The /config command accepts a JSON document holding finder parameters.
package main // import "github.com/go-lpc/legendre/cmd/trk-srv"

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/legendre/conddb"
	"github.com/go-lpc/legendre/finder"
	"github.com/go-lpc/legendre/internal/xcnv"
)

func main() {
	cmd := flags.New()

	dev := newServer(cmd.Args[0])

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.InputHandle("/hits", dev.hits)
	srv.OutputHandle("/tracks", dev.tracks)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type server struct {
	name string

	mu   sync.Mutex
	opts []finder.Option
	f    *finder.Finder

	n    int // number of processed events
	ntrk int // number of found tracks

	ibuf chan []byte
	obuf chan []byte
}

func newServer(name string) *server {
	return &server{
		name: name,
		ibuf: make(chan []byte, 1024),
		obuf: make(chan []byte, 1024),
	}
}

// configure sets the finder parameters from a JSON document.
// An empty document selects the default parameters.
func (srv *server) configure(raw []byte) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.opts = nil
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var ps conddb.Params
	err := json.Unmarshal(raw, &ps)
	if err != nil {
		return fmt.Errorf("could not decode finder parameters: %w", err)
	}
	srv.opts = ps.Options()
	return nil
}

func (srv *server) init() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	opts := append([]finder.Option{}, srv.opts...)
	opts = append(opts, finder.WithLogger(log.New(os.Stdout, srv.name+": ", 0)))

	f, err := finder.New(opts...)
	if err != nil {
		return fmt.Errorf("could not create track finder: %w", err)
	}
	srv.f = f
	srv.n = 0
	srv.ntrk = 0
	return nil
}

// process finds the tracks of the event encoded in raw.
func (srv *server) process(raw []byte) ([]byte, error) {
	evt, hits, err := xcnv.DecodeHits(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	srv.mu.Lock()
	f := srv.f
	srv.mu.Unlock()
	if f == nil {
		return nil, fmt.Errorf("could not find tracks of event %d: track finder not initialized", evt)
	}

	res, err := f.Find(hits)
	if err != nil {
		return nil, fmt.Errorf("could not find tracks of event %d: %w", evt, err)
	}

	out := new(bytes.Buffer)
	err = xcnv.EncodeTracks(out, evt, res.Tracks)
	if err != nil {
		return nil, err
	}

	srv.mu.Lock()
	srv.n++
	srv.ntrk += len(res.Tracks)
	srv.mu.Unlock()

	return out.Bytes(), nil
}

func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	return srv.configure(req.Body)
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	return srv.init()
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	return srv.init()
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	srv.mu.Lock()
	n, ntrk := srv.n, srv.ntrk
	srv.mu.Unlock()
	ctx.Msg.Debugf("received /stop command... -> n=%d, tracks=%d", n, ntrk)
	return nil
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (srv *server) hits(ctx tdaq.Context, src tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		return nil
	case srv.ibuf <- src.Body:
	}
	return nil
}

func (srv *server) tracks(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.obuf:
		dst.Body = data
	}
	return nil
}

func (srv *server) run(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case raw := <-srv.ibuf:
			out, err := srv.process(raw)
			if err != nil {
				ctx.Msg.Errorf("could not process event: %+v", err)
				continue
			}
			select {
			case srv.obuf <- out:
			case <-ctx.Ctx.Done():
				return nil
			}
		}
	}
}
