// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command trk-ctl controls a cdc-trkfnd process.
//
// trk-ctl listens for JSON requests:
//
//	{"cmd": "start", "args": ["-o", "out.lcio", "in.lcio"], "watch": "out*.lcio"}
//	{"cmd": "stop"}
//
// Files matching the optional watch pattern are monitored: a mail alert
// is sent when one of them did not grow during the last probing interval.
package main // import "github.com/go-lpc/legendre/cmd/trk-ctl"

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	mail "gopkg.in/gomail.v2"
)

func main() {
	var (
		name  = flag.String("cmd", "cdc-trkfnd", "command to run")
		addr  = flag.String("addr", ":8866", "[ip]:port to listen on")
		freq  = flag.Duration("freq", 30*time.Second, "probing interval")
		ready = flag.String("ready", "processing ", "message signaling the command is running")
	)

	flag.Parse()

	log.SetPrefix("trk-ctl: ")
	log.SetFlags(0)

	run(*name, *addr, *ready, *freq)
}

func run(name, addr, ready string, freq time.Duration) {
	srv, err := newServer(addr, ready, freq)
	if err != nil {
		log.Fatalf("could not create server: %+v", err)
	}
	log.Printf("running trk-ctl server on %q...", addr)
	srv.run(name)
}

type server struct {
	conn net.Listener

	mu  sync.Mutex
	cmd *exec.Cmd
	buf syncBuffer

	ready  string
	freq   time.Duration
	poll   time.Duration
	alerts map[string]int // number of alerts per file
	notify func(fname string, size int64)
}

func newServer(addr, ready string, freq time.Duration) (*server, error) {
	srv, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not listen on %q: %w", addr, err)
	}
	return newServerFrom(srv, ready, freq), nil
}

func newServerFrom(conn net.Listener, ready string, freq time.Duration) *server {
	srv := &server{
		conn:   conn,
		ready:  ready,
		freq:   freq,
		poll:   1 * time.Second,
		alerts: make(map[string]int),
	}
	srv.notify = srv.alertMail
	return srv
}

func (srv *server) run(name string) {
	defer srv.conn.Close()

	for {
		conn, err := srv.conn.Accept()
		if err != nil {
			log.Printf("could not accept connection: %+v", err)
			return
		}
		go srv.handle(conn, name)
	}
}

// Request is a command sent to trk-ctl.
type Request struct {
	Name  string   `json:"cmd"`
	Args  []string `json:"args"`
	Watch string   `json:"watch,omitempty"`
}

// Reply is the answer to a request.
type Reply struct {
	Msg string `json:"msg"`
	Err string `json:"err,omitempty"`
}

func (srv *server) handle(conn net.Conn, name string) {
	defer conn.Close()
	done := make(chan int)
	defer close(done)

	var (
		dec = json.NewDecoder(conn)
		enc = json.NewEncoder(conn)
	)

	for {
		var req Request
		err := dec.Decode(&req)
		if err != nil {
			if err != io.EOF {
				log.Printf("could not decode command: %+v", err)
			}
			return
		}
		switch req.Name {
		case "start":
			log.Printf("starting command... %s %v", name, req.Args)
			err = srv.start(name, req.Args)
			if err != nil {
				log.Printf("could not start command: %+v", err)
				_ = enc.Encode(Reply{Err: err.Error()})
				return
			}
			_ = enc.Encode(Reply{Msg: "ok"})
			log.Printf("starting command... [done]")

			if req.Watch != "" {
				go srv.monitor(req.Watch, done)
			}

		case "stop":
			log.Printf("stopping command...")
			err = srv.stop()
			if err != nil {
				log.Printf("could not stop command: %+v", err)
				_ = enc.Encode(Reply{Err: err.Error()})
				return
			}
			_ = enc.Encode(Reply{Msg: "ok"})
			log.Printf("stopping command... [done]")
			return

		default:
			log.Printf("unknown command %q", req.Name)
			_ = enc.Encode(Reply{Err: "unknown command"})
		}
	}
}

func (srv *server) start(name string, args []string) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.cmd != nil {
		return fmt.Errorf("command %q already running", srv.cmd.Path)
	}

	srv.buf.Reset()
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = io.MultiWriter(os.Stderr, &srv.buf)
	err := cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %s %s: %w",
			cmd.Path, strings.Join(cmd.Args, " "), err,
		)
	}

	err = srv.checkCmdStatus()
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("command not in proper state: %w", err)
	}
	srv.cmd = cmd
	return nil
}

func (srv *server) stop() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.cmd == nil {
		return fmt.Errorf("no command running")
	}
	cmd := srv.cmd
	srv.cmd = nil

	// make sure the process is eventually reaped.
	go func() { _ = cmd.Wait() }()
	err := cmd.Process.Signal(os.Interrupt)
	if err != nil {
		return fmt.Errorf("could not stop %s %s: %w",
			cmd.Path, strings.Join(cmd.Args, " "), err,
		)
	}
	return nil
}

func (srv *server) checkCmdStatus() error {
	var (
		timeout = 10 * time.Second
		timer   = time.NewTimer(timeout)
	)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return fmt.Errorf(
				"could not assess command status before timeout (%v)",
				timeout,
			)
		default:
			if bytes.Contains(srv.buf.Bytes(), []byte(srv.ready)) {
				return nil
			}
			time.Sleep(srv.poll)
		}
	}
}

func (srv *server) monitor(glob string, quit chan int) {
	var (
		tick  = time.NewTicker(srv.freq)
		table = make(map[string]int64)
	)

	defer tick.Stop()

	for {
		select {
		case <-quit:
			return
		case <-tick.C:
			cur, err := srv.list(glob)
			if err != nil {
				log.Printf("could not list files: %+v", err)
				continue
			}
			srv.compare(table, cur)
			table = cur
		}
	}
}

func (srv *server) list(glob string) (map[string]int64, error) {
	table := make(map[string]int64)
	files, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("could not glob %q: %w", glob, err)
	}
	for _, fname := range files {
		fi, err := os.Stat(fname)
		if err != nil {
			return nil, fmt.Errorf("could not stat %q: %w", fname, err)
		}
		table[fname] = fi.Size()
	}
	return table, nil
}

func (srv *server) compare(ref, chk map[string]int64) {
	for fname, chksz := range chk {
		refsz, ok := ref[fname]
		if !ok {
			// file just appeared.
			continue
		}
		if refsz == chksz {
			srv.alert(fname, refsz)
		}
	}
}

func (srv *server) alert(fname string, size int64) {
	log.Printf("file %q didn't change in the last %v (size=%d bytes)",
		fname, srv.freq, size,
	)
	srv.alerts[fname]++

	const maxAlerts = 5
	if srv.alerts[fname] < maxAlerts {
		srv.notify(fname, size)
	}
}

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = split(os.Getenv("MAIL_TGTS"))
)

func (srv *server) alertMail(fname string, size int64) {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		len(alertMailTgts) == 0 {
		log.Printf("could not send mail alert: missing credentials")
		return
	}

	msg := newAlert(alertMailUsr, alertMailTgts, fname, size, srv.freq)

	dial := mail.NewDialer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	err := dial.DialAndSend(msg)
	if err != nil {
		log.Printf("could not send mail alert: %+v", err)
	}
}

func newAlert(from string, tgts []string, fname string, size int64, freq time.Duration) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("Bcc", tgts...)
	msg.SetHeader("Subject", fmt.Sprintf("[trk-ctl] file alert: %q", fname))
	msg.SetBody("text/plain", fmt.Sprintf("file: %q\nsize: %d bytes\nfreq: %v",
		fname, size, freq,
	))
	return msg
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func split(s string) []string {
	var o []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		o = append(o, v)
	}
	return o
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
