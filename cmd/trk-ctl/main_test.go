// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"io/ioutil"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestListCompare(t *testing.T) {
	dir, err := ioutil.TempDir("", "trk-ctl-")
	if err != nil {
		t.Fatalf("could not create tmpdir: %+v", err)
	}
	defer os.RemoveAll(dir)

	for _, name := range []string{"trk_001.lcio", "trk_002.lcio", "other.txt"} {
		err := ioutil.WriteFile(filepath.Join(dir, name), []byte("data"), 0644)
		if err != nil {
			t.Fatalf("could not create file %q: %+v", name, err)
		}
	}

	srv := newServerFrom(nil, "", time.Second)
	var notified []string
	srv.notify = func(fname string, size int64) {
		notified = append(notified, filepath.Base(fname))
	}

	glob := filepath.Join(dir, "trk_*.lcio")
	ref, err := srv.list(glob)
	if err != nil {
		t.Fatalf("could not list files: %+v", err)
	}
	if got, want := len(ref), 2; got != want {
		t.Fatalf("invalid number of files: got=%d, want=%d", got, want)
	}

	f, err := os.OpenFile(filepath.Join(dir, "trk_001.lcio"), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("could not open file: %+v", err)
	}
	_, err = f.Write([]byte("more data"))
	if err != nil {
		t.Fatalf("could not write file: %+v", err)
	}
	err = f.Close()
	if err != nil {
		t.Fatalf("could not close file: %+v", err)
	}
	err = ioutil.WriteFile(filepath.Join(dir, "trk_003.lcio"), nil, 0644)
	if err != nil {
		t.Fatalf("could not create file: %+v", err)
	}

	chk, err := srv.list(glob)
	if err != nil {
		t.Fatalf("could not list files: %+v", err)
	}
	if got, want := chk[filepath.Join(dir, "trk_001.lcio")], int64(13); got != want {
		t.Fatalf("invalid file size: got=%d, want=%d", got, want)
	}

	srv.compare(ref, chk)
	if got, want := notified, []string{"trk_002.lcio"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid alerts: got=%q, want=%q", got, want)
	}

	for i := 0; i < 10; i++ {
		srv.compare(chk, chk)
	}
	if got, want := srv.alerts[filepath.Join(dir, "trk_002.lcio")], 11; got != want {
		t.Fatalf("invalid number of alerts: got=%d, want=%d", got, want)
	}
	if got, want := len(notified), 3*4; got != want {
		t.Fatalf("invalid number of notifications: got=%d, want=%d", got, want)
	}
}

func TestNewAlert(t *testing.T) {
	msg := newAlert("trk@example.com", []string{"a@example.com", "b@example.com"}, "out.lcio", 42, time.Minute)
	if got, want := msg.GetHeader("Subject"), []string{`[trk-ctl] file alert: "out.lcio"`}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid subject: got=%q, want=%q", got, want)
	}
	if got, want := msg.GetHeader("Bcc"), []string{"a@example.com", "b@example.com"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid targets: got=%q, want=%q", got, want)
	}
}

func TestSplit(t *testing.T) {
	for _, tc := range []struct {
		str  string
		want []string
	}{
		{"", nil},
		{"a@example.com", []string{"a@example.com"}},
		{"a@example.com, b@example.com,", []string{"a@example.com", "b@example.com"}},
	} {
		t.Run(tc.str, func(t *testing.T) {
			if got, want := split(tc.str), tc.want; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid split: got=%q, want=%q", got, want)
			}
		})
	}
}

func TestHandle(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("no shell: %+v", err)
	}

	srv := newServerFrom(nil, "processing ", time.Second)
	srv.poll = 10 * time.Millisecond

	cli, conn := net.Pipe()
	defer cli.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.handle(conn, "sh")
	}()

	var (
		enc = json.NewEncoder(cli)
		dec = json.NewDecoder(cli)
	)

	for _, tc := range []struct {
		req  Request
		want Reply
	}{
		{
			req:  Request{Name: "status"},
			want: Reply{Err: "unknown command"},
		},
		{
			req: Request{
				Name: "start",
				Args: []string{"-c", `echo "processing in.lcio..." >&2; exec sleep 30`},
			},
			want: Reply{Msg: "ok"},
		},
		{
			req:  Request{Name: "stop"},
			want: Reply{Msg: "ok"},
		},
	} {
		err := enc.Encode(tc.req)
		if err != nil {
			t.Fatalf("could not send request %q: %+v", tc.req.Name, err)
		}
		var rep Reply
		err = dec.Decode(&rep)
		if err != nil {
			t.Fatalf("could not decode reply to %q: %+v", tc.req.Name, err)
		}
		if rep != tc.want {
			t.Fatalf("invalid reply to %q: got=%+v, want=%+v", tc.req.Name, rep, tc.want)
		}
	}

	<-done
}
