// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package legendre

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	const root = "github.com/go-lpc/legendre"
	for _, tc := range []struct {
		name string
		info *debug.BuildInfo
		vers string
		sum  string
	}{
		{name: "nil"},
		{
			name: "no-dep",
			info: &debug.BuildInfo{Path: "example.com/app"},
		},
		{
			name: "dep",
			info: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: "gonum.org/v1/gonum", Version: "v0.12.0"},
				{Path: root, Version: "v0.3.0", Sum: "h1:xyz"},
			}},
			vers: "v0.3.0",
			sum:  "h1:xyz",
		},
		{
			name: "replace-path-version",
			info: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: root, Version: "v0.3.0",
				Replace: &debug.Module{Path: "example.com/fork", Version: "v0.3.1", Sum: "h1:abc"},
			}}},
			vers: "example.com/fork v0.3.1",
			sum:  "h1:abc",
		},
		{
			name: "replace-version",
			info: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: root, Version: "v0.3.0",
				Replace: &debug.Module{Version: "v0.3.1", Sum: "h1:abc"},
			}}},
			vers: "v0.3.1",
			sum:  "h1:abc",
		},
		{
			name: "replace-path",
			info: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: root, Version: "v0.3.0",
				Replace: &debug.Module{Path: "../legendre"},
			}}},
			vers: "../legendre",
		},
		{
			name: "replace-empty",
			info: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: root, Version: "v0.3.0",
				Replace: &debug.Module{},
			}}},
			vers: "v0.3.0*",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			vers, sum := versionOf(tc.info)
			if vers != tc.vers {
				t.Fatalf("invalid version: got=%q, want=%q", vers, tc.vers)
			}
			if sum != tc.sum {
				t.Fatalf("invalid sum: got=%q, want=%q", sum, tc.sum)
			}
		})
	}
}
