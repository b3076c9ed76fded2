// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package legendre holds code to find charged particle tracks in the
// hits of a cylindrical drift chamber.
//
// Hits are transformed into the conformal space where tracks coming
// out of the interaction point are straight lines.
// Track candidates are searched with a Legendre transform of the drift
// circles, explored by a recursive FastHough search of the (theta, r)
// plane, and refitted with a conformal circle fit.
//
// Sub-packages:
//   - track: hits, circles and track candidates,
//   - hough: the FastHough quad-tree searcher,
//   - fit: conformal and free circle fits,
//   - finder: the stepped track finder,
//   - conddb: finder parameters and chamber geometry from a condition database.
package legendre // import "github.com/go-lpc/legendre"

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of legendre and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/go-lpc/legendre"
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			case m.Replace.Path != "":
				return m.Replace.Path, m.Replace.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
