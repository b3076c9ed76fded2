// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hough

import "math"

// table holds sin/cos values for every theta bin boundary in [0, π].
type table struct {
	sin []float64
	cos []float64
}

func newTable(nbins int) *table {
	tbl := &table{
		sin: make([]float64, nbins+1),
		cos: make([]float64, nbins+1),
	}
	step := math.Pi / float64(nbins)
	for i := range tbl.sin {
		tbl.sin[i], tbl.cos[i] = math.Sincos(float64(i) * step)
	}
	return tbl
}
