// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package finder

import "github.com/go-lpc/legendre/fit"

func fitResult(chi2 float64, ndf int) fit.Result {
	return fit.Result{Chi2: chi2, NDF: ndf}
}
