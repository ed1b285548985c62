// SPDX-License-Identifier: MIT

// Command lnpi segments lnΠ tables into phases and locates spinodals,
// binodals and constant-composition points.
//
// Usage:
//
//	lnpi phases   --table lnpi.dat --ndim 1 --mu 0.1
//	lnpi sweep    --table lnpi.dat --lo -1 --hi 1 --n 21 --save run1
//	lnpi spinodal --table lnpi.dat --lo 0 --hi 0.2 --n 3 --ids 0,1
//	lnpi binodal  --table lnpi.dat --lo 0 --hi 0.2 --n 3 --ids 0,1
//	lnpi molfrac  --table lnpi.dat --ndim 2 --target 0.5 --lo -2 --hi -1.5 --n 2
//	lnpi runs
//
// The table holds whitespace separated rows "n_0 ... n_{d-1} lnpi" at the
// chemical potential given by --mu. Settings come from --config (yaml);
// flags override the log level and the store path.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
