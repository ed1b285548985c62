// SPDX-License-Identifier: MIT

// Package lnpi is a toolkit for phase analysis of lnΠ(N) surfaces from
// grand canonical simulations: the log probability of observing N particles
// (one axis per component) at a reference chemical potential.
//
// The work is split into small packages, each usable on its own:
//
//	grid/       N-d shape, connectivity, the reweightable lnΠ grid and table ingress
//	peaks/      adaptive local-maximum detection with a smoothing fallback
//	region/     label partitions and masks
//	watershed/  priority flood from markers
//	barrier/    free energy barriers between regions and greedy merging
//	phase/      phases, collections, the phase builder, taggers, series, sweeps, cache
//	stability/  Brent solver, spinodal, binodal and mole fraction locators
//	store/      badger-backed persistence of series
//	config/     yaml configuration mapped onto package options
//	cmd/lnpi/   cobra command line
//
// A typical pipeline:
//
//	g, _ := grid.ReadTable(f, 1, []float64{0}, grid.DefaultState())
//	b := phase.NewBuilder(g, phase.WithNMax(2))
//	s, _ := phase.NewSeries(0)
//	mus, _ := phase.Range(g.Mu(), 0, -1, 1, 11)
//	_ = phase.Sweep(ctx, b, s, mus, 4)
//	sp, _ := stability.NewSpinodalLocator(b).FindAll(ctx, s, []int{0, 1})
//
// Errors across packages wrap one of the errkind categories, so callers can
// tell bad input from an exhausted search or an absent result with
// errors.Is.
package lnpi
