// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lnpi/phase"
	"github.com/katalvlaran/lnpi/stability"
)

// rangeFlags select the points of the starting series.
type rangeFlags struct {
	index  int
	lo, hi float64
	n      int
}

func (r *rangeFlags) bind(cmd *cobra.Command, lo, hi float64, n int) {
	cmd.Flags().IntVar(&r.index, "index", 0, "mu component to vary")
	cmd.Flags().Float64Var(&r.lo, "lo", lo, "first value of the varying component")
	cmd.Flags().Float64Var(&r.hi, "hi", hi, "last value of the varying component")
	cmd.Flags().IntVar(&r.n, "n", n, "number of points")
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "lnpi",
		Short:        "Phase analysis of lnΠ(N) tables",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "yaml configuration file")
	pf.StringVar(&a.tablePath, "table", "", `lnΠ table ("-" reads stdin)`)
	pf.IntVar(&a.ndim, "ndim", 1, "number of components")
	pf.Float64SliceVar(&a.mu, "mu", nil, "chemical potential of the table (default zeros)")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&a.dbPath, "db", "", "run database directory (overrides store.path)")
	pf.BoolVar(&a.metrics, "metrics", false, "print metrics after the command")

	root.AddCommand(
		newPhasesCmd(a),
		newSweepCmd(a),
		newSpinodalCmd(a),
		newBinodalCmd(a),
		newMolfracCmd(a),
		newRunsCmd(a),
	)

	return root
}

func newPhasesCmd(a *app) *cobra.Command {
	var at []float64
	cmd := &cobra.Command{
		Use:   "phases",
		Short: "Build the phases at one chemical potential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.builder(cmd)
			if err != nil {
				return err
			}
			mu := at
			if len(mu) == 0 {
				mu = b.Ref().Mu()
			}
			c, err := b.Build(cmd.Context(), mu)
			if err != nil {
				return err
			}
			printCollection(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cmd.Flags().Float64SliceVar(&at, "at", nil, "chemical potential to build at (default --mu)")

	return cmd
}

func newSweepCmd(a *app) *cobra.Command {
	var (
		rf   rangeFlags
		save string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Build phases along one mu component in parallel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, s, err := a.series(cmd, rf)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range s.Collections() {
				fmt.Fprintf(out, "mu=%s phases=%s\n", fmtFloats(c.Mu()), fmtInts(c.IDs()))
			}
			if save == "" {
				return nil
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.Save(cmd.Context(), save, s, a.cfg.Connectivity())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "saved %s %s points=%d\n", run.ID, run.Name, run.Points)
			return nil
		},
	}
	rf.bind(cmd, -1, 1, 11)
	cmd.Flags().StringVar(&save, "save", "", "save the series under this run name")

	return cmd
}

func newSpinodalCmd(a *app) *cobra.Command {
	var (
		rf  rangeFlags
		ids []int
	)
	cmd := &cobra.Command{
		Use:   "spinodal",
		Short: "Locate the spinodal of every phase id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, s, err := a.series(cmd, rf)
			if err != nil {
				return err
			}
			l := stability.NewSpinodalLocator(b, a.cfg.SpinodalOptions(a.logger)...)
			res, err := l.FindAll(cmd.Context(), s, ids)
			if err != nil {
				return err
			}
			for k, r := range res {
				printResult(cmd.OutOrStdout(), fmt.Sprintf("spinodal id=%d", ids[k]), r)
			}
			return nil
		},
	}
	rf.bind(cmd, 0, 0.2, 3)
	cmd.Flags().IntSliceVar(&ids, "ids", []int{0, 1}, "phase ids")

	return cmd
}

func newBinodalCmd(a *app) *cobra.Command {
	var (
		rf  rangeFlags
		ids []int
	)
	cmd := &cobra.Command{
		Use:   "binodal",
		Short: "Locate spinodals, then the binodal of every pair of phase ids",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, s, err := a.series(cmd, rf)
			if err != nil {
				return err
			}
			sp, err := stability.NewSpinodalLocator(b, a.cfg.SpinodalOptions(a.logger)...).FindAll(cmd.Context(), s, ids)
			if err != nil {
				return err
			}
			ends := make(map[int]*phase.Collection, len(ids))
			for k, r := range sp {
				ends[ids[k]] = r.Collection
			}
			pairs, err := stability.NewBinodalLocator(b, a.cfg.BinodalOptions(a.logger)...).FindAll(cmd.Context(), s, ends, ids)
			if err != nil {
				return err
			}
			for _, p := range pairs {
				printResult(cmd.OutOrStdout(), fmt.Sprintf("binodal ids=%d,%d", p.IDs[0], p.IDs[1]), p.Result)
			}
			return nil
		},
	}
	rf.bind(cmd, 0, 0.2, 3)
	cmd.Flags().IntSliceVar(&ids, "ids", []int{0, 1}, "phase ids")

	return cmd
}

func newMolfracCmd(a *app) *cobra.Command {
	var (
		rf        rangeFlags
		target    float64
		phaseID   int
		component int
	)
	cmd := &cobra.Command{
		Use:   "molfrac",
		Short: "Locate the mu at which a phase reaches a target mole fraction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, s, err := a.series(cmd, rf)
			if err != nil {
				return err
			}
			l := stability.NewMolfracLocator(b, a.cfg.MolfracOptions(a.logger)...)
			res, err := l.Find(cmd.Context(), s, target, phaseID, component)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), fmt.Sprintf("molfrac phase=%d component=%d", phaseID, component), res)
			return nil
		},
	}
	rf.bind(cmd, -1, 0, 2)
	cmd.Flags().Float64Var(&target, "target", 0.5, "target mole fraction")
	cmd.Flags().IntVar(&phaseID, "phase", stability.StablePhase, "phase id (-1 follows the stable phase)")
	cmd.Flags().IntVar(&component, "component", 0, "component whose mole fraction is matched")

	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List saved runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			runs, err := st.Runs(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s points=%d shape=%s\n", r.ID, r.Name, r.Points, fmtInts(r.Shape))
			}
			return nil
		},
	}
}

// series builds the starting series described by rf.
func (a *app) series(cmd *cobra.Command, rf rangeFlags) (*phase.Builder, *phase.Series, error) {
	b, err := a.builder(cmd)
	if err != nil {
		return nil, nil, err
	}
	mus, err := phase.Range(b.Ref().Mu(), rf.index, rf.lo, rf.hi, rf.n)
	if err != nil {
		return nil, nil, err
	}
	s, err := phase.NewSeries(a.cfg.Sweep.Tol)
	if err != nil {
		return nil, nil, err
	}
	if err := phase.Sweep(cmd.Context(), b, s, mus, a.cfg.Sweep.Workers); err != nil {
		return nil, nil, err
	}

	return b, s, nil
}

func printCollection(w io.Writer, c *phase.Collection) {
	fmt.Fprintf(w, "mu=%s phases: %d\n", fmtFloats(c.Mu()), c.Len())
	for _, p := range c.Phases() {
		fmt.Fprintf(w, "id=%d peak=%d size=%d nave=%s omega=%.6g dw=%.6g edge=%d\n",
			p.ID(), p.Peak(), p.Size(), fmtFloats(p.Nave()), p.GrandPotential(), c.DeltaW(p.ID()), p.EdgeDistance())
	}
}

func printResult(w io.Writer, label string, r stability.Result) {
	if !r.Found() {
		fmt.Fprintf(w, "%s outcome=%s\n", label, r.Outcome)
		return
	}
	fmt.Fprintf(w, "%s outcome=%s mu=%s builds=%d iterations=%d\n",
		label, r.Outcome, fmtFloats(r.Collection.Mu()), r.Builds, r.Iterations)
}

func fmtFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%.6g", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func fmtInts(xs []int) string {
	return strings.Trim(strings.Join(strings.Fields(fmt.Sprint(xs)), ","), "[]")
}
