// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lnpi/config"
	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/internal/logging"
	"github.com/katalvlaran/lnpi/internal/telemetry"
	"github.com/katalvlaran/lnpi/phase"
	"github.com/katalvlaran/lnpi/store"
)

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	tablePath  string
	ndim       int
	mu         []float64
	logLevel   string
	dbPath     string
	metrics    bool

	cfg    config.Config
	logger *slog.Logger
}

// setup loads the configuration and the logger. It runs before every
// subcommand.
func (a *app) setup(cmd *cobra.Command) error {
	a.cfg = config.Default()
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.dbPath != "" {
		a.cfg.Store.Path = a.dbPath
		a.cfg.Store.InMemory = false
	}
	a.cfg.Log.Writer = cmd.ErrOrStderr()
	l, err := logging.New(a.cfg.Log)
	if err != nil {
		return err
	}
	a.logger = l

	return nil
}

// finish prints the metrics when asked to.
func (a *app) finish(cmd *cobra.Command) error {
	if !a.metrics {
		return nil
	}
	return telemetry.WriteText(cmd.OutOrStdout())
}

// reference reads the lnΠ table.
func (a *app) reference(cmd *cobra.Command) (*grid.Grid, error) {
	if a.tablePath == "" {
		return nil, fmt.Errorf("lnpi: --table is required")
	}
	var r io.Reader = cmd.InOrStdin()
	if a.tablePath != "-" {
		f, err := os.Open(a.tablePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	mu := a.mu
	if len(mu) == 0 {
		mu = make([]float64, a.ndim)
	}
	g, err := grid.ReadTable(r, a.ndim, mu, a.cfg.Builder.State)
	if err != nil {
		return nil, fmt.Errorf("lnpi: read %s: %w", a.tablePath, err)
	}
	a.logger.Debug("lnpi: table loaded",
		slog.String("path", a.tablePath),
		slog.String("shape", g.Shape().String()),
		slog.Int("included", g.NumIncluded()))

	return g, nil
}

// builder reads the table and wraps it in a configured phase builder.
func (a *app) builder(cmd *cobra.Command) (*phase.Builder, error) {
	g, err := a.reference(cmd)
	if err != nil {
		return nil, err
	}
	return phase.NewBuilder(g, a.cfg.BuilderOptions(a.logger)...), nil
}

// openStore opens the configured run database.
func (a *app) openStore() (*store.Store, error) {
	sc := a.cfg.Store
	sc.Logger = a.logger
	return store.Open(sc)
}
