// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/internal/logging"
	"github.com/katalvlaran/lnpi/internal/telemetry"
	"github.com/katalvlaran/lnpi/phase"
	"github.com/katalvlaran/lnpi/region"
)

// Store is a run database. Safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Info(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

// Open opens (creating if needed) the database described by cfg. The
// caller must Close it.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, ErrNoPath
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{l: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	return &Store{db: db, logger: logging.OrDiscard(cfg.Logger)}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(id uuid.UUID) []byte { return []byte("run/" + id.String()) }

func pointPrefix(id uuid.UUID) []byte { return []byte("pt/" + id.String() + "/") }

func pointKey(id uuid.UUID, pos int) []byte {
	return append(pointPrefix(id), fmt.Sprintf("%08d", pos)...)
}

// Save writes every point of ser under a new run id. conn is the
// connectivity the collections were built with; Load uses it to rebuild
// barriers.
func (s *Store) Save(ctx context.Context, name string, ser *phase.Series, conn grid.Connectivity) (run Run, err error) {
	defer func() { telemetry.StoreOps.WithLabelValues("save", telemetry.Result(err)).Inc() }()

	// 1) Snapshot and check the series
	cols := ser.Collections()
	if len(cols) == 0 {
		return Run{}, ErrEmptySeries
	}
	origin := cols[0].Grid().Origin()
	for i, c := range cols {
		if c.Grid().Origin() != origin {
			return Run{}, fmt.Errorf("%w: point %d", ErrMixedOrigins, i)
		}
	}
	marks := make(map[int]phase.Stability)
	for _, i := range ser.StabilityIndex() {
		if st, ok := ser.Stability(i); ok {
			marks[i] = st
		}
	}

	run = Run{
		ID:      uuid.New(),
		Name:    name,
		Created: time.Now().UTC(),
		Points:  len(cols),
		Shape:   origin.Shape().Dims(),
		Conn:    conn,
		Tol:     ser.Tolerance(),
	}
	head, err := json.Marshal(runRecord{
		Run: run,
		Grid: gridRecord{
			Values:   origin.Values(),
			Excluded: origin.Excluded(),
			Mu:       origin.Mu(),
			State:    origin.State(),
		},
	})
	if err != nil {
		return Run{}, fmt.Errorf("store: encode run: %w", err)
	}

	// 2) One transaction for the header and every point
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(run.ID), head); err != nil {
			return err
		}
		for i, c := range cols {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := pointRecord{Mu: c.Mu(), Labels: c.Labels().IDs(), IDs: c.IDs(), Peaks: c.Peaks()}
			if st, ok := marks[i]; ok {
				rec.Stability = &st
			}
			val, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("store: encode point %d: %w", i, err)
			}
			if err := txn.Set(pointKey(run.ID, i), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Run{}, fmt.Errorf("store: save run %s: %w", run.ID, err)
	}
	s.logger.Debug("store: saved run",
		slog.String("id", run.ID.String()),
		slog.String("name", name),
		slog.Int("points", run.Points))

	return run, nil
}

// Load restores the run id as a series, stability marks included.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (run Run, ser *phase.Series, err error) {
	defer func() { telemetry.StoreOps.WithLabelValues("load", telemetry.Result(err)).Inc() }()

	// 1) Read header and points
	var (
		head   runRecord
		points []pointRecord
	)
	err = s.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, runKey(id), &head); err != nil {
			return err
		}
		prefix := pointPrefix(id)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var p pointRecord
			if err := it.Item().Value(func(val []byte) error { return decode(val, &p) }); err != nil {
				return err
			}
			points = append(points, p)
		}
		return nil
	})
	if err != nil {
		return Run{}, nil, fmt.Errorf("store: load run %s: %w", id, err)
	}

	// 2) Rebuild the reference grid, then every collection from it
	shape, err := grid.NewShape(head.Shape...)
	if err != nil {
		return Run{}, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	origin, err := grid.New(shape, head.Grid.Values, head.Grid.Excluded, head.Grid.Mu, head.Grid.State)
	if err != nil {
		return Run{}, nil, fmt.Errorf("%w: reference grid: %v", ErrCorrupt, err)
	}
	ser, err = phase.NewSeries(head.Tol)
	if err != nil {
		return Run{}, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for i, p := range points {
		c, err := restore(origin, shape, p, head.Conn)
		if err != nil {
			return Run{}, nil, fmt.Errorf("%w: point %d: %v", ErrCorrupt, i, err)
		}
		ser.Append(c)
		if p.Stability != nil {
			ser.MarkStability(c, *p.Stability)
		}
	}

	return head.Run, ser, nil
}

func restore(origin *grid.Grid, shape grid.Shape, p pointRecord, conn grid.Connectivity) (*phase.Collection, error) {
	g, err := origin.Reweight(p.Mu)
	if err != nil {
		return nil, err
	}
	labels, err := region.NewLabels(shape, p.Labels)
	if err != nil {
		return nil, err
	}

	return phase.FromLabels(g, labels, p.IDs, p.Peaks, conn)
}

// Runs lists every run, oldest first.
func (s *Store) Runs(ctx context.Context) (runs []Run, err error) {
	defer func() { telemetry.StoreOps.WithLabelValues("list", telemetry.Result(err)).Inc() }()

	prefix := []byte("run/")
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec runRecord
			if err := it.Item().Value(func(val []byte) error { return decode(val, &rec) }); err != nil {
				return err
			}
			runs = append(runs, rec.Run)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	sort.SliceStable(runs, func(a, b int) bool { return runs[a].Created.Before(runs[b].Created) })

	return runs, nil
}

// Delete removes run id and its points.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { telemetry.StoreOps.WithLabelValues("delete", telemetry.Result(err)).Inc() }()

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrRunNotFound, id)
			}
			return err
		}
		var keys [][]byte
		prefix := pointPrefix(id)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, k := range append(keys, runKey(id)) {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: delete run %s: %w", id, err)
	}

	return nil
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrRunNotFound
	}
	if err != nil {
		return err
	}

	return item.Value(func(val []byte) error { return decode(val, v) })
}

func decode(val []byte, v any) error {
	if err := json.Unmarshal(val, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
