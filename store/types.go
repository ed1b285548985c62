// SPDX-License-Identifier: MIT

package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/phase"
)

// Sentinel errors.
var (
	// ErrRunNotFound indicates an unknown run id.
	ErrRunNotFound = fmt.Errorf("store: run not found: %w", errkind.ErrNullResult)
	// ErrNoPath indicates a persistent store without a directory.
	ErrNoPath = fmt.Errorf("store: path is required unless in memory: %w", errkind.ErrInvalidInput)
	// ErrEmptySeries indicates a save of a series without points.
	ErrEmptySeries = fmt.Errorf("store: series is empty: %w", errkind.ErrInvalidInput)
	// ErrMixedOrigins indicates collections reweighted from different grids.
	ErrMixedOrigins = fmt.Errorf("store: collections do not share a reference grid: %w", errkind.ErrInvalidInput)
	// ErrCorrupt indicates a stored record that cannot be decoded.
	ErrCorrupt = fmt.Errorf("store: corrupt record: %w", errkind.ErrInvalidInput)
)

// Config selects where and how the database is opened.
type Config struct {
	Path       string       `yaml:"path"`      // database directory
	InMemory   bool         `yaml:"in_memory"` // no disk persistence
	SyncWrites bool         `yaml:"sync_writes"`
	Logger     *slog.Logger `yaml:"-"` // nil silences badger
}

// DefaultConfig returns a durable on-disk configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Run describes a saved series.
type Run struct {
	ID      uuid.UUID         `json:"id"`
	Name    string            `json:"name"`
	Created time.Time         `json:"created"`
	Points  int               `json:"points"`
	Shape   []int             `json:"shape"`
	Conn    grid.Connectivity `json:"conn"`
	Tol     float64           `json:"tol"`
}

// runRecord is the value under run/<uuid>.
type runRecord struct {
	Run
	Grid gridRecord `json:"grid"`
}

// gridRecord is the reference grid of a run.
type gridRecord struct {
	Values   numbers    `json:"values"`
	Excluded []bool     `json:"excluded"`
	Mu       []float64  `json:"mu"`
	State    grid.State `json:"state"`
}

// pointRecord is the value under pt/<uuid>/<pos>.
type pointRecord struct {
	Mu        []float64        `json:"mu"`
	Labels    []int            `json:"labels"`
	IDs       []int            `json:"ids"`
	Peaks     []int            `json:"peaks"`
	Stability *phase.Stability `json:"stability,omitempty"`
}

// numbers encodes non-finite entries (excluded cells may hold them) as
// the strings "NaN", "+Inf" and "-Inf".
type numbers []float64

// MarshalJSON implements json.Marshaler.
func (n numbers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range n {
		if i > 0 {
			buf.WriteByte(',')
		}
		switch {
		case math.IsNaN(v):
			buf.WriteString(`"NaN"`)
		case math.IsInf(v, 1):
			buf.WriteString(`"+Inf"`)
		case math.IsInf(v, -1):
			buf.WriteString(`"-Inf"`)
		default:
			buf.Write(strconv.AppendFloat(nil, v, 'g', -1, 64))
		}
	}
	buf.WriteByte(']')

	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *numbers) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(numbers, len(raw))
	for i, r := range raw {
		s := string(r)
		if len(r) > 0 && r[0] == '"' {
			if err := json.Unmarshal(r, &s); err != nil {
				return err
			}
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: value %d: %v", ErrCorrupt, i, err)
		}
		out[i] = v
	}
	*n = out

	return nil
}
