package datasource

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"inspection-platform/internal/calls"
)

// FixtureFile is the on-disk layout of a fixture. Calls are listed flat and
// partitioned by status on load.
type FixtureFile struct {
	Offices []calls.RegionalOffice `yaml:"offices"`
	Calls   []calls.Call           `yaml:"calls"`
	History []calls.HistoryEntry   `yaml:"history,omitempty"`
}

// FixtureSource reads the working set from a YAML file on every fetch.
type FixtureSource struct {
	Path string
}

func NewFixtureSource(path string) *FixtureSource {
	return &FixtureSource{Path: path}
}

func (s *FixtureSource) FetchAll(ctx context.Context) (Snapshot, error) {
	if s.Path == "" {
		return Snapshot{}, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return DecodeFixture(f)
}

// DecodeFixture parses a fixture document and partitions its calls.
func DecodeFixture(r io.Reader) (Snapshot, error) {
	var ff FixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ff); err != nil {
		return Snapshot{}, fmt.Errorf("decode fixture: %w", err)
	}
	var snap Snapshot
	for _, c := range ff.Calls {
		if c.SubmissionCount == 0 {
			c.SubmissionCount = 1
		}
		if err := snap.Add(c); err != nil {
			return Snapshot{}, err
		}
	}
	snap.Offices = ff.Offices
	snap.History = ff.History
	return snap, nil
}

// EncodeFixture writes a snapshot in fixture layout; deskctl uses it to export state.
func EncodeFixture(w io.Writer, s Snapshot) error {
	ff := FixtureFile{Offices: s.Offices, History: s.History}
	ff.Calls = append(ff.Calls, s.Pending...)
	ff.Calls = append(ff.Calls, s.Verified...)
	ff.Calls = append(ff.Calls, s.Disposed...)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ff); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return enc.Close()
}
