package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"tradrx/internal/domain"
)

// Compile-time interface check.
var _ SnapshotStore = (*JSONStore)(nil)

// JSONStore keeps the ledger snapshot in a single JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path. The file is not
// touched until Load or Save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file path.
func (s *JSONStore) Path() string {
	return s.path
}

// snapshotFile is the on-disk schema. NextID is a pointer so a missing
// next_id can be told apart from an explicit zero.
type snapshotFile struct {
	Positions map[string]float64 `json:"positions"`
	Trades    []domain.Trade     `json:"trades"`
	NextID    *int64             `json:"next_id,omitempty"`
}

// Load reads and validates the snapshot file. A missing file yields an empty
// state.
func (s *JSONStore) Load(_ context.Context) (*domain.State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return decodeSnapshot(data)
}

func decodeSnapshot(data []byte) (*domain.State, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: snapshot is not a JSON object", domain.ErrCorruptStorage)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var f snapshotFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptStorage, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after snapshot", domain.ErrCorruptStorage)
	}

	st := &domain.State{
		Positions: f.Positions,
		Trades:    f.Trades,
	}
	if st.Positions == nil {
		st.Positions = make(map[string]float64)
	}
	if st.Trades == nil {
		st.Trades = []domain.Trade{}
	}
	if f.NextID != nil {
		st.NextID = *f.NextID
	} else {
		st.NextID = domain.RecoverNextID(st.Trades)
	}

	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

// Save writes the snapshot to a temporary file in the same directory and
// renames it over the target.
func (s *JSONStore) Save(_ context.Context, st *domain.State) error {
	data, err := json.Marshal(snapshotFile{
		Positions: st.Positions,
		Trades:    st.Trades,
		NextID:    &st.NextID,
	})
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; the file is opened per operation.
func (s *JSONStore) Close() error {
	return nil
}
