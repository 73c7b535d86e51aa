// Package persist keeps the selected station across restarts.
package persist

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultPath = "/run/depmon/selection"

// File stores the selection as a single little-endian 64-bit word.
type File struct {
	Path string
}

func NewFile(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{Path: path}
}

func (f *File) Load() (int, bool) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warnf("Could not read selection from %s", f.Path)
		}
		return 0, false
	}
	if len(b) != 8 {
		log.Warnf("Ignoring selection file %s with unexpected size %d", f.Path, len(b))
		return 0, false
	}
	return int(int64(binary.LittleEndian.Uint64(b))), true
}

func (f *File) Store(index int) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return errors.Wrap(err, "creating selection directory")
	}

	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(int64(index)))

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".selection-*")
	if err != nil {
		return errors.Wrap(err, "creating selection file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing selection")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing selection")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.Path), "replacing selection file")
}

// Memory keeps the selection for the lifetime of the process only. The
// simulator uses it.
type Memory struct {
	mu     sync.Mutex
	index  int
	stored bool
}

func (m *Memory) Load() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index, m.stored
}

func (m *Memory) Store(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index, m.stored = index, true
	return nil
}
