package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Store persists the settings blob. The decorator treats it as opaque bytes.
type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// FileStore keeps the blob in a single file. A missing file reads as empty.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (f *FileStore) Load() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", f.Path, err)
	}
	return data, nil
}

// Save writes through a temporary file so a watcher never sees half a blob.
func (f *FileStore) Save(data []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("writing settings file %s: %w", f.Path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing settings file %s: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing settings file %s: %w", f.Path, err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("writing settings file %s: %w", f.Path, err)
	}
	return nil
}

// MemoryStore keeps the blob in memory.
type MemoryStore struct {
	Data []byte
}

func (m *MemoryStore) Load() ([]byte, error) {
	return m.Data, nil
}

func (m *MemoryStore) Save(data []byte) error {
	m.Data = append(m.Data[:0], data...)
	return nil
}

// Decode parses a blob. An empty blob yields the defaults.
func Decode(source string, data []byte) (Settings, error) {
	if len(data) == 0 {
		return Defaults(), nil
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Defaults(), &ParseError{Source: source, Message: err.Error(), Err: err}
	}
	return FromMap(raw), nil
}

func Encode(s Settings) ([]byte, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	return data, nil
}

// Load reads and decodes the settings held by store. On error the defaults
// are returned together with the error so callers can carry on.
func Load(store Store) (Settings, error) {
	data, err := store.Load()
	if err != nil {
		return Defaults(), fmt.Errorf("loading settings: %w", err)
	}
	return Decode(fmt.Sprintf("%T", store), data)
}

func Save(store Store, s Settings) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := store.Save(data); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
