package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

type document struct {
	Record map[string]string `toml:"record"`
}

// File is a [Store] backed by a TOML document with a single [record] table.
//
// Every write replaces the file through a temp file and rename, so a concurrent
// reader sees either the old or the new document.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a [File] store at path. The file is created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Load(_ context.Context, keys ...string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, err := f.read()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := record[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *File) Set(ctx context.Context, entries map[string]string) error {
	return f.update(ctx, func(record map[string]string) bool {
		if len(entries) == 0 {
			return false
		}
		maps.Copy(record, entries)
		return true
	})
}

func (f *File) Delete(ctx context.Context, keys ...string) error {
	return f.update(ctx, func(record map[string]string) bool {
		changed := false
		for _, k := range keys {
			if _, ok := record[k]; ok {
				delete(record, k)
				changed = true
			}
		}
		return changed
	})
}

func (f *File) Close() error { return nil }

func (f *File) update(ctx context.Context, fn func(map[string]string) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	record, err := f.read()
	if err != nil {
		return err
	}
	if !fn(record) {
		return nil
	}
	return f.write(record)
}

func (f *File) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", f.path, err)
	}
	if doc.Record == nil {
		doc.Record = make(map[string]string)
	}
	return doc.Record, nil
}

func (f *File) write(record map[string]string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(document{Record: record}); err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".spotauth-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
