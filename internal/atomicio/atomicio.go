// Package atomicio writes files via write-to-temp-then-rename so a crash
// mid-write never leaves a half-written document visible to readers.
package atomicio

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteFile atomically replaces path with data. The temp file is created in
// the target directory so the final rename stays on one filesystem.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "atomicio: mkdir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "atomicio: create temp")
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return eris.Wrapf(err, "atomicio: write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return eris.Wrapf(err, "atomicio: sync %s", tmpName)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return eris.Wrapf(err, "atomicio: chmod %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "atomicio: close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "atomicio: rename to %s", path)
	}
	return nil
}

// WriteJSON marshals v with indentation and writes it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "atomicio: marshal %s", path)
	}
	return WriteFile(path, append(data, '\n'), 0o644)
}

// ReadJSON loads path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "atomicio: read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "atomicio: unmarshal %s", path)
	}
	return nil
}
