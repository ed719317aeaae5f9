// Package configutil reads json5 configuration files and layers local and
// environment overrides over them.
package configutil

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// LocalName is the override file of a config file, thermite.json5 ->
// thermite.local.json5.
func LocalName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readLayer is false when the file does not exist or is empty.
func readLayer[T any](path string) (T, bool, error) {
	var layer T
	contents, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return layer, false, nil
	}
	if err != nil {
		return layer, false, err
	}
	if len(bytes.TrimSpace(contents)) == 0 {
		return layer, false, nil
	}
	err = json5.Unmarshal(contents, &layer)
	if err != nil {
		return layer, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return layer, true, nil
}

// ReadConfig reads a json5 config file and merges its local override over
// it, the override's non-zero fields win. When neither file exists the
// error wraps fs.ErrNotExist.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	for _, path := range []string{name, LocalName(name)} {
		layer, ok, err := readLayer[T](path)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if found {
			slog.Info("merging config with local overrides", "local", path)
		}
		out, err = Overlay(out, layer)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		found = true
	}

	if !found {
		return out, fmt.Errorf("no config at %s: %w", name, fs.ErrNotExist)
	}
	return out, nil
}

// ReadRecursively is ReadConfig on the first directory, from the cwd up to
// the filesystem root, that has a config of the given name.
func ReadRecursively[T any](name string) (T, error) {
	var out T

	dir, err := os.Getwd()
	if err != nil {
		return out, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return out, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return out, fmt.Errorf("no %s above the working directory: %w", name, fs.ErrNotExist)
		}
		dir = parent
	}
}

// LoadEnv loads the given dotenv files into the process environment, files
// that do not exist are skipped. Variables already set are not overwritten.
func LoadEnv(filenames ...string) error {
	for _, filename := range filenames {
		err := godotenv.Load(filename)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", filename, err)
		}
		slog.Debug("loaded environment file", "file", filename)
	}
	return nil
}

// Overlay merges the non-zero fields of override over base.
func Overlay[T any](base T, override T) (T, error) {
	err := mergo.Merge(&base, override, mergo.WithOverride)
	if err != nil {
		return base, err
	}
	return base, nil
}
