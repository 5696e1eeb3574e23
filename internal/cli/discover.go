package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoInput indicates that no file matched the input pattern.
	ErrNoInput = errors.New("no input file found")

	// ErrAmbiguousInput indicates several files matched the input pattern.
	ErrAmbiguousInput = errors.New("multiple input files found")
)

// resolveInput returns the file to read: the explicit argument when given,
// otherwise the single file in dir matching pattern.
func resolveInput(args []string, dir, pattern string) (string, error) {
	if len(args) > 0 {
		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("file not found: %s", path)
			}
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", path)
		}
		return path, nil
	}
	return findInput(dir, pattern)
}

// findInput returns the only regular file in dir matching pattern.
func findInput(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("input pattern %q: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	sort.Strings(files)

	switch len(files) {
	case 0:
		return "", fmt.Errorf("%w matching %q in %s", ErrNoInput, pattern, describeDir(dir))
	case 1:
		return files[0], nil
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	return "", fmt.Errorf("%w matching %q in %s: %s; pass the file to use as an argument",
		ErrAmbiguousInput, pattern, describeDir(dir), strings.Join(names, ", "))
}

func describeDir(dir string) string {
	if dir == "" || dir == "." {
		return "the current directory"
	}
	return dir
}
