// Package filex holds the local-file side of the pipeline: artifact
// discovery, name and size policy, and streaming checksums.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Artifact is a local file selected for upload.
type Artifact struct {
	Path string
	Name string
	Size int64
}

// ListArtifacts returns the regular files in dir whose names end with ext
// (case-insensitive), sorted by name.
func ListArtifacts(dir, ext string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	ext = strings.ToLower(ext)
	result := make([]Artifact, 0, len(entries))

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		result = append(result, Artifact{
			Path: filepath.Join(dir, e.Name()),
			Name: e.Name(),
			Size: info.Size(),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// StatArtifact builds an Artifact for a single explicit path.
func StatArtifact(path string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Artifact{}, fmt.Errorf("%s is not a regular file", path)
	}
	return Artifact{Path: path, Name: filepath.Base(path), Size: info.Size()}, nil
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
