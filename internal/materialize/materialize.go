// Package materialize writes a resolved collection to disk.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/gridforge/internal/ctxlog"
	"github.com/vk/gridforge/internal/model"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file Write records the copied files in.
const ManifestName = "manifest.yaml"

// Entry is one copied file.
type Entry struct {
	Destination string `yaml:"destination"`
	Source      string `yaml:"source"`
	Revision    uint64 `yaml:"revision"`
}

// Manifest lists the files of a materialized collection.
type Manifest struct {
	Collection string  `yaml:"collection"`
	Files      []Entry `yaml:"files"`
}

// Write copies files into outDir under their collection paths and writes the
// manifest. Entries are sorted by destination. Files listed in the previous
// manifest that left the collection are removed.
func Write(ctx context.Context, outDir, collection string, files map[string]model.File) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	prev, err := ReadManifest(outDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Ignoring unreadable manifest.", "outDir", outDir, "error", err)
	}
	m := &Manifest{Collection: collection, Files: make([]Entry, 0, len(files))}

	for _, dest := range slices.Sorted(maps.Keys(files)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target, err := destination(outDir, dest)
		if err != nil {
			return nil, err
		}
		f := files[dest]
		if err := copyFile(f.Path, target); err != nil {
			return nil, fmt.Errorf("materializing %s: %w", dest, err)
		}
		m.Files = append(m.Files, Entry{Destination: dest, Source: f.Path, Revision: f.Revision})
	}

	if prev != nil {
		removeStale(ctx, outDir, prev, files)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, ManifestName), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	logger.Info("Collection materialized.", "collection", collection, "outDir", outDir, "files", len(m.Files))
	return m, nil
}

// ReadManifest decodes the manifest in outDir.
func ReadManifest(outDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(outDir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}

// removeStale deletes files a previous Write copied that are no longer
// part of the collection.
func removeStale(ctx context.Context, outDir string, prev *Manifest, files map[string]model.File) {
	logger := ctxlog.FromContext(ctx)
	for _, e := range prev.Files {
		if _, ok := files[e.Destination]; ok {
			continue
		}
		target, err := destination(outDir, e.Destination)
		if err != nil {
			continue
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to remove stale file.", "path", e.Destination, "error", err)
			continue
		}
		logger.Debug("Removed stale file.", "path", e.Destination)
	}
}

// destination keeps collection paths inside outDir.
func destination(outDir, dest string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(dest))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("collection path %q escapes the output directory", dest)
	}
	return filepath.Join(outDir, clean), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
