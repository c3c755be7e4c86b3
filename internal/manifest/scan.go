package manifest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/frame/internal/logging"
)

// scanLimit bounds the number of paths read concurrently.
const scanLimit = 4

// ScanLayers reads every layer manifest found under paths. Missing paths
// and malformed manifests are skipped. When several manifests declare the
// same layer name, the one found first in path order wins.
func ScanLayers(ctx context.Context, paths []string) ([]Layer, error) {
	perPath, err := scan(ctx, paths, ParseLayers)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []Layer
	for _, group := range perPath {
		for _, layers := range group {
			for _, l := range layers {
				if _, dup := seen[l.Name]; dup {
					continue
				}
				seen[l.Name] = struct{}{}
				out = append(out, l)
			}
		}
	}
	return out, nil
}

// ScanICDs reads every driver manifest found under paths.
func ScanICDs(ctx context.Context, paths []string) ([]ICD, error) {
	perPath, err := scan(ctx, paths, ParseICD)
	if err != nil {
		return nil, err
	}
	var out []ICD
	for _, group := range perPath {
		out = append(out, group...)
	}
	return out, nil
}

// scan reads paths concurrently and returns the parsed manifests grouped per
// path in input order.
func scan[T any](ctx context.Context, paths []string, parse func([]byte, string) (T, error)) ([][]T, error) {
	results := make([][]T, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanLimit)
	for i, path := range paths {
		g.Go(func() error {
			files, err := manifestFiles(path)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					logging.Logger().Warn("manifest: skip path", "path", path, "error", err)
				}
				return nil
			}
			for _, file := range files {
				if err := ctx.Err(); err != nil {
					return err
				}
				data, err := os.ReadFile(file)
				if err != nil {
					logging.Logger().Warn("manifest: unreadable", "file", file, "error", err)
					continue
				}
				v, err := parse(data, file)
				if err != nil {
					logging.Logger().Warn("manifest: skip", "file", file, "error", err)
					continue
				}
				results[i] = append(results[i], v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// manifestFiles returns path itself for a file, or the sorted *.json files
// of a directory.
func manifestFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}
