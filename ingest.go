package fewshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/fewshot/voting"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// AddSamplesFromDir bulk-loads training images from a directory and returns
// the number of samples added.
//
// Two layouts are supported. With one subdirectory per class, every image in
// a subdirectory is added under the subdirectory's name:
//
//	data/
//	  apple/  img1.png img2.png
//	  banana/ shot.jpg
//
// With a flat directory, the class is derived from each file name: extension
// stripped, trailing digits stripped ("apple3.png" trains "apple").
//
// Files that fail to read or extract are logged and skipped; only an
// unreadable root directory fails the call.
func (c *Classifier) AddSamplesFromDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read sample directory %q: %w", dir, err)
	}

	added := 0
	for _, entry := range entries {
		if entry.IsDir() {
			n, err := c.addClassDir(ctx, filepath.Join(dir, entry.Name()), entry.Name())
			if err != nil {
				return added, err
			}
			added += n
			continue
		}

		label, ok := labelFromFilename(entry.Name())
		if !ok { // not an image
			continue
		}
		if c.addSampleFile(ctx, filepath.Join(dir, entry.Name()), label) {
			added++
		}
	}

	c.logger.WithCount(added).InfoContext(ctx, "bulk load completed", "dir", dir)
	return added, nil
}

func (c *Classifier) addClassDir(ctx context.Context, dir, label string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read class directory %q: %w", dir, err)
	}

	added := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		if c.addSampleFile(ctx, filepath.Join(dir, entry.Name()), label) {
			added++
		}
	}
	return added, nil
}

func (c *Classifier) addSampleFile(ctx context.Context, path, label string) bool {
	logger := c.logger.WithLabel(label)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WarnContext(ctx, "skipping unreadable sample",
			"path", path,
			"error", err,
		)
		return false
	}
	if err := c.AddSample(ctx, data, label); err != nil {
		logger.WarnContext(ctx, "skipping sample",
			"path", path,
			"error", err,
		)
		return false
	}
	return true
}

// labelFromFilename derives a class from a flat image file name: the
// extension is removed and every digit stripped ("apple3.png" and
// "app1e3.png" both train "apple"). Names that reduce to nothing
// ("123.png") train the unknown label.
func labelFromFilename(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := imageExtensions[ext]; !ok {
		return "", false
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, base)
	if base == "" {
		base = voting.UnknownLabel
	}
	return base, true
}
