package utils

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ImageLister returns the stored image names that are still in use.
type ImageLister func(ctx context.Context) ([]string, error)

// SweepOrphanImages removes files under root/posts that no post references.
// Files younger than grace are kept so uploads racing a post insert survive.
func SweepOrphanImages(ctx context.Context, storage *LocalStorage, inUse ImageLister, grace time.Duration) (int, error) {
	names, err := inUse(ctx)
	if err != nil {
		return 0, err
	}
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}

	dir := filepath.Join(storage.Root, "posts")
	cutoff := time.Now().Add(-grace)
	removed := 0
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(storage.Root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if _, ok := keep[name]; ok {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}
		if err := storage.Delete(ctx, name); err != nil {
			Logger.Warn("orphan image removal failed", zap.String("image", name), zap.Error(err))
			return nil
		}
		removed++
		return nil
	})
	return removed, err
}

// StartImageSweeper runs SweepOrphanImages every interval until ctx is done.
func StartImageSweeper(ctx context.Context, storage *LocalStorage, inUse ImageLister, interval, grace time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := SweepOrphanImages(ctx, storage, inUse, grace)
				if err != nil {
					Logger.Warn("image sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					Logger.Info("orphan images removed", zap.Int("count", n))
				}
			}
		}
	}()
}
