package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeImage(t *testing.T, root, name string, age time.Duration) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, smallGIF, 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-age)
	if err := os.Chtimes(p, old, old); err != nil {
		t.Fatal(err)
	}
}

func TestSweepOrphanImages(t *testing.T) {
	root := t.TempDir()
	storage := NewLocalStorage(root, "/media/")
	writeImage(t, root, "posts/kept.gif", 2*time.Hour)
	writeImage(t, root, "posts/orphan.gif", 2*time.Hour)
	writeImage(t, root, "posts/fresh.gif", 0)

	inUse := func(context.Context) ([]string, error) { return []string{"posts/kept.gif"}, nil }
	n, err := SweepOrphanImages(context.Background(), storage, inUse, time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed %d files, want 1", n)
	}
	for name, want := range map[string]bool{"kept.gif": true, "orphan.gif": false, "fresh.gif": true} {
		_, err := os.Stat(filepath.Join(root, "posts", name))
		if exists := err == nil; exists != want {
			t.Fatalf("%s exists=%v", name, exists)
		}
	}
}

func TestSweepOrphanImagesEmptyRoot(t *testing.T) {
	storage := NewLocalStorage(filepath.Join(t.TempDir(), "missing"), "/media/")
	inUse := func(context.Context) ([]string, error) { return nil, nil }
	if n, err := SweepOrphanImages(context.Background(), storage, inUse, 0); err != nil || n != 0 {
		t.Fatalf("sweep of missing dir: %d %v", n, err)
	}

	boom := errors.New("db down")
	failing := func(context.Context) ([]string, error) { return nil, boom }
	if _, err := SweepOrphanImages(context.Background(), storage, failing, 0); !errors.Is(err, boom) {
		t.Fatalf("lister error not returned: %v", err)
	}
}
