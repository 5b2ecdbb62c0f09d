package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/odvcencio/pgit/pkg/object"
)

// initRepoWithFile creates a temp repo and writes one file into its work tree.
func initRepoWithFile(t *testing.T, name string, content []byte) *Repo {
	t.Helper()
	r, err := Init(t.TempDir(), WithClock(steppingClock()))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	writeFile(t, filepath.Join(r.RootDir, name), content)
	return r
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", path, err)
	}
	return string(data)
}

// steppingClock returns a clock that advances one second per call so
// successive commits get distinct, increasing timestamps.
func steppingClock() func() time.Time {
	cur := time.Unix(1700000000, 0)
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

// writeTestCommit stores a commit with the given parents directly, bypassing
// refs, for graph-shape tests.
func writeTestCommit(t *testing.T, r *Repo, message string, parents ...object.Hash) object.Hash {
	t.Helper()
	treeHash, err := r.Store.WriteTree(&object.Tree{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	h, err := r.Store.WriteCommit(&object.Commit{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    "test-author",
		Timestamp: 1700000000,
		Message:   message,
	})
	if err != nil {
		t.Fatalf("WriteCommit(%q): %v", message, err)
	}
	return h
}

// objectFile is the on-disk location of an object in r's store.
func objectFile(r *Repo, h object.Hash) string {
	return filepath.Join(r.PgitDir, "objects", string(h[:2]), string(h[2:]))
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected directory %q to exist: %v", path, err)
	}
	if !info.IsDir() {
		t.Fatalf("expected %q to be a directory", path)
	}
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected file %q to exist: %v", path, err)
	}
	if info.IsDir() {
		t.Fatalf("expected %q to be a file, got directory", path)
	}
}
