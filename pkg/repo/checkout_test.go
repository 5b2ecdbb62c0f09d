package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckout_RoundTripBetweenBranches(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1\n"))
	writeFile(t, filepath.Join(r.RootDir, "dir", "shared.txt"), []byte("shared\n"))
	first, err := r.Commit("first", "test-author")
	if err != nil {
		t.Fatalf("Commit(first): %v", err)
	}
	if err := r.CreateBranch("old", first); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	writeFile(t, filepath.Join(r.RootDir, "a.txt"), []byte("v2\n"))
	writeFile(t, filepath.Join(r.RootDir, "extra", "new.txt"), []byte("new\n"))
	if _, err := r.Commit("second", "test-author"); err != nil {
		t.Fatalf("Commit(second): %v", err)
	}

	if err := r.Checkout("old"); err != nil {
		t.Fatalf("Checkout(old): %v", err)
	}
	if got := readFile(t, filepath.Join(r.RootDir, "a.txt")); got != "v1\n" {
		t.Errorf("a.txt = %q, want v1", got)
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "extra")); !os.IsNotExist(err) {
		t.Errorf("extra/ should be removed with its only file, stat err = %v", err)
	}
	if got := readFile(t, filepath.Join(r.RootDir, "dir", "shared.txt")); got != "shared\n" {
		t.Errorf("dir/shared.txt = %q", got)
	}
	if branch, _ := r.CurrentBranch(); branch != "old" {
		t.Errorf("CurrentBranch = %q, want old", branch)
	}
	clean, err := r.IsClean()
	if err != nil {
		t.Fatalf("IsClean: %v", err)
	}
	if !clean {
		t.Error("work tree should be clean right after checkout")
	}

	if err := r.Checkout("main"); err != nil {
		t.Fatalf("Checkout(main): %v", err)
	}
	if got := readFile(t, filepath.Join(r.RootDir, "a.txt")); got != "v2\n" {
		t.Errorf("a.txt after returning = %q, want v2", got)
	}
	if got := readFile(t, filepath.Join(r.RootDir, "extra", "new.txt")); got != "new\n" {
		t.Errorf("extra/new.txt = %q", got)
	}
}

func TestCheckout_DirtyWorkTree_Error(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1\n"))
	first, err := r.Commit("first", "test-author")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := r.CreateBranch("other", first); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	writeFile(t, filepath.Join(r.RootDir, "a.txt"), []byte("local edit\n"))
	if err := r.Checkout("other"); !errors.Is(err, ErrDirtyWorktree) {
		t.Fatalf("Checkout with local edit: error = %v, want ErrDirtyWorktree", err)
	}
	if got := readFile(t, filepath.Join(r.RootDir, "a.txt")); got != "local edit\n" {
		t.Fatalf("refused checkout clobbered a.txt: %q", got)
	}
}

func TestCheckout_UntrackedFileWouldBeOverwritten(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("a\n"))
	base, err := r.Commit("base", "test-author")
	if err != nil {
		t.Fatalf("Commit(base): %v", err)
	}
	if err := r.CreateBranch("side", base); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	writeFile(t, filepath.Join(r.RootDir, "b.txt"), []byte("tracked on main\n"))
	if _, err := r.Commit("add b", "test-author"); err != nil {
		t.Fatalf("Commit(add b): %v", err)
	}
	if err := r.Checkout("side"); err != nil {
		t.Fatalf("Checkout(side): %v", err)
	}

	writeFile(t, filepath.Join(r.RootDir, "b.txt"), []byte("untracked here\n"))
	if err := r.Checkout("main"); !errors.Is(err, ErrDirtyWorktree) {
		t.Fatalf("Checkout over untracked b.txt: error = %v, want ErrDirtyWorktree", err)
	}
}

func TestCheckout_DetachedHead(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1\n"))
	first, err := r.Commit("first", "test-author")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeFile(t, filepath.Join(r.RootDir, "a.txt"), []byte("v2\n"))
	if _, err := r.Commit("second", "test-author"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := r.Checkout(string(first)); err != nil {
		t.Fatalf("Checkout(%s): %v", first, err)
	}
	head, err := r.HeadRef()
	if err != nil {
		t.Fatalf("HeadRef: %v", err)
	}
	if head != string(first) {
		t.Fatalf("HEAD = %q, want detached at %s", head, first)
	}
	if got := readFile(t, filepath.Join(r.RootDir, "a.txt")); got != "v1\n" {
		t.Errorf("a.txt = %q, want v1", got)
	}
}

func TestCheckout_UnbornBranchOnlyMovesHead(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1\n"))
	if _, err := r.Commit("first", "test-author"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := r.CreateBranch("fresh", ""); err != nil {
		t.Fatalf("CreateBranch(fresh): %v", err)
	}

	if err := r.Checkout("fresh"); err != nil {
		t.Fatalf("Checkout(fresh): %v", err)
	}
	if branch, _ := r.CurrentBranch(); branch != "fresh" {
		t.Fatalf("CurrentBranch = %q, want fresh", branch)
	}
	if got := readFile(t, filepath.Join(r.RootDir, "a.txt")); got != "v1\n" {
		t.Fatalf("work tree changed on unborn checkout: a.txt = %q", got)
	}
	if _, err := r.ResolveHead(); !errors.Is(err, ErrUnbornBranch) {
		t.Fatalf("ResolveHead error = %v, want ErrUnbornBranch", err)
	}
}

func TestCheckout_RestoresExecutableMode(t *testing.T) {
	r := initRepoWithFile(t, "run.sh", []byte("#!/bin/sh\necho hi\n"))
	path := filepath.Join(r.RootDir, "run.sh")
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	first, err := r.Commit("exec", "test-author")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := r.Commit("remove", "test-author"); err != nil {
		t.Fatalf("Commit(remove): %v", err)
	}

	if err := r.Checkout(string(first)); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("run.sh mode = %v, want executable", info.Mode().Perm())
	}
}

func TestCheckout_UnknownTarget(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.Checkout("nope"); err == nil {
		t.Fatal("Checkout(nope) should fail")
	}
}
