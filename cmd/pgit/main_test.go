package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/pgit/pkg/object"
	"github.com/odvcencio/pgit/pkg/repo"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// runCLI executes pgit with args against dir and returns stdout.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"-C", dir}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, dir, args...)
	require.NoError(t, err, "pgit %s", strings.Join(args, " "))
	return out
}

func writeWork(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCLI_InitCommitLogStatus(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "init")
	assert.Contains(t, out, "initialized empty pgit repository")

	out = mustRun(t, dir, "log")
	assert.Contains(t, out, "no commits yet")

	writeWork(t, dir, "readme.txt", "hello\n")
	out = mustRun(t, dir, "status", "--short")
	assert.Equal(t, "A readme.txt\n", out)

	out = mustRun(t, dir, "--author", "Tess", "commit", "-m", "first\n\nbody")
	assert.Regexp(t, `^\[main [0-9a-f]{8}\] first\n$`, out)

	out = mustRun(t, dir, "status")
	assert.Contains(t, out, "On branch main")
	assert.Contains(t, out, "nothing to commit, working tree clean")

	_, err := runCLI(t, dir, "commit", "-m", "again")
	assert.ErrorIs(t, err, repo.ErrNothingToCommit)

	out = mustRun(t, dir, "log")
	assert.Contains(t, out, "(HEAD -> main)")
	assert.Contains(t, out, "Author: Tess")
	assert.Contains(t, out, "    body")

	out = mustRun(t, dir, "reflog", "-n", "1")
	assert.Contains(t, out, "commit (initial): first")
}

func TestCLI_AuthorFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "init")
	writeWork(t, dir, "a.txt", "a\n")

	t.Setenv("PGIT_USER_NAME", "Env Person")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"-C", dir, "commit", "-m", "env"})
	require.NoError(t, root.Execute())

	r, err := repo.Open(dir)
	require.NoError(t, err)
	history, err := r.History(1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Env Person", history[0].Commit.Author)
}

func TestCLI_BranchCheckout(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "init")
	writeWork(t, dir, "a.txt", "v1\n")
	mustRun(t, dir, "commit", "-m", "v1")

	out := mustRun(t, dir, "checkout", "-b", "feature")
	assert.Contains(t, out, "Switched to branch 'feature'")
	writeWork(t, dir, "a.txt", "v2\n")
	mustRun(t, dir, "commit", "-m", "v2")

	out = mustRun(t, dir, "branch")
	assert.Equal(t, "* feature\n  main\n", out)

	mustRun(t, dir, "checkout", "main")
	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v1\n", string(data))

	writeWork(t, dir, "a.txt", "dirty\n")
	_, err = runCLI(t, dir, "checkout", "feature")
	assert.ErrorIs(t, err, repo.ErrDirtyWorktree)

	out = mustRun(t, dir, "branch", "-d", "feature")
	assert.Contains(t, out, "Deleted branch feature")
}

func TestCLI_Stash(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "init")
	writeWork(t, dir, "a.txt", "base\n")
	mustRun(t, dir, "commit", "-m", "base")

	writeWork(t, dir, "a.txt", "wip\n")
	out := mustRun(t, dir, "stash", "save", "-m", "halfway")
	assert.Contains(t, out, "halfway")

	out = mustRun(t, dir, "stash", "list")
	assert.Regexp(t, `^stash@\{0\} [0-9a-f]{8} .*: halfway\n$`, out)

	out = mustRun(t, dir, "stash", "show", "0")
	assert.Contains(t, out, "a.txt")

	mustRun(t, dir, "stash", "drop", "0")
	out = mustRun(t, dir, "stash", "list")
	assert.Empty(t, out)

	_, err := runCLI(t, dir, "stash", "drop", "0")
	assert.Error(t, err)
}

func TestCLI_CatObjectAndVerify(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "init")
	writeWork(t, dir, "a.txt", "content\n")
	mustRun(t, dir, "commit", "-m", "msg")

	out := mustRun(t, dir, "cat-object", "-t", "HEAD")
	assert.Equal(t, "commit\n", out)
	out = mustRun(t, dir, "cat-object", "main")
	assert.Contains(t, out, "tree ")
	assert.Contains(t, out, "\n\nmsg")

	out = mustRun(t, dir, "verify")
	assert.Contains(t, out, "checked 3 objects")
}

func TestCLI_BundleRoundTrip(t *testing.T) {
	src := t.TempDir()
	mustRun(t, src, "init")
	writeWork(t, src, "a.txt", "one\n")
	mustRun(t, src, "commit", "-m", "one")
	writeWork(t, src, "dir/b.txt", "two\n")
	mustRun(t, src, "commit", "-m", "two")

	bundlePath := filepath.Join(t.TempDir(), "repo.pgb")
	out := mustRun(t, src, "bundle", "export", bundlePath)
	assert.Contains(t, out, "exported 7 objects")

	dst := t.TempDir()
	mustRun(t, dst, "init")
	out = mustRun(t, dst, "bundle", "import", bundlePath, "--branch", "imported")
	assert.Contains(t, out, "imported 7 objects (7 new, 0 already present)")

	mustRun(t, dst, "checkout", "imported")
	data, err := os.ReadFile(filepath.Join(dst, "dir", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(data))

	out = mustRun(t, dst, "log", "--oneline", "imported")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestCLI_SignedCommit(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "init")
	writeWork(t, dir, "a.txt", "signed\n")

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))

	mustRun(t, dir, "commit", "-m", "signed", "--sign-key", keyPath)
	out := mustRun(t, dir, "log", "--show-signature")
	assert.Contains(t, out, "Signature: good, key SHA256:")
}

func TestWatcher_CommitsAfterQuietPeriod(t *testing.T) {
	dir := t.TempDir()
	r, err := repo.Init(dir)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	committed := make(chan string, 4)
	w := &watcher{
		r:         r,
		log:       log,
		out:       &bytes.Buffer{},
		debounce:  50 * time.Millisecond,
		message:   "auto",
		author:    "watcher",
		committed: committed,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx) }()

	// Give the watcher time to register the root directory.
	time.Sleep(100 * time.Millisecond)
	writeWork(t, dir, "one.txt", "1\n")

	var first string
	select {
	case first = <-committed:
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot commit after changes settled")
	}
	cancel()
	require.NoError(t, <-done)

	head, err := r.ResolveHead()
	require.NoError(t, err)
	assert.Equal(t, first, string(head))

	files, err := r.FlattenTree(mustTree(t, r))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "one.txt", files[0].Path)
}

func mustTree(t *testing.T, r *repo.Repo) object.Hash {
	t.Helper()
	head, err := r.ResolveHead()
	require.NoError(t, err)
	c, err := r.Store.ReadCommit(head)
	require.NoError(t, err)
	return c.TreeHash
}
