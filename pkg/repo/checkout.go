package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/pgit/pkg/object"
)

// ErrDirtyWorktree is returned by Checkout when local changes would be lost.
var ErrDirtyWorktree = errors.New("work tree has uncommitted changes")

// Checkout switches the work tree to the state of target, a branch name or a
// full commit id.
//
//  1. Resolve target: branch first, then commit id. An unborn branch only
//     moves HEAD; the work tree is left as is.
//  2. Refuse if tracked files were modified or deleted, or if an untracked
//     file would be overwritten with different content.
//  3. Remove files tracked by HEAD that the target does not contain.
//  4. Write every file of the target tree.
//  5. Attach HEAD to the branch, or detach it at the commit.
func (r *Repo) Checkout(target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("checkout: %w: empty target", object.ErrInvalidArgument)
	}

	isBranch := false
	var targetHash object.Hash
	branchHash, err := r.ResolveRef(headsPrefix + target)
	switch {
	case err == nil:
		targetHash = branchHash
		isBranch = true
	case errors.Is(err, ErrUnbornBranch):
		if err := r.SetHead(headsPrefix + target); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
		return nil
	case errors.Is(err, object.ErrNotFound), errors.Is(err, object.ErrInvalidArgument):
		targetHash = object.Hash(target)
	default:
		return fmt.Errorf("checkout: %w", err)
	}

	commit, err := r.Store.ReadCommit(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: cannot read commit %s: %w", targetHash, err)
	}
	targetFiles, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return fmt.Errorf("checkout: flatten target tree: %w", err)
	}
	targetMap := flattenToMap(targetFiles)

	headFiles, err := r.headTreeFiles()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.ensureClean(headFiles, targetMap); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	for p := range headFiles {
		if _, keep := targetMap[p]; keep {
			continue
		}
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(p))
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("checkout: remove %q: %w: %w", p, object.ErrStorage, err)
		}
		r.removeEmptyParents(filepath.Dir(absPath))
	}

	for _, f := range targetFiles {
		if err := r.materialize(f); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
	}

	if isBranch {
		err = r.SetHead(headsPrefix + target)
	} else {
		err = r.SetHead(string(targetHash))
	}
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	r.log.WithField("target", target).Debug("checked out")
	return nil
}

// ensureClean rejects the checkout when tracked files have local changes or
// an untracked file sits where the target would write different content.
func (r *Repo) ensureClean(headFiles, targetFiles map[string]TreeFileEntry) error {
	work, err := r.worktreeFiles()
	if err != nil {
		return fmt.Errorf("check status: %w", err)
	}
	for _, e := range diffFileMaps(headFiles, work) {
		if e.Status != StatusNew {
			return fmt.Errorf("%w (file %q is %s)", ErrDirtyWorktree, e.Path, e.Status)
		}
		if t, ok := targetFiles[e.Path]; ok && t.BlobHash != work[e.Path].BlobHash {
			return fmt.Errorf("%w (untracked file %q would be overwritten)", ErrDirtyWorktree, e.Path)
		}
	}
	return nil
}

func (r *Repo) materialize(f TreeFileEntry) error {
	absPath := filepath.Join(r.RootDir, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for %q: %w: %w", f.Path, object.ErrStorage, err)
	}
	blob, err := r.Store.ReadBlob(f.BlobHash)
	if err != nil {
		return fmt.Errorf("read blob for %q: %w", f.Path, err)
	}
	perm := filePermFromEntry(f.Executable)
	if err := os.WriteFile(absPath, blob.Data, perm); err != nil {
		return fmt.Errorf("write %q: %w: %w", f.Path, object.ErrStorage, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(absPath, perm); err != nil {
		return fmt.Errorf("chmod %q: %w: %w", f.Path, object.ErrStorage, err)
	}
	return nil
}

// removeEmptyParents removes empty directories up to (but not including)
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		_ = os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}
