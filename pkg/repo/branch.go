package repo

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/odvcencio/pgit/pkg/object"
)

// CreateBranch creates a new branch pointing at the given target hash. An
// empty target creates an unborn branch. Returns an error if the branch
// already exists.
func (r *Repo) CreateBranch(name string, target object.Hash) error {
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	if target != "" {
		if _, err := r.Store.ReadCommit(target); err != nil {
			return fmt.Errorf("create branch %q: target: %w", name, err)
		}
	}
	refName := headsPrefix + name
	if _, err := os.Stat(r.refPath(refName)); err == nil {
		return fmt.Errorf("create branch: branch %q already exists", name)
	}
	if err := r.updateRefCAS(refName, target, "branch: created", ""); err != nil {
		if errors.Is(err, ErrRefCASMismatch) {
			return fmt.Errorf("create branch: branch %q already exists", name)
		}
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes the branch ref file .pgit/refs/heads/<name>.
// Returns an error if the branch is the current branch or does not exist.
func (r *Repo) DeleteBranch(name string) error {
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	current, err := r.CurrentBranch()
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if current == name {
		return fmt.Errorf("delete branch: cannot delete current branch %q", name)
	}

	if err := os.Remove(r.refPath(headsPrefix + name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete branch: branch %q does not exist: %w", name, object.ErrNotFound)
		}
		return fmt.Errorf("delete branch %q: %w: %w", name, object.ErrStorage, err)
	}
	return nil
}

// ListBranches returns the branch names under refs/heads sorted
// alphabetically. Nested names such as "feature/x" are included.
func (r *Repo) ListBranches() ([]string, error) {
	refs, err := r.ListRefs("heads")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, strings.TrimPrefix(name, "heads/"))
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch reads HEAD and returns the branch name if HEAD is attached
// (e.g. "refs/heads/main" → "main"). If HEAD is detached, it returns "".
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.HeadRef()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if strings.HasPrefix(head, headsPrefix) {
		return strings.TrimPrefix(head, headsPrefix), nil
	}
	return "", nil
}

func validateBranchName(name string) error {
	if strings.TrimSpace(name) != name || name == "" || name == "HEAD" || strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: invalid branch name %q", object.ErrInvalidArgument, name)
	}
	if err := validateRefName(headsPrefix + name); err != nil {
		return err
	}
	return nil
}
