package repo

import (
	"fmt"
	"sort"
)

// FileStatus represents how a work tree file differs from the HEAD tree.
type FileStatus int

const (
	StatusNew      FileStatus = iota + 1 // in the work tree, not in HEAD
	StatusModified                       // content or executable bit differs
	StatusDeleted                        // in HEAD, missing from the work tree
)

func (s FileStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// StatusEntry records the status of a single file.
type StatusEntry struct {
	Path   string // repo-relative, slash-separated
	Status FileStatus
}

// Status compares the work tree, as a snapshot would capture it, against
// the tree of the commit HEAD resolves to. Only differing paths are
// returned, sorted by path; an empty result means the work tree is clean.
// Ignored files never appear.
func (r *Repo) Status() ([]StatusEntry, error) {
	head, err := r.headTreeFiles()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	work, err := r.worktreeFiles()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return diffFileMaps(head, work), nil
}

// IsClean reports whether the work tree matches the HEAD tree.
func (r *Repo) IsClean() (bool, error) {
	entries, err := r.Status()
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

func diffFileMaps(from, to map[string]TreeFileEntry) []StatusEntry {
	var out []StatusEntry
	for p, f := range from {
		t, ok := to[p]
		switch {
		case !ok:
			out = append(out, StatusEntry{Path: p, Status: StatusDeleted})
		case t.BlobHash != f.BlobHash || t.Executable != f.Executable:
			out = append(out, StatusEntry{Path: p, Status: StatusModified})
		}
	}
	for p := range to {
		if _, ok := from[p]; !ok {
			out = append(out, StatusEntry{Path: p, Status: StatusNew})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
