package repo

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/odvcencio/pgit/pkg/object"
	"github.com/sirupsen/logrus"
)

// SnapshotStats summarizes a work tree snapshot.
type SnapshotStats struct {
	Files   int // regular files captured
	Trees   int // tree objects produced, root included
	Written int // objects newly persisted
	Reused  int // objects already present in the store
}

type snapshotter struct {
	r       *Repo
	ignore  *IgnoreChecker
	staged  []object.StagedWrite
	pending map[object.Hash]bool
	files   map[string]TreeFileEntry
	stats   SnapshotStats
}

func (r *Repo) newSnapshotter() (*snapshotter, error) {
	ic, err := NewIgnoreChecker(r.RootDir)
	if err != nil {
		return nil, err
	}
	return &snapshotter{
		r:       r,
		ignore:  ic,
		pending: make(map[object.Hash]bool),
		files:   make(map[string]TreeFileEntry),
	}, nil
}

// SnapshotTree captures the work tree as a tree of blobs and subtrees and
// persists every object. All objects are staged before any is written, so a
// read or validation failure leaves the store untouched.
func (r *Repo) SnapshotTree() (object.Hash, SnapshotStats, error) {
	s, err := r.newSnapshotter()
	if err != nil {
		return "", SnapshotStats{}, err
	}
	root, err := s.snapshot()
	if err != nil {
		return "", SnapshotStats{}, err
	}
	if err := s.flush(); err != nil {
		return "", SnapshotStats{}, err
	}
	r.log.WithFields(logrus.Fields{
		"tree":    root.Short(),
		"files":   s.stats.Files,
		"written": s.stats.Written,
		"reused":  s.stats.Reused,
	}).Debug("snapshot work tree")
	return root, s.stats, nil
}

// WorktreeTreeID returns the id the work tree would snapshot to without
// writing anything.
func (r *Repo) WorktreeTreeID() (object.Hash, error) {
	s, err := r.newSnapshotter()
	if err != nil {
		return "", err
	}
	return s.snapshot()
}

func (r *Repo) worktreeFiles() (map[string]TreeFileEntry, error) {
	s, err := r.newSnapshotter()
	if err != nil {
		return nil, err
	}
	if _, err := s.snapshot(); err != nil {
		return nil, err
	}
	return s.files, nil
}

func (s *snapshotter) snapshot() (object.Hash, error) {
	h, _, err := s.dir(s.r.RootDir, "", true)
	return h, err
}

// dir stages the tree for absDir. Directories that end up empty are reported
// with ok=false so the parent omits them; the root is always produced.
func (s *snapshotter) dir(absDir, rel string, root bool) (h object.Hash, ok bool, err error) {
	dirEntries, err := os.ReadDir(absDir)
	if err != nil {
		return "", false, fmt.Errorf("snapshot: read dir %q: %w: %w", rel, object.ErrStorage, err)
	}

	entries := make([]object.TreeEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		childRel := name
		if rel != "" {
			childRel = path.Join(rel, name)
		}
		childAbs := filepath.Join(absDir, name)

		switch {
		case de.IsDir():
			if s.ignore.IsIgnored(childRel, true) {
				continue
			}
			sub, ok, err := s.dir(childAbs, childRel, false)
			if err != nil {
				return "", false, err
			}
			if !ok {
				continue
			}
			entries = append(entries, object.TreeEntry{Name: name, Kind: object.KindTree, Hash: sub})
		case de.Type().IsRegular():
			if s.ignore.IsIgnored(childRel, false) {
				continue
			}
			entry, err := s.file(childAbs, childRel, name)
			if err != nil {
				return "", false, err
			}
			entries = append(entries, entry)
		default:
			// Symlinks, sockets and devices are not versioned.
			s.r.log.WithField("path", childRel).Debug("snapshot: skipping non-regular file")
		}
	}

	if len(entries) == 0 && !root {
		return "", false, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	sw, err := s.r.Store.StageObject(&object.Tree{Entries: entries})
	if err != nil {
		return "", false, fmt.Errorf("snapshot: tree %q: %w", displayPath(rel), err)
	}
	s.add(sw)
	s.stats.Trees++
	return sw.ID, true, nil
}

func (s *snapshotter) file(abs, rel, name string) (object.TreeEntry, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return object.TreeEntry{}, fmt.Errorf("snapshot: stat %q: %w: %w", rel, object.ErrStorage, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return object.TreeEntry{}, fmt.Errorf("snapshot: read %q: %w: %w", rel, object.ErrStorage, err)
	}
	sw, err := s.r.Store.StageObject(&object.Blob{Data: data})
	if err != nil {
		return object.TreeEntry{}, fmt.Errorf("snapshot: blob %q: %w", rel, err)
	}
	s.add(sw)
	s.stats.Files++

	exec := executableFromMode(info.Mode())
	s.files[rel] = TreeFileEntry{Path: rel, BlobHash: sw.ID, Executable: exec}
	return object.TreeEntry{Name: name, Kind: object.KindBlob, Executable: exec, Hash: sw.ID}, nil
}

func (s *snapshotter) add(sw object.StagedWrite) {
	if s.pending[sw.ID] {
		return
	}
	s.pending[sw.ID] = true
	s.staged = append(s.staged, sw)
}

// flush persists staged objects children first, so a partially written
// snapshot never leaves a tree pointing at a missing blob.
func (s *snapshotter) flush() error {
	for _, sw := range s.staged {
		if sw.ExistsAlready {
			s.stats.Reused++
			continue
		}
		if _, err := s.r.Store.CommitStagedObject(sw); err != nil {
			return fmt.Errorf("snapshot: persist %s: %w", sw.ID.Short(), err)
		}
		s.stats.Written++
	}
	return nil
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}

func isUnborn(err error) bool {
	return errors.Is(err, ErrUnbornBranch)
}
