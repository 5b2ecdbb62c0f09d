// Package stash keeps a list of work tree snapshots that are recorded as
// commits but never reachable from a branch.
package stash

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/renameio"
	"github.com/odvcencio/pgit/pkg/object"
	"github.com/odvcencio/pgit/pkg/repo"
	"github.com/sirupsen/logrus"
)

// Entry is one stashed snapshot.
type Entry struct {
	CommitID  object.Hash `cbor:"c"`
	Message   string      `cbor:"m"`
	Timestamp int64       `cbor:"t"`
}

var encMode, _ = cbor.EncOptions{
	Sort:        cbor.SortCanonical,
	IndefLength: cbor.IndefLengthForbidden,
}.EncMode()

var decMode, _ = cbor.DecOptions{
	MaxArrayElements: 100000,
	MaxMapPairs:      16,
	MaxNestedLevels:  4,
	IndefLength:      cbor.IndefLengthForbidden,
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
}.DecMode()

// Stash manages .pgit/stash for one repository. It is not safe for
// concurrent mutation; callers serialize Create and Drop.
type Stash struct {
	r    *repo.Repo
	path string
	log  logrus.FieldLogger
}

// Open returns the stash of r. The list file is created on first Create.
func Open(r *repo.Repo) *Stash {
	return &Stash{
		r:    r,
		path: filepath.Join(r.PgitDir, "stash"),
		log:  r.Logger().WithField("component", "stash"),
	}
}

// Create records tree as a stash commit whose parent is the commit HEAD
// resolves to (none on an unborn branch) and appends it to the list. No
// ref is moved.
func (s *Stash) Create(tree object.Hash, author, message string) (Entry, error) {
	if _, err := s.r.Store.ReadTree(tree); err != nil {
		return Entry{}, fmt.Errorf("stash: tree %s: %w", tree, err)
	}

	var parents []object.Hash
	head, err := s.r.ResolveHead()
	switch {
	case err == nil:
		parents = append(parents, head)
	case errors.Is(err, repo.ErrUnbornBranch):
	default:
		return Entry{}, fmt.Errorf("stash: resolve HEAD: %w", err)
	}

	if message == "" {
		message = s.defaultMessage(head)
	}
	ts := s.r.Now().Unix()
	h, err := s.r.Store.WriteCommit(&object.Commit{
		TreeHash:  tree,
		Parents:   parents,
		Author:    s.r.ResolveAuthor(author),
		Timestamp: ts,
		Message:   message,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("stash: write commit: %w", err)
	}

	stored, err := s.load()
	if err != nil {
		return Entry{}, err
	}
	e := Entry{CommitID: h, Message: message, Timestamp: ts}
	if err := s.store(append(stored, e)); err != nil {
		return Entry{}, err
	}
	s.log.WithField("commit", h.Short()).Debug("stash created")
	return e, nil
}

// Save snapshots the work tree and stashes it.
func (s *Stash) Save(author, message string) (Entry, error) {
	tree, _, err := s.r.SnapshotTree()
	if err != nil {
		return Entry{}, fmt.Errorf("stash: %w", err)
	}
	return s.Create(tree, author, message)
}

// List returns the entries newest first. Entries with equal timestamps are
// ordered most recently created first. An empty stash yields an empty
// slice.
func (s *Stash) List() ([]Entry, error) {
	stored, err := s.load()
	if err != nil {
		return nil, err
	}
	order := listOrder(stored)
	out := make([]Entry, len(order))
	for i, idx := range order {
		out[i] = stored[idx]
	}
	return out, nil
}

// Get returns the entry at index in List order along with its commit.
func (s *Stash) Get(index int) (Entry, *object.Commit, error) {
	stored, err := s.load()
	if err != nil {
		return Entry{}, nil, err
	}
	order := listOrder(stored)
	if index < 0 || index >= len(order) {
		return Entry{}, nil, fmt.Errorf("stash: index %d out of range [0,%d): %w", index, len(order), object.ErrInvalidArgument)
	}
	e := stored[order[index]]
	c, err := s.r.Store.ReadCommit(e.CommitID)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("stash: entry %d: %w", index, err)
	}
	return e, c, nil
}

// Drop removes the entry at index in List order. The stash commit itself
// stays in the object store.
func (s *Stash) Drop(index int) (Entry, error) {
	stored, err := s.load()
	if err != nil {
		return Entry{}, err
	}
	order := listOrder(stored)
	if index < 0 || index >= len(order) {
		return Entry{}, fmt.Errorf("stash: index %d out of range [0,%d): %w", index, len(order), object.ErrInvalidArgument)
	}
	pos := order[index]
	dropped := stored[pos]
	rest := make([]Entry, 0, len(stored)-1)
	rest = append(rest, stored[:pos]...)
	rest = append(rest, stored[pos+1:]...)
	if err := s.store(rest); err != nil {
		return Entry{}, err
	}
	s.log.WithField("commit", dropped.CommitID.Short()).Debug("stash dropped")
	return dropped, nil
}

func (s *Stash) defaultMessage(head object.Hash) string {
	branch, _ := s.r.CurrentBranch()
	if branch == "" {
		branch = "(no branch)"
	}
	if head == "" {
		return "WIP on " + branch
	}
	return fmt.Sprintf("WIP on %s: %s", branch, head.Short())
}

// listOrder returns indexes into stored, newest timestamp first, later
// appends first among equal timestamps.
func listOrder(stored []Entry) []int {
	order := make([]int, len(stored))
	for i := range order {
		order[i] = len(stored) - 1 - i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return stored[order[a]].Timestamp > stored[order[b]].Timestamp
	})
	return order
}

// load returns entries in append order.
func (s *Stash) load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("stash: read: %w: %w", object.ErrStorage, err)
	}
	var entries []Entry
	if err := decMode.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("stash: decode: %w: %w", object.ErrCorruptObject, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (s *Stash) store(entries []Entry) error {
	data, err := encMode.Marshal(entries)
	if err != nil {
		return fmt.Errorf("stash: encode: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("stash: write: %w: %w", object.ErrStorage, err)
	}
	return nil
}
