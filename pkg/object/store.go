package object

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
)

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
//
// Writes happen in two phases. StageObject serializes and hashes an object
// without touching the disk; CommitStagedObject persists a staged write.
// Staging is safe to call concurrently. Committed objects are never
// modified.
type Store struct {
	root   string
	hasher Hasher
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHasher selects the digest used for object ids.
func WithHasher(h Hasher) StoreOption {
	return func(s *Store) {
		if h != nil {
			s.hasher = h
		}
	}
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{root: root, hasher: DefaultHasher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hasher returns the digest function this store addresses objects with.
func (s *Store) Hasher() Hasher { return s.hasher }

// StagedWrite is the result of serializing and hashing an object before any
// durable write. It is a value; nothing about it changes after staging.
type StagedWrite struct {
	ID            Hash
	Path          string // final location under objects/
	Payload       []byte // exact bytes to write, envelope included
	ExistsAlready bool   // store state at staging time
	Object        Object
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Contains reports whether the store holds an object with the given hash.
func (s *Store) Contains(h Hash) bool {
	if !ValidHash(s.hasher, h) {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// StageObject serializes obj, hashes the full envelope and derives its
// storage path. Nothing is written. Commit objects must name parents that
// are commits already in the store.
func (s *Store) StageObject(obj Object) (StagedWrite, error) {
	raw, err := EncodeObject(obj)
	if err != nil {
		return StagedWrite{}, fmt.Errorf("stage object: %w", err)
	}
	if err := s.checkReferences(obj); err != nil {
		return StagedWrite{}, fmt.Errorf("stage object: %w", err)
	}
	id := Hash(s.hasher.ToHex(s.hasher.Compute(raw)))
	return StagedWrite{
		ID:            id,
		Path:          s.objectPath(id),
		Payload:       raw,
		ExistsAlready: s.Contains(id),
		Object:        obj,
	}, nil
}

func (s *Store) checkReferences(obj Object) error {
	switch o := obj.(type) {
	case *Tree:
		for _, e := range o.Entries {
			if !ValidHash(s.hasher, e.Hash) {
				return fmt.Errorf("tree entry %q: %w: malformed hash %q", e.Name, ErrInvalidArgument, e.Hash)
			}
		}
	case *Commit:
		if !ValidHash(s.hasher, o.TreeHash) {
			return fmt.Errorf("commit tree %q: %w: malformed hash", o.TreeHash, ErrInvalidArgument)
		}
		for _, p := range o.Parents {
			t, err := s.objectType(p)
			if err != nil {
				return fmt.Errorf("commit parent %s: %w: %w", p, ErrInvalidArgument, err)
			}
			if t != TypeCommit {
				return fmt.Errorf("commit parent %s: %w: is a %s", p, ErrInvalidArgument, t)
			}
		}
	}
	return nil
}

// objectType reads only the envelope header of h.
func (s *Store) objectType(h Hash) (ObjectType, error) {
	if !ValidHash(s.hasher, h) {
		return "", fmt.Errorf("malformed id %q", h)
	}
	f, err := os.Open(s.objectPath(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer f.Close()

	header, err := bufio.NewReaderSize(f, 64).ReadString(0)
	if err != nil {
		return "", fmt.Errorf("%w: unreadable header", ErrCorruptObject)
	}
	typeName, _, _ := strings.Cut(strings.TrimSuffix(header, "\x00"), " ")
	t := ObjectType(typeName)
	if !t.valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrCorruptObject, typeName)
	}
	return t, nil
}

// CommitStagedObject durably writes a staged object and returns its id. It
// is a no-op when the object already existed at staging time. The payload
// is written to a temporary file in the bucket directory, synced, then
// renamed into place, so readers never observe a partial object.
func (s *Store) CommitStagedObject(staged StagedWrite) (Hash, error) {
	if staged.ID == "" || staged.Path == "" || staged.Payload == nil {
		return "", fmt.Errorf("commit staged object: %w: empty staged write", ErrInvalidArgument)
	}
	if staged.ExistsAlready {
		return staged.ID, nil
	}

	dir := filepath.Dir(staged.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write %s mkdir: %w: %w", staged.ID, ErrStorage, err)
	}

	pending, err := renameio.TempFile(dir, staged.Path)
	if err != nil {
		return "", fmt.Errorf("object write %s tmpfile: %w: %w", staged.ID, ErrStorage, err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(staged.Payload); err != nil {
		return "", fmt.Errorf("object write %s: %w: %w", staged.ID, ErrStorage, err)
	}
	if err := pending.Chmod(0o444); err != nil {
		return "", fmt.Errorf("object write %s chmod: %w: %w", staged.ID, ErrStorage, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("object write %s rename: %w: %w", staged.ID, ErrStorage, err)
	}
	return staged.ID, nil
}

// WriteObject stages and commits obj, returning its id and the exact bytes
// that identify it.
func (s *Store) WriteObject(obj Object) (Hash, []byte, error) {
	staged, err := s.StageObject(obj)
	if err != nil {
		return "", nil, err
	}
	h, err := s.CommitStagedObject(staged)
	if err != nil {
		return "", nil, err
	}
	return h, staged.Payload, nil
}

// ReadRaw returns the serialized envelope stored under h.
func (s *Store) ReadRaw(h Hash) ([]byte, error) {
	if !ValidHash(s.hasher, h) {
		return nil, fmt.Errorf("object read %q: %w: malformed id", h, ErrInvalidArgument)
	}
	raw, err := os.ReadFile(s.objectPath(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
		}
		return nil, fmt.Errorf("object read %s: %w: %w", h, ErrStorage, err)
	}
	return raw, nil
}

// ReadObject locates h, parses its envelope and returns the decoded object.
func (s *Store) ReadObject(h Hash) (Object, error) {
	raw, err := s.ReadRaw(h)
	if err != nil {
		return nil, err
	}
	obj, err := DecodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("object read %s: %w", h, err)
	}
	return obj, nil
}

// WriteRaw stores an already serialized envelope after checking that it
// decodes and that its references satisfy the same rules as StageObject.
// The id is recomputed from raw.
func (s *Store) WriteRaw(raw []byte) (Hash, error) {
	obj, err := DecodeObject(raw)
	if err != nil {
		return "", fmt.Errorf("object write raw: %w", err)
	}
	if err := s.checkReferences(obj); err != nil {
		return "", fmt.Errorf("object write raw: %w", err)
	}
	id := Hash(s.hasher.ToHex(s.hasher.Compute(raw)))
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return s.CommitStagedObject(StagedWrite{
		ID:            id,
		Path:          s.objectPath(id),
		Payload:       buf,
		ExistsAlready: s.Contains(id),
		Object:        obj,
	})
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	h, _, err := s.WriteObject(b)
	return h, err
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	obj, err := s.ReadObject(h)
	if err != nil {
		return nil, err
	}
	b, ok := obj.(*Blob)
	if !ok {
		return nil, typeMismatch(h, obj, TypeBlob)
	}
	return b, nil
}

// WriteTree serializes and stores a Tree.
func (s *Store) WriteTree(tr *Tree) (Hash, error) {
	h, _, err := s.WriteObject(tr)
	return h, err
}

// ReadTree reads and deserializes a Tree.
func (s *Store) ReadTree(h Hash) (*Tree, error) {
	obj, err := s.ReadObject(h)
	if err != nil {
		return nil, err
	}
	tr, ok := obj.(*Tree)
	if !ok {
		return nil, typeMismatch(h, obj, TypeTree)
	}
	return tr, nil
}

// WriteCommit serializes and stores a Commit.
func (s *Store) WriteCommit(c *Commit) (Hash, error) {
	h, _, err := s.WriteObject(c)
	return h, err
}

// ReadCommit reads and deserializes a Commit.
func (s *Store) ReadCommit(h Hash) (*Commit, error) {
	obj, err := s.ReadObject(h)
	if err != nil {
		return nil, err
	}
	c, ok := obj.(*Commit)
	if !ok {
		return nil, typeMismatch(h, obj, TypeCommit)
	}
	return c, nil
}

func typeMismatch(h Hash, obj Object, want ObjectType) error {
	return fmt.Errorf("object %s: %w: type mismatch: got %q, want %q", h, ErrCorruptObject, obj.Type(), want)
}
