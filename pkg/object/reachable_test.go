package object

import (
	"errors"
	"os"
	"testing"
)

func TestClosure(t *testing.T) {
	s := tempStore(t)
	blobHash, err := s.WriteBlob(&Blob{Data: []byte("leaf")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	subHash, err := s.WriteTree(&Tree{Entries: []TreeEntry{{Name: "leaf.txt", Kind: KindBlob, Hash: blobHash}}})
	if err != nil {
		t.Fatalf("WriteTree sub: %v", err)
	}
	rootTree, err := s.WriteTree(&Tree{Entries: []TreeEntry{{Name: "dir", Kind: KindTree, Hash: subHash}}})
	if err != nil {
		t.Fatalf("WriteTree root: %v", err)
	}
	c1, err := s.WriteCommit(&Commit{TreeHash: rootTree, Author: "a", Timestamp: 1, Message: "one"})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	c2, err := s.WriteCommit(&Commit{TreeHash: rootTree, Parents: []Hash{c1}, Author: "a", Timestamp: 2, Message: "two"})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	unrelated, err := s.WriteBlob(&Blob{Data: []byte("unrelated")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	ids, err := s.Closure([]Hash{c2, c2, c1})
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("closure size: got %d, want 5 (%v)", len(ids), ids)
	}

	pos := make(map[Hash]int, len(ids))
	for i, h := range ids {
		if _, dup := pos[h]; dup {
			t.Fatalf("%s listed twice", h.Short())
		}
		pos[h] = i
	}
	if _, ok := pos[unrelated]; ok {
		t.Error("unrelated blob should not be in the closure")
	}
	for _, h := range ids {
		obj, err := s.ReadObject(h)
		if err != nil {
			t.Fatalf("ReadObject(%s): %v", h.Short(), err)
		}
		for _, ref := range References(obj) {
			if pos[ref] >= pos[h] {
				t.Errorf("%s listed before its reference %s", h.Short(), ref.Short())
			}
		}
	}
	if ids[len(ids)-1] != c2 {
		t.Errorf("last id = %s, want tip %s", ids[len(ids)-1].Short(), c2.Short())
	}
}

func TestClosureMissingObject(t *testing.T) {
	s := tempStore(t)
	blobHash, err := s.WriteBlob(&Blob{Data: []byte("gone soon")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	treeHash, err := s.WriteTree(&Tree{Entries: []TreeEntry{{Name: "f", Kind: KindBlob, Hash: blobHash}}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if err := os.Remove(s.objectPath(blobHash)); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, err := s.Closure([]Hash{treeHash}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing entry: got %v, want ErrNotFound", err)
	}
	if _, err := s.Closure([]Hash{blobHash}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing root: got %v, want ErrNotFound", err)
	}
}
