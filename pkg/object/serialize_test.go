package object

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

var (
	hashA = HashBytes([]byte("a"))
	hashB = HashBytes([]byte("b"))
	hashC = HashBytes([]byte("c"))
)

func TestBlobRoundTrip(t *testing.T) {
	orig := &Blob{Data: []byte("hello world\nline two\x00binary")}
	raw, err := EncodeObject(orig)
	if err != nil {
		t.Fatalf("EncodeObject: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("blob 27\x00")) {
		t.Errorf("envelope header: got %q", raw[:8])
	}
	obj, err := DecodeObject(raw)
	if err != nil {
		t.Fatalf("DecodeObject: %v", err)
	}
	got, ok := obj.(*Blob)
	if !ok {
		t.Fatalf("decoded %T, want *Blob", obj)
	}
	if !bytes.Equal(got.Data, orig.Data) {
		t.Errorf("Blob round-trip mismatch: got %q, want %q", got.Data, orig.Data)
	}
}

func TestTreePreservesEntryOrder(t *testing.T) {
	orig := &Tree{Entries: []TreeEntry{
		{Name: "zeta.txt", Kind: KindBlob, Hash: hashA},
		{Name: "alpha", Kind: KindTree, Hash: hashB},
		{Name: "run me.sh", Kind: KindBlob, Executable: true, Hash: hashC},
	}}
	raw, err := EncodeObject(orig)
	if err != nil {
		t.Fatalf("EncodeObject: %v", err)
	}
	obj, err := DecodeObject(raw)
	if err != nil {
		t.Fatalf("DecodeObject: %v", err)
	}
	if !reflect.DeepEqual(obj, orig) {
		t.Errorf("tree round-trip mismatch:\n got %+v\nwant %+v", obj, orig)
	}

	reordered := &Tree{Entries: []TreeEntry{orig.Entries[1], orig.Entries[0], orig.Entries[2]}}
	raw2, err := EncodeObject(reordered)
	if err != nil {
		t.Fatalf("EncodeObject: %v", err)
	}
	if bytes.Equal(raw, raw2) {
		t.Error("entry order should change the serialized tree")
	}
}

func TestTreeValidation(t *testing.T) {
	tests := []struct {
		name  string
		entry []TreeEntry
	}{
		{"empty name", []TreeEntry{{Name: "", Kind: KindBlob, Hash: hashA}}},
		{"dot", []TreeEntry{{Name: ".", Kind: KindBlob, Hash: hashA}}},
		{"slash", []TreeEntry{{Name: "a/b", Kind: KindBlob, Hash: hashA}}},
		{"newline", []TreeEntry{{Name: "a\nb", Kind: KindBlob, Hash: hashA}}},
		{"bad kind", []TreeEntry{{Name: "a", Kind: "link", Hash: hashA}}},
		{"empty hash", []TreeEntry{{Name: "a", Kind: KindBlob}}},
		{"duplicate", []TreeEntry{
			{Name: "a", Kind: KindBlob, Hash: hashA},
			{Name: "a", Kind: KindTree, Hash: hashB},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeObject(&Tree{Entries: tt.entry})
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("got err %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestCommitRoundTrip(t *testing.T) {
	orig := &Commit{
		TreeHash:  hashA,
		Parents:   []Hash{hashC, hashB},
		Author:    "Ada Lovelace <ada@example.com>",
		Timestamp: 1700000000,
		Message:   "merge feature\n\nwith a body\n",
	}
	raw, err := EncodeObject(orig)
	if err != nil {
		t.Fatalf("EncodeObject: %v", err)
	}
	obj, err := DecodeObject(raw)
	if err != nil {
		t.Fatalf("DecodeObject: %v", err)
	}
	if !reflect.DeepEqual(obj, orig) {
		t.Errorf("commit round-trip mismatch:\n got %+v\nwant %+v", obj, orig)
	}
}

func TestCommitSignatureKeptVerbatim(t *testing.T) {
	for _, sig := range []string{" ", "sshsig ", " padded sig"} {
		orig := &Commit{TreeHash: hashA, Author: "a", Timestamp: 1, Message: "m", Signature: sig}
		raw, err := EncodeObject(orig)
		if err != nil {
			t.Fatalf("EncodeObject(%q): %v", sig, err)
		}
		obj, err := DecodeObject(raw)
		if err != nil {
			t.Fatalf("DecodeObject(%q): %v", sig, err)
		}
		if got := obj.(*Commit).Signature; got != sig {
			t.Errorf("signature round trip: got %q, want %q", got, sig)
		}
	}
}

func TestCommitSignatureExcludedFromSigningPayload(t *testing.T) {
	c := &Commit{TreeHash: hashA, Author: "a", Timestamp: 1, Message: "m", Signature: "sig"}
	payload := CommitSigningPayload(c)
	if strings.Contains(string(payload), "signature") {
		t.Errorf("signing payload contains signature: %q", payload)
	}
	if c.Signature != "sig" {
		t.Error("CommitSigningPayload mutated the commit")
	}
}

func TestCommitValidation(t *testing.T) {
	tests := []struct {
		name string
		c    *Commit
	}{
		{"no tree", &Commit{Author: "a"}},
		{"newline author", &Commit{TreeHash: hashA, Author: "a\nparent x"}},
		{"empty parent", &Commit{TreeHash: hashA, Parents: []Hash{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeObject(tt.c); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("got err %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestEncodeNilObject(t *testing.T) {
	var b *Blob
	if _, err := EncodeObject(b); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("typed nil: got %v, want ErrInvalidArgument", err)
	}
	if _, err := EncodeObject(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil: got %v, want ErrInvalidArgument", err)
	}
}

func TestDecodeRejectsMalformedEnvelope(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no nul", "blob 3abc"},
		{"no space", "blob3\x00abc"},
		{"unknown type", "tag 3\x00abc"},
		{"length too long", "blob 4\x00abc"},
		{"length too short", "blob 2\x00abc"},
		{"negative length", "blob -3\x00abc"},
		{"padded length", "blob 03\x00abc"},
		{"bad tree line", "tree 6\x00bogus\n"},
		{"bad commit", "commit 5\x00hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeObject([]byte(tt.raw))
			if !errors.Is(err, ErrCorruptObject) {
				t.Errorf("got err %v, want ErrCorruptObject", err)
			}
		})
	}
}

// An empty blob and an empty tree share an empty payload, but the type in
// the envelope keeps their ids apart.
func TestEmptyBlobAndEmptyTreeDiffer(t *testing.T) {
	s := NewStore(t.TempDir())
	blob, err := s.StageObject(&Blob{})
	if err != nil {
		t.Fatalf("stage blob: %v", err)
	}
	tree, err := s.StageObject(&Tree{})
	if err != nil {
		t.Fatalf("stage tree: %v", err)
	}
	if blob.ID == tree.ID {
		t.Errorf("empty blob and empty tree share id %s", blob.ID)
	}
	if string(blob.Payload) != "blob 0\x00" || string(tree.Payload) != "tree 0\x00" {
		t.Errorf("unexpected payloads %q / %q", blob.Payload, tree.Payload)
	}
}
