// Package bundle moves object closures between stores as a single
// zstd-compressed stream.
//
// Stream layout, before compression:
//
//	PGBUNDLE 1\n
//	hash <algorithm>\n
//	root <id>\n            (one per root)
//	\n
//	<id> <len>\n<raw>      (one per object, referenced objects first)
package bundle

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/odvcencio/pgit/pkg/object"
)

const (
	magic = "PGBUNDLE 1"

	// maxObjectSize bounds the declared size of a single object record.
	maxObjectSize = 1 << 30
)

// ErrFormat reports a stream that is not a well-formed bundle.
var ErrFormat = errors.New("malformed bundle")

// Summary describes what an Import did.
type Summary struct {
	Roots    []object.Hash
	Objects  int // records read
	Written  int // objects newly stored
	Existing int // objects the store already had
}

// Export writes the closure of roots (every object reachable through tree
// entries, commit trees and commit parents) to w. Each object appears once,
// after everything it references. Roots missing from the store are an
// error.
func Export(w io.Writer, store *object.Store, roots []object.Hash) (int, error) {
	if len(roots) == 0 {
		return 0, fmt.Errorf("bundle export: %w: no roots", object.ErrInvalidArgument)
	}
	for _, h := range roots {
		if !store.Contains(h) {
			return 0, fmt.Errorf("bundle export: root %s: %w", h, object.ErrNotFound)
		}
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("bundle export: %w", err)
	}
	bw := bufio.NewWriter(enc)

	fmt.Fprintf(bw, "%s\nhash %s\n", magic, store.Hasher().Name())
	for _, h := range roots {
		fmt.Fprintf(bw, "root %s\n", h)
	}
	bw.WriteString("\n")

	n, err := writeClosure(bw, store, roots)
	if err != nil {
		enc.Close()
		return n, fmt.Errorf("bundle export: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return n, fmt.Errorf("bundle export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("bundle export: %w", err)
	}
	return n, nil
}

// writeClosure emits the closure of roots in the store's post-order, so an
// importer always holds an object's references before the object itself.
func writeClosure(w io.Writer, store *object.Store, roots []object.Hash) (int, error) {
	ids, err := store.Closure(roots)
	if err != nil {
		return 0, err
	}
	for i, h := range ids {
		raw, err := store.ReadRaw(h)
		if err != nil {
			return i, err
		}
		if _, err := fmt.Fprintf(w, "%s %d\n", h, len(raw)); err != nil {
			return i, err
		}
		if _, err := w.Write(raw); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}

// Import reads a bundle from r into store. Every record is decoded and
// re-hashed; a record whose content does not match its declared id is
// ErrCorruptObject and stops the import. Objects written before the failure
// stay in the store, which is harmless since each is valid on its own.
func Import(r io.Reader, store *object.Store) (Summary, error) {
	var sum Summary

	dec, err := zstd.NewReader(r)
	if err != nil {
		return sum, fmt.Errorf("bundle import: %w", err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	if err := readHeader(br, store, &sum); err != nil {
		return sum, fmt.Errorf("bundle import: %w", err)
	}

	for {
		line, err := br.ReadString('\n')
		if err == io.EOF && line == "" {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("bundle import: %w: truncated record header", ErrFormat)
		}
		id, size, err := parseRecordHeader(store.Hasher(), strings.TrimSuffix(line, "\n"))
		if err != nil {
			return sum, fmt.Errorf("bundle import: %w", err)
		}

		// The buffer grows with the bytes that actually arrive, not with the
		// size the record header claims.
		var payload bytes.Buffer
		if _, err := io.CopyN(&payload, br, int64(size)); err != nil {
			return sum, fmt.Errorf("bundle import: object %s: %w: truncated payload", id, ErrFormat)
		}
		raw := payload.Bytes()
		sum.Objects++

		existed := store.Contains(id)
		got, err := store.WriteRaw(raw)
		if err != nil {
			return sum, fmt.Errorf("bundle import: object %s: %w", id, err)
		}
		if got != id {
			return sum, fmt.Errorf("bundle import: object %s hashes to %s: %w", id, got, object.ErrCorruptObject)
		}
		if existed {
			sum.Existing++
		} else {
			sum.Written++
		}
	}

	for _, root := range sum.Roots {
		if !store.Contains(root) {
			return sum, fmt.Errorf("bundle import: root %s: %w", root, object.ErrNotFound)
		}
	}
	return sum, nil
}

func readHeader(br *bufio.Reader, store *object.Store, sum *Summary) error {
	line, err := br.ReadString('\n')
	if err != nil || strings.TrimSuffix(line, "\n") != magic {
		return fmt.Errorf("%w: bad magic", ErrFormat)
	}
	line, err = br.ReadString('\n')
	if err != nil {
		return fmt.Errorf("%w: missing hash line", ErrFormat)
	}
	algo, ok := strings.CutPrefix(strings.TrimSuffix(line, "\n"), "hash ")
	if !ok {
		return fmt.Errorf("%w: missing hash line", ErrFormat)
	}
	if algo != store.Hasher().Name() {
		return fmt.Errorf("%w: bundle uses %s, store uses %s", object.ErrInvalidArgument, algo, store.Hasher().Name())
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return fmt.Errorf("%w: unterminated header", ErrFormat)
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			break
		}
		root, ok := strings.CutPrefix(line, "root ")
		if !ok || !object.ValidHash(store.Hasher(), object.Hash(root)) {
			return fmt.Errorf("%w: bad header line %q", ErrFormat, line)
		}
		sum.Roots = append(sum.Roots, object.Hash(root))
	}
	if len(sum.Roots) == 0 {
		return fmt.Errorf("%w: no roots", ErrFormat)
	}
	return nil
}

func parseRecordHeader(h object.Hasher, line string) (object.Hash, int, error) {
	idStr, sizeStr, ok := strings.Cut(line, " ")
	if !ok {
		return "", 0, fmt.Errorf("%w: bad record header %q", ErrFormat, line)
	}
	id := object.Hash(idStr)
	if !object.ValidHash(h, id) {
		return "", 0, fmt.Errorf("%w: bad object id %q", ErrFormat, idStr)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 0 || size > maxObjectSize {
		return "", 0, fmt.Errorf("%w: bad object size %q", ErrFormat, sizeStr)
	}
	return id, size, nil
}
