package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// envelope returns the full serialized form "type len\0payload". The object
// id is the digest of exactly these bytes.
func envelope(objType ObjectType, payload []byte) []byte {
	header := objType + ObjectType(" "+strconv.Itoa(len(payload))+"\x00")
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// EncodeObject validates obj and returns its serialized envelope.
func EncodeObject(obj Object) ([]byte, error) {
	objType, payload, err := marshalPayload(obj)
	if err != nil {
		return nil, err
	}
	return envelope(objType, payload), nil
}

func marshalPayload(obj Object) (ObjectType, []byte, error) {
	switch o := obj.(type) {
	case *Blob:
		if o == nil {
			break
		}
		return TypeBlob, MarshalBlob(o), nil
	case *Tree:
		if o == nil {
			break
		}
		if err := validateTree(o); err != nil {
			return "", nil, err
		}
		return TypeTree, MarshalTree(o), nil
	case *Commit:
		if o == nil {
			break
		}
		if err := validateCommit(o); err != nil {
			return "", nil, err
		}
		return TypeCommit, MarshalCommit(o), nil
	}
	return "", nil, fmt.Errorf("encode object %T: %w", obj, ErrInvalidArgument)
}

// DecodeObject parses a serialized envelope into the matching variant.
// Malformed headers, unknown types, length mismatches and malformed
// payloads are all reported as ErrCorruptObject.
func DecodeObject(raw []byte) (Object, error) {
	objType, payload, err := splitEnvelope(raw)
	if err != nil {
		return nil, err
	}
	var obj Object
	switch objType {
	case TypeBlob:
		obj = UnmarshalBlob(payload)
	case TypeTree:
		obj, err = UnmarshalTree(payload)
	case TypeCommit:
		obj, err = UnmarshalCommit(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptObject, err)
	}
	return obj, nil
}

func splitEnvelope(raw []byte) (ObjectType, []byte, error) {
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("%w: invalid format (no NUL)", ErrCorruptObject)
	}
	header := string(raw[:nulIdx])
	payload := raw[nulIdx+1:]

	typeName, lenField, ok := strings.Cut(header, " ")
	if !ok {
		return "", nil, fmt.Errorf("%w: invalid header %q", ErrCorruptObject, header)
	}
	objType := ObjectType(typeName)
	if !objType.valid() {
		return "", nil, fmt.Errorf("%w: unknown type %q", ErrCorruptObject, typeName)
	}
	length, err := strconv.Atoi(lenField)
	if err != nil || length < 0 || strconv.Itoa(length) != lenField {
		return "", nil, fmt.Errorf("%w: invalid length %q", ErrCorruptObject, lenField)
	}
	if len(payload) != length {
		return "", nil, fmt.Errorf("%w: length mismatch (header=%d, actual=%d)", ErrCorruptObject, length, len(payload))
	}
	return objType, payload, nil
}

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) *Blob {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// MarshalTree serializes a Tree. Entries are written in the order given,
// one line each:
//
//	mode hash name
//
// where mode is a Git-compatible mode string (40000, 100644, 100755).
func MarshalTree(tr *Tree) []byte {
	var buf bytes.Buffer
	for _, e := range tr.Entries {
		fmt.Fprintf(&buf, "%s %s %s\n", e.Mode(), string(e.Hash), e.Name)
	}
	return buf.Bytes()
}

// UnmarshalTree parses a Tree from its serialized form, keeping entry order.
func UnmarshalTree(data []byte) (*Tree, error) {
	tr := &Tree{}
	if len(data) == 0 {
		return tr, nil
	}
	if data[len(data)-1] != '\n' {
		return nil, fmt.Errorf("unmarshal tree: missing trailing newline")
	}
	seen := make(map[string]struct{})
	for _, line := range strings.Split(string(data[:len(data)-1]), "\n") {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q", line)
		}
		entry := TreeEntry{Name: parts[2], Hash: Hash(parts[1])}
		switch parts[0] {
		case TreeModeDir:
			entry.Kind = KindTree
		case TreeModeFile:
			entry.Kind = KindBlob
		case TreeModeExecutable:
			entry.Kind = KindBlob
			entry.Executable = true
		default:
			return nil, fmt.Errorf("unmarshal tree: unknown mode %q", parts[0])
		}
		if err := validateEntryName(entry.Name); err != nil {
			return nil, fmt.Errorf("unmarshal tree: %w", err)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("unmarshal tree: duplicate entry %q", entry.Name)
		}
		seen[entry.Name] = struct{}{}
		tr.Entries = append(tr.Entries, entry)
	}
	return tr, nil
}

func validateTree(tr *Tree) error {
	seen := make(map[string]struct{}, len(tr.Entries))
	for _, e := range tr.Entries {
		if err := validateEntryName(e.Name); err != nil {
			return fmt.Errorf("tree entry: %w: %w", ErrInvalidArgument, err)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("tree entry %q: %w: duplicate name", e.Name, ErrInvalidArgument)
		}
		seen[e.Name] = struct{}{}
		if e.Kind != KindBlob && e.Kind != KindTree {
			return fmt.Errorf("tree entry %q: %w: unknown kind %q", e.Name, ErrInvalidArgument, e.Kind)
		}
		if e.Hash == "" || strings.ContainsAny(string(e.Hash), " \n") {
			return fmt.Errorf("tree entry %q: %w: bad hash %q", e.Name, ErrInvalidArgument, e.Hash)
		}
	}
	return nil
}

func validateEntryName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid name %q", name)
	case strings.ContainsAny(name, "/\n\x00"):
		return fmt.Errorf("name %q contains a reserved character", name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Commit
// ---------------------------------------------------------------------------

// MarshalCommit serializes a Commit:
//
//	tree H
//	parent H     (zero or more, in order)
//	author A
//	timestamp T
//	signature S  (optional)
//
//	message
func MarshalCommit(c *Commit) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.TreeHash))
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", string(p))
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "timestamp %d\n", c.Timestamp)
	if c.Signature != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a Commit from its serialized form.
func UnmarshalCommit(data []byte) (*Commit, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: missing header/message separator")
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &Commit{Message: message}
	var sawTree, sawTimestamp bool
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
			sawTree = true
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			c.Author = val
		case "timestamp":
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: bad timestamp %q: %w", val, err)
			}
			c.Timestamp = ts
			sawTimestamp = true
		case "signature":
			c.Signature = val
		default:
			return nil, fmt.Errorf("unmarshal commit: unknown header key %q", key)
		}
	}
	if !sawTree || !sawTimestamp {
		return nil, fmt.Errorf("unmarshal commit: missing tree or timestamp")
	}
	return c, nil
}

func validateCommit(c *Commit) error {
	if c.TreeHash == "" {
		return fmt.Errorf("commit: %w: tree hash is required", ErrInvalidArgument)
	}
	for field, val := range map[string]string{
		"tree":      string(c.TreeHash),
		"author":    c.Author,
		"signature": c.Signature,
	} {
		if strings.ContainsAny(val, "\n\x00") {
			return fmt.Errorf("commit %s: %w: contains a newline", field, ErrInvalidArgument)
		}
	}
	for _, p := range c.Parents {
		if p == "" || strings.ContainsAny(string(p), " \n") {
			return fmt.Errorf("commit parent %q: %w", p, ErrInvalidArgument)
		}
	}
	return nil
}
