package object

// Hash is the lowercase hex-encoded digest identifying an object.
type Hash string

func (h Hash) String() string { return string(h) }

// Short returns the first 8 characters of h, for display.
func (h Hash) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// ObjectType identifies the kind of object stored. It is written verbatim
// as the first field of the object envelope.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

func (t ObjectType) valid() bool {
	switch t {
	case TypeBlob, TypeTree, TypeCommit:
		return true
	}
	return false
}

// Object is implemented by *Blob, *Tree and *Commit.
type Object interface {
	Type() ObjectType
}

// EntryKind says what a tree entry points at.
type EntryKind string

const (
	KindBlob EntryKind = "blob"
	KindTree EntryKind = "tree"
)

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

func (*Blob) Type() ObjectType { return TypeBlob }

// TreeEntry is one named child of a tree.
type TreeEntry struct {
	Name       string
	Kind       EntryKind
	Executable bool // only meaningful for blobs
	Hash       Hash
}

// Mode returns the Git-style mode string used in the serialized tree.
func (e TreeEntry) Mode() string {
	switch {
	case e.Kind == KindTree:
		return TreeModeDir
	case e.Executable:
		return TreeModeExecutable
	default:
		return TreeModeFile
	}
}

// Tree holds an ordered list of entries. The order is serialized as given
// and therefore part of the tree's identity.
type Tree struct {
	Entries []TreeEntry
}

func (*Tree) Type() ObjectType { return TypeTree }

// Lookup returns the entry named name.
func (t *Tree) Lookup(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}

// Commit points to a tree and records its ordered parents.
type Commit struct {
	TreeHash  Hash
	Parents   []Hash // 0 = root, 1 = normal, >=2 = merge
	Author    string
	Timestamp int64
	Signature string
	Message   string
}

func (*Commit) Type() ObjectType { return TypeCommit }
