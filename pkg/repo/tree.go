package repo

import (
	"fmt"
	"path"

	"github.com/odvcencio/pgit/pkg/object"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path       string
	BlobHash   object.Hash
	Executable bool
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full paths (using forward slashes) in tree order.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = path.Join(prefix, entry.Name)
		}

		if entry.Kind == object.KindTree {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}
		result = append(result, TreeFileEntry{
			Path:       fullPath,
			BlobHash:   entry.Hash,
			Executable: entry.Executable,
		})
	}
	return result, nil
}

func flattenToMap(entries []TreeFileEntry) map[string]TreeFileEntry {
	out := make(map[string]TreeFileEntry, len(entries))
	for _, e := range entries {
		out[e.Path] = e
	}
	return out
}

// headTreeFiles returns the files of the commit HEAD resolves to. An unborn
// HEAD yields an empty map.
func (r *Repo) headTreeFiles() (map[string]TreeFileEntry, error) {
	headHash, err := r.ResolveHead()
	if err != nil {
		if isUnborn(err) {
			return map[string]TreeFileEntry{}, nil
		}
		return nil, err
	}
	c, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	files, err := r.FlattenTree(c.TreeHash)
	if err != nil {
		return nil, err
	}
	return flattenToMap(files), nil
}
