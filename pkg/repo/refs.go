package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/pgit/pkg/object"
)

// ListRefs lists references under .pgit/refs with their raw values.
// Names are returned relative to refs root, e.g. "heads/main". Unborn
// branches map to the empty hash; symbolic refs map to "ref: <target>".
func (r *Repo) ListRefs(prefix string) (map[string]object.Hash, error) {
	root := filepath.Join(r.PgitDir, "refs")
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = filepath.Join(root, filepath.FromSlash(prefix))
	}

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		refs[name] = object.Hash(strings.TrimSpace(string(data)))
		return nil
	})
	if os.IsNotExist(err) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w: %w", object.ErrStorage, err)
	}
	return refs, nil
}

// refRoots returns every commit id held directly by a ref or a detached
// HEAD. Unborn and symbolic refs contribute nothing.
func (r *Repo) refRoots() ([]object.Hash, error) {
	refs, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}
	roots := make([]object.Hash, 0, len(refs)+1)
	for _, h := range refs {
		if object.ValidHash(r.Store.Hasher(), h) {
			roots = append(roots, h)
		}
	}
	head, err := r.HeadRef()
	if err != nil {
		return nil, err
	}
	if h := object.Hash(head); object.ValidHash(r.Store.Hasher(), h) {
		roots = append(roots, h)
	}
	return roots, nil
}
