package object

import "fmt"

// Closure returns every object reachable from roots by following commit
// trees, commit parents and tree entries. Each id appears once and after
// every object it references, so replaying the list into another store in
// order always satisfies StageObject's reference checks. Any unreadable
// object, roots included, is an error.
func (s *Store) Closure(roots []Hash) ([]Hash, error) {
	type frame struct {
		h        Hash
		expanded bool
	}

	roots = uniqueHashes(roots)
	done := make(map[Hash]bool)
	queued := make(map[Hash]bool)
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{h: roots[i]})
	}

	var out []Hash
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if done[top.h] {
			continue
		}
		if top.expanded {
			done[top.h] = true
			out = append(out, top.h)
			continue
		}
		if queued[top.h] {
			continue
		}
		queued[top.h] = true

		obj, err := s.ReadObject(top.h)
		if err != nil {
			return nil, fmt.Errorf("closure %s: %w", top.h, err)
		}
		stack = append(stack, frame{h: top.h, expanded: true})
		refs := References(obj)
		for i := len(refs) - 1; i >= 0; i-- {
			if !done[refs[i]] {
				stack = append(stack, frame{h: refs[i]})
			}
		}
	}
	return out, nil
}

// References lists the ids obj points at: a commit's tree and parents, or
// a tree's entries. Blobs reference nothing.
func References(obj Object) []Hash {
	switch o := obj.(type) {
	case *Commit:
		refs := make([]Hash, 0, 1+len(o.Parents))
		refs = append(refs, o.TreeHash)
		return append(refs, o.Parents...)
	case *Tree:
		refs := make([]Hash, 0, len(o.Entries))
		for _, e := range o.Entries {
			refs = append(refs, e.Hash)
		}
		return refs
	default:
		return nil
	}
}

// uniqueHashes drops empty and repeated ids, keeping first-seen order.
func uniqueHashes(in []Hash) []Hash {
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
