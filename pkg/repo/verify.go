package repo

import (
	"errors"
	"fmt"

	"github.com/odvcencio/pgit/pkg/object"
	"github.com/sirupsen/logrus"
)

// VerifyReport summarizes an integrity check.
type VerifyReport struct {
	Checked int           // objects read and re-hashed
	Missing []object.Hash // referenced but absent
	Corrupt []object.Hash // content does not hash to its id, or does not decode
}

// OK reports whether no problems were found.
func (v *VerifyReport) OK() bool {
	return len(v.Missing) == 0 && len(v.Corrupt) == 0
}

// Verify reads every object reachable from the refs, HEAD and extraRoots,
// recomputes its id and checks it decodes. Problems are collected in the
// report rather than returned; the error is reserved for storage failures.
func (r *Repo) Verify(extraRoots ...object.Hash) (*VerifyReport, error) {
	roots, err := r.refRoots()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	roots = append(roots, extraRoots...)

	hasher := r.Store.Hasher()
	report := &VerifyReport{}
	seen := make(map[object.Hash]bool)
	stack := make([]object.Hash, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[h] {
			continue
		}
		seen[h] = true

		raw, err := r.Store.ReadRaw(h)
		if err != nil {
			switch {
			case errors.Is(err, object.ErrNotFound), errors.Is(err, object.ErrInvalidArgument):
				report.Missing = append(report.Missing, h)
				continue
			default:
				return nil, fmt.Errorf("verify: %w", err)
			}
		}
		report.Checked++

		if got := object.Hash(hasher.ToHex(hasher.Compute(raw))); got != h {
			r.log.WithFields(logrus.Fields{"object": h.Short(), "actual": got.Short()}).Debug("verify: hash mismatch")
			report.Corrupt = append(report.Corrupt, h)
			continue
		}
		obj, err := object.DecodeObject(raw)
		if err != nil {
			report.Corrupt = append(report.Corrupt, h)
			continue
		}
		refs := object.References(obj)
		for i := len(refs) - 1; i >= 0; i-- {
			if !seen[refs[i]] {
				stack = append(stack, refs[i])
			}
		}
	}
	return report, nil
}
