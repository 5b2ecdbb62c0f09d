package repo

import (
	"errors"
	"fmt"

	"github.com/odvcencio/pgit/pkg/object"
	"github.com/sirupsen/logrus"
)

// LogEntry pairs a commit with its id.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.Commit
}

// Log walks the commit graph breadth-first from start, following every
// parent, and returns at most max commits in visit order. max <= 0 means no
// limit. Each commit is visited once even when reachable along several
// paths. Commits that are missing or unreadable are skipped and do not count
// toward max; the walk continues with whatever else is queued.
func (r *Repo) Log(start object.Hash, max int) []LogEntry {
	var out []LogEntry
	if start == "" {
		return out
	}

	visited := map[object.Hash]bool{start: true}
	queue := []object.Hash{start}
	for len(queue) > 0 && (max <= 0 || len(out) < max) {
		h := queue[0]
		queue = queue[1:]

		c, err := r.Store.ReadCommit(h)
		if err != nil {
			r.log.WithFields(logrus.Fields{"commit": h.Short(), "error": err}).Debug("log: skipping unreadable commit")
			continue
		}
		out = append(out, LogEntry{Hash: h, Commit: c})

		for _, p := range c.Parents {
			if visited[p] {
				continue
			}
			visited[p] = true
			queue = append(queue, p)
		}
	}
	return out
}

// History walks from the commit HEAD resolves to. An unborn branch has no
// history and yields an empty result.
func (r *Repo) History(max int) ([]LogEntry, error) {
	head, err := r.ResolveHead()
	if err != nil {
		if errors.Is(err, ErrUnbornBranch) {
			return []LogEntry{}, nil
		}
		return nil, fmt.Errorf("history: %w", err)
	}
	return r.Log(head, max), nil
}
