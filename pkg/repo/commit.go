package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/pgit/pkg/object"
)

// ErrNothingToCommit is returned by Commit when the work tree snapshot
// matches the tree of the commit HEAD resolves to.
var ErrNothingToCommit = errors.New("nothing to commit")

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in Commit.Signature.
type CommitSigner func(payload []byte) (string, error)

// Commit snapshots the work tree and records it on the current branch.
func (r *Repo) Commit(message, author string) (object.Hash, error) {
	return r.CommitWithSigner(message, author, nil)
}

// CommitWithSigner snapshots the work tree and commits it, signing the
// commit when signer is provided.
func (r *Repo) CommitWithSigner(message, author string, signer CommitSigner) (object.Hash, error) {
	treeHash, _, err := r.SnapshotTree()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if parent, err := r.ResolveHead(); err == nil {
		if pc, err := r.Store.ReadCommit(parent); err == nil && pc.TreeHash == treeHash {
			return "", fmt.Errorf("commit: %w", ErrNothingToCommit)
		}
	}
	return r.CommitTree(treeHash, message, author, signer)
}

// CommitTree records an existing tree as a new commit. The parent is the
// commit HEAD resolves to; an unborn branch yields a root commit. An attached
// HEAD advances its branch, a detached HEAD is moved itself. Both updates
// are compare-and-swap against the parent, so a concurrent commit surfaces
// as ErrRefCASMismatch.
func (r *Repo) CommitTree(treeHash object.Hash, message, author string, signer CommitSigner) (object.Hash, error) {
	if _, err := r.Store.ReadTree(treeHash); err != nil {
		return "", fmt.Errorf("commit: tree %s: %w", treeHash, err)
	}

	var parents []object.Hash
	parentHash, err := r.ResolveHead()
	switch {
	case err == nil:
		parents = append(parents, parentHash)
	case errors.Is(err, ErrUnbornBranch):
		parentHash = ""
	default:
		return "", fmt.Errorf("commit: resolve HEAD: %w", err)
	}

	commitObj := &object.Commit{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    r.ResolveAuthor(author),
		Timestamp: r.now().Unix(),
		Message:   message,
	}
	if signer != nil {
		signature, err := signer(object.CommitSigningPayload(commitObj))
		if err != nil {
			return "", fmt.Errorf("commit: sign commit: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	head, err := r.HeadRef()
	if err != nil {
		return "", fmt.Errorf("commit: read HEAD: %w", err)
	}
	reason := "commit: " + firstLine(message)
	if len(parents) == 0 {
		reason = "commit (initial): " + firstLine(message)
	}

	// head is either a ref path ("refs/heads/main") or a detached hash.
	if strings.HasPrefix(head, "refs/") {
		if err := r.updateRefCAS(head, commitHash, reason, parentHash); err != nil {
			return "", fmt.Errorf("commit: update ref %q: %w", head, err)
		}
	} else {
		if err := r.updateRefCAS("HEAD", commitHash, reason, parentHash); err != nil {
			return "", fmt.Errorf("commit: update detached HEAD: %w", err)
		}
	}

	r.log.WithField("commit", commitHash.Short()).Info(reason)
	return commitHash, nil
}

// ResolveAuthor returns author, or the configured user.name when author is
// blank, or "unknown".
func (r *Repo) ResolveAuthor(author string) string {
	if author = strings.TrimSpace(author); author != "" {
		return author
	}
	if cfg, err := r.ReadConfig(); err == nil && cfg.User.Name != "" {
		return cfg.User.Name
	}
	return "unknown"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
