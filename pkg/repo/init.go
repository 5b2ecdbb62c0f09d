package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/odvcencio/pgit/pkg/object"
	"github.com/sirupsen/logrus"
)

var (
	ErrRefCASMismatch                  = errors.New("ref compare-and-swap mismatch")
	ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")

	// ErrDanglingRef means a symbolic ref names a ref that does not exist,
	// or a ref holds something that is neither a ref name nor an id.
	ErrDanglingRef = errors.New("dangling ref")
	// ErrUnbornBranch means the branch exists but has no commit yet. This is
	// the normal state of a fresh repository.
	ErrUnbornBranch = errors.New("unborn branch")
)

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second

	symbolicPrefix = "ref: "
	headsPrefix    = "refs/heads/"
)

// Init creates a new repository at path. It creates the .pgit/ directory
// structure: HEAD, config.toml, objects/, refs/heads/ and logs/. The default
// branch is created unborn and HEAD is attached to it. Returns an error if a
// .pgit/ directory already exists.
func Init(path string, opts ...Option) (*Repo, error) {
	o := buildOptions(opts)
	pgitDir := filepath.Join(path, ".pgit")

	if _, err := os.Stat(pgitDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", pgitDir)
	}
	hasher, err := object.HasherByName(o.hashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := validateBranchName(o.defaultBranch); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	dirs := []string{
		filepath.Join(pgitDir, "objects"),
		filepath.Join(pgitDir, "refs", "heads"),
		filepath.Join(pgitDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w: %w", d, object.ErrStorage, err)
		}
	}

	cfg := &Config{Core: CoreConfig{Hash: hasher.Name(), DefaultBranch: o.defaultBranch}}
	if err := writeConfigFile(configPath(pgitDir), cfg); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	branchRef := headsPrefix + o.defaultBranch
	if err := os.WriteFile(filepath.Join(pgitDir, filepath.FromSlash(branchRef)), nil, 0o644); err != nil {
		return nil, fmt.Errorf("init: create %s: %w: %w", branchRef, object.ErrStorage, err)
	}
	headPath := filepath.Join(pgitDir, "HEAD")
	if err := os.WriteFile(headPath, []byte(symbolicPrefix+branchRef+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w: %w", object.ErrStorage, err)
	}

	return newRepo(path, pgitDir, hasher, o), nil
}

// Open searches upward from path for a .pgit/ directory and opens the
// repository. Returns an error if no .pgit/ directory is found.
func Open(path string, opts ...Option) (*Repo, error) {
	o := buildOptions(opts)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		pgitDir := filepath.Join(cur, ".pgit")
		info, err := os.Stat(pgitDir)
		if err == nil && info.IsDir() {
			cfg, err := readConfigFile(configPath(pgitDir))
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			hasher, err := object.HasherByName(cfg.Core.Hash)
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			return newRepo(cur, pgitDir, hasher, o), nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: not a pgit repository (or any parent up to /): %w", object.ErrNotFound)
		}
		cur = parent
	}
}

func newRepo(root, pgitDir string, hasher object.Hasher, o options) *Repo {
	return &Repo{
		RootDir: root,
		PgitDir: pgitDir,
		Store:   object.NewStore(pgitDir, object.WithHasher(hasher)),
		log:     o.logger.WithField("repo", root),
		now:     o.clock,
	}
}

// HeadRef returns the raw HEAD value without resolving it: a ref name such
// as "refs/heads/main" when attached, or a literal commit id when detached.
func (r *Repo) HeadRef() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.PgitDir, "HEAD"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("head: %w", object.ErrNotFound)
		}
		return "", fmt.Errorf("head: %w: %w", object.ErrStorage, err)
	}
	content := strings.TrimSpace(string(data))
	return strings.TrimSpace(strings.TrimPrefix(content, symbolicPrefix)), nil
}

// SetHead points HEAD at target. A target starting with "refs/" attaches
// HEAD to that ref; anything else must be a commit id and detaches HEAD.
func (r *Repo) SetHead(target string) error {
	target = strings.TrimSpace(target)
	var content string
	switch {
	case strings.HasPrefix(target, "refs/"):
		content = symbolicPrefix + target + "\n"
	case object.ValidHash(r.Store.Hasher(), object.Hash(target)):
		content = target + "\n"
	default:
		return fmt.Errorf("set HEAD %q: %w", target, object.ErrInvalidArgument)
	}
	if err := renameio.WriteFile(filepath.Join(r.PgitDir, "HEAD"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("set HEAD: %w: %w", object.ErrStorage, err)
	}
	r.log.WithField("head", target).Debug("HEAD moved")
	return nil
}

// ResolveHead resolves HEAD to a commit id. An attached HEAD follows exactly
// one indirection to its branch: a missing branch is ErrDanglingRef, a
// branch without commits is ErrUnbornBranch. A detached HEAD returns its
// literal id.
func (r *Repo) ResolveHead() (object.Hash, error) {
	return r.resolveRef("HEAD", 1, false)
}

// ResolveRef resolves a ref name to an object hash.
//
// Resolution order:
//  1. "HEAD" resolves as ResolveHead.
//  2. Names starting with "refs/" are read from .pgit/<name>.
//  3. Otherwise "refs/heads/<name>" is read.
//
// A symbolic ref is followed at most one hop.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("resolve ref: %w: empty name", object.ErrInvalidArgument)
	case name == "HEAD":
		return r.ResolveHead()
	case strings.HasPrefix(name, "refs/"):
		return r.resolveRef(name, 1, false)
	default:
		return r.resolveRef(headsPrefix+name, 1, false)
	}
}

// ResolveRevision accepts a branch name, a full ref name, "HEAD" or a full
// commit id present in the store.
func (r *Repo) ResolveRevision(rev string) (object.Hash, error) {
	h, err := r.ResolveRef(rev)
	if err == nil || !errors.Is(err, object.ErrNotFound) {
		return h, err
	}
	if cand := object.Hash(strings.TrimSpace(rev)); r.Store.Contains(cand) {
		return cand, nil
	}
	return "", err
}

func (r *Repo) resolveRef(name string, hopsLeft int, viaSymbolic bool) (object.Hash, error) {
	if err := validateRefName(name); err != nil {
		return "", fmt.Errorf("resolve ref %q: %w", name, err)
	}
	data, err := os.ReadFile(r.refPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if viaSymbolic {
				return "", fmt.Errorf("resolve ref %q: %w", name, ErrDanglingRef)
			}
			return "", fmt.Errorf("resolve ref %q: %w", name, object.ErrNotFound)
		}
		return "", fmt.Errorf("resolve ref %q: %w: %w", name, object.ErrStorage, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("resolve ref %q: %w", name, ErrUnbornBranch)
	}
	if strings.HasPrefix(content, symbolicPrefix) {
		target := strings.TrimSpace(strings.TrimPrefix(content, symbolicPrefix))
		if hopsLeft == 0 {
			return "", fmt.Errorf("resolve ref %q -> %q: %w: more than one symbolic hop", name, target, ErrDanglingRef)
		}
		if !strings.HasPrefix(target, "refs/") {
			return "", fmt.Errorf("resolve ref %q: %w: symbolic target %q", name, ErrDanglingRef, target)
		}
		return r.resolveRef(target, hopsLeft-1, true)
	}

	h := object.Hash(content)
	if !object.ValidHash(r.Store.Hasher(), h) {
		return "", fmt.Errorf("resolve ref %q: %w: malformed value %q", name, ErrDanglingRef, content)
	}
	return h, nil
}

func (r *Repo) refPath(name string) string {
	return filepath.Join(r.PgitDir, filepath.FromSlash(name))
}

func validateRefName(name string) error {
	if name == "HEAD" {
		return nil
	}
	if !strings.HasPrefix(name, "refs/") {
		return fmt.Errorf("%w: ref %q must start with refs/", object.ErrInvalidArgument, name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.HasSuffix(seg, ".lock") {
			return fmt.Errorf("%w: malformed ref %q", object.ErrInvalidArgument, name)
		}
	}
	if strings.ContainsAny(name, " \t\n\x00\\:") {
		return fmt.Errorf("%w: malformed ref %q", object.ErrInvalidArgument, name)
	}
	return nil
}

// UpdateRef writes a hash to the named ref file under .pgit/. Parent
// directories are created as needed.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.UpdateRefCAS(name, h)
}

// UpdateRefCAS writes a hash to the named ref file under .pgit/ using
// lockfile + rename atomic semantics. If expectedOld is provided, the
// update only succeeds when the current ref hash matches it. An empty h
// leaves the ref unborn.
//
// Reflog append happens after the ref rename; if reflog append fails, the ref
// update remains committed and a RefUpdateReflogError is returned.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	return r.updateRefCAS(name, h, "update", expectedOld...)
}

func (r *Repo) updateRefCAS(name string, h object.Hash, reason string, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("update ref %q: %w", name, err)
	}
	if h != "" && !object.ValidHash(r.Store.Hasher(), h) {
		return fmt.Errorf("update ref %q: %w: malformed hash %q", name, object.ErrInvalidArgument, h)
	}
	hasExpectedOld := len(expectedOld) == 1
	wantOldHash := object.Hash("")
	if hasExpectedOld {
		wantOldHash = expectedOld[0]
	}

	refPath := r.refPath(name)

	dir := filepath.Dir(refPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w: %w", name, object.ErrStorage, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w: %w", name, object.ErrStorage, err)
	}
	if hasExpectedOld && oldHash != wantOldHash {
		return fmt.Errorf(
			"update ref %q: %w (expected %s, found %s)",
			name,
			ErrRefCASMismatch,
			wantOldHash,
			oldHash,
		)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w: %w", name, object.ErrStorage, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w: %w", name, object.ErrStorage, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w: %w", name, object.ErrStorage, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w: %w", name, object.ErrStorage, err)
	}
	cleanupLock = false

	r.log.WithFields(logrus.Fields{"ref": name, "old": oldHash.Short(), "new": h.Short()}).Debug("ref updated")

	if err := r.appendReflog(name, oldHash, h, reason); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: h,
			Err:     err,
		}
	}

	return nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// readRefHash returns the literal content of a ref file. Symbolic content is
// returned verbatim so a CAS against it never matches a commit id.
func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}
