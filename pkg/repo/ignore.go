package repo

import (
	"fmt"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFile is the per-repository ignore file, gitignore syntax.
const IgnoreFile = ".pgitignore"

// IgnoreChecker determines if a work tree path should be left out of
// snapshots. Repository metadata directories are always ignored.
type IgnoreChecker struct {
	ignorer *gitignore.GitIgnore
}

var defaultIgnoreRules = []string{
	".pgit",
	".git",
}

// NewIgnoreChecker compiles the default rules plus .pgitignore at repoRoot,
// if present.
func NewIgnoreChecker(repoRoot string) (*IgnoreChecker, error) {
	path := filepath.Join(repoRoot, IgnoreFile)
	if _, err := os.Stat(path); err != nil {
		return &IgnoreChecker{ignorer: gitignore.CompileIgnoreLines(defaultIgnoreRules...)}, nil
	}
	ig, err := gitignore.CompileIgnoreFileAndLines(path, defaultIgnoreRules...)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", IgnoreFile, err)
	}
	return &IgnoreChecker{ignorer: ig}, nil
}

// IsIgnored reports whether rel (slash-separated, relative to the work tree
// root) is ignored. Directory-only patterns ("build/") match when isDir.
func (ic *IgnoreChecker) IsIgnored(rel string, isDir bool) bool {
	if ic == nil || ic.ignorer == nil {
		return false
	}
	if ic.ignorer.MatchesPath(rel) {
		return true
	}
	return isDir && ic.ignorer.MatchesPath(rel+"/")
}
