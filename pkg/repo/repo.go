package repo

import (
	"io"
	"time"

	"github.com/odvcencio/pgit/pkg/object"
	"github.com/sirupsen/logrus"
)

// Repo represents an opened pgit repository. Every operation goes through an
// explicit *Repo; there is no process-wide current repository.
type Repo struct {
	RootDir string        // working directory root
	PgitDir string        // .pgit/ directory
	Store   *object.Store // content-addressed object store

	log logrus.FieldLogger
	now func() time.Time
}

// Option configures Init and Open.
type Option func(*options)

type options struct {
	hashAlgorithm string
	defaultBranch string
	logger        logrus.FieldLogger
	clock         func() time.Time
}

// WithHashAlgorithm selects the object hasher for a new repository. Open
// ignores it and uses the algorithm recorded in config.toml.
func WithHashAlgorithm(name string) Option {
	return func(o *options) { o.hashAlgorithm = name }
}

// WithDefaultBranch sets the branch HEAD is attached to after Init.
func WithDefaultBranch(name string) Option {
	return func(o *options) { o.defaultBranch = name }
}

// WithLogger routes debug logging (ref moves, skipped history nodes,
// snapshot statistics) to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the time source used for commit and reflog timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

func buildOptions(opts []Option) options {
	o := options{
		hashAlgorithm: object.HashSHA256,
		defaultBranch: "main",
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.logger = l
	}
	return o
}

// Logger returns the logger the repository was opened with.
func (r *Repo) Logger() logrus.FieldLogger { return r.log }

// Now returns the current time from the repository clock.
func (r *Repo) Now() time.Time { return r.now() }
