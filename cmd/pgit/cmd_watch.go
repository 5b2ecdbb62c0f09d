package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/odvcencio/pgit/pkg/repo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Commit a snapshot whenever the work tree settles after changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			w := &watcher{
				r:        r,
				log:      a.log,
				out:      cmd.OutOrStdout(),
				debounce: a.v.GetDuration("watch.debounce"),
				message:  a.v.GetString("watch.message"),
				author:   a.author(),
			}
			return w.run(ctx)
		},
	}

	cmd.Flags().Duration("debounce", 0, "quiet period before snapshotting (default from watch.debounce, 2s)")
	cmd.Flags().StringP("message", "m", "", "commit message for snapshots (default from watch.message)")
	mustBind(a.v, "watch.debounce", cmd.Flags().Lookup("debounce"))
	mustBind(a.v, "watch.message", cmd.Flags().Lookup("message"))
	return cmd
}

// watcher turns bursts of file system events into single commits. Every
// event restarts the quiet-period timer; when it fires, the work tree is
// committed unless it matches HEAD.
type watcher struct {
	r        *repo.Repo
	log      logrus.FieldLogger
	out      io.Writer
	debounce time.Duration
	message  string
	author   string

	// committed, when set, receives the id of each snapshot commit.
	committed chan<- string
}

func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	ic, err := repo.NewIgnoreChecker(w.r.RootDir)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := w.addTree(fw, ic, w.r.RootDir); err != nil {
		return err
	}
	if w.debounce <= 0 {
		w.debounce = 2 * time.Second
	}
	w.log.WithFields(logrus.Fields{"root": w.r.RootDir, "debounce": w.debounce}).Info("watching")

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			if pending {
				w.snapshot()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(w.r.RootDir, ev.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			isDir := false
			if info, err := os.Stat(ev.Name); err == nil {
				isDir = info.IsDir()
			}
			if ic.IsIgnored(rel, isDir) {
				continue
			}
			if isDir && ev.Has(fsnotify.Create) {
				if err := w.addTree(fw, ic, ev.Name); err != nil {
					w.log.WithError(err).Warn("watch: cannot follow new directory")
				}
			}
			w.log.WithFields(logrus.Fields{"path": rel, "op": ev.Op.String()}).Debug("change")
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			w.snapshot()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch: watcher error")
		}
	}
}

func (w *watcher) snapshot() {
	msg := fmt.Sprintf("%s %s", w.message, w.r.Now().UTC().Format(time.RFC3339))
	h, err := w.r.Commit(msg, w.author)
	if errors.Is(err, repo.ErrNothingToCommit) {
		w.log.Debug("watch: no changes since HEAD")
		return
	}
	if err != nil {
		w.log.WithError(err).Error("watch: snapshot failed")
		return
	}
	fmt.Fprintf(w.out, "%s %s\n", h.Short(), msg)
	if w.committed != nil {
		w.committed <- string(h)
	}
}

// addTree registers root and every non-ignored directory below it.
func (w *watcher) addTree(fw *fsnotify.Watcher, ic *repo.IgnoreChecker, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.r.RootDir {
			rel, err := filepath.Rel(w.r.RootDir, path)
			if err != nil {
				return err
			}
			if ic.IsIgnored(filepath.ToSlash(rel), true) {
				return filepath.SkipDir
			}
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
