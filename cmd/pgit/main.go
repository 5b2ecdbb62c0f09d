package main

import (
	"fmt"
	"os"

	"github.com/odvcencio/pgit/pkg/repo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.1.0-dev"

// app carries the state shared by every subcommand: the resolved
// configuration, the logger and the directory to operate in.
type app struct {
	v       *viper.Viper
	log     *logrus.Logger
	cfgFile string
	dir     string
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: logrus.New()}

	root := &cobra.Command{
		Use:           "pgit",
		Short:         "Content-addressed snapshots of a project tree",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			return a.setupLogging(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.pgit/config.yaml)")
	pf.StringVarP(&a.dir, "dir", "C", ".", "run as if started in this directory")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.String("log-level", "", "log level (panic, fatal, error, warn, info, debug, trace)")
	pf.String("author", "", "author for commits and stashes (default: user.name)")
	mustBind(a.v, "log.level", pf.Lookup("log-level"))
	mustBind(a.v, "user.name", pf.Lookup("author"))

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newCommitCmd(a))
	root.AddCommand(newLogCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newBranchCmd(a))
	root.AddCommand(newCheckoutCmd(a))
	root.AddCommand(newStashCmd(a))
	root.AddCommand(newCatObjectCmd(a))
	root.AddCommand(newVerifyCmd(a))
	root.AddCommand(newBundleCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newReflogCmd(a))

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pgit "+version)
		},
	}
}

// openRepo opens the repository containing a.dir.
func (a *app) openRepo() (*repo.Repo, error) {
	return repo.Open(a.dir, repo.WithLogger(a.log))
}

// author returns the identity from --author, PGIT_USER_NAME or the user
// config file. An empty result defers to the repository's user.name.
func (a *app) author() string {
	return a.v.GetString("user.name")
}
