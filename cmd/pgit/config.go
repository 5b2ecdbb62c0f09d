package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("watch.debounce", 2*time.Second)
	v.SetDefault("watch.message", "auto snapshot")
}

// loadConfig reads the user configuration. Precedence, highest first: flags,
// PGIT_* environment variables, the config file, defaults. A missing config
// file is not an error.
func (a *app) loadConfig() error {
	setDefaults(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".pgit"))
		}
	}

	a.v.SetEnvPrefix("PGIT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if a.cfgFile == "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config file: %w", err)
	}
	return nil
}

func (a *app) setupLogging(cmd *cobra.Command) error {
	a.log.SetOutput(cmd.ErrOrStderr())

	levelName := a.v.GetString("log.level")
	if a.verbose {
		levelName = "debug"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	a.log.SetLevel(level)

	switch a.v.GetString("log.format") {
	case "json":
		a.log.SetFormatter(&logrus.JSONFormatter{})
	default:
		a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: !a.verbose})
	}

	if f := a.v.ConfigFileUsed(); f != "" {
		a.log.WithField("file", f).Debug("using config file")
	}
	return nil
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
